package htmlquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `<html><body>
<div class="pager other">
  <span>pages</span>
  <a href="/page/1">1</a>
  <a href="/page/2">next</a>
</div>
<table>
  <tr class="b_data_row"><td><a href="/par/1">802.1Qcc</a></td><td>Amendment</td></tr>
  <tr class="b_data_row"><td><a href="/par/2">802.1CB</a></td><td>New</td></tr>
  <tr><td>footer</td></tr>
</table>
<div class="box">Type of Project
  <span>Amendment to IEEE Standard</span>
  PAR Request Date
  <span>13-Feb-2019</span>
</div>
</body></html>`

func TestFindByClass(t *testing.T) {
	doc, err := ParseString(fixture)
	require.NoError(t, err)

	pager := Find(doc, "div", "pager")
	require.NotNil(t, pager)
	assert.True(t, HasClass(pager, "pager"))
	assert.True(t, HasClass(pager, "other"))
	assert.False(t, HasClass(pager, "page"))

	rows := FindAll(doc, "tr", "b_data_row")
	assert.Len(t, rows, 2)
}

func TestAnchorsAndAttrs(t *testing.T) {
	doc, err := ParseString(fixture)
	require.NoError(t, err)

	pager := Find(doc, "div", "pager")
	anchors := FindAll(pager, "a", "")
	require.Len(t, anchors, 2)
	assert.Equal(t, "/page/2", Attr(anchors[len(anchors)-1], "href"))
	assert.Equal(t, "", Attr(anchors[0], "missing"))
}

func TestRowText(t *testing.T) {
	doc, err := ParseString(fixture)
	require.NoError(t, err)

	rows := FindAll(doc, "tr", "b_data_row")
	require.NotEmpty(t, rows)
	cells := FindAll(rows[0], "td", "")
	require.Len(t, cells, 2)
	assert.Equal(t, "802.1Qcc", TrimmedText(cells[0]))
	assert.Equal(t, "/par/1", Attr(FirstElementChild(cells[0]), "href"))
}

func TestFlatChildrenPairsLabelsWithValues(t *testing.T) {
	doc, err := ParseString(fixture)
	require.NoError(t, err)

	box := Find(doc, "div", "box")
	require.NotNil(t, box)
	flat := FlatChildren(box)
	require.Len(t, flat, 4)

	assert.Equal(t, "Type of Project", NodeText(flat[0]))
	assert.Equal(t, "Amendment to IEEE Standard", NodeText(flat[1]))
	assert.Equal(t, "PAR Request Date", NodeText(flat[2]))
	assert.Equal(t, "13-Feb-2019", NodeText(flat[3]))
}
