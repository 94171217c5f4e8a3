package announce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partrack/partrack/internal/htmlquery"
	"github.com/partrack/partrack/pkg/types"
)

const announcementPage = `<html><body>
<ul>
<li><em>Subject</em>: [802.1 - 123] Working group recirc ballot of P802.1Qcc/D1.2</li>
<li><em>Date</em>: Tue, 9 Jan 2018 17:03:33 +0000</li>
</ul>
<pre>
TO: 802.1 Voting Members
NOTE THAT ALL BALLOT RESPONSES GO TO THE REFLECTOR
INCLUDE COMMENTS ONLY IN THE ATTACHED FORM

This is a working group recirculation ballot of P802.1Qcc/D1.2.
The ballot documents can be found at the usual place.
The 802.1 voting members that are entitled to vote are listed below:
Alice Example
Bob Sample
The closing date of this ballot is
23 Jan 2018
==========================================
Trailing boilerplate that must be ignored.
</pre>
</body></html>`

func TestParseAnnouncement(t *testing.T) {
	doc, err := htmlquery.ParseString(announcementPage)
	require.NoError(t, err)

	ann, err := Parse(doc, "http://archive/msg00123.html")
	require.NoError(t, err)

	assert.Equal(t, "802.1 Voting Members", ann.Name)
	assert.True(t, ann.Date.Equal(types.NewDate(2018, time.January, 9)), "posting date = %s", ann.Date)

	require.NotNil(t, ann.Closing)
	assert.True(t, ann.Closing.Equal(types.NewDate(2018, time.January, 23)), "closing date = %s", ann.Closing)

	assert.Contains(t, ann.Voters, "Alice Example")
	assert.Contains(t, ann.Voters, "Bob Sample")
	assert.NotContains(t, ann.Voters, "closing date")
	assert.NotContains(t, ann.Body, "Trailing boilerplate")
}

func TestParseRejectsNonAnnouncement(t *testing.T) {
	const page = `<html><body>
<ul><li><em>Date</em>: Tue, 9 Jan 2018 17:03:33 +0000</li></ul>
<pre>
TO: Someone
Just a regular email with no ballot form markers.
</pre></body></html>`
	doc, err := htmlquery.ParseString(page)
	require.NoError(t, err)

	ann, err := Parse(doc, "http://archive/msg00124.html")
	assert.Nil(t, ann, "gate failure must return no partial data")
	assert.Error(t, err)
}

func TestParseRequiresToField(t *testing.T) {
	const page = `<html><body>
<ul><li><em>Date</em>: Tue, 9 Jan 2018 17:03:33 +0000</li></ul>
<pre>
NOTE THAT ALL BALLOT RESPONSES GO TO THE REFLECTOR
INCLUDE COMMENTS ONLY IN THE ATTACHED FORM
No addressee line in this one.
</pre></body></html>`
	doc, err := htmlquery.ParseString(page)
	require.NoError(t, err)

	ann, err := Parse(doc, "http://archive/msg00125.html")
	assert.Nil(t, ann)
	assert.Error(t, err)
}

func TestParseTitle(t *testing.T) {
	title, ok := ParseTitle("[802.1 - 123] Working group recirc ballot of P802.1Qcc/D1.2")
	require.True(t, ok)

	assert.Equal(t, 123, title.Number)
	assert.Equal(t, "Working", title.GroupType)
	assert.True(t, title.Recirc)
	assert.Equal(t, "P802.1Qcc/D1.2", title.Draft)

	desig, draftNo := SplitDraft(title.Draft)
	assert.Equal(t, "802.1Qcc", desig)
	assert.Equal(t, "D1.2", draftNo)

	assert.Equal(t, "WG recirc: D1.2", title.EventName(draftNo))
	assert.Equal(t, "Working group recirculation ballot of P802.1Qcc/D1.2", title.EventDescription())
}

func TestParseTitleVariants(t *testing.T) {
	title, ok := ParseTitle("[802.1 - 88] Task group ballot for P802.1CB/D2.0")
	require.True(t, ok)
	assert.Equal(t, 88, title.Number)
	assert.Equal(t, "Task", title.GroupType)
	assert.False(t, title.Recirc)
	assert.Equal(t, "TG ballot: D2.0", title.EventName("D2.0"))

	_, ok = ParseTitle("802.1 agenda for the March plenary")
	assert.False(t, ok)
}

func TestIsResponse(t *testing.T) {
	assert.True(t, IsResponse("Re: [802.1 - 123] Working group recirc ballot of P802.1Qcc/D1.2"))
	assert.True(t, IsResponse("RE: something"))
	assert.False(t, IsResponse("[802.1 - 123] Working group ballot of P802.1X/D1.0"))
}
