// Package htmlquery provides the structural queries the crawlers need
// over golang.org/x/net/html documents: finding elements by tag and
// class, extracting text and attributes, and walking flat child lists.
// The external listings are table-based pages with stable class markers,
// so a handful of traversal helpers covers every selector in use.
package htmlquery

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Parse reads and parses an HTML document.
func Parse(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (*html.Node, error) {
	return html.Parse(strings.NewReader(s))
}

// IsElement reports whether n is an element with the given tag name.
func IsElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == tag
}

// Attr returns the value of the named attribute, or "".
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasClass reports whether the element carries the given class token.
func HasClass(n *html.Node, class string) bool {
	for _, token := range strings.Fields(Attr(n, "class")) {
		if token == class {
			return true
		}
	}
	return false
}

// matches reports whether n is an element of the given tag carrying the
// given class; empty tag or class matches anything.
func matches(n *html.Node, tag, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if tag != "" && n.Data != tag {
		return false
	}
	if class != "" && !HasClass(n, class) {
		return false
	}
	return true
}

// Find returns the first descendant element matching tag and class, in
// document order. Either selector may be empty. Returns nil when no
// element matches.
func Find(n *html.Node, tag, class string) *html.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if matches(c, tag, class) {
			return c
		}
		if found := Find(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant element matching tag and class, in
// document order.
func FindAll(n *html.Node, tag, class string) []*html.Node {
	var out []*html.Node
	if n == nil {
		return out
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if matches(c, tag, class) {
			out = append(out, c)
		}
		out = append(out, FindAll(c, tag, class)...)
	}
	return out
}

// Text returns the concatenated text of every descendant text node,
// verbatim. Newlines in the source are preserved, which the line-based
// announcement segmenter depends on.
func Text(n *html.Node) string {
	var sb strings.Builder
	collectText(n, &sb)
	return sb.String()
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

// TrimmedText returns the element's text with surrounding whitespace
// removed, for table cells and labels.
func TrimmedText(n *html.Node) string {
	return strings.TrimSpace(Text(n))
}

// ElementChildren returns the direct element children of n.
func ElementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	if n == nil {
		return out
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// FirstElementChild returns the first direct element child, or nil.
func FirstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// FlatChildren returns the direct children of n that carry content:
// element nodes plus non-blank text nodes. Label/value listings are
// scanned as such a flat sequence, testing each node's text against
// recognized headings and reading the value from the node that follows.
func FlatChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	if n == nil {
		return out
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			out = append(out, c)
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				out = append(out, c)
			}
		}
	}
	return out
}

// NodeText returns the text of a flat-scan node: the data of a text
// node, or the subtree text of an element.
func NodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	return TrimmedText(n)
}
