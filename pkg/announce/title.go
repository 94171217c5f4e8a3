package announce

import (
	"regexp"
	"strconv"
	"strings"
)

// Title holds the fields captured from a ballot-announcement subject in
// the archive index, e.g.
// "[802.1 - 123] Working group recirc ballot of P802.1Qcc/D1.2".
type Title struct {
	Number    int    // the archive item number
	GroupType string // "Working", "Task", ...
	Recirc    bool
	Draft     string // "P802.1Qcc/D1.2"
}

var titlePattern = regexp.MustCompile(
	`(?i)^\[802.1 - (?P<number>\d+)\]\s+(?P<type>\w+)\sgroup\s+(?P<recirc>recirc\w*)?\s*ballot\s+(?:of|for)\s+(?P<draft>P?802\S+)`)

var responsePrefix = regexp.MustCompile(`^[Rr][Ee]`)

// IsResponse reports whether a message title is a reply to an earlier
// thread rather than an announcement.
func IsResponse(title string) bool {
	return responsePrefix.MatchString(title)
}

// ParseTitle matches a message title against the ballot-announcement
// pattern. Titles that do not match are malformed for our purposes and
// the caller counts and skips them.
func ParseTitle(title string) (Title, bool) {
	m := titlePattern.FindStringSubmatch(title)
	if m == nil {
		return Title{}, false
	}
	number, err := strconv.Atoi(m[titlePattern.SubexpIndex("number")])
	if err != nil {
		return Title{}, false
	}
	return Title{
		Number:    number,
		GroupType: m[titlePattern.SubexpIndex("type")],
		Recirc:    m[titlePattern.SubexpIndex("recirc")] != "",
		Draft:     m[titlePattern.SubexpIndex("draft")],
	}, true
}

// taskGroupType matches the group-type token of a task group ballot.
var taskGroupType = regexp.MustCompile(`(?i)task`)

// EventName builds the timeline event name for a ballot announcement:
// "WG ballot: D1.2", "TG recirc: D2.0", and so on.
func (t Title) EventName(draftNo string) string {
	group := "WG"
	if taskGroupType.MatchString(t.GroupType) {
		group = "TG"
	}
	kind := "ballot"
	if t.Recirc {
		kind = "recirc"
	}
	return group + " " + kind + ": " + draftNo
}

// EventDescription builds the timeline event description:
// "Working group recirculation ballot of P802.1Qcc/D1.2".
func (t Title) EventDescription() string {
	recirc := ""
	if t.Recirc {
		recirc = "recirculation "
	}
	return t.GroupType + " group " + recirc + "ballot of " + t.Draft
}

// SplitDraft splits a draft designation like "P802.1Qcc/D1.2" into the
// bare designation (leading P stripped) and the draft number. The draft
// number keeps its D prefix; it is empty when the title named no draft.
func SplitDraft(draft string) (designation, draftNo string) {
	designation, rest, found := strings.Cut(draft, "/D")
	designation = strings.TrimLeft(designation, "P")
	if found {
		draftNo = "D" + rest
	}
	return designation, draftNo
}
