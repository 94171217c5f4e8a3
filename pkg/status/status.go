// Package status canonicalizes free-text status and motion strings into
// a fixed vocabulary of labels. The vocabulary is open: text matching no
// rule passes through unchanged, so downstream consumers must not assume
// membership in the known set.
package status

import (
	"regexp"
	"strings"

	"github.com/partrack/partrack/pkg/dates"
	"github.com/partrack/partrack/pkg/types"
)

// Canonical labels emitted by the normalizer. Extend only by adding
// ordered rules below.
const (
	WgBallotRecirc    = "WgBallotRecirc"
	WgBallot          = "WgBallot"
	TgBallotRecirc    = "TgBallotRecirc"
	TgBallot          = "TgBallot"
	EditorsDraft      = "EditorsDraft"
	SponsorBallotCond = "SponsorBallotCond"
	SponsorBallot     = "SponsorBallot"
	ParDevelopment    = "ParDevelopment"
	ParApproved       = "ParApproved"
	ParApproval       = "ParApproval"
	ParMod            = "ParMod"
	RevComCond        = "RevComCond"
	RevCom            = "RevCom"
	Withdrawal        = "Withdrawal"
	Done              = "Done"
)

// Rule maps a free-text condition to a canonical label. Rules are
// evaluated top to bottom and the first match wins, so the recirc forms
// must precede the plain ballot forms.
type Rule struct {
	Pattern *regexp.Regexp
	Label   string
}

// StatusRules is the ordered table for spreadsheet status strings.
var StatusRules = []Rule{
	{regexp.MustCompile(`WG\s*[bB]allot[- ]*[rR]ecirc`), WgBallotRecirc},
	{regexp.MustCompile(`WG\s*[bB]allot$`), WgBallot},
	{regexp.MustCompile(`TG\s*[bB]allot[- ]*[rR]ecirc`), TgBallotRecirc},
	{regexp.MustCompile(`TG\s*[bB]allot$`), TgBallot},
	{regexp.MustCompile(`Editor`), EditorsDraft},
	{regexp.MustCompile(`Sponsor\s*[bB]allot[- ]*[cC]ond`), SponsorBallotCond},
	{regexp.MustCompile(`Sponsor\s*[bB]allot$`), SponsorBallot},
	{regexp.MustCompile(`PAR\s*[dD]evelop`), ParDevelopment},
	{regexp.MustCompile(`PAR\s*[aA]pproved`), ParApproved},
}

// MotionRules is the ordered table for last-motion and next-action
// strings. It shares the ballot rules with StatusRules but recognizes
// the approval/RevCom vocabulary the status column never uses.
var MotionRules = []Rule{
	{regexp.MustCompile(`WG\s*[bB]allot[- ]*[rR]ecirc`), WgBallotRecirc},
	{regexp.MustCompile(`WG\s*[bB]allot$`), WgBallot},
	{regexp.MustCompile(`TG\s*[bB]allot[- ]*[rR]ecirc`), TgBallotRecirc},
	{regexp.MustCompile(`TG\s*[bB]allot$`), TgBallot},
	{regexp.MustCompile(`Editor`), EditorsDraft},
	{regexp.MustCompile(`Sponsor\s*[bB]allot[- ]*[cC]ond`), SponsorBallotCond},
	{regexp.MustCompile(`Sponsor\s*[bB]allot$`), SponsorBallot},
	{regexp.MustCompile(`PAR\s*[dD]evelop`), ParDevelopment},
	{regexp.MustCompile(`PAR\s*[aA]pproval`), ParApproval},
	{regexp.MustCompile(`PAR\s*[mM]od`), ParMod},
	{regexp.MustCompile(`RevCom\s*[-*]\s*[cC]ond`), RevComCond},
	{regexp.MustCompile(`RevCom$`), RevCom},
	{regexp.MustCompile(`[wW]ithdraw`), Withdrawal},
}

// normalize runs text through an ordered rule table; first match wins,
// unmatched text is returned unchanged.
func normalize(text string, rules []Rule) string {
	for _, r := range rules {
		if r.Pattern.MatchString(text) {
			return r.Label
		}
	}
	return text
}

// ParseStatus canonicalizes a status string. A trailing " - <date>"
// suffix, when its date parses, yields one synthetic event named after
// the canonical status, with a description embedding the original text
// and the parsed date.
func ParseStatus(text string) (string, []types.Event) {
	head, tail, hasTail := strings.Cut(text, " - ")
	label := normalize(head, StatusRules)

	var events []types.Event
	if hasTail {
		if date, ok := dates.Parse(tail); ok {
			events = append(events, types.Event{
				Date:        date,
				Name:        label,
				Description: text + ": " + date.String(),
			})
		}
	}
	return label, events
}

// ParseMotion canonicalizes a last-motion or next-action string. Absent
// input means the motion is complete: empty text maps to Done.
func ParseMotion(text string) string {
	if strings.TrimSpace(text) == "" {
		return Done
	}
	return normalize(text, MotionRules)
}
