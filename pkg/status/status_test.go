package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partrack/partrack/pkg/types"
)

func TestParseStatusLabels(t *testing.T) {
	tests := map[string]string{
		"WG Ballot":           WgBallot,
		"WG ballot recirc":    WgBallotRecirc,
		"WG Ballot-Recirc":    WgBallotRecirc,
		"TG Ballot":           TgBallot,
		"TG ballot Recirc":    TgBallotRecirc,
		"Editor's Draft":      EditorsDraft,
		"Sponsor Ballot":      SponsorBallot,
		"Sponsor ballot cond": SponsorBallotCond,
		"PAR Development":     ParDevelopment,
		"PAR Approved":        ParApproved,
	}
	for in, want := range tests {
		got, events := ParseStatus(in)
		assert.Equal(t, want, got, "ParseStatus(%q)", in)
		assert.Empty(t, events, "ParseStatus(%q) should emit no event", in)
	}
}

func TestParseStatusWithDateSuffix(t *testing.T) {
	label, events := ParseStatus("TG Ballot - 3 Jan 2018")
	assert.Equal(t, TgBallot, label)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, TgBallot, ev.Name)
	assert.True(t, ev.Date.Equal(types.NewDate(2018, time.January, 3)), "event date = %s", ev.Date)
	assert.Equal(t, "TG Ballot - 3 Jan 2018: 2018-01-03", ev.Description)
}

func TestParseStatusUnparseableDateSuffix(t *testing.T) {
	// A suffix that is not a date is no fact at all, not an error.
	label, events := ParseStatus("WG Ballot - soonish")
	assert.Equal(t, WgBallot, label)
	assert.Empty(t, events)
}

func TestParseStatusIdentityFallback(t *testing.T) {
	// Already-canonical labels and unknown statuses pass through
	// unchanged: the vocabulary is open.
	for _, in := range []string{TgBallot, WgBallotRecirc, ParDevelopment, Done, "Hibernating"} {
		got, events := ParseStatus(in)
		assert.Equal(t, in, got, "ParseStatus(%q) should be identity", in)
		assert.Empty(t, events)
	}
}

func TestParseMotion(t *testing.T) {
	tests := map[string]string{
		"":                  Done,
		"   ":               Done,
		"WG Ballot":         WgBallot,
		"PAR approval":      ParApproval,
		"PAR mod":           ParMod,
		"RevCom - cond":     RevComCond,
		"RevCom":            RevCom,
		"withdrawal motion": Withdrawal,
		"Interim review":    "Interim review",
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseMotion(in), "ParseMotion(%q)", in)
	}
}

func TestRuleOrderRecircBeforePlain(t *testing.T) {
	// The recirc rules must shadow the plain ballot rules; a reordered
	// table would misfile every recirculation.
	got, _ := ParseStatus("WG Ballot recirc #2")
	assert.Equal(t, WgBallotRecirc, got)
	assert.Equal(t, TgBallotRecirc, ParseMotion("TG ballot-recirc"))
}
