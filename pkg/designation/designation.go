// Package designation canonicalizes free-text project designations.
// A designation such as "P802.1Qcc" or "802.1AS-Rev" encodes the kind of
// project and the base standard it applies to; Parse recovers both.
package designation

import (
	"regexp"

	"github.com/partrack/partrack/pkg/types"
)

// rule pairs an anchored structural pattern with the project type it
// names. Rules are evaluated in order and the first match wins, so the
// suffixed forms must come before the bare form would swallow them.
type rule struct {
	pattern *regexp.Regexp
	ptype   func(match []string) types.ProjectType
}

var rules = []rule{
	{
		// Bare or dotted 802 form with an uppercase project letter group,
		// optionally followed by a lowercase amendment suffix.
		pattern: regexp.MustCompile(`^P*(802(?:\.\d+)*(?:[A-Z]+|[a-z]+))([a-z]*)$`),
		ptype: func(m []string) types.ProjectType {
			if m[2] == "" {
				return types.NewStandard
			}
			return types.Amendment
		},
	},
	{
		pattern: regexp.MustCompile(`^P*(802(?:\.\d+)(?:[A-Z]+|[a-z]+))-[rR][eE][vV]$`),
		ptype:   func([]string) types.ProjectType { return types.Revision },
	},
	{
		pattern: regexp.MustCompile(`^P*(802(?:\.\d+)(?:[A-Z]+|[a-z]+)-*\d*)/[cC][oO][rR]-*\d+$`),
		ptype:   func([]string) types.ProjectType { return types.Corrigendum },
	},
	{
		pattern: regexp.MustCompile(`^P*(802(?:\.\d+)(?:[A-Z]+|[a-z]+)-*\d*)/[eE][rR][rR]-*\d+$`),
		ptype:   func([]string) types.ProjectType { return types.Erratum },
	},
}

// Parse maps a free-text designation to its project type and base
// standard. The base keeps the project letter group but drops any
// amendment suffix: "P802.1Qcc" yields (Amendment, "802.1Q").
// Input matching no structural rule returns ok == false; callers must
// not assume a result.
func Parse(text string) (ptype types.ProjectType, base string, ok bool) {
	for _, r := range rules {
		if m := r.pattern.FindStringSubmatch(text); m != nil {
			return r.ptype(m), m[1], true
		}
	}
	return "", "", false
}
