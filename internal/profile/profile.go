// Package profile defines analysis profiles that modulate oracle prompt
// construction. Each profile provides a SystemPromptAddendum that is appended
// to the system prompt sent to the oracle.
package profile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/lexiscan/internal/schema"
)

// Profile describes a review strategy.
type Profile struct {
	Name                 string
	Description          string
	SystemPromptAddendum string
	// DefaultMode is the oracle granularity used when a request names none.
	DefaultMode schema.Mode
}

// builtins is the registry of built-in profiles keyed by name.
var builtins = map[string]Profile{
	"general": {
		Name:        "general",
		Description: "Any document: contracts, letters, rules, exam papers. Flags vagueness, inconsistencies, and risk.",
		SystemPromptAddendum: "Never refuse to analyze. Even for a shopping list, look for missing precision " +
			"(quantities, prices). For an exam paper, check that the instructions are unambiguous. " +
			"If everything looks safe, say so, but still suggest the smallest useful improvement.",
		DefaultMode: schema.ModeDocument,
	},
	"contract": {
		Name:        "contract",
		Description: "Senior French and EU contract-law review (Code de la consommation, Loi Alur, GDPR).",
		SystemPromptAddendum: "You are a senior expert in French and European contract law. Compare each clause " +
			"strictly against statute and case law in force. When a clause is risky or unlawful, cite the " +
			"precise article violated (e.g. Art. R212-1 Code de la consommation) in legal_reference and " +
			"explain why in one plain sentence. Stay factual and concise.",
		DefaultMode: schema.ModeClause,
	},
	"lease": {
		Name:        "lease",
		Description: "Residential lease review under Loi n°89-462 and Loi Alur.",
		SystemPromptAddendum: "The document is a residential lease governed by French law. Treat any clause " +
			"listed as forbidden by article 4 of Loi n°89-462 (blanket pet bans, automatic penalties, " +
			"mandatory direct debit, fees charged for rent receipts) as CRITICAL. Flag deposits above " +
			"the statutory cap and charges not on the regulatory list.",
		DefaultMode: schema.ModeClause,
	},
}

// Load returns the named built-in profile or an error if the name is unknown.
// An empty name selects "general".
func Load(name string) (Profile, error) {
	if name == "" {
		name = "general"
	}
	p, ok := builtins[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile: unknown profile %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Names lists the built-in profile names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
