// Package threat evaluates vessel registry records against a weighted, gated
// ruleset and maps the resulting score onto a threat level.
//
// A ruleset has one door rule that gates everything else: when the door does
// not trip, no other auto rule is evaluated and the score is 0. When it does,
// every auto rule is evaluated independently and the weights of tripped rules
// are added to the door's weight. Manual rules are never evaluated; they are
// returned with every result for an operator to check by hand.
package threat

import "github.com/jmerrifield20/seasense/internal/vessel/model"

// Predicate decides whether a rule trips for a registry record.
// Predicates must not modify the record.
type Predicate func(v *model.Vessel) bool

// Rule is a named, weighted check. Description may contain {field}
// placeholders naming registry record JSON fields.
type Rule struct {
	Name        string    `json:"name"`
	Weight      int       `json:"weight"`
	Description string    `json:"description"`
	Kind        Kind      `json:"-"`
	Predicate   Predicate `json:"-"`
}

// CheckedRule is a rule as evaluated for one record.
type CheckedRule struct {
	Name        string `json:"name"`
	Weight      int    `json:"weight"`
	Description string `json:"description"`
	Tripped     bool   `json:"tripped"`
}

// Level maps a minimum score onto a threat level number (≥ 1).
type Level struct {
	Level     int `json:"level"`
	Threshold int `json:"threshold"`
}

// NoLevel is reported when the gate is closed or no threshold is met.
const NoLevel = 0

// Result is the outcome of scoring one record.
type Result struct {
	Score        int           `json:"score"`
	Level        int           `json:"level"`
	CheckedRules []CheckedRule `json:"checkedRules"`
	ManualRules  []Rule        `json:"manualRules"`

	// Warnings lists rules whose predicate failed and were reported untripped.
	Warnings []string `json:"warnings,omitempty"`
}

// Unresolved identifies why an arrival could not be tied to a registry record.
type Unresolved int

const (
	UnresolvedMissingIdentifier Unresolved = iota + 1
	UnresolvedConflictingIdentity
)

// Scorer produces results for resolved and unresolved vessels.
type Scorer interface {
	Score(v *model.Vessel) Result
	ScoreUnresolved(reason Unresolved) Result
	Ruleset() *Ruleset
}
