package threat

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidRuleset is wrapped by every ruleset configuration error.
var ErrInvalidRuleset = errors.New("invalid ruleset")

//go:embed default_ruleset.yaml
var defaultRulesetYAML []byte

// RuleConfig is one ruleset entry as written in configuration.
type RuleConfig struct {
	Name        string `yaml:"name"                 json:"name"`
	Kind        Kind   `yaml:"kind,omitempty"       json:"kind,omitempty"`
	Weight      int    `yaml:"weight"               json:"weight"`
	Description string `yaml:"description"          json:"description"`
	Params      Params `yaml:"params,omitempty"     json:"params,omitempty"`
}

// UnresolvedConfig configures the synthetic rules reported for arrivals
// that could not be reconciled with a registry record.
type UnresolvedConfig struct {
	MissingIdentifier   RuleConfig `yaml:"missing_identifier"   json:"missingIdentifier"`
	ConflictingIdentity RuleConfig `yaml:"conflicting_identity" json:"conflictingIdentity"`
}

// Config is the declarative form of a Ruleset.
type Config struct {
	Door        RuleConfig       `yaml:"door"         json:"door"`
	Rules       []RuleConfig     `yaml:"rules"        json:"rules"`
	ManualRules []RuleConfig     `yaml:"manual_rules" json:"manualRules"`
	Levels      []Level          `yaml:"levels"       json:"levels"`
	Unresolved  UnresolvedConfig `yaml:"unresolved"   json:"unresolved"`
}

// UnresolvedRules are the synthetic rules for unreconciled arrivals.
type UnresolvedRules struct {
	MissingIdentifier   Rule
	ConflictingIdentity Rule
}

// Ruleset is an immutable, validated set of rules. Build one with Compile,
// ParseRuleset, LoadRuleset or DefaultRuleset at startup and share it.
type Ruleset struct {
	Door        Rule
	Rules       []Rule
	ManualRules []Rule
	Levels      []Level
	Unresolved  UnresolvedRules

	cfg Config
}

// Default synthetic rules, used when the configuration leaves them out.
var (
	defaultMissingIdentifier = RuleConfig{
		Name:        "Invalid IMO",
		Weight:      100,
		Description: "This vessel did not provide an IMO that could be found in the IHS database.",
	}
	defaultConflictingIdentity = RuleConfig{
		Name:        "Incorrect IMO",
		Weight:      100,
		Description: "This vessel's provided IMO refers to a ship with different information in the IHS database.",
	}
)

// DefaultRuleset returns the built-in ruleset.
func DefaultRuleset() (*Ruleset, error) {
	return ParseRuleset(defaultRulesetYAML)
}

// LoadRuleset reads and compiles a YAML ruleset file.
func LoadRuleset(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset %s: %w", path, err)
	}
	rs, err := ParseRuleset(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// ParseRuleset decodes and compiles a YAML ruleset. Unknown keys are rejected.
func ParseRuleset(data []byte) (*Ruleset, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidRuleset, err)
	}
	return Compile(cfg)
}

// Compile resolves every entry against the predicate registry and validates
// the result.
func Compile(cfg Config) (*Ruleset, error) {
	rs := &Ruleset{cfg: cfg}

	door, err := compileRule(cfg.Door)
	if err != nil {
		return nil, fmt.Errorf("%w: door: %v", ErrInvalidRuleset, err)
	}
	if door.Kind == KindManual || door.Kind == "" {
		return nil, fmt.Errorf("%w: door %q must have a predicate kind", ErrInvalidRuleset, door.Name)
	}
	rs.Door = door

	for i, rc := range cfg.Rules {
		r, err := compileRule(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: rules[%d]: %v", ErrInvalidRuleset, i, err)
		}
		if r.Kind == KindManual || r.Kind == "" {
			return nil, fmt.Errorf("%w: rule %q: auto rules must have a predicate kind", ErrInvalidRuleset, r.Name)
		}
		rs.Rules = append(rs.Rules, r)
	}

	for i, rc := range cfg.ManualRules {
		if rc.Kind == "" {
			rc.Kind = KindManual
		}
		if rc.Kind != KindManual {
			return nil, fmt.Errorf("%w: manual_rules[%d] %q has kind %q", ErrInvalidRuleset, i, rc.Name, rc.Kind)
		}
		r, err := compileRule(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: manual_rules[%d]: %v", ErrInvalidRuleset, i, err)
		}
		rs.ManualRules = append(rs.ManualRules, r)
	}

	rs.Levels = append([]Level(nil), cfg.Levels...)

	missing := cfg.Unresolved.MissingIdentifier
	if missing.Name == "" {
		missing = defaultMissingIdentifier
	}
	conflicting := cfg.Unresolved.ConflictingIdentity
	if conflicting.Name == "" {
		conflicting = defaultConflictingIdentity
	}
	for _, rc := range []*RuleConfig{&missing, &conflicting} {
		if rc.Kind == "" {
			rc.Kind = KindManual
		}
		// Unresolved rules are always tripped; a predicate would never run.
		if rc.Kind != KindManual {
			return nil, fmt.Errorf("%w: unresolved rule %q has kind %q", ErrInvalidRuleset, rc.Name, rc.Kind)
		}
	}
	if rs.Unresolved.MissingIdentifier, err = compileRule(missing); err != nil {
		return nil, fmt.Errorf("%w: unresolved.missing_identifier: %v", ErrInvalidRuleset, err)
	}
	if rs.Unresolved.ConflictingIdentity, err = compileRule(conflicting); err != nil {
		return nil, fmt.Errorf("%w: unresolved.conflicting_identity: %v", ErrInvalidRuleset, err)
	}
	rs.cfg.Unresolved = UnresolvedConfig{MissingIdentifier: missing, ConflictingIdentity: conflicting}

	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

func compileRule(rc RuleConfig) (Rule, error) {
	if rc.Name == "" {
		return Rule{}, errors.New("name is required")
	}
	if err := checkTemplate(rc.Description); err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", rc.Name, err)
	}
	pred, err := buildPredicate(rc.Kind, rc.Params)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", rc.Name, err)
	}
	return Rule{
		Name:        rc.Name,
		Weight:      rc.Weight,
		Description: rc.Description,
		Kind:        rc.Kind,
		Predicate:   pred,
	}, nil
}

// Validate checks the structural invariants of a ruleset: the door has a
// predicate, weights are positive, rule names (the unresolved rules
// included) are unique, level numbers are
// at least 1, and levels are ordered by ascending threshold with
// non-decreasing level numbers.
func (rs *Ruleset) Validate() error {
	if rs.Door.Predicate == nil {
		return fmt.Errorf("%w: door %q has no predicate", ErrInvalidRuleset, rs.Door.Name)
	}

	seen := make(map[string]bool)
	all := append([]Rule{rs.Door}, rs.Rules...)
	all = append(all, rs.ManualRules...)
	for _, r := range all {
		if r.Weight <= 0 {
			return fmt.Errorf("%w: rule %q: weight must be positive, got %d", ErrInvalidRuleset, r.Name, r.Weight)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate rule name %q", ErrInvalidRuleset, r.Name)
		}
		seen[r.Name] = true
	}
	for _, r := range []Rule{rs.Unresolved.MissingIdentifier, rs.Unresolved.ConflictingIdentity} {
		if r.Name == "" {
			continue
		}
		if r.Weight <= 0 {
			return fmt.Errorf("%w: rule %q: weight must be positive, got %d", ErrInvalidRuleset, r.Name, r.Weight)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate rule name %q", ErrInvalidRuleset, r.Name)
		}
		seen[r.Name] = true
	}

	for i, l := range rs.Levels {
		if l.Level < 1 {
			return fmt.Errorf("%w: levels[%d]: level must be at least 1, got %d", ErrInvalidRuleset, i, l.Level)
		}
		if l.Threshold < 0 {
			return fmt.Errorf("%w: levels[%d]: threshold must not be negative", ErrInvalidRuleset, i)
		}
		if i == 0 {
			continue
		}
		prev := rs.Levels[i-1]
		if l.Threshold < prev.Threshold || l.Level < prev.Level {
			return fmt.Errorf("%w: levels must be sorted by ascending threshold and level (entry %d)", ErrInvalidRuleset, i)
		}
	}
	return nil
}

// Config returns the declarative form the ruleset was compiled from.
// It is empty for rulesets built directly in code.
func (rs *Ruleset) Config() Config {
	return rs.cfg
}

// Headers returns the export column headers for assessments scored with rs.
func (rs *Ruleset) Headers() []string {
	h := make([]string, 0, len(rs.Rules)+len(rs.ManualRules)+5)
	h = append(h, "IMO", "Vessel Name", rs.Door.Name)
	for _, r := range rs.Rules {
		h = append(h, r.Name)
	}
	for _, r := range rs.ManualRules {
		h = append(h, r.Name+" (MANUAL)")
	}
	return append(h, "Total Score", "Threat Level")
}
