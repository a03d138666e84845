package threat

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jmerrifield20/seasense/internal/vessel/model"
)

// ScoreVessel evaluates record against rs.
//
// A nil record is treated as gate-closed. When the door does not trip, no
// other predicate is called and every auto rule is reported untripped with a
// score of 0 and NoLevel. A predicate that panics is reported untripped and
// noted in Result.Warnings; the remaining rules are still evaluated.
// Neither record nor rs is modified.
func ScoreVessel(record *model.Vessel, rs *Ruleset) Result {
	res := Result{
		CheckedRules: make([]CheckedRule, 0, len(rs.Rules)+1),
		ManualRules:  cloneRules(rs.ManualRules),
	}

	// Predicates and templates see a private copy of the record.
	var rec *model.Vessel
	if record != nil {
		cp := *record
		rec = &cp
	}

	open := false
	if rec != nil {
		var warn string
		open, warn = evaluate(rs.Door, rec)
		if warn != "" {
			res.Warnings = append(res.Warnings, warn)
		}
	}

	if !open {
		res.CheckedRules = append(res.CheckedRules, check(rs.Door, rec, false))
		for _, r := range rs.Rules {
			res.CheckedRules = append(res.CheckedRules, check(r, rec, false))
		}
		res.Level = NoLevel
		return res
	}

	res.CheckedRules = append(res.CheckedRules, check(rs.Door, rec, true))
	res.Score = rs.Door.Weight
	for _, r := range rs.Rules {
		tripped, warn := evaluate(r, rec)
		if warn != "" {
			res.Warnings = append(res.Warnings, warn)
		}
		if tripped {
			res.Score += r.Weight
		}
		res.CheckedRules = append(res.CheckedRules, check(r, rec, tripped))
	}
	res.Level = levelFor(res.Score, rs.Levels)
	return res
}

// ScoreUnresolved reports a vessel that could not be reconciled as a single
// synthetic, always-tripped rule carrying the configured weight.
func ScoreUnresolved(reason Unresolved, rs *Ruleset) Result {
	r := rs.Unresolved.MissingIdentifier
	if reason == UnresolvedConflictingIdentity {
		r = rs.Unresolved.ConflictingIdentity
	}
	return Result{
		Score:        r.Weight,
		Level:        levelFor(r.Weight, rs.Levels),
		CheckedRules: []CheckedRule{check(r, nil, true)},
		ManualRules:  cloneRules(rs.ManualRules),
	}
}

// levelFor returns the level of the last entry whose threshold is met.
func levelFor(score int, levels []Level) int {
	level := NoLevel
	for _, l := range levels {
		if l.Threshold <= score {
			level = l.Level
		}
	}
	return level
}

func evaluate(r Rule, v *model.Vessel) (tripped bool, warning string) {
	if r.Predicate == nil {
		return false, ""
	}
	defer func() {
		if p := recover(); p != nil {
			tripped = false
			warning = fmt.Sprintf("rule %q failed: %v", r.Name, p)
		}
	}()
	return r.Predicate(v), ""
}

func check(r Rule, v *model.Vessel, tripped bool) CheckedRule {
	return CheckedRule{
		Name:        r.Name,
		Weight:      r.Weight,
		Description: renderDescription(r.Description, v),
		Tripped:     tripped,
	}
}

func cloneRules(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// ── Engine ───────────────────────────────────────────────────────────────────

// Engine is the Scorer used by the API. It holds one compiled ruleset for
// the life of the process and logs predicate failures.
type Engine struct {
	rs     *Ruleset
	logger *zap.Logger
}

// NewEngine returns an Engine scoring against rs.
func NewEngine(rs *Ruleset, logger *zap.Logger) *Engine {
	return &Engine{rs: rs, logger: logger}
}

// Score implements Scorer.
func (e *Engine) Score(v *model.Vessel) Result {
	res := ScoreVessel(v, e.rs)
	for _, w := range res.Warnings {
		imo := ""
		if v != nil {
			imo = v.IMO
		}
		e.logger.Warn("rule predicate failed", zap.String("imo", imo), zap.String("warning", w))
	}
	return res
}

// ScoreUnresolved implements Scorer.
func (e *Engine) ScoreUnresolved(reason Unresolved) Result {
	return ScoreUnresolved(reason, e.rs)
}

// Ruleset implements Scorer.
func (e *Engine) Ruleset() *Ruleset {
	return e.rs
}
