package trs

import (
	"fmt"
	"strings"
)

// Strategy selects the redex position tried by a single rewrite step.
type Strategy int

const (
	// Innermost tries the arguments, left to right, before the whole term.
	Innermost Strategy = iota

	// Outermost tries the whole term before its arguments, left to right.
	Outermost
)

func (s Strategy) String() string {
	switch s {
	case Innermost:
		return "innermost"
	case Outermost:
		return "outermost"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy accepts "innermost"/"inner"/"io" and "outermost"/"outer"/"oi".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "innermost", "inner", "io":
		return Innermost, nil
	case "outermost", "outer", "oi":
		return Outermost, nil
	}
	return 0, fmt.Errorf("trs: unknown strategy %q", s)
}

// fire returns the alternatives of the first rule whose left side matches
// the whole of t.
func fire(t Term, system *TRS) ([]Term, bool) {
	if t.IsVar() {
		return nil, false
	}
	for _, r := range system.rules {
		if out, ok := r.Apply(t); ok {
			return out, true
		}
	}
	return nil, false
}

// step performs one rewrite at the strategy-selected position and returns
// every alternative produced there.
func step(t Term, system *TRS, strategy Strategy) ([]Term, bool) {
	if strategy == Outermost {
		if out, ok := fire(t, system); ok {
			return out, true
		}
	}
	if a, ok := t.(*Application); ok {
		for i, arg := range a.args {
			outs, ok := step(arg, system, strategy)
			if !ok {
				continue
			}
			results := make([]Term, len(outs))
			for j, o := range outs {
				results[j] = a.withArg(i, o)
			}
			return results, true
		}
	}
	if strategy == Innermost {
		return fire(t, system)
	}
	return nil, false
}

// SingleRewrite applies one rewrite step and returns the first alternative
// of the rule that fired. It reports false when t is in normal form.
func SingleRewrite(t Term, system *TRS, strategy Strategy) (Term, bool) {
	outs, ok := step(t, system, strategy)
	if !ok {
		return nil, false
	}
	rewriteSteps.WithLabelValues(strategy.String()).Inc()
	return outs[0], true
}

// SingleRewriteAll applies one rewrite step and returns every alternative of
// the rule that fired, in rule order. Its first element is the result of
// SingleRewrite. It reports false when t is in normal form.
func SingleRewriteAll(t Term, system *TRS, strategy Strategy) ([]Term, bool) {
	outs, ok := step(t, system, strategy)
	if ok {
		rewriteSteps.WithLabelValues(strategy.String()).Inc()
	}
	return outs, ok
}

// Result is the outcome of Rewrite. NormalForm is false when the step bound
// ran out first, in which case Term is an intermediate state, not a value.
type Result struct {
	Term       Term
	Steps      int
	NormalForm bool
}

// Rewrite iterates SingleRewrite from t until no rule applies or maxSteps
// steps have been taken.
func Rewrite(t Term, system *TRS, strategy Strategy, maxSteps int) Result {
	res := Result{Term: t}
	for res.Steps < maxSteps {
		next, ok := SingleRewrite(res.Term, system, strategy)
		if !ok {
			res.NormalForm = true
			return res
		}
		res.Term = next
		res.Steps++
	}
	if _, ok := step(res.Term, system, strategy); !ok {
		res.NormalForm = true
	} else {
		rewriteBounded.Inc()
	}
	return res
}
