package trs

import (
	"slices"
	"strings"
)

// Rule rewrites terms matching LHS to one of its RHS alternatives. A rule
// with a single alternative is deterministic.
//
// Invariants checked by NewRule: the left side is an application, there is
// at least one alternative, and no alternative mentions a variable absent
// from the left side.
type Rule struct {
	lhs *Application
	rhs []Term
}

// NewRule validates and builds a rule.
func NewRule(lhs Term, rhs ...Term) (*Rule, error) {
	app, ok := lhs.(*Application)
	if !ok {
		return nil, malformed("new rule", ErrVariableLHS)
	}
	if len(rhs) == 0 {
		return nil, malformed("new rule "+lhs.String(), ErrEmptyRHS)
	}
	for _, r := range rhs {
		if r == nil {
			return nil, malformed("new rule "+lhs.String(), ErrEmptyRHS)
		}
		for _, v := range r.Variables() {
			if !occurs(v, app) {
				return nil, malformed("new rule "+lhs.String()+" = "+r.String(), ErrFreeVariable)
			}
		}
	}
	return &Rule{lhs: app, rhs: slices.Clone(rhs)}, nil
}

// MustRule is like NewRule but panics on a malformed rule.
func MustRule(lhs Term, rhs ...Term) *Rule {
	r, err := NewRule(lhs, rhs...)
	if err != nil {
		panic(err)
	}
	return r
}

// LHS returns the left-hand side.
func (r *Rule) LHS() *Application { return r.lhs }

// RHS returns the alternatives. The slice is shared and must not be modified.
func (r *Rule) RHS() []Term { return r.rhs }

// Deterministic reports whether the rule has exactly one alternative.
func (r *Rule) Deterministic() bool { return len(r.rhs) == 1 }

// Variables returns the variables of the left-hand side, which include all
// variables of the rule.
func (r *Rule) Variables() []*Variable { return r.lhs.variables }

// Operators returns every operator occurrence on either side.
func (r *Rule) Operators() []*Operator {
	ops := slices.Clone(r.lhs.operators)
	for _, t := range r.rhs {
		ops = append(ops, t.Operators()...)
	}
	return ops
}

// Mentions reports whether the atom occurs anywhere in the rule.
func (r *Rule) Mentions(a Atom) bool {
	switch x := a.(type) {
	case *Variable:
		return occurs(x, r.lhs)
	case *Operator:
		for _, op := range r.Operators() {
			if op.id == x.id {
				return true
			}
		}
	}
	return false
}

// Apply matches the whole of t against the left side and returns every
// instantiated alternative. It reports false when the rule does not match.
func (r *Rule) Apply(t Term) ([]Term, bool) {
	sub, ok := Match(r.lhs, t)
	if !ok {
		return nil, false
	}
	out := make([]Term, len(r.rhs))
	for i, rhs := range r.rhs {
		inst, err := SubstituteStrict(rhs, sub)
		if err != nil {
			// NewRule guarantees rhs variables are lhs variables, and a
			// successful match binds them all.
			panic(err)
		}
		out[i] = inst
	}
	return out, true
}

// Equal reports structural equality of both sides, alternatives in order.
func (r *Rule) Equal(o *Rule) bool {
	if !r.lhs.Equal(o.lhs) || len(r.rhs) != len(o.rhs) {
		return false
	}
	for i := range r.rhs {
		if !r.rhs[i].Equal(o.rhs[i]) {
			return false
		}
	}
	return true
}

// Alpha reports whether o is r up to a consistent renaming of variables.
func (r *Rule) Alpha(o *Rule) bool {
	if len(r.rhs) != len(o.rhs) {
		return false
	}
	return Alpha(r.packed(), o.packed())
}

// packed folds a rule into a single term so that one renaming covers both
// sides.
func (r *Rule) packed() Term {
	args := make([]Term, 0, len(r.rhs)+1)
	args = append(args, r.lhs)
	args = append(args, r.rhs...)
	return build(&Operator{name: "=", arity: len(args)}, args)
}

// rename maps the alternatives of o onto the variables of r, given that
// their left sides are alpha-equivalent.
func (r *Rule) rename(o *Rule) []Term {
	sub, ok := Match(o.lhs, r.lhs)
	if !ok {
		return nil
	}
	out := make([]Term, len(o.rhs))
	for i, t := range o.rhs {
		out[i] = Substitute(t, sub)
	}
	return out
}

// String renders "lhs = r1 | r2;".
func (r *Rule) String() string {
	var b strings.Builder
	b.WriteString(r.lhs.String())
	b.WriteString(" = ")
	for i, t := range r.rhs {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(t.String())
	}
	b.WriteByte(';')
	return b.String()
}
