// Package trs implements term rewriting systems over identity-compared atoms,
// together with a probability-weighted evaluator and a generator whose every
// random choice can be scored after the fact.
//
// The package is organised leaves first:
//   - Terms: a *Variable or an *Application of an *Operator to exactly
//     Arity() arguments. Terms are immutable; derived views are computed once
//     at construction.
//   - Signature: the atoms that may legally appear in a context.
//   - Substitution and Unify: variable bindings and the three unification
//     modes (unify, match, alpha).
//   - Rule and TRS: ordered, possibly non-deterministic rewrite rules.
//   - SingleRewrite and Rewrite: strategy-controlled rewriting.
//   - Trace and RewritesTo: best-first, probability-weighted evaluation.
//   - Sampler: stochastic terms, rules and systems with exact log-probabilities.
//
// Failure to unify, a term already in normal form and an unreachable target
// are ordinary results, reported as (value, false) or as a log-probability of
// math.Inf(-1). Errors are reserved for malformed structures and for sampler
// configurations that cannot produce a value.
//
// Nothing in this package takes locks. Terms, rules and substitutions are
// values that may be shared freely; a *TRS and a *Sampler belong to a single
// goroutine.
package trs

import (
	"slices"
	"strconv"
	"strings"
)

// Term is a *Variable or an *Application.
//
// The slices returned by Variables, Operators, Places, Subterms and Args are
// shared with the term and must not be modified.
type Term interface {
	// String renders the term in the textual syntax.
	String() string

	// Equal reports structural equality; atoms compare by identity.
	Equal(other Term) bool

	// IsVar reports whether the term is a variable leaf.
	IsVar() bool

	// Head returns the variable itself or the application's operator.
	Head() Atom

	// Args returns the arguments of an application, nil for a variable.
	Args() []Term

	// Size is the number of nodes.
	Size() int

	// Depth is 0 for leaves and constants, 1 + max child depth otherwise.
	Depth() int

	// Variables returns the distinct variables in first-occurrence order.
	Variables() []*Variable

	// Operators returns every operator occurrence in pre-order.
	Operators() []*Operator

	// Places returns every position in pre-order; the root is the empty place.
	Places() []Place

	// Subterms returns every subterm in pre-order, aligned with Places.
	Subterms() []Term

	term()
}

// Place addresses a subterm as a path of argument indices from the root.
type Place []int

func (p Place) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, idx := range p {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(idx))
	}
	b.WriteByte(']')
	return b.String()
}

// Application is an operator applied to exactly Arity() arguments.
type Application struct {
	head *Operator
	args []Term

	size      int
	depth     int
	variables []*Variable
	operators []*Operator
	places    []Place
	subterms  []Term
}

// NewApplication builds head[args...]. The argument slice is copied. An
// argument count that differs from the operator's arity is rejected with a
// *TRSError wrapping ErrArity.
func NewApplication(head *Operator, args ...Term) (*Application, error) {
	if len(args) != head.arity {
		return nil, malformed("apply "+head.name, ErrArity)
	}
	for _, a := range args {
		if a == nil {
			return nil, malformed("apply "+head.name, ErrArity)
		}
	}
	return build(head, slices.Clone(args)), nil
}

// App is like NewApplication but panics on an arity mismatch. It is meant
// for terms written out in code.
func App(head *Operator, args ...Term) *Application {
	a, err := NewApplication(head, args...)
	if err != nil {
		panic(err)
	}
	return a
}

// build computes the derived views. args must be owned by the new term.
func build(head *Operator, args []Term) *Application {
	a := &Application{
		head:      head,
		args:      args,
		size:      1,
		operators: []*Operator{head},
		places:    []Place{{}},
	}
	a.subterms = []Term{a}
	seen := make(map[uint64]struct{})
	for i, arg := range args {
		a.size += arg.Size()
		if d := arg.Depth() + 1; d > a.depth {
			a.depth = d
		}
		a.operators = append(a.operators, arg.Operators()...)
		a.subterms = append(a.subterms, arg.Subterms()...)
		for _, p := range arg.Places() {
			place := make(Place, 0, len(p)+1)
			place = append(place, i)
			a.places = append(a.places, append(place, p...))
		}
		for _, v := range arg.Variables() {
			if _, ok := seen[v.id]; !ok {
				seen[v.id] = struct{}{}
				a.variables = append(a.variables, v)
			}
		}
	}
	return a
}

func (a *Application) term()                  {}
func (a *Application) IsVar() bool            { return false }
func (a *Application) Head() Atom             { return a.head }
func (a *Application) Operator() *Operator    { return a.head }
func (a *Application) Args() []Term           { return a.args }
func (a *Application) Size() int              { return a.size }
func (a *Application) Depth() int             { return a.depth }
func (a *Application) Variables() []*Variable { return a.variables }
func (a *Application) Operators() []*Operator { return a.operators }
func (a *Application) Places() []Place        { return a.places }
func (a *Application) Subterms() []Term       { return a.subterms }

// Equal reports structural equality.
func (a *Application) Equal(other Term) bool {
	o, ok := other.(*Application)
	if !ok {
		return false
	}
	if a == o {
		return true
	}
	if a.head.id != o.head.id || a.size != o.size {
		return false
	}
	for i := range a.args {
		if !a.args[i].Equal(o.args[i]) {
			return false
		}
	}
	return true
}

// withArg returns a copy of a with argument i replaced; siblings are shared.
func (a *Application) withArg(i int, t Term) *Application {
	args := slices.Clone(a.args)
	args[i] = t
	return build(a.head, args)
}

// String renders the application. The binary operator "." prints infix and
// associates to the left.
func (a *Application) String() string {
	var b strings.Builder
	writeTerm(&b, a)
	return b.String()
}

// InfixName is the operator name printed and parsed as a left-associative
// binary infix operator.
const InfixName = "."

func isInfix(t Term) bool {
	a, ok := t.(*Application)
	return ok && a.head.name == InfixName && a.head.arity == 2
}

func writeTerm(b *strings.Builder, t Term) {
	a, ok := t.(*Application)
	if !ok {
		b.WriteString(t.String())
		return
	}
	if isInfix(a) {
		writeTerm(b, a.args[0])
		b.WriteString(" . ")
		if isInfix(a.args[1]) {
			b.WriteByte('(')
			writeTerm(b, a.args[1])
			b.WriteByte(')')
		} else {
			writeTerm(b, a.args[1])
		}
		return
	}
	b.WriteString(a.head.name)
	if len(a.args) == 0 {
		return
	}
	b.WriteByte('[')
	for i, arg := range a.args {
		if i > 0 {
			b.WriteString(", ")
		}
		writeTerm(b, arg)
	}
	b.WriteByte(']')
}

// At returns the subterm at place, or false if the place does not exist.
func At(t Term, place Place) (Term, bool) {
	for _, i := range place {
		args := t.Args()
		if i < 0 || i >= len(args) {
			return nil, false
		}
		t = args[i]
	}
	return t, true
}

// Replace returns t with the subterm at place replaced by sub. Subterms off
// the path are shared with t.
func Replace(t Term, place Place, sub Term) (Term, bool) {
	if len(place) == 0 {
		return sub, true
	}
	a, ok := t.(*Application)
	if !ok {
		return nil, false
	}
	i := place[0]
	if i < 0 || i >= len(a.args) {
		return nil, false
	}
	child, ok := Replace(a.args[i], place[1:], sub)
	if !ok {
		return nil, false
	}
	return a.withArg(i, child), true
}

// occurs reports whether v appears in t.
func occurs(v *Variable, t Term) bool {
	for _, w := range t.Variables() {
		if w.id == v.id {
			return true
		}
	}
	return false
}

// mentions reports whether a occurs anywhere in t.
func mentions(t Term, a Atom) bool {
	switch x := a.(type) {
	case *Variable:
		return occurs(x, t)
	case *Operator:
		for _, op := range t.Operators() {
			if op.id == x.id {
				return true
			}
		}
	}
	return false
}

// isTerminal reports whether an atom may stand alone as a leaf.
func isTerminal(a Atom) bool {
	switch x := a.(type) {
	case *Variable:
		return true
	case *Operator:
		return x.arity == 0
	}
	return false
}
