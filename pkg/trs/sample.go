package trs

import (
	"math"
	"math/rand/v2"
)

// DefaultMaxDepth bounds sampled terms when no WithMaxDepth option is given.
const DefaultMaxDepth = 5

// Sampler draws terms, rules and rewrite systems from a signature under a
// fixed stochastic grammar. Every Sample method has a LogP counterpart that
// recomputes the exact log-probability of a given result, independent of the
// random source.
//
// The grammar: at each position a head is drawn uniformly from the atoms in
// scope, plus one fresh variable when invention is allowed. Positions at
// depth MaxDepth or deeper only admit terminals. The scope starts as the
// signature and grows left to right with every invented variable, so later
// positions may reuse it.
//
// A Sampler is not safe for concurrent use.
type Sampler struct {
	rng    *rand.Rand
	gensym *Gensym

	// MaxDepth is the depth at and below which only terminals are drawn.
	MaxDepth int

	// PAlternative is the continuation probability of the geometric number
	// of extra right-hand sides in SampleRule. It must be below 1.
	PAlternative float64

	// RHSFromSignature draws right-hand sides from every signature operator
	// instead of only the operators of the left side.
	RHSFromSignature bool
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithMaxDepth sets the depth bound.
func WithMaxDepth(d int) SamplerOption {
	return func(s *Sampler) { s.MaxDepth = d }
}

// WithPAlternative sets the extra-alternative probability for rules.
func WithPAlternative(p float64) SamplerOption {
	return func(s *Sampler) { s.PAlternative = p }
}

// WithRHSFromSignature widens the right-hand side scope of sampled rules.
func WithRHSFromSignature(on bool) SamplerOption {
	return func(s *Sampler) { s.RHSFromSignature = on }
}

// WithGensym names invented variables with g.
func WithGensym(g *Gensym) SamplerOption {
	return func(s *Sampler) { s.gensym = g }
}

// NewSampler returns a sampler whose choices are fully determined by seed.
func NewSampler(seed uint64, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		gensym:   NewGensym("v"),
		MaxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.PAlternative < 0 {
		s.PAlternative = 0
	}
	if s.PAlternative >= 1 {
		s.PAlternative = math.Nextafter(1, 0)
	}
	return s
}

// bernoulli draws true with probability p. The boundaries consume no
// randomness.
func (s *Sampler) bernoulli(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.rng.Float64() < p
}

// geometric counts successes of bernoulli(p) before the first failure.
func (s *Sampler) geometric(p float64) int {
	n := 0
	for s.bernoulli(p) {
		n++
	}
	return n
}

func logGeometric(n int, p float64) float64 {
	if n < 0 {
		return LogZero
	}
	lp := logProb(1 - p)
	if n > 0 {
		lp += float64(n) * logProb(p)
	}
	return lp
}

// scope is the ordered set of atoms a position may draw from.
type scope struct {
	atoms []Atom
	ids   map[uint64]struct{}
}

func newScope(atoms []Atom) *scope {
	sc := &scope{ids: make(map[uint64]struct{}, len(atoms))}
	for _, a := range atoms {
		sc.add(a)
	}
	return sc
}

func (sc *scope) has(a Atom) bool {
	_, ok := sc.ids[a.ID()]
	return ok
}

func (sc *scope) add(a Atom) {
	if sc.has(a) {
		return
	}
	sc.ids[a.ID()] = struct{}{}
	sc.atoms = append(sc.atoms, a)
}

// addVars brings t's variables into scope in order of first occurrence.
func (sc *scope) addVars(t Term) {
	for _, v := range t.Variables() {
		sc.add(v)
	}
}

func (sc *scope) clone() *scope {
	c := &scope{
		atoms: append([]Atom(nil), sc.atoms...),
		ids:   make(map[uint64]struct{}, len(sc.ids)),
	}
	for id := range sc.ids {
		c.ids[id] = struct{}{}
	}
	return c
}

func (sc *scope) hasTerminal() bool {
	for _, a := range sc.atoms {
		if isTerminal(a) {
			return true
		}
	}
	return false
}

// candidates lists the heads that may be drawn at depth when pending atoms
// must still appear in the subtree. fresh reports whether a new variable may
// be drawn too.
func (s *Sampler) candidates(sc *scope, depth int, pending []Atom, invent bool) (heads []Atom, fresh bool) {
	for _, a := range sc.atoms {
		if depth >= s.MaxDepth && !isTerminal(a) {
			continue
		}
		if !canHost(a, pending) {
			continue
		}
		heads = append(heads, a)
	}
	return heads, invent && len(pending) == 0
}

// canHost reports whether a head can still place every pending atom: an
// operator with arguments can pass them down, a leaf only satisfies itself.
func canHost(a Atom, pending []Atom) bool {
	if op, ok := a.(*Operator); ok && op.arity > 0 {
		return true
	}
	switch len(pending) {
	case 0:
		return true
	case 1:
		return pending[0].ID() == a.ID()
	}
	return false
}

func containsAtom(atoms []Atom, a Atom) bool {
	for _, b := range atoms {
		if b.ID() == a.ID() {
			return true
		}
	}
	return false
}

// without returns atoms minus a, preserving order.
func without(atoms []Atom, a Atom) []Atom {
	if !containsAtom(atoms, a) {
		return atoms
	}
	out := make([]Atom, 0, len(atoms)-1)
	for _, b := range atoms {
		if b.ID() != a.ID() {
			out = append(out, b)
		}
	}
	return out
}

// sample draws one term at depth. Invented variables are added to sc.
func (s *Sampler) sample(sc *scope, depth int, pending []Atom, invent bool, op string) (Term, error) {
	heads, fresh := s.candidates(sc, depth, pending, invent)
	n := len(heads)
	if fresh {
		n++
	}
	if n == 0 {
		if len(pending) > 0 {
			return nil, generationFailed(op, ErrUnsatisfiable)
		}
		return nil, generationFailed(op, ErrNoTerminals)
	}

	i := s.rng.IntN(n)
	if i == len(heads) {
		v := s.gensym.Variable()
		sc.add(v)
		return v, nil
	}
	switch h := heads[i].(type) {
	case *Variable:
		return h, nil
	case *Operator:
		rest := without(pending, h)
		gifts := make([][]Atom, h.arity)
		for _, c := range rest {
			j := s.rng.IntN(h.arity)
			gifts[j] = append(gifts[j], c)
		}
		args := make([]Term, h.arity)
		for j := range args {
			arg, err := s.sample(sc, depth+1, gifts[j], invent, op)
			if err != nil {
				return nil, err
			}
			args[j] = arg
		}
		return build(h, args), nil
	}
	panic("trs: unknown atom kind")
}

// logP replays sample against t. Variables of t that are not in scope count
// as invented and are added to sc.
func (s *Sampler) logP(t Term, sc *scope, depth int, pending []Atom, invent bool) float64 {
	heads, fresh := s.candidates(sc, depth, pending, invent)
	n := len(heads)
	if fresh {
		n++
	}
	if n == 0 {
		return LogZero
	}
	choice := -math.Log(float64(n))

	switch x := t.(type) {
	case *Variable:
		if sc.has(x) {
			if !containsAtom(heads, x) {
				return LogZero
			}
			return choice
		}
		if !fresh {
			return LogZero
		}
		sc.add(x)
		return choice
	case *Application:
		if !containsAtom(heads, x.head) {
			return LogZero
		}
		return choice + s.logPArgs(x.args, sc, depth+1, without(pending, x.head), invent)
	}
	return LogZero
}

// SampleTerm draws a term from sig. With invent, fresh variables named by the
// sampler's Gensym may appear.
func (s *Sampler) SampleTerm(sig *Signature, invent bool) (Term, error) {
	sc := newScope(sig.Atoms())
	if !invent && !sc.hasTerminal() {
		return nil, generationFailed("sample term", ErrNoTerminals)
	}
	return s.sample(sc, 0, nil, invent, "sample term")
}

// LogPTerm returns the log-probability that SampleTerm(sig, invent) yields t
// up to the naming of invented variables. Variables of t outside sig are read
// as invented. It is LogZero when t cannot be drawn.
func (s *Sampler) LogPTerm(t Term, sig *Signature, invent bool) float64 {
	return s.logP(t, newScope(sig.Atoms()), 0, nil, invent)
}
