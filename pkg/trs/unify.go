package trs

import "slices"

// Mode selects which variables unification may bind.
type Mode int

const (
	// ModeUnify binds variables on either side, with an occurs check.
	ModeUnify Mode = iota

	// ModeMatch binds only variables of the left (pattern) side. Variables
	// of the right (target) side behave as constants, so a target is never
	// instantiated by matching against it.
	ModeMatch

	// ModeAlpha is ModeMatch where every pattern variable must be bound to
	// a variable.
	ModeAlpha
)

func (m Mode) String() string {
	switch m {
	case ModeUnify:
		return "unify"
	case ModeMatch:
		return "match"
	case ModeAlpha:
		return "alpha"
	}
	return "unknown"
}

// Equation is a constraint Left = Right. In ModeMatch and ModeAlpha, Left
// is the pattern and Right the target.
type Equation struct {
	Left, Right Term
}

// Unify solves eqs under mode. The second result is false when no
// substitution exists; this is an ordinary outcome, not an error.
func Unify(eqs []Equation, mode Mode) (*Substitution, bool) {
	if mode == ModeUnify {
		return unify(eqs)
	}
	return match(eqs, mode == ModeAlpha)
}

// UnifyTerms unifies two terms in ModeUnify.
func UnifyTerms(t1, t2 Term) (*Substitution, bool) {
	return unify([]Equation{{t1, t2}})
}

// Match finds the substitution instantiating pattern to t, binding only
// variables of pattern.
func Match(pattern, t Term) (*Substitution, bool) {
	return match([]Equation{{pattern, t}}, false)
}

// Alpha reports whether t1 and t2 are equal up to a renaming of variables,
// that is, whether each matches the other.
func Alpha(t1, t2 Term) bool {
	if t1.Size() != t2.Size() || len(t1.Variables()) != len(t2.Variables()) {
		return false
	}
	if _, ok := match([]Equation{{t1, t2}}, true); !ok {
		return false
	}
	_, ok := match([]Equation{{t2, t1}}, true)
	return ok
}

// pending is a stack of equations; the first equation is popped first.
func pending(eqs []Equation) []Equation {
	stack := slices.Clone(eqs)
	slices.Reverse(stack)
	return stack
}

func pushArgs(stack []Equation, l, r *Application) []Equation {
	for i := len(l.args) - 1; i >= 0; i-- {
		stack = append(stack, Equation{l.args[i], r.args[i]})
	}
	return stack
}

func unify(eqs []Equation) (*Substitution, bool) {
	stack := pending(eqs)
	acc := NewSubstitution()

	bind := func(v *Variable, t Term) {
		beta := Singleton(v, t)
		for i := range stack {
			stack[i] = Equation{Substitute(stack[i].Left, beta), Substitute(stack[i].Right, beta)}
		}
		acc = Compose(beta, acc)
	}

	for len(stack) > 0 {
		eq := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		l, r := eq.Left, eq.Right

		if l.Equal(r) {
			continue
		}
		if v, ok := l.(*Variable); ok && !occurs(v, r) {
			bind(v, r)
			continue
		}
		if v, ok := r.(*Variable); ok && !occurs(v, l) {
			bind(v, l)
			continue
		}
		la, lok := l.(*Application)
		ra, rok := r.(*Application)
		if !lok || !rok || la.head.id != ra.head.id {
			return nil, false
		}
		stack = pushArgs(stack, la, ra)
	}
	return acc, true
}

// match is one-way matching. Pattern variables are never substituted into
// the pending equations; a repeated pattern variable must meet a structurally
// equal target each time.
func match(eqs []Equation, alpha bool) (*Substitution, bool) {
	stack := pending(eqs)
	seen := make(map[uint64]Term)
	acc := NewSubstitution()

	for len(stack) > 0 {
		eq := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		p, t := eq.Left, eq.Right

		switch pt := p.(type) {
		case *Variable:
			if bound, ok := seen[pt.id]; ok {
				if !bound.Equal(t) {
					return nil, false
				}
				continue
			}
			if alpha && !t.IsVar() {
				return nil, false
			}
			seen[pt.id] = t
			acc = acc.bindInPlace(pt, t)
		case *Application:
			if len(pt.variables) == 0 && pt.Equal(t) {
				continue
			}
			ta, ok := t.(*Application)
			if !ok || ta.head.id != pt.head.id {
				return nil, false
			}
			stack = pushArgs(stack, pt, ta)
		}
	}
	return acc, true
}
