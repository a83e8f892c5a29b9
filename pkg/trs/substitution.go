package trs

import (
	"slices"
	"strings"
)

// Substitution is an immutable finite map from variables to terms. Bind and
// Compose return new substitutions; the receiver is never modified. Bindings
// iterate in insertion order.
type Substitution struct {
	vars     []*Variable
	bindings map[uint64]Term
}

// NewSubstitution returns the empty substitution.
func NewSubstitution() *Substitution {
	return &Substitution{bindings: make(map[uint64]Term)}
}

// Singleton returns {v: t}.
func Singleton(v *Variable, t Term) *Substitution {
	return NewSubstitution().Bind(v, t)
}

// Bind returns a copy of s with v mapped to t. Binding a variable to itself
// leaves s unchanged, as in the empty substitution.
func (s *Substitution) Bind(v *Variable, t Term) *Substitution {
	if w, ok := t.(*Variable); ok && w.id == v.id {
		return s
	}
	c := s.clone()
	if _, ok := c.bindings[v.id]; !ok {
		c.vars = append(c.vars, v)
	}
	c.bindings[v.id] = t
	return c
}

func (s *Substitution) clone() *Substitution {
	c := &Substitution{
		vars:     slices.Clone(s.vars),
		bindings: make(map[uint64]Term, len(s.bindings)+1),
	}
	for k, t := range s.bindings {
		c.bindings[k] = t
	}
	return c
}

// Lookup returns the term bound to v.
func (s *Substitution) Lookup(v *Variable) (Term, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.bindings[v.id]
	return t, ok
}

// Len returns the number of bindings.
func (s *Substitution) Len() int {
	if s == nil {
		return 0
	}
	return len(s.vars)
}

// Variables returns the bound variables in insertion order.
func (s *Substitution) Variables() []*Variable {
	if s == nil {
		return nil
	}
	return slices.Clone(s.vars)
}

// Equal reports whether both substitutions bind the same variables to
// structurally equal terms.
func (s *Substitution) Equal(o *Substitution) bool {
	if s.Len() != o.Len() {
		return false
	}
	for _, v := range s.vars {
		t, ok := o.Lookup(v)
		if !ok || !t.Equal(s.bindings[v.id]) {
			return false
		}
	}
	return true
}

func (s *Substitution) String() string {
	if s.Len() == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range s.vars {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
		b.WriteString(" -> ")
		b.WriteString(s.bindings[v.id].String())
	}
	b.WriteByte('}')
	return b.String()
}

// Substitute replaces every variable of t bound by s with its image.
// Unbound variables and operator heads are left in place, and subtrees
// without bound variables are shared with t. A nil substitution is the
// identity.
func Substitute(t Term, s *Substitution) Term {
	if s.Len() == 0 {
		return t
	}
	return substitute(t, s)
}

func substitute(t Term, s *Substitution) Term {
	switch x := t.(type) {
	case *Variable:
		if img, ok := s.bindings[x.id]; ok {
			return img
		}
		return x
	case *Application:
		if len(x.variables) == 0 {
			return x
		}
		var args []Term
		for i, arg := range x.args {
			n := substitute(arg, s)
			if args == nil && n != arg {
				args = slices.Clone(x.args)
			}
			if args != nil {
				args[i] = n
			}
		}
		if args == nil {
			return x
		}
		return build(x.head, args)
	}
	return t
}

// SubstituteStrict is Substitute for callers that require every variable of
// t to be bound. A nil substitution or an unbound variable yields a
// *SubstitutionError.
func SubstituteStrict(t Term, s *Substitution) (Term, error) {
	if s == nil {
		return nil, &SubstitutionError{Err: ErrNilSubstitution}
	}
	for _, v := range t.Variables() {
		if _, ok := s.bindings[v.id]; !ok {
			return nil, &SubstitutionError{Variable: v, Err: ErrUnboundVariable}
		}
	}
	return Substitute(t, s), nil
}

// Compose returns the substitution equivalent to applying s2 and then s1:
//
//	Substitute(t, Compose(s1, s2)) == Substitute(Substitute(t, s2), s1)
//
// s1 is applied to the images of s2 before the two are merged.
func Compose(s1, s2 *Substitution) *Substitution {
	out := NewSubstitution()
	for _, v := range s2.Variables() {
		out = out.bindInPlace(v, Substitute(s2.bindings[v.id], s1))
	}
	for _, v := range s1.Variables() {
		if _, ok := out.bindings[v.id]; ok {
			continue
		}
		if _, shadowed := s2.bindings[v.id]; shadowed {
			continue
		}
		out = out.bindInPlace(v, s1.bindings[v.id])
	}
	return out
}

// bindInPlace extends a substitution that is still private to its builder.
func (s *Substitution) bindInPlace(v *Variable, t Term) *Substitution {
	if w, ok := t.(*Variable); ok && w.id == v.id {
		return s
	}
	if _, ok := s.bindings[v.id]; !ok {
		s.vars = append(s.vars, v)
	}
	s.bindings[v.id] = t
	return s
}
