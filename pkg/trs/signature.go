package trs

import (
	"slices"
	"strings"
)

// Signature is an ordered set of atoms. Insertion order is preserved so that
// enumeration, and therefore sampling under a fixed seed, is reproducible.
//
// A Signature is a plain value owned by its creator; Extend and Clone return
// independent copies.
type Signature struct {
	atoms []Atom
	index map[uint64]int
}

// NewSignature returns a signature holding atoms. Duplicates are ignored.
func NewSignature(atoms ...Atom) *Signature {
	s := &Signature{index: make(map[uint64]int, len(atoms))}
	for _, a := range atoms {
		s.Add(a)
	}
	return s
}

// Add inserts a, reporting whether it was absent.
func (s *Signature) Add(a Atom) bool {
	if _, ok := s.index[a.ID()]; ok {
		return false
	}
	s.index[a.ID()] = len(s.atoms)
	s.atoms = append(s.atoms, a)
	return true
}

// Remove deletes a, reporting whether it was present.
func (s *Signature) Remove(a Atom) bool {
	i, ok := s.index[a.ID()]
	if !ok {
		return false
	}
	s.atoms = slices.Delete(s.atoms, i, i+1)
	delete(s.index, a.ID())
	for j := i; j < len(s.atoms); j++ {
		s.index[s.atoms[j].ID()] = j
	}
	return true
}

// Contains reports membership by identity.
func (s *Signature) Contains(a Atom) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[a.ID()]
	return ok
}

// Len returns the number of atoms.
func (s *Signature) Len() int {
	if s == nil {
		return 0
	}
	return len(s.atoms)
}

// Atoms returns a copy of the atoms in insertion order.
func (s *Signature) Atoms() []Atom {
	return slices.Clone(s.atoms)
}

// Operators returns the operators in insertion order.
func (s *Signature) Operators() []*Operator {
	var ops []*Operator
	for _, a := range s.atoms {
		if op, ok := a.(*Operator); ok {
			ops = append(ops, op)
		}
	}
	return ops
}

// Variables returns the variables in insertion order.
func (s *Signature) Variables() []*Variable {
	var vars []*Variable
	for _, a := range s.atoms {
		if v, ok := a.(*Variable); ok {
			vars = append(vars, v)
		}
	}
	return vars
}

// Terminals returns the atoms that may stand alone as leaves: arity-0
// operators and variables.
func (s *Signature) Terminals() []Atom {
	var out []Atom
	for _, a := range s.atoms {
		if isTerminal(a) {
			out = append(out, a)
		}
	}
	return out
}

// Operator looks up an operator by name and arity.
func (s *Signature) Operator(name string, arity int) (*Operator, bool) {
	for _, a := range s.atoms {
		if op, ok := a.(*Operator); ok && op.name == name && op.arity == arity {
			return op, true
		}
	}
	return nil, false
}

// OperatorsNamed returns every operator called name, whatever its arity.
func (s *Signature) OperatorsNamed(name string) []*Operator {
	var ops []*Operator
	for _, a := range s.atoms {
		if op, ok := a.(*Operator); ok && op.name == name {
			ops = append(ops, op)
		}
	}
	return ops
}

// Variable looks up a variable by name. The first match in insertion order
// wins.
func (s *Signature) Variable(name string) (*Variable, bool) {
	for _, a := range s.atoms {
		if v, ok := a.(*Variable); ok && v.name == name {
			return v, true
		}
	}
	return nil, false
}

// Clone returns an independent copy.
func (s *Signature) Clone() *Signature {
	c := &Signature{
		atoms: slices.Clone(s.atoms),
		index: make(map[uint64]int, len(s.atoms)),
	}
	for k, v := range s.index {
		c.index[k] = v
	}
	return c
}

// Extend returns a copy of s with vars appended.
func (s *Signature) Extend(vars ...*Variable) *Signature {
	c := s.Clone()
	for _, v := range vars {
		c.Add(v)
	}
	return c
}

// Admits reports whether every atom of t is in the signature.
func (s *Signature) Admits(t Term) bool {
	for _, op := range t.Operators() {
		if !s.Contains(op) {
			return false
		}
	}
	for _, v := range t.Variables() {
		if !s.Contains(v) {
			return false
		}
	}
	return true
}

// String renders a signature declaration.
func (s *Signature) String() string {
	var b strings.Builder
	b.WriteString("signature")
	for _, a := range s.atoms {
		b.WriteByte(' ')
		b.WriteString(a.String())
	}
	b.WriteByte(';')
	return b.String()
}
