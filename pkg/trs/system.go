package trs

import (
	"fmt"
	"slices"
	"strings"
)

// TRS is an ordered list of rules over one signature. It is the only mutable
// aggregate in the package and is owned by a single caller; it must not be
// mutated from two goroutines.
type TRS struct {
	sig   *Signature
	rules []*Rule
}

// New returns a system over sig holding rules in order. Rules are added with
// AddRule semantics, so rules with alpha-equivalent left sides are merged.
// A rule mentioning an atom outside sig is rejected.
func New(sig *Signature, rules ...*Rule) (*TRS, error) {
	if sig == nil {
		sig = NewSignature()
	}
	s := &TRS{sig: sig}
	for _, r := range rules {
		if err := s.AddRule(r, s.Len()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Signature returns the system's signature. Mutate it through the TRS so
// that rule invariants are kept.
func (s *TRS) Signature() *Signature { return s.sig }

// Rules returns a copy of the rule list.
func (s *TRS) Rules() []*Rule { return slices.Clone(s.rules) }

// Rule returns the rule at index i.
func (s *TRS) Rule(i int) (*Rule, bool) {
	if i < 0 || i >= len(s.rules) {
		return nil, false
	}
	return s.rules[i], true
}

// Len returns the number of rules.
func (s *TRS) Len() int { return len(s.rules) }

func (s *TRS) admits(r *Rule) error {
	for _, op := range r.Operators() {
		if !s.sig.Contains(op) {
			return malformed(fmt.Sprintf("rule %s mentions %s", r, op), ErrUnknownAtom)
		}
	}
	for _, v := range r.Variables() {
		if !s.sig.Contains(v) {
			return malformed(fmt.Sprintf("rule %s mentions %s", r, v), ErrUnknownAtom)
		}
	}
	return nil
}

// AddRule inserts r at index (0 <= index <= Len). If an existing rule has an
// alpha-equivalent left side, r's alternatives are renamed onto it and
// appended there instead, skipping alternatives it already has; index is
// then ignored.
func (s *TRS) AddRule(r *Rule, index int) error {
	if err := s.admits(r); err != nil {
		return err
	}
	for i, existing := range s.rules {
		if !Alpha(existing.lhs, r.lhs) {
			continue
		}
		rhs := slices.Clone(existing.rhs)
		for _, alt := range existing.rename(r) {
			if !slices.ContainsFunc(rhs, func(t Term) bool { return Alpha(t, alt) }) {
				rhs = append(rhs, alt)
			}
		}
		s.rules[i] = &Rule{lhs: existing.lhs, rhs: rhs}
		return nil
	}
	if index < 0 || index > len(s.rules) {
		return malformed(fmt.Sprintf("add rule at %d", index), ErrIndex)
	}
	s.rules = slices.Insert(s.rules, index, r)
	return nil
}

// DeleteRule removes and returns the rule at index.
func (s *TRS) DeleteRule(index int) (*Rule, error) {
	if index < 0 || index >= len(s.rules) {
		return nil, malformed(fmt.Sprintf("delete rule %d", index), ErrIndex)
	}
	r := s.rules[index]
	s.rules = slices.Delete(s.rules, index, index+1)
	return r, nil
}

// ReplaceRule swaps the rule at index for r without merging.
func (s *TRS) ReplaceRule(index int, r *Rule) error {
	if index < 0 || index >= len(s.rules) {
		return malformed(fmt.Sprintf("replace rule %d", index), ErrIndex)
	}
	if err := s.admits(r); err != nil {
		return err
	}
	s.rules[index] = r
	return nil
}

// AddOperator adds op to the signature.
func (s *TRS) AddOperator(op *Operator) bool { return s.sig.Add(op) }

// AddVariable adds v to the signature.
func (s *TRS) AddVariable(v *Variable) bool { return s.sig.Add(v) }

// DeleteAtom removes a from the signature together with every rule that
// mentions it. The removed rules are returned in their former order.
func (s *TRS) DeleteAtom(a Atom) []*Rule {
	s.sig.Remove(a)
	var removed []*Rule
	kept := s.rules[:0]
	for _, r := range s.rules {
		if r.Mentions(a) {
			removed = append(removed, r)
			continue
		}
		kept = append(kept, r)
	}
	clear(s.rules[len(kept):])
	s.rules = kept
	return removed
}

// Clone returns a copy with its own signature and rule list. Rules and terms
// are immutable and are shared.
func (s *TRS) Clone() *TRS {
	return &TRS{sig: s.sig.Clone(), rules: slices.Clone(s.rules)}
}

// String renders the signature declaration followed by one rule per line.
func (s *TRS) String() string {
	var b strings.Builder
	b.WriteString(s.sig.String())
	for _, r := range s.rules {
		b.WriteByte('\n')
		b.WriteString(r.String())
	}
	return b.String()
}
