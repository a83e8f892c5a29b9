package trs

import "math"

// SampleRule draws a rule. The left side's head is drawn uniformly from the
// operators of sig, so it is never a bare variable, and its arguments follow
// SampleTerm's grammar one level down. The rule then gets 1 + Geometric(
// PAlternative) right-hand sides, each drawn without invention from the left
// side's variables plus either the left side's operators or, with
// RHSFromSignature, every operator of sig.
func (s *Sampler) SampleRule(sig *Signature, invent bool) (*Rule, error) {
	const op = "sample rule"
	ops := sig.Operators()
	if len(ops) == 0 {
		return nil, generationFailed(op, ErrNoOperators)
	}
	sc := newScope(sig.Atoms())
	if !invent && !sc.hasTerminal() {
		return nil, generationFailed(op, ErrNoTerminals)
	}

	head := ops[s.rng.IntN(len(ops))]
	args := make([]Term, head.arity)
	for i := range args {
		arg, err := s.sample(sc, 1, nil, invent, op)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	lhs := build(head, args)

	n := 1 + s.geometric(s.PAlternative)
	rhs := make([]Term, n)
	for i := range rhs {
		t, err := s.sample(s.rhsScope(lhs, sig), 0, nil, false, op)
		if err != nil {
			return nil, err
		}
		rhs[i] = t
	}
	return &Rule{lhs: lhs, rhs: rhs}, nil
}

// rhsScope returns the atoms a right-hand side of lhs may use.
func (s *Sampler) rhsScope(lhs *Application, sig *Signature) *scope {
	sc := newScope(nil)
	if s.RHSFromSignature {
		for _, op := range sig.Operators() {
			sc.add(op)
		}
	} else {
		for _, op := range lhs.operators {
			sc.add(op)
		}
	}
	for _, v := range lhs.variables {
		sc.add(v)
	}
	return sc
}

// LogPRule returns the log-probability that SampleRule(sig, invent) yields r,
// alternatives in order.
func (s *Sampler) LogPRule(r *Rule, sig *Signature, invent bool) float64 {
	ops := sig.Operators()
	if len(ops) == 0 || !sig.Contains(r.lhs.head) {
		return LogZero
	}
	sc := newScope(sig.Atoms())
	if !invent && !sc.hasTerminal() {
		return LogZero
	}

	lp := -math.Log(float64(len(ops)))
	for _, arg := range r.lhs.args {
		lp += s.logP(arg, sc, 1, nil, invent)
	}
	lp += logGeometric(len(r.rhs)-1, s.PAlternative)
	for _, t := range r.rhs {
		lp += s.logP(t, s.rhsScope(r.lhs, sig), 0, nil, false)
	}
	return lp
}

// SampleTRS draws a rewrite system over a copy of sig. The number of rules
// is Geometric(pRule); each is drawn independently by SampleRule with
// invention, and invented variables are added to the system's signature.
// Rules are appended in draw order without AddRule's merging, so two draws
// with alpha-equivalent left sides stay two rules and LogPTRS can score the
// list draw by draw. A later rule repeating an earlier left side is shadowed
// by it when rewriting.
func (s *Sampler) SampleTRS(sig *Signature, pRule float64) (*TRS, error) {
	if pRule < 0 || pRule >= 1 {
		return nil, generationFailed("sample trs", ErrProbability)
	}
	n := s.geometric(pRule)
	system := &TRS{sig: sig.Clone()}
	for range n {
		r, err := s.SampleRule(sig, true)
		if err != nil {
			return nil, err
		}
		for _, v := range r.Variables() {
			system.sig.Add(v)
		}
		if err := system.admits(r); err != nil {
			return nil, err
		}
		system.rules = append(system.rules, r)
	}
	return system, nil
}

// LogPTRS returns the log-probability that SampleTRS(sig, pRule) yields
// system: the geometric rule count times each rule as an independent draw of
// SampleRule from sig with invention. A system built with AddRule may hold
// merged rules that no single draw produces; those score LogZero.
func (s *Sampler) LogPTRS(system *TRS, sig *Signature, pRule float64) float64 {
	lp := logGeometric(system.Len(), pRule)
	for _, r := range system.rules {
		lp += s.LogPRule(r, sig, true)
		if lp == LogZero {
			return LogZero
		}
	}
	return lp
}
