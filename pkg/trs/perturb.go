package trs

// SampleTermT perturbs t node by node. At each position, with probability pR
// the whole subtree is redrawn with SampleTerm's grammar at that depth;
// otherwise the head is kept and its arguments are perturbed in turn.
// Unchanged subtrees are shared with t.
//
// pR = 0 returns t itself; pR = 1 draws exactly as SampleTerm does.
func (s *Sampler) SampleTermT(sig *Signature, t Term, pR float64, invent bool) (Term, error) {
	const op = "perturb term"
	sc := newScope(sig.Atoms())
	if pR > 0 && !invent && !sc.hasTerminal() {
		return nil, generationFailed(op, ErrNoTerminals)
	}
	return s.perturb(t, sc, 0, pR, invent, op)
}

func (s *Sampler) perturb(t Term, sc *scope, depth int, pR float64, invent bool, op string) (Term, error) {
	if s.bernoulli(pR) {
		return s.sample(sc, depth, nil, invent, op)
	}
	a, ok := t.(*Application)
	if !ok {
		sc.addVars(t)
		return t, nil
	}
	var args []Term
	for i, arg := range a.args {
		next, err := s.perturb(arg, sc, depth+1, pR, invent, op)
		if err != nil {
			return nil, err
		}
		if args == nil && next != arg {
			args = make([]Term, len(a.args))
			copy(args, a.args[:i])
		}
		if args != nil {
			args[i] = next
		}
	}
	if args == nil {
		return a, nil
	}
	return build(a.head, args), nil
}

// LogPTermT returns the log-probability that SampleTermT(sig, original, pR,
// invent) yields candidate. At every position both explanations are summed:
// the subtree was redrawn (and may have matched by chance), or the head was
// kept and the arguments were perturbed.
func (s *Sampler) LogPTermT(sig *Signature, original Term, pR float64, invent bool, candidate Term) float64 {
	return s.logPT(original, candidate, newScope(sig.Atoms()), 0, pR, invent)
}

func (s *Sampler) logPT(orig, cand Term, sc *scope, depth int, pR float64, invent bool) float64 {
	redraw := logProb(pR)
	if redraw != LogZero {
		redraw += s.logP(cand, sc.clone(), depth, nil, invent)
	}

	keep := logProb(1 - pR)
	if keep != LogZero {
		switch o := orig.(type) {
		case *Variable:
			if !cand.Equal(o) {
				keep = LogZero
			}
		case *Application:
			c, ok := cand.(*Application)
			if !ok || c.head.id != o.head.id {
				keep = LogZero
				break
			}
			kept := sc.clone()
			for i := range o.args {
				keep += s.logPT(o.args[i], c.args[i], kept, depth+1, pR, invent)
				if keep == LogZero {
					break
				}
			}
		}
	}

	// Either way the scope ends up holding candidate's variables.
	sc.addVars(cand)
	return logAddExp(redraw, keep)
}
