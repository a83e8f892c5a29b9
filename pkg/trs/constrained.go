package trs

import (
	"fmt"
	"math"
)

// maxConstraints bounds the constraint set. Scoring a constrained term costs
// up to 4^m per application node for m constraint atoms, so larger sets are
// rejected up front.
const maxConstraints = 12

// SampleTermC draws a term from sig in which every atom of constraints
// occurs at least once. Heads are drawn uniformly from those that can still
// host the atoms not yet placed; each remaining atom is then gifted to one
// argument slot uniformly at random.
//
// The constraints must be a subset of sig. A draw that runs out of room
// below the depth bound fails with ErrUnsatisfiable.
func (s *Sampler) SampleTermC(sig *Signature, constraints []Atom, invent bool) (Term, error) {
	const op = "sample constrained term"
	pending, err := checkConstraints(sig, constraints, op)
	if err != nil {
		return nil, err
	}
	sc := newScope(sig.Atoms())
	if !invent && !sc.hasTerminal() {
		return nil, generationFailed(op, ErrNoTerminals)
	}
	return s.sample(sc, 0, pending, invent, op)
}

// LogPTermC returns the log-probability that SampleTermC yields t, summed
// over every gifting of the constraint atoms that t is consistent with. It is
// LogZero when the constraints are not a subset of sig or t misses one.
func (s *Sampler) LogPTermC(t Term, sig *Signature, constraints []Atom, invent bool) float64 {
	pending, err := dedupConstraints(sig, constraints)
	if err != nil {
		return LogZero
	}
	return s.logP(t, newScope(sig.Atoms()), 0, pending, invent)
}

func checkConstraints(sig *Signature, constraints []Atom, op string) ([]Atom, error) {
	pending, err := dedupConstraints(sig, constraints)
	if err != nil {
		return nil, generationFailed(op, err)
	}
	return pending, nil
}

func dedupConstraints(sig *Signature, constraints []Atom) ([]Atom, error) {
	var pending []Atom
	for _, c := range constraints {
		if !sig.Contains(c) {
			return nil, fmt.Errorf("%s: %w", c, ErrConstraintNotInSignature)
		}
		if !containsAtom(pending, c) {
			pending = append(pending, c)
		}
	}
	if len(pending) > maxConstraints {
		return nil, fmt.Errorf("%d constraint atoms, at most %d: %w", len(pending), maxConstraints, ErrTooManyConstraints)
	}
	return pending, nil
}

// logPArgs scores the arguments of one application. With pending atoms it
// sums over all k^m giftings of the m atoms to the k slots, folding the slots
// in one at a time over subsets of the atoms (at most k * 3^m work). A slot
// is only offered atoms that occur in its argument. The scope each
// argument sees depends only on the arguments before it, so it is fixed up
// front and per-slot scores are memoised by the subset they received.
func (s *Sampler) logPArgs(args []Term, sc *scope, depth int, pending []Atom, invent bool) float64 {
	if len(pending) == 0 {
		lp := 0.0
		for _, a := range args {
			lp += s.logP(a, sc, depth, nil, invent)
			if math.IsInf(lp, -1) {
				return LogZero
			}
		}
		return lp
	}
	k := len(args)
	if k == 0 {
		return LogZero
	}

	scopes := make([]*scope, k)
	occurring := make([]uint32, k)
	for i, a := range args {
		scopes[i] = sc.clone()
		sc.addVars(a)
		for j, c := range pending {
			if mentions(a, c) {
				occurring[i] |= 1 << j
			}
		}
	}

	type key struct {
		slot int
		mask uint32
	}
	memo := make(map[key]float64)
	slotLogP := func(i int, mask uint32) float64 {
		if lp, ok := memo[key{i, mask}]; ok {
			return lp
		}
		var gift []Atom
		for j, c := range pending {
			if mask&(1<<j) != 0 {
				gift = append(gift, c)
			}
		}
		lp := s.logP(args[i], scopes[i].clone(), depth, gift, invent)
		memo[key{i, mask}] = lp
		return lp
	}

	// placed[mask] is the log-probability of the slots folded so far with
	// exactly the atoms in mask gifted among them.
	full := uint32(1)<<len(pending) - 1
	placed := make([]float64, full+1)
	for mask := range placed {
		placed[mask] = LogZero
	}
	placed[0] = 0
	for i := range args {
		next := make([]float64, full+1)
		lo := uint32(0)
		if i == k-1 {
			lo = full
		}
		for mask := range next {
			next[mask] = LogZero
		}
		for mask := lo; mask <= full; mask++ {
			acc := LogZero
			offered := mask & occurring[i]
			for sub := offered; ; sub = (sub - 1) & offered {
				if rest := placed[mask^sub]; !math.IsInf(rest, -1) {
					if lp := slotLogP(i, sub); !math.IsInf(lp, -1) {
						acc = logAddExp(acc, rest+lp)
					}
				}
				if sub == 0 {
					break
				}
			}
			next[mask] = acc
		}
		placed = next
	}

	return placed[full] - float64(len(pending))*math.Log(float64(k))
}
