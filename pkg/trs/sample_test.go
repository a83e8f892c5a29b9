package trs

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chiSquared compares observed counts with expected probabilities.
func chiSquared(counts map[string]int, probs map[string]float64, n int) float64 {
	var x2 float64
	for k, p := range probs {
		e := p * float64(n)
		d := float64(counts[k]) - e
		x2 += d * d / e
	}
	return x2
}

// unary is the signature {A/0, B/0, F/1}. Under MaxDepth 2 it has six terms.
type unary struct {
	a, b, f *Operator
	sig     *Signature
	probs   map[string]float64
}

func newUnary() *unary {
	u := &unary{a: Op("A", 0), b: Op("B", 0), f: Op("F", 1)}
	u.sig = NewSignature(u.a, u.b, u.f)
	u.probs = map[string]float64{
		"A": 1.0 / 3, "B": 1.0 / 3,
		"F[A]": 1.0 / 9, "F[B]": 1.0 / 9,
		"F[F[A]]": 1.0 / 18, "F[F[B]]": 1.0 / 18,
	}
	return u
}

func (u *unary) terms() []Term {
	a, b := App(u.a), App(u.b)
	return []Term{a, b, App(u.f, a), App(u.f, b), App(u.f, App(u.f, a)), App(u.f, App(u.f, b))}
}

func TestSampleTermDistribution(t *testing.T) {
	const n = 6000

	t.Run("two constants", func(t *testing.T) {
		sig := signatureOf(constants("A", "B"))
		s := NewSampler(42)
		counts := make(map[string]int)
		for range n {
			term, err := s.SampleTerm(sig, false)
			require.NoError(t, err)
			counts[term.String()]++
		}
		probs := map[string]float64{"A": 0.5, "B": 0.5}
		assert.Less(t, chiSquared(counts, probs, n), 10.83)
		for k, p := range probs {
			assert.InDelta(t, p, math.Exp(s.LogPTerm(App(opNamed(sig, k)), sig, false)), probDelta)
		}
	})

	t.Run("depth bounded unary", func(t *testing.T) {
		u := newUnary()
		s := NewSampler(7, WithMaxDepth(2))
		counts := make(map[string]int)
		for range n {
			term, err := s.SampleTerm(u.sig, false)
			require.NoError(t, err)
			require.LessOrEqual(t, term.Depth(), 2)
			counts[term.String()]++
		}
		require.Len(t, counts, len(u.probs))
		assert.Less(t, chiSquared(counts, u.probs, n), 20.52)

		var total []float64
		for _, term := range u.terms() {
			lp := s.LogPTerm(term, u.sig, false)
			assert.InDelta(t, u.probs[term.String()], math.Exp(lp), probDelta, term.String())
			total = append(total, lp)
		}
		assert.InDelta(t, 0, LogSumExp(total...), probDelta)

		deep := App(u.f, App(u.f, App(u.f, App(u.a))))
		assert.True(t, math.IsInf(s.LogPTerm(deep, u.sig, false), -1))
		assert.True(t, math.IsInf(s.LogPTerm(App(Op("C", 0)), u.sig, false), -1))
	})
}

func opNamed(sig *Signature, name string) *Operator {
	op, _ := sig.Operator(name, 0)
	return op
}

func TestSampleTermInvention(t *testing.T) {
	f := Op("F", 2)
	sig := NewSignature(f)
	s := NewSampler(3, WithMaxDepth(1), WithGensym(NewGensym("n")))

	const n = 4000
	counts := make(map[string]int)
	for range n {
		term, err := s.SampleTerm(sig, true)
		require.NoError(t, err)
		switch {
		case term.IsVar():
			assert.Regexp(t, `^n\d+_$`, term.String())
			counts["var"]++
		case term.Args()[0].Equal(term.Args()[1]):
			counts["same"]++
		default:
			counts["distinct"]++
		}
	}
	probs := map[string]float64{"var": 0.5, "same": 0.25, "distinct": 0.25}
	assert.Less(t, chiSquared(counts, probs, n), 13.82)

	x, y := NewVariable("x"), NewVariable("y")
	assert.InDelta(t, 0.5, math.Exp(s.LogPTerm(x, sig, true)), probDelta)
	assert.InDelta(t, 0.25, math.Exp(s.LogPTerm(App(f, x, x), sig, true)), probDelta)
	assert.InDelta(t, 0.25, math.Exp(s.LogPTerm(App(f, x, y), sig, true)), probDelta)
	assert.True(t, math.IsInf(s.LogPTerm(x, sig, false), -1))

	t.Run("no terminals", func(t *testing.T) {
		before := testutil.ToFloat64(generationErrors.WithLabelValues("sample term"))
		_, err := s.SampleTerm(sig, false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoTerminals))
		var ge *GenerationError
		assert.True(t, errors.As(err, &ge))
		assert.Equal(t, before+1, testutil.ToFloat64(generationErrors.WithLabelValues("sample term")))
	})
}

func TestSamplerDeterminism(t *testing.T) {
	u := newUnary()
	sig := u.sig.Extend(NewVariable("x"))
	s1, s2 := NewSampler(99), NewSampler(99)
	for range 50 {
		t1, err := s1.SampleTerm(sig, true)
		require.NoError(t, err)
		t2, err := s2.SampleTerm(sig, true)
		require.NoError(t, err)
		assert.Equal(t, t1.String(), t2.String())
	}
}

func TestSampleTermConstrained(t *testing.T) {
	u := newUnary()

	t.Run("every constraint appears", func(t *testing.T) {
		s := NewSampler(5, WithMaxDepth(2))
		for range 200 {
			term, err := s.SampleTermC(u.sig, []Atom{u.a}, false)
			require.NoError(t, err)
			assert.Contains(t, term.String(), "A")
		}
		var total []float64
		for _, term := range []Term{App(u.a), App(u.f, App(u.a)), App(u.f, App(u.f, App(u.a)))} {
			total = append(total, s.LogPTermC(term, u.sig, []Atom{u.a, u.a}, false))
		}
		assert.InDelta(t, 0, LogSumExp(total...), probDelta)
		assert.True(t, math.IsInf(s.LogPTermC(App(u.b), u.sig, []Atom{u.a}, false), -1))
	})

	t.Run("gifting to argument slots", func(t *testing.T) {
		a, b, f := Op("A", 0), Op("B", 0), Op("F", 2)
		sig := NewSignature(a, b, f)
		s := NewSampler(5, WithMaxDepth(2))
		lp := s.LogPTermC(App(f, App(a), App(b)), sig, []Atom{a, b}, false)
		assert.InDelta(t, math.Log(1.0/16), lp, probDelta)

		drawn := 0
		for range 100 {
			term, err := s.SampleTermC(sig, []Atom{a, b}, false)
			if errors.Is(err, ErrUnsatisfiable) {
				// Both atoms were gifted to one slot at the depth bound.
				continue
			}
			require.NoError(t, err)
			drawn++
			str := term.String()
			assert.Contains(t, str, "A")
			assert.Contains(t, str, "B")
			assert.False(t, math.IsInf(s.LogPTermC(term, sig, []Atom{a, b}, false), -1), str)
		}
		assert.Positive(t, drawn)
	})

	t.Run("gifting over three slots", func(t *testing.T) {
		a, b, g := Op("A", 0), Op("B", 0), Op("G", 3)
		sig := NewSignature(a, b, g)
		s := NewSampler(5, WithMaxDepth(1))
		leaf := map[byte]Term{'A': App(a), 'B': App(b)}

		// Both atoms land in one slot with probability 1/3, and that draw
		// fails; the six terms holding both atoms share the rest equally.
		var total []float64
		for _, args := range []string{"AAA", "AAB", "ABA", "ABB", "BAA", "BAB", "BBA", "BBB"} {
			term := App(g, leaf[args[0]], leaf[args[1]], leaf[args[2]])
			lp := s.LogPTermC(term, sig, []Atom{a, b}, false)
			if args == "AAA" || args == "BBB" {
				assert.True(t, math.IsInf(lp, -1), args)
				continue
			}
			assert.InDelta(t, math.Log(1.0/9), lp, probDelta, args)
			total = append(total, lp)
		}
		assert.InDelta(t, 2.0/3, math.Exp(LogSumExp(total...)), probDelta)
	})

	t.Run("constraint set size", func(t *testing.T) {
		g := Op("G", 3)
		consts := make([]*Operator, maxConstraints+1)
		atoms := []Atom{g}
		for i := range consts {
			consts[i] = Op(fmt.Sprintf("C%d", i), 0)
			atoms = append(atoms, consts[i])
		}
		sig := NewSignature(atoms...)
		c := func(i int) Term { return App(consts[i]) }
		term := App(g,
			App(g, c(0), c(1), c(2)),
			App(g, c(3), c(4), c(5)),
			App(g, App(g, c(6), c(7), c(8)), App(g, c(9), c(10), c(11)), c(0)),
		)
		s := NewSampler(5)
		assert.False(t, math.IsInf(s.LogPTermC(term, sig, atoms[1:maxConstraints+1], false), -1))

		_, err := s.SampleTermC(sig, atoms[1:], false)
		assert.True(t, errors.Is(err, ErrTooManyConstraints))
		assert.True(t, math.IsInf(s.LogPTermC(term, sig, atoms[1:], false), -1))
	})

	t.Run("unsatisfiable", func(t *testing.T) {
		s := NewSampler(5, WithMaxDepth(2))
		_, err := s.SampleTermC(u.sig, []Atom{u.a, u.b}, false)
		assert.True(t, errors.Is(err, ErrUnsatisfiable))
	})

	t.Run("constraint outside the signature", func(t *testing.T) {
		s := NewSampler(5)
		_, err := s.SampleTermC(u.sig, []Atom{Op("Z", 0)}, false)
		assert.True(t, errors.Is(err, ErrConstraintNotInSignature))
		assert.True(t, math.IsInf(s.LogPTermC(App(u.a), u.sig, []Atom{Op("Z", 0)}, false), -1))
	})
}

func TestSampleTermPerturbed(t *testing.T) {
	u := newUnary()
	orig := App(u.f, App(u.a))

	t.Run("p_r = 0 keeps the term", func(t *testing.T) {
		s := NewSampler(1, WithMaxDepth(2))
		got, err := s.SampleTermT(u.sig, orig, 0, false)
		require.NoError(t, err)
		assert.Same(t, orig, got)
		assert.InDelta(t, 0, s.LogPTermT(u.sig, orig, 0, false, orig), probDelta)
		assert.True(t, math.IsInf(s.LogPTermT(u.sig, orig, 0, false, App(u.b)), -1))
	})

	t.Run("p_r = 1 draws as SampleTerm", func(t *testing.T) {
		s1, s2 := NewSampler(8, WithMaxDepth(2)), NewSampler(8, WithMaxDepth(2))
		for range 100 {
			t1, err := s1.SampleTermT(u.sig, orig, 1, true)
			require.NoError(t, err)
			t2, err := s2.SampleTerm(u.sig, true)
			require.NoError(t, err)
			assert.Equal(t, t2.String(), t1.String())
		}
		for _, term := range u.terms() {
			assert.InDelta(t, s1.LogPTerm(term, u.sig, false), s1.LogPTermT(u.sig, orig, 1, false, term), probDelta)
		}
	})

	t.Run("normalised over reachable terms", func(t *testing.T) {
		s := NewSampler(1, WithMaxDepth(2))
		var total []float64
		for _, term := range u.terms() {
			total = append(total, s.LogPTermT(u.sig, orig, 0.5, false, term))
		}
		assert.InDelta(t, 0, LogSumExp(total...), probDelta)
		// Kept root, redrawn child A: 0.5 * (0.5 * 1/3 + 0.5) plus a redrawn
		// root: 0.5 * 1/9.
		assert.InDelta(t, 0.5*(0.5/3+0.5)+0.5/9, math.Exp(s.LogPTermT(u.sig, orig, 0.5, false, orig)), probDelta)
	})
}

func TestSampleRule(t *testing.T) {
	t.Run("exact log-probability", func(t *testing.T) {
		a, f := Op("A", 0), Op("F", 1)
		sig := NewSignature(a, f)
		s := NewSampler(1, WithMaxDepth(1))
		r := MustRule(App(f, App(a)), App(a))
		assert.InDelta(t, math.Log(0.25), s.LogPRule(r, sig, false), probDelta)

		two := MustRule(App(f, App(a)), App(a), App(a))
		assert.True(t, math.IsInf(s.LogPRule(two, sig, false), -1), "no extra alternatives at p = 0")
		s.PAlternative = 0.5
		assert.InDelta(t, math.Log(0.5*0.5*0.5*0.5*0.5), s.LogPRule(two, sig, false), probDelta)
	})

	t.Run("sampled rules are well formed", func(t *testing.T) {
		u := newUnary()
		s := NewSampler(21, WithMaxDepth(3), WithPAlternative(0.3))
		for range 200 {
			r, err := s.SampleRule(u.sig, true)
			require.NoError(t, err)
			_, err = NewRule(r.LHS(), r.RHS()...)
			require.NoError(t, err, r.String())
			assert.True(t, u.sig.Contains(r.LHS().Operator()))
			assert.False(t, math.IsInf(s.LogPRule(r, u.sig, true), -1), r.String())
		}
	})

	t.Run("right sides from the signature", func(t *testing.T) {
		u := newUnary()
		narrow := NewSampler(2, WithMaxDepth(2))
		wide := NewSampler(2, WithMaxDepth(2), WithRHSFromSignature(true))
		r := MustRule(App(u.f, App(u.a)), App(u.b))
		assert.True(t, math.IsInf(narrow.LogPRule(r, u.sig, false), -1))
		assert.False(t, math.IsInf(wide.LogPRule(r, u.sig, false), -1))
	})

	t.Run("no operators", func(t *testing.T) {
		_, err := NewSampler(1).SampleRule(NewSignature(NewVariable("x")), true)
		assert.True(t, errors.Is(err, ErrNoOperators))
	})
}

func TestSampleTRS(t *testing.T) {
	u := newUnary()

	t.Run("rejects p_rule outside [0, 1)", func(t *testing.T) {
		for _, p := range []float64{-0.1, 1, 2} {
			_, err := NewSampler(1).SampleTRS(u.sig, p)
			assert.True(t, errors.Is(err, ErrProbability), "p=%v", p)
		}
	})

	t.Run("well formed and scored", func(t *testing.T) {
		s := NewSampler(17, WithMaxDepth(2), WithPAlternative(0.3))
		for range 50 {
			system, err := s.SampleTRS(u.sig, 0.6)
			require.NoError(t, err)
			for _, r := range system.Rules() {
				for _, v := range r.Variables() {
					assert.True(t, system.Signature().Contains(v))
					assert.False(t, u.sig.Contains(v), "the base signature is not modified")
				}
			}
			assert.False(t, math.IsInf(s.LogPTRS(system, u.sig, 0.6), -1), system.String())
		}
	})

	t.Run("frequencies match LogPTRS", func(t *testing.T) {
		const n = 4000
		sig := NewSignature(Op("A", 0), Op("F", 1))
		s := NewSampler(29, WithMaxDepth(2))

		type class struct {
			system *TRS
			lp     float64
			count  int
		}
		var classes []*class
		repeated := 0
		for range n {
			system, err := s.SampleTRS(sig, 0.5)
			require.NoError(t, err)
			lp := s.LogPTRS(system, sig, 0.5)
			require.False(t, math.IsInf(lp, -1), system.String())
			if hasAlphaEqualLHS(system) {
				repeated++
			}

			i := slices.IndexFunc(classes, func(c *class) bool { return alphaSystems(c.system, system) })
			if i < 0 {
				classes = append(classes, &class{system: system, lp: lp})
				i = len(classes) - 1
			}
			assert.InDelta(t, classes[i].lp, lp, probDelta, "renamings score alike")
			classes[i].count++
		}
		assert.Positive(t, repeated, "some systems repeat a left side")

		var mass []float64
		for _, c := range classes {
			mass = append(mass, c.lp)
			e := math.Exp(c.lp) * n
			if e < 20 {
				continue
			}
			assert.InDelta(t, e, float64(c.count), 4.5*math.Sqrt(e), c.system.String())
		}
		assert.LessOrEqual(t, LogSumExp(mass...), probDelta)
	})

	t.Run("empty system", func(t *testing.T) {
		s := NewSampler(1)
		system, err := s.SampleTRS(u.sig, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, system.Len())
		assert.InDelta(t, 0, s.LogPTRS(system, u.sig, 0), probDelta)
	})

	t.Run("deterministic by seed", func(t *testing.T) {
		s1, s2 := NewSampler(5), NewSampler(5)
		for range 10 {
			a, err := s1.SampleTRS(u.sig, 0.5)
			require.NoError(t, err)
			b, err := s2.SampleTRS(u.sig, 0.5)
			require.NoError(t, err)
			assert.Equal(t, a.String(), b.String())
		}
	})
}

// alphaSystems reports whether two systems hold alpha-equivalent rules in
// the same order.
func alphaSystems(a, b *TRS) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i, r := range a.rules {
		if !r.Alpha(b.rules[i]) {
			return false
		}
	}
	return true
}

func hasAlphaEqualLHS(system *TRS) bool {
	for i, r := range system.rules {
		for _, o := range system.rules[:i] {
			if Alpha(r.lhs, o.lhs) {
				return true
			}
		}
	}
	return false
}
