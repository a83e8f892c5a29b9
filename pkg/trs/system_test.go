package trs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRule(t *testing.T) {
	f, a := Op("F", 1), Op("A", 0)
	x, y := NewVariable("x"), NewVariable("y")

	tests := []struct {
		name string
		lhs  Term
		rhs  []Term
		want error
	}{
		{"variable lhs", x, []Term{App(a)}, ErrVariableLHS},
		{"no alternatives", App(f, x), nil, ErrEmptyRHS},
		{"nil alternative", App(f, x), []Term{nil}, ErrEmptyRHS},
		{"free variable", App(f, x), []Term{y}, ErrFreeVariable},
		{"free variable in second alternative", App(f, x), []Term{x, App(f, y)}, ErrFreeVariable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRule(tt.lhs, tt.rhs...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			var te *TRSError
			assert.True(t, errors.As(err, &te))
		})
	}

	assert.Panics(t, func() { MustRule(x, App(a)) })

	r := MustRule(App(f, x), x, App(a))
	assert.False(t, r.Deterministic())
	assert.Equal(t, "F[x_] = x_ | A;", r.String())
	assert.True(t, r.Mentions(a))
	assert.True(t, r.Mentions(x))
	assert.False(t, r.Mentions(y))
}

func TestRuleApply(t *testing.T) {
	c := newCombinators(t)
	k, _ := c.system.Rule(0)

	out, ok := k.Apply(c.ap(c.ap(c.K(), c.S()), c.K()))
	require.True(t, ok)
	require.Len(t, out, 1)
	assert.Equal(t, "S", out[0].String())

	_, ok = k.Apply(c.ap(c.K(), c.S()))
	assert.False(t, ok)

	assert.Equal(t, "K . x_ . y_ = x_;", k.String())
}

func TestRuleAlpha(t *testing.T) {
	f, a := Op("F", 2), Op("A", 0)
	x, y, z := NewVariable("x"), NewVariable("y"), NewVariable("z")

	r1 := MustRule(App(f, x, y), x)
	r2 := MustRule(App(f, y, z), y)
	r3 := MustRule(App(f, y, z), z)
	r4 := MustRule(App(f, x, y), x, App(a))

	assert.True(t, r1.Alpha(r2))
	assert.False(t, r1.Alpha(r3), "one renaming covers both sides")
	assert.False(t, r1.Alpha(r4))
	assert.True(t, r1.Equal(MustRule(App(f, x, y), x)))
	assert.False(t, r1.Equal(r2))
}

func TestAddRule(t *testing.T) {
	f, a, b := Op("F", 1), Op("A", 0), Op("B", 0)
	x, y := NewVariable("x"), NewVariable("y")
	sig := NewSignature(f, a, b, x, y)

	t.Run("merges alpha-equivalent left sides", func(t *testing.T) {
		system, err := New(sig.Clone(), MustRule(App(f, x), App(a)))
		require.NoError(t, err)

		require.NoError(t, system.AddRule(MustRule(App(f, y), App(b), y), 0))
		require.Equal(t, 1, system.Len())
		r, _ := system.Rule(0)
		assert.Equal(t, "F[x_] = A | B | x_;", r.String(), "alternatives are renamed onto the existing rule")

		require.NoError(t, system.AddRule(MustRule(App(f, y), App(a)), 0))
		r, _ = system.Rule(0)
		assert.Len(t, r.RHS(), 3, "duplicate alternatives are skipped")
	})

	t.Run("inserts at index", func(t *testing.T) {
		system, err := New(sig.Clone(), MustRule(App(f, x), App(a)))
		require.NoError(t, err)
		require.NoError(t, system.AddRule(MustRule(App(a), App(b)), 0))
		first, _ := system.Rule(0)
		assert.Equal(t, "A = B;", first.String())

		err = system.AddRule(MustRule(App(b), App(a)), 5)
		assert.True(t, errors.Is(err, ErrIndex))
		assert.Equal(t, 2, system.Len())
	})

	t.Run("rejects atoms outside the signature", func(t *testing.T) {
		system, err := New(sig.Clone())
		require.NoError(t, err)
		g := Op("G", 0)
		err = system.AddRule(MustRule(App(g), App(a)), 0)
		assert.True(t, errors.Is(err, ErrUnknownAtom))

		_, err = New(NewSignature(f, a), MustRule(App(f, x), App(a)))
		assert.True(t, errors.Is(err, ErrUnknownAtom), "variables must be declared too")
	})
}

func TestEditRules(t *testing.T) {
	c := newCombinators(t)

	t.Run("replace and delete", func(t *testing.T) {
		system := c.system.Clone()
		kRule, _ := system.Rule(0)
		sRule, _ := system.Rule(1)

		require.NoError(t, system.ReplaceRule(0, sRule))
		first, _ := system.Rule(0)
		assert.Same(t, sRule, first)
		assert.Equal(t, 2, system.Len(), "replace does not merge")

		err := system.ReplaceRule(2, kRule)
		assert.True(t, errors.Is(err, ErrIndex))

		removed, err := system.DeleteRule(0)
		require.NoError(t, err)
		assert.Same(t, sRule, removed)
		assert.Equal(t, 1, system.Len())

		_, err = system.DeleteRule(1)
		assert.True(t, errors.Is(err, ErrIndex))

		assert.Equal(t, 2, c.system.Len(), "clone is independent")
	})

	t.Run("delete atom cascades to rules", func(t *testing.T) {
		system := c.system.Clone()
		removed := system.DeleteAtom(c.k)
		require.Len(t, removed, 1)
		assert.Equal(t, "K . x_ . y_ = x_;", removed[0].String())
		assert.Equal(t, 1, system.Len())
		assert.False(t, system.Signature().Contains(c.k))
		assert.True(t, c.system.Signature().Contains(c.k))

		removed = system.DeleteAtom(c.z)
		assert.Len(t, removed, 1)
		assert.Equal(t, 0, system.Len())
	})

	t.Run("add atoms", func(t *testing.T) {
		system := c.system.Clone()
		i := Op("I", 0)
		assert.True(t, system.AddOperator(i))
		assert.False(t, system.AddOperator(i))
		assert.True(t, system.AddVariable(NewVariable("w")))
		require.NoError(t, system.AddRule(MustRule(c.ap(App(i), c.x), c.x), system.Len()))
		assert.Equal(t, 3, system.Len())
	})
}

func TestTRSString(t *testing.T) {
	c := newCombinators(t)
	want := "signature S/0 K/0 ./2 x_ y_ z_;\n" +
		"K . x_ . y_ = x_;\n" +
		"S . x_ . y_ . z_ = x_ . z_ . (y_ . z_);"
	assert.Equal(t, want, c.system.String())
}
