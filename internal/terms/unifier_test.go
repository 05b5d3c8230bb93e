package terms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifierSimple(t *testing.T) {
	// f(X,a) ~ f(b,Y)  =>  {X: b, Y: a}, canonical term f(b,a)
	t0 := NewCompound("f", []Term{NewVariable("X"), NewAtom("a")})
	t1 := NewCompound("f", []Term{NewAtom("b"), NewVariable("Y")})

	u := NewUnifier(t0, t1)
	require.True(t, u.Exists())

	x, ok := u.GetByName("X")
	require.True(t, ok)
	assert.True(t, x.Equals(NewAtom("b")))
	y, ok := u.GetByName("Y")
	require.True(t, ok)
	assert.True(t, y.Equals(NewAtom("a")))

	unified := u.Apply()
	assert.True(t, unified.Equals(NewCompound("f", []Term{NewAtom("b"), NewAtom("a")})))
}

func TestUnifierSoundness(t *testing.T) {
	cases := []struct {
		name   string
		t0, t1 Term
	}{
		{"var-const", NewVariable("X"), NewAtom("a")},
		{"const-var", NewAtom("a"), NewVariable("X")},
		{"var-var", NewVariable("X"), NewVariable("Y")},
		{"compound", NewCompound("f", []Term{NewVariable("X"), NewAtom("a")}),
			NewCompound("f", []Term{NewAtom("b"), NewVariable("Y")})},
		{"repeated-var", NewCompound("f", []Term{NewVariable("X"), NewVariable("X")}),
			NewCompound("f", []Term{NewVariable("Y"), NewAtom("a")})},
		{"nested", NewCompound("f", []Term{NewCompound("g", []Term{NewVariable("X")})}),
			NewCompound("f", []Term{NewVariable("Y")})},
		{"chain", NewCompound("f", []Term{NewVariable("X"), NewVariable("X"), NewVariable("Y")}),
			NewCompound("f", []Term{NewVariable("Y"), NewVariable("Z"), NewAtom("a")})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := NewUnifier(tc.t0, tc.t1)
			require.True(t, u.Exists())
			a0 := Apply(tc.t0, u.Substitution)
			a1 := Apply(tc.t1, u.Substitution)
			assert.True(t, a0.Equals(a1), "apply(t0)=%v apply(t1)=%v σ=%v", a0, a1, u.Substitution)
		})
	}
}

func TestUnifierFailure(t *testing.T) {
	cases := []struct {
		name   string
		t0, t1 Term
	}{
		{"functor", NewCompound("f", []Term{NewAtom("a")}), NewCompound("g", []Term{NewAtom("a")})},
		{"arity", NewCompound("f", []Term{NewAtom("a")}), NewCompound("f", []Term{NewAtom("a"), NewAtom("b")})},
		{"const", NewAtom("a"), NewAtom("b")},
		{"kind", NewAtom("a"), NewString("a")},
		{"int-width", NewInt32(1), NewInt64(1)},
		{"top-bottom", Top(), Bottom()},
		{"compound-const", NewCompound("f", []Term{NewAtom("a")}), NewAtom("f")},
		{"occurs", NewVariable("X"), NewCompound("f", []Term{NewVariable("X")})},
		{"clash", NewCompound("f", []Term{NewVariable("X"), NewVariable("X")}),
			NewCompound("f", []Term{NewAtom("a"), NewAtom("b")})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := NewUnifier(tc.t0, tc.t1)
			assert.False(t, u.Exists())
			assert.True(t, u.Apply() == Bottom())
		})
	}
}

func TestUnifierSingletons(t *testing.T) {
	assert.True(t, NewUnifier(Top(), Top()).Exists())
	assert.True(t, NewUnifier(Bottom(), Bottom()).Exists())

	u := NewUnifier(NewVariable("X"), Top())
	require.True(t, u.Exists())
	x, _ := u.GetByName("X")
	assert.True(t, x == Top())
}

func TestUnifierPrefersGroundSide(t *testing.T) {
	open := NewCompound("f", []Term{NewVariable("X")})
	ground := NewCompound("f", []Term{NewAtom("a")})

	assert.True(t, NewUnifier(ground, open).Apply() == Term(ground))
	assert.True(t, NewUnifier(open, ground).Apply() == Term(ground))

	// identical terms unify with an empty mapping and keep the left side
	u := NewUnifier(open, open)
	require.True(t, u.Exists())
	assert.Equal(t, 0, u.Len())
	assert.True(t, u.Apply() == Term(open))
}

func TestApplyIdempotentOnGround(t *testing.T) {
	sub := NewSubstitution()
	sub.Set(NewVariable("X"), NewAtom("a"))

	ground := NewCompound("f", []Term{NewAtom("a"), NewFloat(2)})
	once := Apply(ground, sub)
	twice := Apply(once, sub)
	assert.True(t, once.Equals(twice))
}
