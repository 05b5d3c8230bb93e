package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modalkb/internal/terms"
)

func pred(functor string, args ...terms.Term) *Predicate {
	return NewPredicate(terms.NewCompound(functor, args))
}

func TestConnectiveFlattening(t *testing.T) {
	p, q, r := pred("p"), pred("q"), pred("r")

	conj := And(And(p, q), r)
	assert.Equal(t, TypeConjunction, conj.Type())
	assert.Len(t, conj.Operands(), 3)

	disj := Or(p, Or(q, r))
	assert.Equal(t, TypeDisjunction, disj.Type())
	assert.Len(t, disj.Operands(), 3)

	// mixed kinds do not flatten into each other
	mixed := Or(And(p, q), r)
	assert.Len(t, mixed.Operands(), 2)
	assert.Equal(t, TypeConjunction, mixed.Operands()[0].Type())

	// implication keeps exactly two operands
	impl := Implies(p, Implies(q, r))
	assert.Len(t, impl.Operands(), 2)
	assert.Equal(t, TypeImplication, impl.Operands()[1].Type())
}

func TestFormulaEquality(t *testing.T) {
	a := And(pred("p", terms.NewVariable("X")), pred("q"))
	b := And(pred("p", terms.NewVariable("X")), pred("q"))
	c := And(pred("p", terms.NewVariable("Y")), pred("q"))

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.False(t, a.Equals(Or(pred("p", terms.NewVariable("X")), pred("q"))))
	assert.True(t, Not(a).Equals(Not(b)))
}

func TestApplySubstitutionSharing(t *testing.T) {
	ground := pred("q", terms.NewAtom("a"))
	open := pred("p", terms.NewVariable("X"))
	conj := And(open, ground)

	sub := terms.NewSubstitution()
	sub.Set(terms.NewVariable("X"), terms.NewAtom("b"))

	mapped := ApplySubstitution(conj, sub).(*Connective)
	require.Len(t, mapped.Operands(), 2)
	// the ground conjunct is reused by reference
	assert.True(t, mapped.Operands()[1] == Formula(ground))
	assert.True(t, mapped.Operands()[0].Equals(pred("p", terms.NewAtom("b"))))
	assert.True(t, mapped.IsGround())

	// a substitution that binds nothing returns the same formula
	unrelated := terms.NewSubstitution()
	unrelated.Set(terms.NewVariable("Z"), terms.NewAtom("c"))
	assert.True(t, ApplySubstitution(conj, unrelated) == Formula(conj))
}

func TestApplySubstitutionModal(t *testing.T) {
	open := NewModal(BAgent("fred"), pred("p", terms.NewVariable("X")))
	sub := terms.NewSubstitution()
	sub.Set(terms.NewVariable("X"), terms.NewAtom("a"))

	mapped := ApplySubstitution(open, sub).(*Modal)
	assert.True(t, mapped.Operator() == open.Operator())
	assert.True(t, mapped.Body().Equals(pred("p", terms.NewAtom("a"))))
}

func TestModalOperators(t *testing.T) {
	assert.EqualValues(t, 'K', K().Symbol())
	assert.EqualValues(t, 'B', B().Symbol())
	assert.EqualValues(t, 'P', P().Symbol())
	assert.EqualValues(t, 'H', H().Symbol())

	// the self agent canonicalizes to "no agent"
	assert.True(t, KAgent("self").Equals(K()))
	assert.True(t, BAgent("self").Equals(B()))
	assert.False(t, KAgent("fred").Equals(K()))

	b := BAgentConfidence("fred", 0.8)
	assert.Equal(t, "fred", b.Agent())
	conf, ok := b.Confidence()
	require.True(t, ok)
	assert.Equal(t, 0.8, conf)
	assert.True(t, b.Equals(BAgentConfidence("fred", 0.8)))
	assert.False(t, b.Equals(BAgentConfidence("fred", 0.9)))
	assert.False(t, b.Equals(BAgent("fred")))

	p := PInterval(Span(10, 20))
	iv, ok := p.Interval()
	require.True(t, ok)
	assert.True(t, iv.Equals(Span(10, 20)))
	assert.False(t, p.Equals(P()))
	assert.False(t, p.Equals(HInterval(Span(10, 20))))
}

func TestTimeInterval(t *testing.T) {
	_, err := NewTimeInterval(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyInterval)

	begin := 10.0
	iv, err := NewTimeInterval(&begin, nil)
	require.NoError(t, err)
	b, ok := iv.Begin()
	assert.True(t, ok)
	assert.Equal(t, 10.0, b)
	_, ok = iv.End()
	assert.False(t, ok)
	assert.True(t, iv.Equals(Since(10)))
	assert.False(t, iv.Equals(Until(10)))
	assert.Equal(t, "[10,20]", Span(10, 20).String())
}

func TestCollectIndicatorsAndFreeVariables(t *testing.T) {
	f := Implies(
		And(pred("p", terms.NewVariable("X")), pred("q", terms.NewVariable("X"), terms.NewVariable("Y"))),
		NewModal(K(), Not(pred("p", terms.NewAtom("a")))),
	)

	inds := CollectIndicators(f)
	require.Len(t, inds, 2)
	assert.Equal(t, terms.PredicateIndicator{Functor: "p", Arity: 1}, inds[0])
	assert.Equal(t, terms.PredicateIndicator{Functor: "q", Arity: 2}, inds[1])

	vars := FreeVariables(f)
	require.Len(t, vars, 2)
	assert.Equal(t, "X", vars[0].Name)
	assert.Equal(t, "Y", vars[1].Name)
}

func TestFramedLiteral(t *testing.T) {
	l := NewFramedLiteral(terms.NewAtom("s"), terms.NewAtom("p"), terms.NewVariable("O"))
	assert.False(t, l.IsGround())
	assert.Equal(t, DefaultGraph, l.Graph())
	assert.Equal(t, EQ, l.ObjectOperator())

	l.SetMinConfidence(0.5)
	assert.Equal(t, GEQ, l.ConfidenceOperator())
	assert.True(t, l.ConfidenceTerm().Equals(terms.NewFloat(0.5)))

	l.SetMaxEnd(20)
	assert.Equal(t, LEQ, l.EndOperator())

	ground := NewFramedLiteral(terms.NewAtom("s"), terms.NewAtom("p"), terms.NewAtom("o"))
	assert.True(t, ground.IsGround())
	assert.Equal(t, "triple(s,p,o)", ground.String())
}
