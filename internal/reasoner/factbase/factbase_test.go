package factbase

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"modalkb/internal/parser"
	"modalkb/internal/queries"
	"modalkb/internal/reasoner"
	"modalkb/internal/semweb"
	"modalkb/internal/terms"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	pool     *reasoner.WorkerPool
	reasoner *Reasoner
	parser   *parser.Parser
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	registry := semweb.NewPrefixRegistry()
	pool := reasoner.NewWorkerPool(2, reasoner.WorkerHooks{})
	t.Cleanup(pool.Shutdown)
	return &fixture{
		pool:     pool,
		reasoner: New("factbase0", pool, registry),
		parser:   parser.New(registry),
	}
}

func (f *fixture) addFacts(t *testing.T, facts ...string) {
	t.Helper()
	for _, text := range facts {
		require.NoError(t, f.reasoner.AssertText(text))
	}
}

// ask runs a full query round trip: start, finish, collect.
func (f *fixture) ask(t *testing.T, goalText string) []*queries.Answer {
	t.Helper()
	goal, err := f.parser.Parse(goalText)
	require.NoError(t, err)

	stream := queries.NewStream(0)
	f.reasoner.StartQuery(1, stream.NewChannel(), goal)
	f.reasoner.FinishQuery(1, false)
	return stream.Collect()
}

func bindings(t *testing.T, answers []*queries.Answer, name string) []string {
	t.Helper()
	var out []string
	for _, a := range answers {
		v, ok := a.Substitution.GetByName(name)
		require.True(t, ok, "answer %v misses %s", a.Substitution, name)
		atom, ok := v.(terms.Atom)
		require.True(t, ok)
		out = append(out, atom.Text)
	}
	sort.Strings(out)
	return out
}

func TestAssertAndCurrentPredicate(t *testing.T) {
	f := newFixture(t)
	f.addFacts(t, "parent(tom, bob)", "parent(tom, liz)")

	assert.Equal(t, 2, f.reasoner.FactCount())
	assert.True(t, f.reasoner.IsCurrentPredicate(terms.PredicateIndicator{Functor: "parent", Arity: 2}))
	assert.False(t, f.reasoner.IsCurrentPredicate(terms.PredicateIndicator{Functor: "parent", Arity: 3}))
	assert.False(t, f.reasoner.IsCurrentPredicate(terms.PredicateIndicator{Functor: "sibling", Arity: 2}))

	// duplicate facts are deduplicated
	f.addFacts(t, "parent(tom, bob)")
	assert.Equal(t, 2, f.reasoner.FactCount())

	// non-ground facts are rejected
	open := terms.NewCompound("parent", []terms.Term{terms.NewVariable("X"), terms.NewAtom("bob")})
	assert.Error(t, f.reasoner.Assert(open))
}

func TestQuerySimple(t *testing.T) {
	f := newFixture(t)
	f.addFacts(t, "parent(tom, bob)", "parent(tom, liz)", "parent(bob, ann)")

	answers := f.ask(t, "parent(tom, X)")
	assert.Equal(t, []string{"bob", "liz"}, bindings(t, answers, "X"))

	// ground goals answer with an empty substitution
	answers = f.ask(t, "parent(bob, ann)")
	require.Len(t, answers, 1)
	assert.Equal(t, 0, answers[0].Substitution.Len())

	// failing ground goals produce EOS without answers
	assert.Empty(t, f.ask(t, "parent(ann, tom)"))
}

func TestQueryConjunction(t *testing.T) {
	f := newFixture(t)
	f.addFacts(t,
		"parent(tom, bob)", "parent(tom, liz)", "parent(bob, ann)", "parent(liz, joe)")

	// grandparent join through the shared variable Y
	answers := f.ask(t, "parent(tom, Y), parent(Y, Z)")
	require.Len(t, answers, 2)
	assert.Equal(t, []string{"ann", "joe"}, bindings(t, answers, "Z"))
}

func TestQueryDisjunctionAndNegation(t *testing.T) {
	f := newFixture(t)
	f.addFacts(t, "cat(tom)", "dog(rex)", "bites(rex)")

	answers := f.ask(t, "cat(X); dog(X)")
	assert.Equal(t, []string{"rex", "tom"}, bindings(t, answers, "X"))

	// negation as failure
	answers = f.ask(t, "dog(X), ~cat(X)")
	assert.Equal(t, []string{"rex"}, bindings(t, answers, "X"))
	assert.Empty(t, f.ask(t, "cat(tom), ~cat(tom)"))
}

func TestQueryModalBodyEvaluation(t *testing.T) {
	f := newFixture(t)
	f.addFacts(t, "knows(fred, logic)")

	answers := f.ask(t, "B[fred] knows(fred, X)")
	assert.Equal(t, []string{"logic"}, bindings(t, answers, "X"))

	// the modal frame tags the answers
	answers = f.ask(t, "B[fred,confidence=0.8] knows(fred, X)")
	require.Len(t, answers, 1)
	require.NotNil(t, answers[0].Confidence)
	assert.Equal(t, 0.8, *answers[0].Confidence)

	answers = f.ask(t, "P[10,20] knows(fred, X)")
	require.Len(t, answers, 1)
	require.NotNil(t, answers[0].Begin)
	require.NotNil(t, answers[0].End)
	assert.Equal(t, 10.0, *answers[0].Begin)
	assert.Equal(t, 20.0, *answers[0].End)
}

func TestPushSubstitution(t *testing.T) {
	f := newFixture(t)
	f.addFacts(t, "parent(tom, bob)", "parent(liz, joe)")

	goal, err := f.parser.Parse("parent(X, Y)")
	require.NoError(t, err)

	stream := queries.NewStream(0)
	f.reasoner.StartQuery(3, stream.NewChannel(), goal)

	// narrow the second instance to X=liz
	narrowed := terms.NewSubstitution()
	narrowed.Set(terms.NewVariable("X"), terms.NewAtom("liz"))
	f.reasoner.PushSubstitution(3, narrowed)

	f.reasoner.FinishQuery(3, false)
	answers := stream.Collect()

	// bare goal yields two answers, the instance one more
	assert.Len(t, answers, 3)
	assert.True(t, stream.Read().IsEOS())
}

func TestFinishImmediateStillSendsEOS(t *testing.T) {
	f := newFixture(t)
	for _, fact := range []string{"p(a)", "p(b)", "p(c)", "p(d)"} {
		f.addFacts(t, fact)
	}
	goal, err := f.parser.Parse("p(X), p(Y), p(Z)")
	require.NoError(t, err)

	stream := queries.NewStream(1)
	f.reasoner.StartQuery(4, stream.NewChannel(), goal)
	f.reasoner.FinishQuery(4, true)

	answers := stream.Collect()
	assert.True(t, stream.Read().IsEOS())
	// cancellation is best-effort, but the full cross product must not
	// be required
	assert.LessOrEqual(t, len(answers), 64)
}

func TestLoadDataFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "family.facts")
	content := "% family facts\nparent(tom, bob).\nparent(tom, liz).\n\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	f := newFixture(t)
	require.NoError(t, f.reasoner.LoadConfig(&reasoner.Configuration{
		DataFiles: []*reasoner.DataFile{{Path: path, Format: FormatFacts}},
	}))
	assert.Equal(t, 2, f.reasoner.FactCount())

	// unknown-format files fall back to the facts loader
	f2 := newFixture(t)
	require.NoError(t, f2.LoadDataFileUnknown(t, path))
	assert.Equal(t, 2, f2.reasoner.FactCount())

	// a missing registered format is only a warning
	f3 := newFixture(t)
	require.NoError(t, f3.reasoner.LoadDataFile(&reasoner.DataFile{Path: path, Format: "exotic"}))
	assert.Equal(t, 0, f3.reasoner.FactCount())
}

func (f *fixture) LoadDataFileUnknown(t *testing.T, path string) error {
	t.Helper()
	return f.reasoner.LoadDataFile(&reasoner.DataFile{Path: path})
}

func TestConstantRoundTripThroughStore(t *testing.T) {
	f := newFixture(t)
	f.addFacts(t, `tagged(a, "a", 1.5)`)

	answers := f.ask(t, "tagged(X, Y, Z)")
	require.Len(t, answers, 1)
	sub := answers[0].Substitution

	x, _ := sub.GetByName("X")
	assert.True(t, x.Equals(terms.NewAtom("a")), "atom survived as %v", x)
	y, _ := sub.GetByName("Y")
	assert.True(t, y.Equals(terms.NewString("a")), "string survived as %v", y)
	z, _ := sub.GetByName("Z")
	assert.True(t, z.Equals(terms.NewFloat(1.5)), "float survived as %v", z)

	// atom and string constants stay distinct in the store
	assert.Len(t, f.ask(t, `tagged(a, "a", 1.5)`), 1)
	assert.Empty(t, f.ask(t, `tagged("a", "a", 1.5)`))
}
