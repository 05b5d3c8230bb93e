// Package factbase is the built-in reasoner backend of modalkb. It
// stores ground predicates in a Mangle fact store and answers queries
// by unifying goals against the stored facts. Conjunctions are joined
// through reversible substitution merges, negation is
// negation-as-failure, and modal operators are carried structurally:
// the backend evaluates the operator's body.
package factbase

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/factstore"

	"modalkb/internal/formulas"
	"modalkb/internal/logging"
	"modalkb/internal/parser"
	"modalkb/internal/queries"
	"modalkb/internal/reasoner"
	"modalkb/internal/semweb"
	"modalkb/internal/terms"
)

// TypeName is the factory name this backend registers under.
const TypeName = "factbase"

// FormatFacts is the data-file format: one predicate per line, '%'
// starting a comment.
const FormatFacts = "facts"

// Reasoner is a fact-base backend instance.
type Reasoner struct {
	reasoner.Base

	id     string
	pool   *reasoner.WorkerPool
	parser *parser.Parser
	table  *reasoner.QueryTable

	baseStore factstore.FactStoreWithRemove
	store     factstore.ConcurrentFactStore
}

// New creates a backend instance. Queries run on the given worker
// pool; fact files are parsed against the given prefix registry.
func New(id string, pool *reasoner.WorkerPool, registry *semweb.PrefixRegistry) *Reasoner {
	baseStore := factstore.NewSimpleInMemoryStore()
	r := &Reasoner{
		id:        id,
		pool:      pool,
		parser:    parser.New(registry),
		table:     reasoner.NewQueryTable(),
		baseStore: baseStore,
		store:     factstore.NewConcurrentFactStore(baseStore),
	}
	r.AddDataFileHandler(FormatFacts, r.loadFactsFile)
	r.UnknownFormatLoader = r.loadFactsFile
	return r
}

// ID returns the instance identifier.
func (r *Reasoner) ID() string { return r.id }

// LoadConfig ingests the configured data files.
func (r *Reasoner) LoadConfig(cfg *reasoner.Configuration) error {
	for _, f := range cfg.DataFiles {
		if err := r.LoadDataFile(f); err != nil {
			return fmt.Errorf("load data file %s: %w", f.Path, err)
		}
	}
	return nil
}

func (r *Reasoner) loadFactsFile(file *reasoner.DataFile) error {
	data, err := os.ReadFile(file.Path)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if idx := strings.IndexByte(line, '%'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), "."))
		if line == "" {
			continue
		}
		fact, err := r.parser.ParsePredicate(line)
		if err != nil {
			return fmt.Errorf("fact %q: %w", line, err)
		}
		if err := r.Assert(fact); err != nil {
			return fmt.Errorf("fact %q: %w", line, err)
		}
	}
	return nil
}

// Assert stores a ground fact. Duplicate facts are deduplicated by the
// store.
func (r *Reasoner) Assert(fact *terms.Compound) error {
	if !fact.IsGround() {
		return fmt.Errorf("cannot assert non-ground fact %v", fact)
	}
	args := make([]ast.BaseTerm, fact.Arity())
	for i, a := range fact.Args() {
		enc, err := encodeTerm(a)
		if err != nil {
			return err
		}
		args[i] = enc
	}
	r.store.Add(ast.NewAtom(fact.Functor(), args...))
	return nil
}

// AssertText parses and stores a ground fact given in surface syntax.
func (r *Reasoner) AssertText(text string) error {
	fact, err := r.parser.ParsePredicate(text)
	if err != nil {
		return err
	}
	return r.Assert(fact)
}

// FactCount returns the number of stored facts.
func (r *Reasoner) FactCount() int { return r.store.EstimateFactCount() }

// IsCurrentPredicate reports whether any stored fact carries the
// indicated predicate.
func (r *Reasoner) IsCurrentPredicate(indicator terms.PredicateIndicator) bool {
	for _, sym := range r.store.ListPredicates() {
		if sym.Symbol == indicator.Functor && sym.Arity == indicator.Arity {
			return true
		}
	}
	return false
}

// StartQuery registers the query and begins evaluating the bare goal.
func (r *Reasoner) StartQuery(queryID uint32, channel *queries.Channel, goal formulas.Formula) {
	q := r.table.Start(queryID, goal, channel)
	q.Spawn(r.pool, goal, r.evaluate)
}

// PushSubstitution evaluates an additional instance of the goal.
func (r *Reasoner) PushSubstitution(queryID uint32, sub *terms.Substitution) {
	q := r.table.Get(queryID)
	if q == nil {
		logging.Warnf("substitution for unknown query %d", queryID)
		return
	}
	q.Spawn(r.pool, formulas.ApplySubstitution(q.Goal(), sub), r.evaluate)
}

// FinishQuery marks the end of input and, with immediate set, requests
// cancellation of live runners.
func (r *Reasoner) FinishQuery(queryID uint32, immediate bool) {
	r.table.Finish(queryID, immediate)
}

// evaluate runs on a pool worker and publishes one answer per proof of
// the goal instance. Answers carry the frame of the goal's outer modal
// operators.
func (r *Reasoner) evaluate(run *reasoner.QueryRunner, goal formulas.Formula, channel *queries.Channel) {
	vars := formulas.FreeVariables(goal)
	confidence, begin, end := modalFrame(goal)
	sub := terms.NewSubstitution()
	r.solve(run, goal, sub, func() {
		bindings := terms.NewSubstitution()
		for _, v := range vars {
			if t, ok := sub.Get(v); ok {
				bindings.Set(v, terms.Apply(t, sub))
			}
		}
		answer := queries.NewAnswer(bindings)
		answer.Confidence = confidence
		answer.Begin = begin
		answer.End = end
		channel.Push(answer)
	})
}

// modalFrame collects confidence and time bounds from the outer modal
// operators of a goal.
func modalFrame(f formulas.Formula) (confidence, begin, end *float64) {
	for {
		m, ok := f.(*formulas.Modal)
		if !ok {
			return
		}
		op := m.Operator()
		if c, ok := op.Confidence(); ok && confidence == nil {
			confidence = &c
		}
		if iv, ok := op.Interval(); ok {
			if b, ok := iv.Begin(); ok && begin == nil {
				begin = &b
			}
			if e, ok := iv.End(); ok && end == nil {
				end = &e
			}
		}
		f = m.Body()
	}
}

func (r *Reasoner) solve(run *reasoner.QueryRunner, f formulas.Formula, sub *terms.Substitution, emit func()) {
	if run.StopRequested() {
		return
	}
	switch x := f.(type) {
	case *formulas.Predicate:
		r.solvePredicate(run, x, sub, emit)
	case *formulas.Negation:
		found := false
		r.solve(run, x.Body(), sub, func() { found = true })
		if !found && !run.StopRequested() {
			emit()
		}
	case *formulas.Connective:
		switch x.Type() {
		case formulas.TypeConjunction:
			r.solveConjunction(run, x.Operands(), sub, emit)
		case formulas.TypeDisjunction:
			for _, op := range x.Operands() {
				r.solve(run, op, sub, emit)
			}
		default:
			logging.Warnf("fact base cannot evaluate implications, goal %v yields no answers", x)
		}
	case *formulas.Modal:
		r.solve(run, x.Body(), sub, emit)
	}
}

func (r *Reasoner) solveConjunction(run *reasoner.QueryRunner, operands []formulas.Formula, sub *terms.Substitution, emit func()) {
	if len(operands) == 0 {
		emit()
		return
	}
	r.solve(run, operands[0], sub, func() {
		r.solveConjunction(run, operands[1:], sub, emit)
	})
}

func (r *Reasoner) solvePredicate(run *reasoner.QueryRunner, p *formulas.Predicate, sub *terms.Substitution, emit func()) {
	goal, ok := terms.Apply(p.Term(), sub).(*terms.Compound)
	if !ok {
		return
	}
	for _, fact := range r.matchingFacts(goal.Indicator()) {
		if run.StopRequested() {
			return
		}
		u := terms.NewUnifier(goal, fact)
		if !u.Exists() {
			continue
		}
		var journal terms.Reversible
		if sub.UnifyWith(u.Substitution, &journal) {
			emit()
		}
		journal.Rollback()
	}
}

// matchingFacts snapshots the stored facts of one predicate, decoded
// back into the term algebra.
func (r *Reasoner) matchingFacts(indicator terms.PredicateIndicator) []*terms.Compound {
	sym := ast.PredicateSym{Symbol: indicator.Functor, Arity: indicator.Arity}
	var out []*terms.Compound
	err := r.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		args := make([]terms.Term, len(atom.Args))
		for i, a := range atom.Args {
			c, ok := a.(ast.Constant)
			if !ok {
				return nil
			}
			args[i] = decodeConstant(c)
		}
		out = append(out, terms.NewCompound(atom.Predicate.Symbol, args))
		return nil
	})
	if err != nil {
		logging.Debugf("fact lookup for %v: %v", indicator, err)
	}
	return out
}

// Stored constants carry a one-character tag so atom and string
// constants stay distinct in the fact store.
const (
	atomTag = "a:"
	strTag  = "s:"
)

func encodeTerm(t terms.Term) (ast.BaseTerm, error) {
	switch x := t.(type) {
	case terms.Atom:
		return ast.String(atomTag + x.Text), nil
	case terms.Str:
		return ast.String(strTag + x.Text), nil
	case terms.Float:
		return ast.Float64(x.Value), nil
	case terms.Int64:
		return ast.Number(x.Value), nil
	case terms.Int32:
		// normalized to 64 bits on readback
		return ast.Number(int64(x.Value)), nil
	default:
		return nil, fmt.Errorf("cannot store term %v in the fact base", t)
	}
}

func decodeConstant(c ast.Constant) terms.Term {
	switch c.Type {
	case ast.StringType:
		if strings.HasPrefix(c.Symbol, strTag) {
			return terms.NewString(c.Symbol[len(strTag):])
		}
		return terms.NewAtom(strings.TrimPrefix(c.Symbol, atomTag))
	case ast.NumberType:
		return terms.NewInt64(c.NumValue)
	case ast.Float64Type:
		return terms.NewFloat(math.Float64frombits(uint64(c.NumValue)))
	default:
		return terms.NewString(c.Symbol)
	}
}
