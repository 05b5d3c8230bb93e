package reasoner

import (
	"sync"
	"sync/atomic"

	"modalkb/internal/formulas"
	"modalkb/internal/logging"
	"modalkb/internal/queries"
)

// EvalFunc evaluates one goal instance and publishes answers on the
// channel. Implementations check run.StopRequested() between answers;
// they must not push EOS — the active query does that when the last
// runner drains.
type EvalFunc func(run *QueryRunner, goal formulas.Formula, channel *queries.Channel)

// ActiveQuery is the per-query record a backend holds while evaluation
// is in progress: the goal, the answer channel, the input-complete
// flag, and the set of live runners.
type ActiveQuery struct {
	goal    formulas.Formula
	channel *queries.Channel

	inputComplete atomic.Bool

	mu      sync.Mutex
	runners map[*QueryRunner]struct{}
}

// NewActiveQuery creates the record for a started query.
func NewActiveQuery(goal formulas.Formula, channel *queries.Channel) *ActiveQuery {
	return &ActiveQuery{
		goal:    goal,
		channel: channel,
		runners: make(map[*QueryRunner]struct{}),
	}
}

// Goal returns the uninstantiated goal of the query.
func (q *ActiveQuery) Goal() formulas.Formula { return q.goal }

// Channel returns the answer channel of the query.
func (q *ActiveQuery) Channel() *queries.Channel { return q.channel }

// Spawn submits a runner evaluating one goal instance to the pool.
func (q *ActiveQuery) Spawn(pool *WorkerPool, goal formulas.Formula, eval EvalFunc) {
	r := &QueryRunner{query: q, goal: goal, eval: eval}
	q.mu.Lock()
	q.runners[r] = struct{}{}
	q.mu.Unlock()
	if !pool.Submit(r) {
		q.finishRunner(r)
	}
}

// finishRunner removes a drained runner; the last one out closes the
// channel once no further input is expected.
func (q *ActiveQuery) finishRunner(r *QueryRunner) {
	q.mu.Lock()
	delete(q.runners, r)
	drained := len(q.runners) == 0
	q.mu.Unlock()
	if drained && q.inputComplete.Load() {
		q.channel.Close()
	}
}

// Finish marks that no more substitutions will arrive. With immediate
// set, live runners get a stop request, and runners that have not
// started yet are retired here because the pool skips stopped runners.
// When no runner is live the channel closes here; otherwise the last
// drained runner closes it.
func (q *ActiveQuery) Finish(immediate bool) {
	q.inputComplete.Store(true)

	q.mu.Lock()
	if immediate {
		for r := range q.runners {
			r.Stop()
			if r.started.CompareAndSwap(false, true) {
				delete(q.runners, r)
			}
		}
	}
	drained := len(q.runners) == 0
	q.mu.Unlock()

	if drained {
		q.channel.Close()
	}
}

// QueryRunner evaluates one instance of an active query's goal.
type QueryRunner struct {
	RunnerBase
	query *ActiveQuery
	goal  formulas.Formula
	eval  EvalFunc

	// started is claimed either by Run or by an immediate Finish
	// retiring the runner before it ran.
	started atomic.Bool
}

// Run evaluates the goal instance and retires the runner. A runner
// already retired by an immediate Finish returns without evaluating.
func (r *QueryRunner) Run() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	defer r.query.finishRunner(r)
	r.eval(r, r.goal, r.query.channel)
}

// QueryTable maps query IDs to active queries. Backends embed one to
// implement the query half of the reasoner contract.
type QueryTable struct {
	mu      sync.Mutex
	queries map[uint32]*ActiveQuery
}

// NewQueryTable returns an empty table.
func NewQueryTable() *QueryTable {
	return &QueryTable{queries: make(map[uint32]*ActiveQuery)}
}

// Start registers a new active query. A duplicate ID is a warning and
// replaces the stale record.
func (t *QueryTable) Start(queryID uint32, goal formulas.Formula, channel *queries.Channel) *ActiveQuery {
	q := NewActiveQuery(goal, channel)
	t.mu.Lock()
	if _, ok := t.queries[queryID]; ok {
		logging.Warnf("query %d is already active, replacing it", queryID)
	}
	t.queries[queryID] = q
	t.mu.Unlock()
	return q
}

// Get looks up an active query.
func (t *QueryTable) Get(queryID uint32) *ActiveQuery {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queries[queryID]
}

// Finish removes the query from the table and finishes it. The record
// itself lives on until its runners drain and the channel closes.
func (t *QueryTable) Finish(queryID uint32, immediate bool) {
	t.mu.Lock()
	q := t.queries[queryID]
	delete(t.queries, queryID)
	t.mu.Unlock()

	if q == nil {
		logging.Warnf("finish for unknown query %d", queryID)
		return
	}
	q.Finish(immediate)
}
