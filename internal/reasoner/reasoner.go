// Package reasoner defines the backend contract of modalkb and the
// runtime that serves it: the reasoner manager with its factory and
// plugin registries, the reasoner configuration tree, the worker pool,
// and the per-query bookkeeping shared by backend implementations.
package reasoner

import (
	"fmt"

	"modalkb/internal/formulas"
	"modalkb/internal/logging"
	"modalkb/internal/queries"
	"modalkb/internal/terms"
)

// Error is a reasoner-lifecycle error: a missing factory, a plugin
// that failed to load, or a failed instance creation.
type Error struct {
	msg string
}

// NewError formats a reasoner error.
func NewError(format string, args ...interface{}) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string { return e.msg }

// Reasoner is the contract every backend implements. The callback
// methods run on the caller's goroutine and must return promptly;
// heavy work is offloaded to the worker pool.
type Reasoner interface {
	// LoadConfig is called exactly once per instance, right after
	// construction. An error drops the instance from the pool.
	LoadConfig(cfg *Configuration) error

	// IsCurrentPredicate reports whether this backend can evaluate the
	// indicated predicate.
	IsCurrentPredicate(indicator terms.PredicateIndicator) bool

	// StartQuery begins evaluation of a goal. Non-blocking. Every
	// answer published on the channel is a substitution over the free
	// variables of the goal.
	StartQuery(queryID uint32, channel *queries.Channel, goal formulas.Formula)

	// PushSubstitution supplies an additional instantiation of the
	// goal to evaluate. May be called many times in quick succession
	// after StartQuery.
	PushSubstitution(queryID uint32, sub *terms.Substitution)

	// FinishQuery marks that no further substitutions follow.
	// Non-blocking. With immediate set, in-progress work is cancelled
	// as soon as practical; otherwise it drains. The final action is
	// EOS on the channel.
	FinishQuery(queryID uint32, immediate bool)

	// AddDataFileHandler registers a loader for a data-file format.
	AddDataFileHandler(format string, loader DataFileLoader)

	// LoadDataFile routes a data file to the loader registered for its
	// format.
	LoadDataFile(file *DataFile) error
}

// QueryTransformer is an optional extension: a backend implementing it
// gets to wrap each goal in its own meta-predicate before evaluation.
type QueryTransformer interface {
	TransformQuery(q *queries.Query) *queries.Query
}

// DataFile points a backend at an external data source. An empty
// format means the format is unknown.
type DataFile struct {
	Path   string
	Format string
}

// HasUnknownFormat reports whether no format was declared.
func (f *DataFile) HasUnknownFormat() bool { return f.Format == "" }

// DataFileLoader ingests one data file into a backend.
type DataFileLoader func(file *DataFile) error

// Base carries the data-file dispatch shared by backend
// implementations. Embed it and optionally set UnknownFormatLoader.
type Base struct {
	handlers map[string]DataFileLoader

	// UnknownFormatLoader handles files without a declared format.
	// When nil such files are skipped with a warning.
	UnknownFormatLoader DataFileLoader
}

// AddDataFileHandler registers a loader for a format.
func (b *Base) AddDataFileHandler(format string, loader DataFileLoader) {
	if b.handlers == nil {
		b.handlers = make(map[string]DataFileLoader)
	}
	b.handlers[format] = loader
}

// LoadDataFile dispatches a data file to the loader registered for its
// format. A missing loader is a warning, not an error.
func (b *Base) LoadDataFile(file *DataFile) error {
	if file.HasUnknownFormat() {
		if b.UnknownFormatLoader == nil {
			logging.Warnf("ignoring data file %s with unknown format", file.Path)
			return nil
		}
		return b.UnknownFormatLoader(file)
	}
	loader, ok := b.handlers[file.Format]
	if !ok {
		logging.Warnf("ignoring data file with unknown format %q", file.Format)
		return nil
	}
	logging.Infof("using data file %s with format %q", file.Path, file.Format)
	return loader(file)
}
