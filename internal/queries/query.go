// Package queries defines the query and answer-streaming types shared
// by the knowledge-base front-end and the reasoner backends.
package queries

import (
	"modalkb/internal/formulas"
)

// Query evaluation flags.
const (
	FlagAllSolutions = 1 << iota
	FlagOneSolution
	FlagPersistSolutions
	FlagUniqueSolutions
)

// Query is a goal formula under evaluation, identified by a
// process-unique ID.
type Query struct {
	ID    uint32
	Goal  formulas.Formula
	Flags int
}

// NewQuery builds a query record.
func NewQuery(id uint32, goal formulas.Formula, flags int) *Query {
	return &Query{ID: id, Goal: goal, Flags: flags}
}
