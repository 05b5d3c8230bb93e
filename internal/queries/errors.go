package queries

import "fmt"

// QueryError reports a problem with the surface form of a query:
// invalid syntax, unrecognized modal options, or an unregistered IRI
// prefix. It is always surfaced to the caller.
type QueryError struct {
	msg string
}

// NewQueryError formats a query error.
func NewQueryError(format string, args ...interface{}) *QueryError {
	return &QueryError{msg: fmt.Sprintf(format, args...)}
}

func (e *QueryError) Error() string { return e.msg }
