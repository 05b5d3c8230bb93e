package formulas

import (
	"errors"
	"strconv"
	"strings"
)

// TimeInterval is a half-open or closed span on the time axis. At least
// one side is always present.
type TimeInterval struct {
	begin *float64
	end   *float64
}

// ErrEmptyInterval is returned when neither side of an interval is given.
var ErrEmptyInterval = errors.New("time interval needs at least one of begin or end")

// NewTimeInterval builds an interval from optional sides. Nil denotes
// an open side.
func NewTimeInterval(begin, end *float64) (TimeInterval, error) {
	if begin == nil && end == nil {
		return TimeInterval{}, ErrEmptyInterval
	}
	iv := TimeInterval{}
	if begin != nil {
		b := *begin
		iv.begin = &b
	}
	if end != nil {
		e := *end
		iv.end = &e
	}
	return iv, nil
}

// Since returns the interval [begin, ∞).
func Since(begin float64) TimeInterval { return TimeInterval{begin: &begin} }

// Until returns the interval (-∞, end].
func Until(end float64) TimeInterval { return TimeInterval{end: &end} }

// Span returns the interval [begin, end].
func Span(begin, end float64) TimeInterval {
	return TimeInterval{begin: &begin, end: &end}
}

// Begin returns the lower bound, if present.
func (iv TimeInterval) Begin() (float64, bool) {
	if iv.begin == nil {
		return 0, false
	}
	return *iv.begin, true
}

// End returns the upper bound, if present.
func (iv TimeInterval) End() (float64, bool) {
	if iv.end == nil {
		return 0, false
	}
	return *iv.end, true
}

// Equals tests structural equality of both bounds.
func (iv TimeInterval) Equals(other TimeInterval) bool {
	if (iv.begin == nil) != (other.begin == nil) {
		return false
	}
	if iv.begin != nil && *iv.begin != *other.begin {
		return false
	}
	if (iv.end == nil) != (other.end == nil) {
		return false
	}
	if iv.end != nil && *iv.end != *other.end {
		return false
	}
	return true
}

func (iv TimeInterval) String() string {
	var b strings.Builder
	b.WriteByte('[')
	if iv.begin != nil {
		b.WriteString(strconv.FormatFloat(*iv.begin, 'g', -1, 64))
	}
	b.WriteByte(',')
	if iv.end != nil {
		b.WriteString(strconv.FormatFloat(*iv.end, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
