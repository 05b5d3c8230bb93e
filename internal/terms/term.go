// Package terms implements the first-order term algebra of modalkb:
// variables, constants, compounds, lists, the top/bottom singletons,
// substitutions with reversible merging, and structural unification.
// Terms are immutable after construction and may be shared freely
// between goroutines.
package terms

import (
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
)

// Kind discriminates the term variants.
type Kind int

const (
	KindVariable Kind = iota
	KindAtom
	KindString
	KindInt32
	KindInt64
	KindFloat
	KindCompound
	KindList
	KindTop
	KindBottom
)

// Term is an element of the first-order language.
type Term interface {
	// Kind returns the variant tag of this term.
	Kind() Kind
	// IsGround reports whether no variable is reachable from this term.
	IsGround() bool
	// Equals tests structural equality with another term.
	Equals(other Term) bool
	// Hash returns a structural hash consistent with Equals.
	Hash() uint64
	// Write pretty-prints the term.
	Write(w io.Writer)
}

func termString(t Term) string {
	var b strings.Builder
	t.Write(&b)
	return b.String()
}

// Variable is an unbound placeholder, identified by name.
type Variable struct {
	Name string
}

// NewVariable returns a variable with the given name.
func NewVariable(name string) Variable { return Variable{Name: name} }

func (v Variable) Kind() Kind     { return KindVariable }
func (v Variable) IsGround() bool { return false }

func (v Variable) Equals(other Term) bool {
	o, ok := other.(Variable)
	return ok && o.Name == v.Name
}

func (v Variable) Hash() uint64 {
	return hashString(hashByte(hashInit(), byte(KindVariable)), v.Name)
}

func (v Variable) Write(w io.Writer) { io.WriteString(w, v.Name) }
func (v Variable) String() string    { return termString(v) }

// Less orders variables by name.
func (v Variable) Less(other Variable) bool { return v.Name < other.Name }

// Atom is an unquoted symbolic constant, e.g. a functor name or an IRI.
type Atom struct {
	Text string
}

// NewAtom returns an atom with the given text.
func NewAtom(text string) Atom { return Atom{Text: text} }

func (a Atom) Kind() Kind     { return KindAtom }
func (a Atom) IsGround() bool { return true }

func (a Atom) Equals(other Term) bool {
	o, ok := other.(Atom)
	return ok && o.Text == a.Text
}

func (a Atom) Hash() uint64 {
	return hashString(hashByte(hashInit(), byte(KindAtom)), a.Text)
}

func (a Atom) Write(w io.Writer) {
	if isLowerIdent(a.Text) {
		io.WriteString(w, a.Text)
	} else {
		io.WriteString(w, "'")
		io.WriteString(w, a.Text)
		io.WriteString(w, "'")
	}
}

func (a Atom) String() string { return termString(a) }

// Str is a double-quoted string constant.
type Str struct {
	Text string
}

// NewString returns a string constant.
func NewString(text string) Str { return Str{Text: text} }

func (s Str) Kind() Kind     { return KindString }
func (s Str) IsGround() bool { return true }

func (s Str) Equals(other Term) bool {
	o, ok := other.(Str)
	return ok && o.Text == s.Text
}

func (s Str) Hash() uint64 {
	return hashString(hashByte(hashInit(), byte(KindString)), s.Text)
}

func (s Str) Write(w io.Writer) { io.WriteString(w, strconv.Quote(s.Text)) }
func (s Str) String() string    { return termString(s) }

// Int32 is a 32-bit integer constant.
type Int32 struct {
	Value int32
}

// NewInt32 returns a 32-bit integer constant.
func NewInt32(v int32) Int32 { return Int32{Value: v} }

func (i Int32) Kind() Kind     { return KindInt32 }
func (i Int32) IsGround() bool { return true }

func (i Int32) Equals(other Term) bool {
	o, ok := other.(Int32)
	return ok && o.Value == i.Value
}

func (i Int32) Hash() uint64 {
	return hashUint64(hashByte(hashInit(), byte(KindInt32)), uint64(uint32(i.Value)))
}

func (i Int32) Write(w io.Writer) { io.WriteString(w, strconv.FormatInt(int64(i.Value), 10)) }
func (i Int32) String() string    { return termString(i) }

// Int64 is a 64-bit integer constant.
type Int64 struct {
	Value int64
}

// NewInt64 returns a 64-bit integer constant.
func NewInt64(v int64) Int64 { return Int64{Value: v} }

func (i Int64) Kind() Kind     { return KindInt64 }
func (i Int64) IsGround() bool { return true }

func (i Int64) Equals(other Term) bool {
	o, ok := other.(Int64)
	return ok && o.Value == i.Value
}

func (i Int64) Hash() uint64 {
	return hashUint64(hashByte(hashInit(), byte(KindInt64)), uint64(i.Value))
}

func (i Int64) Write(w io.Writer) { io.WriteString(w, strconv.FormatInt(i.Value, 10)) }
func (i Int64) String() string    { return termString(i) }

// Float is a double-precision numeric constant.
type Float struct {
	Value float64
}

// NewFloat returns a numeric constant.
func NewFloat(v float64) Float { return Float{Value: v} }

func (f Float) Kind() Kind     { return KindFloat }
func (f Float) IsGround() bool { return true }

func (f Float) Equals(other Term) bool {
	o, ok := other.(Float)
	return ok && o.Value == f.Value
}

func (f Float) Hash() uint64 {
	return hashUint64(hashByte(hashInit(), byte(KindFloat)), math.Float64bits(f.Value))
}

func (f Float) Write(w io.Writer) {
	io.WriteString(w, strconv.FormatFloat(f.Value, 'g', -1, 64))
}

func (f Float) String() string { return termString(f) }

// Compound is a functor applied to an ordered argument list.
// Groundness is computed once at construction; IsGround is O(1).
type Compound struct {
	functor string
	args    []Term
	ground  bool
}

// NewCompound builds a compound term. The argument slice must not be
// mutated afterwards.
func NewCompound(functor string, args []Term) *Compound {
	ground := true
	for _, a := range args {
		if !a.IsGround() {
			ground = false
			break
		}
	}
	return &Compound{functor: functor, args: args, ground: ground}
}

// Functor returns the functor name.
func (c *Compound) Functor() string { return c.functor }

// Args returns the argument list. Callers must not mutate it.
func (c *Compound) Args() []Term { return c.args }

// Arity returns the number of arguments.
func (c *Compound) Arity() int { return len(c.args) }

// Indicator returns the functor/arity pair identifying this predicate.
func (c *Compound) Indicator() PredicateIndicator {
	return PredicateIndicator{Functor: c.functor, Arity: len(c.args)}
}

func (c *Compound) Kind() Kind     { return KindCompound }
func (c *Compound) IsGround() bool { return c.ground }

func (c *Compound) Equals(other Term) bool {
	o, ok := other.(*Compound)
	if !ok || o.functor != c.functor || len(o.args) != len(c.args) {
		return false
	}
	for i := range c.args {
		if !c.args[i].Equals(o.args[i]) {
			return false
		}
	}
	return true
}

func (c *Compound) Hash() uint64 {
	h := hashString(hashByte(hashInit(), byte(KindCompound)), c.functor)
	for _, a := range c.args {
		h = hashUint64(h, a.Hash())
	}
	return h
}

func (c *Compound) Write(w io.Writer) {
	if isLowerIdent(c.functor) {
		io.WriteString(w, c.functor)
	} else {
		io.WriteString(w, "'")
		io.WriteString(w, c.functor)
		io.WriteString(w, "'")
	}
	if len(c.args) == 0 {
		return
	}
	io.WriteString(w, "(")
	for i, a := range c.args {
		if i > 0 {
			io.WriteString(w, ",")
		}
		a.Write(w)
	}
	io.WriteString(w, ")")
}

func (c *Compound) String() string { return termString(c) }

// List is an ordered sequence of terms terminated by the empty list.
type List struct {
	items  []Term
	ground bool
}

// NewList builds a list term. An empty input returns the shared empty
// list singleton.
func NewList(items []Term) *List {
	if len(items) == 0 {
		return EmptyList()
	}
	ground := true
	for _, it := range items {
		if !it.IsGround() {
			ground = false
			break
		}
	}
	return &List{items: items, ground: ground}
}

// Items returns the list elements. Callers must not mutate the slice.
func (l *List) Items() []Term { return l.items }

func (l *List) Kind() Kind     { return KindList }
func (l *List) IsGround() bool { return l.ground }

func (l *List) Equals(other Term) bool {
	o, ok := other.(*List)
	if !ok || len(o.items) != len(l.items) {
		return false
	}
	for i := range l.items {
		if !l.items[i].Equals(o.items[i]) {
			return false
		}
	}
	return true
}

func (l *List) Hash() uint64 {
	h := hashByte(hashInit(), byte(KindList))
	for _, it := range l.items {
		h = hashUint64(h, it.Hash())
	}
	return h
}

func (l *List) Write(w io.Writer) {
	io.WriteString(w, "[")
	for i, it := range l.items {
		if i > 0 {
			io.WriteString(w, ",")
		}
		it.Write(w)
	}
	io.WriteString(w, "]")
}

func (l *List) String() string { return termString(l) }

type topTerm struct{}
type bottomTerm struct{}

var (
	topOnce   sync.Once
	topSingle *topTerm
	botOnce   sync.Once
	botSingle *bottomTerm
	nilOnce   sync.Once
	nilSingle *List
)

// Top returns the process-wide verum singleton. Equality with Top is an
// identity check.
func Top() Term {
	topOnce.Do(func() { topSingle = &topTerm{} })
	return topSingle
}

// Bottom returns the process-wide falsum singleton.
func Bottom() Term {
	botOnce.Do(func() { botSingle = &bottomTerm{} })
	return botSingle
}

// EmptyList returns the distinguished empty list singleton.
func EmptyList() *List {
	nilOnce.Do(func() { nilSingle = &List{ground: true} })
	return nilSingle
}

func (topTerm) Kind() Kind            { return KindTop }
func (topTerm) IsGround() bool        { return true }
func (t *topTerm) Equals(o Term) bool { return Term(t) == o }
func (topTerm) Hash() uint64          { return hashByte(hashInit(), byte(KindTop)) }
func (topTerm) Write(w io.Writer)     { io.WriteString(w, "⊤") }
func (t *topTerm) String() string     { return termString(t) }

func (bottomTerm) Kind() Kind            { return KindBottom }
func (bottomTerm) IsGround() bool        { return true }
func (b *bottomTerm) Equals(o Term) bool { return Term(b) == o }
func (bottomTerm) Hash() uint64          { return hashByte(hashInit(), byte(KindBottom)) }
func (bottomTerm) Write(w io.Writer)     { io.WriteString(w, "⊥") }
func (b *bottomTerm) String() string     { return termString(b) }

// isLowerIdent reports whether s matches [a-z][A-Za-z0-9_]*, i.e. can
// be written without quoting.
func isLowerIdent(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if c < 'a' || c > 'z' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}
	return true
}

// FNV-1a, used for all structural hashes.
const (
	fnvOffset64 uint64 = 14695981039346656037
	fnvPrime64  uint64 = 1099511628211
)

func hashInit() uint64 { return fnvOffset64 }

func hashByte(h uint64, b byte) uint64 { return (h ^ uint64(b)) * fnvPrime64 }

func hashString(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h = hashByte(h, s[i])
	}
	return h
}

func hashUint64(h, v uint64) uint64 {
	for i := 0; i < 8; i++ {
		h = hashByte(h, byte(v>>(8*i)))
	}
	return h
}
