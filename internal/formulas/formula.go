// Package formulas implements the formula algebra of modalkb:
// predicates over terms, boolean connectives, modal operators with
// parameters, and framed triple literals. Like terms, formulas are
// immutable after construction.
package formulas

import (
	"io"
	"strings"

	"modalkb/internal/terms"
)

// Type discriminates the formula variants.
type Type int

const (
	TypePredicate Type = iota
	TypeNegation
	TypeConjunction
	TypeDisjunction
	TypeImplication
	TypeModal
)

// Formula is a well-formed expression over predicates, connectives and
// modal operators.
type Formula interface {
	Type() Type
	IsGround() bool
	Equals(other Formula) bool
	Write(w io.Writer)
}

func formulaString(f Formula) string {
	var b strings.Builder
	f.Write(&b)
	return b.String()
}

// Predicate is an atomic formula wrapping a compound term.
type Predicate struct {
	pred *terms.Compound
}

// NewPredicate wraps a compound term as an atomic formula.
func NewPredicate(pred *terms.Compound) *Predicate { return &Predicate{pred: pred} }

// Term returns the underlying compound.
func (p *Predicate) Term() *terms.Compound { return p.pred }

// Indicator returns the functor/arity pair of the predicate.
func (p *Predicate) Indicator() terms.PredicateIndicator { return p.pred.Indicator() }

func (p *Predicate) Type() Type     { return TypePredicate }
func (p *Predicate) IsGround() bool { return p.pred.IsGround() }

func (p *Predicate) Equals(other Formula) bool {
	o, ok := other.(*Predicate)
	return ok && p.pred.Equals(o.pred)
}

func (p *Predicate) Write(w io.Writer) { p.pred.Write(w) }
func (p *Predicate) String() string    { return formulaString(p) }

// Negation negates a formula.
type Negation struct {
	body Formula
}

// Not negates a formula.
func Not(body Formula) *Negation { return &Negation{body: body} }

// Body returns the negated formula.
func (n *Negation) Body() Formula { return n.body }

func (n *Negation) Type() Type     { return TypeNegation }
func (n *Negation) IsGround() bool { return n.body.IsGround() }

func (n *Negation) Equals(other Formula) bool {
	o, ok := other.(*Negation)
	return ok && n.body.Equals(o.body)
}

func (n *Negation) Write(w io.Writer) {
	io.WriteString(w, "~(")
	n.body.Write(w)
	io.WriteString(w, ")")
}

func (n *Negation) String() string { return formulaString(n) }

// Connective is an n-ary boolean combination of formulas. Conjunction
// and disjunction are flattened associatively; implication always has
// exactly two operands.
type Connective struct {
	typ      Type
	operands []Formula
	ground   bool
}

func newConnective(typ Type, operands []Formula) *Connective {
	ground := true
	for _, op := range operands {
		if !op.IsGround() {
			ground = false
			break
		}
	}
	return &Connective{typ: typ, operands: operands, ground: ground}
}

// And conjoins two formulas, flattening operands that are already
// conjunctions.
func And(a, b Formula) *Connective {
	return newConnective(TypeConjunction, flatten(TypeConjunction, a, b))
}

// Or disjoins two formulas, flattening operands that are already
// disjunctions.
func Or(a, b Formula) *Connective {
	return newConnective(TypeDisjunction, flatten(TypeDisjunction, a, b))
}

// Implies builds the implication a -> b.
func Implies(a, b Formula) *Connective {
	return newConnective(TypeImplication, []Formula{a, b})
}

func flatten(typ Type, a, b Formula) []Formula {
	var out []Formula
	for _, f := range [2]Formula{a, b} {
		if c, ok := f.(*Connective); ok && c.typ == typ {
			out = append(out, c.operands...)
		} else {
			out = append(out, f)
		}
	}
	return out
}

// Operands returns the operand list. Callers must not mutate it.
func (c *Connective) Operands() []Formula { return c.operands }

func (c *Connective) Type() Type     { return c.typ }
func (c *Connective) IsGround() bool { return c.ground }

func (c *Connective) Equals(other Formula) bool {
	o, ok := other.(*Connective)
	if !ok || o.typ != c.typ || len(o.operands) != len(c.operands) {
		return false
	}
	for i := range c.operands {
		if !c.operands[i].Equals(o.operands[i]) {
			return false
		}
	}
	return true
}

func (c *Connective) separator() string {
	switch c.typ {
	case TypeConjunction:
		return ","
	case TypeDisjunction:
		return ";"
	default:
		return "->"
	}
}

func (c *Connective) Write(w io.Writer) {
	sep := c.separator()
	io.WriteString(w, "(")
	for i, op := range c.operands {
		if i > 0 {
			io.WriteString(w, sep)
		}
		op.Write(w)
	}
	io.WriteString(w, ")")
}

func (c *Connective) String() string { return formulaString(c) }

// Modal applies a modal operator to a formula.
type Modal struct {
	op   *ModalOperator
	body Formula
}

// NewModal applies op to body.
func NewModal(op *ModalOperator, body Formula) *Modal {
	return &Modal{op: op, body: body}
}

// Operator returns the modal operator.
func (m *Modal) Operator() *ModalOperator { return m.op }

// Body returns the formula under the operator.
func (m *Modal) Body() Formula { return m.body }

func (m *Modal) Type() Type     { return TypeModal }
func (m *Modal) IsGround() bool { return m.body.IsGround() }

func (m *Modal) Equals(other Formula) bool {
	o, ok := other.(*Modal)
	return ok && m.op.Equals(o.op) && m.body.Equals(o.body)
}

func (m *Modal) Write(w io.Writer) {
	m.op.Write(w)
	io.WriteString(w, "(")
	m.body.Write(w)
	io.WriteString(w, ")")
}

func (m *Modal) String() string { return formulaString(m) }

// ApplySubstitution instantiates variables in a formula. Ground
// subformulas are returned by reference.
func ApplySubstitution(f Formula, sub *terms.Substitution) Formula {
	if f.IsGround() {
		return f
	}
	switch x := f.(type) {
	case *Predicate:
		mapped := terms.Apply(x.pred, sub)
		if mapped == terms.Term(x.pred) {
			return f
		}
		return NewPredicate(mapped.(*terms.Compound))
	case *Negation:
		body := ApplySubstitution(x.body, sub)
		if body == x.body {
			return f
		}
		return Not(body)
	case *Connective:
		var operands []Formula
		for i, op := range x.operands {
			mapped := ApplySubstitution(op, sub)
			if operands == nil {
				if mapped == op {
					continue
				}
				operands = make([]Formula, len(x.operands))
				copy(operands, x.operands[:i])
			}
			operands[i] = mapped
		}
		if operands == nil {
			return f
		}
		return newConnective(x.typ, operands)
	case *Modal:
		body := ApplySubstitution(x.body, sub)
		if body == x.body {
			return f
		}
		return NewModal(x.op, body)
	default:
		return f
	}
}

// CollectIndicators returns the predicate indicators occurring in a
// formula, deduplicated, in first-occurrence order.
func CollectIndicators(f Formula) []terms.PredicateIndicator {
	seen := make(map[terms.PredicateIndicator]struct{})
	var out []terms.PredicateIndicator
	var walk func(Formula)
	walk = func(f Formula) {
		switch x := f.(type) {
		case *Predicate:
			ind := x.Indicator()
			if _, ok := seen[ind]; !ok {
				seen[ind] = struct{}{}
				out = append(out, ind)
			}
		case *Negation:
			walk(x.body)
		case *Connective:
			for _, op := range x.operands {
				walk(op)
			}
		case *Modal:
			walk(x.body)
		}
	}
	walk(f)
	return out
}

// FreeVariables returns the variables occurring in a formula,
// deduplicated, in first-occurrence order.
func FreeVariables(f Formula) []terms.Variable {
	seen := make(map[terms.Variable]struct{})
	var out []terms.Variable

	var walkTerm func(terms.Term)
	walkTerm = func(t terms.Term) {
		switch x := t.(type) {
		case terms.Variable:
			if _, ok := seen[x]; !ok {
				seen[x] = struct{}{}
				out = append(out, x)
			}
		case *terms.Compound:
			if x.IsGround() {
				return
			}
			for _, a := range x.Args() {
				walkTerm(a)
			}
		case *terms.List:
			if x.IsGround() {
				return
			}
			for _, it := range x.Items() {
				walkTerm(it)
			}
		}
	}

	var walk func(Formula)
	walk = func(f Formula) {
		if f.IsGround() {
			return
		}
		switch x := f.(type) {
		case *Predicate:
			walkTerm(x.pred)
		case *Negation:
			walk(x.body)
		case *Connective:
			for _, op := range x.operands {
				walk(op)
			}
		case *Modal:
			walk(x.body)
		}
	}
	walk(f)
	return out
}
