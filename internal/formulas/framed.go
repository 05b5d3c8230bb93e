package formulas

import (
	"io"
	"strings"

	"modalkb/internal/terms"
)

// ComparisonOperator is a unary comparison applied to a framed-literal
// component.
type ComparisonOperator int

const (
	EQ ComparisonOperator = iota
	LT
	GT
	LEQ
	GEQ
)

func (op ComparisonOperator) String() string {
	switch op {
	case LT:
		return "<"
	case GT:
		return ">"
	case LEQ:
		return "=<"
	case GEQ:
		return ">="
	default:
		return "="
	}
}

// DefaultGraph matches any named graph.
const DefaultGraph = "*"

// FramedLiteral is a triple pattern (subject, property, object) with
// temporal and epistemic framing. Graph backends match it against
// their stores.
type FramedLiteral struct {
	subject  terms.Term
	property terms.Term
	object   terms.Term
	graph    string

	agent      terms.Term
	begin      terms.Term
	end        terms.Term
	confidence terms.Term

	objectOperator     ComparisonOperator
	beginOperator      ComparisonOperator
	endOperator        ComparisonOperator
	confidenceOperator ComparisonOperator
}

// NewFramedLiteral builds a framed literal with an equality object
// comparison against the default graph.
func NewFramedLiteral(subject, property, object terms.Term) *FramedLiteral {
	return &FramedLiteral{
		subject:  subject,
		property: property,
		object:   object,
		graph:    DefaultGraph,
	}
}

// Subject returns the subject term.
func (l *FramedLiteral) Subject() terms.Term { return l.subject }

// Property returns the property term.
func (l *FramedLiteral) Property() terms.Term { return l.property }

// Object returns the object term.
func (l *FramedLiteral) Object() terms.Term { return l.object }

// Graph returns the graph name this literal is restricted to.
func (l *FramedLiteral) Graph() string { return l.graph }

// Agent returns the agent term, or nil.
func (l *FramedLiteral) Agent() terms.Term { return l.agent }

// BeginTerm returns the begin-time term, or nil.
func (l *FramedLiteral) BeginTerm() terms.Term { return l.begin }

// EndTerm returns the end-time term, or nil.
func (l *FramedLiteral) EndTerm() terms.Term { return l.end }

// ConfidenceTerm returns the confidence term, or nil.
func (l *FramedLiteral) ConfidenceTerm() terms.Term { return l.confidence }

// ObjectOperator returns the comparison applied to the object.
func (l *FramedLiteral) ObjectOperator() ComparisonOperator { return l.objectOperator }

// BeginOperator returns the comparison applied to the begin time.
func (l *FramedLiteral) BeginOperator() ComparisonOperator { return l.beginOperator }

// EndOperator returns the comparison applied to the end time.
func (l *FramedLiteral) EndOperator() ComparisonOperator { return l.endOperator }

// ConfidenceOperator returns the comparison applied to the confidence.
func (l *FramedLiteral) ConfidenceOperator() ComparisonOperator { return l.confidenceOperator }

// SetGraph restricts the literal to a named graph.
func (l *FramedLiteral) SetGraph(graph string) { l.graph = graph }

// SetObjectOperator sets the comparison applied to the object.
func (l *FramedLiteral) SetObjectOperator(op ComparisonOperator) { l.objectOperator = op }

// SetAgent names the agent the literal is framed by.
func (l *FramedLiteral) SetAgent(agent string) { l.agent = terms.NewString(agent) }

// SetBeginTerm sets the begin-time term.
func (l *FramedLiteral) SetBeginTerm(t terms.Term) { l.begin = t }

// SetEndTerm sets the end-time term.
func (l *FramedLiteral) SetEndTerm(t terms.Term) { l.end = t }

// SetBeginOperator sets the comparison used for the begin time.
func (l *FramedLiteral) SetBeginOperator(op ComparisonOperator) { l.beginOperator = op }

// SetEndOperator sets the comparison used for the end time.
func (l *FramedLiteral) SetEndOperator(op ComparisonOperator) { l.endOperator = op }

// SetMinConfidence keeps only matches at or above the given confidence.
func (l *FramedLiteral) SetMinConfidence(limit float64) {
	l.confidence = terms.NewFloat(limit)
	l.confidenceOperator = GEQ
}

// SetMaxConfidence keeps only matches at or below the given confidence.
func (l *FramedLiteral) SetMaxConfidence(limit float64) {
	l.confidence = terms.NewFloat(limit)
	l.confidenceOperator = LEQ
}

// SetMinBegin keeps only matches beginning at or after the given time.
func (l *FramedLiteral) SetMinBegin(limit float64) {
	l.begin = terms.NewFloat(limit)
	l.beginOperator = GEQ
}

// SetMaxBegin keeps only matches beginning at or before the given time.
func (l *FramedLiteral) SetMaxBegin(limit float64) {
	l.begin = terms.NewFloat(limit)
	l.beginOperator = LEQ
}

// SetMinEnd keeps only matches ending at or after the given time.
func (l *FramedLiteral) SetMinEnd(limit float64) {
	l.end = terms.NewFloat(limit)
	l.endOperator = GEQ
}

// SetMaxEnd keeps only matches ending at or before the given time.
func (l *FramedLiteral) SetMaxEnd(limit float64) {
	l.end = terms.NewFloat(limit)
	l.endOperator = LEQ
}

// IsGround reports whether subject, property and object are all ground.
func (l *FramedLiteral) IsGround() bool {
	return l.subject.IsGround() && l.property.IsGround() && l.object.IsGround()
}

func (l *FramedLiteral) Write(w io.Writer) {
	io.WriteString(w, "triple(")
	l.subject.Write(w)
	io.WriteString(w, ",")
	l.property.Write(w)
	io.WriteString(w, ",")
	if l.objectOperator != EQ {
		io.WriteString(w, l.objectOperator.String())
	}
	l.object.Write(w)
	io.WriteString(w, ")")
}

func (l *FramedLiteral) String() string {
	var b strings.Builder
	l.Write(&b)
	return b.String()
}
