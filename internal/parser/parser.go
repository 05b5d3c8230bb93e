// Package parser implements the surface syntax of modalkb queries: a
// recursive-descent grammar over predicates, boolean connectives and
// modal operators with option lists. IRI atoms of the form "ns:name"
// are expanded through an injected prefix registry at parse time.
//
// The grammar, binding tightest first: unary operators (negation,
// modal) > ','/'&' > ';'/'|' > '->' (right-associative). Whitespace is
// insignificant except inside lexemes and IRIs.
package parser

import (
	"strconv"
	"strings"

	"modalkb/internal/formulas"
	"modalkb/internal/queries"
	"modalkb/internal/semweb"
	"modalkb/internal/terms"
)

// Parser parses query strings against a fixed prefix registry. A
// parser is immutable and safe for concurrent use.
type Parser struct {
	registry *semweb.PrefixRegistry
}

// New returns a parser expanding IRIs through the given registry.
func New(registry *semweb.PrefixRegistry) *Parser {
	return &Parser{registry: registry}
}

// Parse parses a complete formula.
func (p *Parser) Parse(text string) (formulas.Formula, error) {
	s := &scanner{parser: p, input: text}
	f, ok := s.parseFormula()
	if err := s.finish(ok); err != nil {
		return nil, err
	}
	return f, nil
}

// ParsePredicate parses a single predicate, e.g. "p(X,a)".
func (p *Parser) ParsePredicate(text string) (*terms.Compound, error) {
	s := &scanner{parser: p, input: text}
	c, ok := s.parsePredicate()
	if err := s.finish(ok); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseConstant parses a single constant: an atom, a string, or a
// number.
func (p *Parser) ParseConstant(text string) (terms.Term, error) {
	s := &scanner{parser: p, input: text}
	t, ok := s.parseConstant()
	if err := s.finish(ok); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseRawAtom parses the raw text of an atom, expanding IRIs.
func (p *Parser) ParseRawAtom(text string) (string, error) {
	s := &scanner{parser: p, input: text}
	raw, ok := s.parseRawAtom()
	if err := s.finish(ok); err != nil {
		return "", err
	}
	return raw, nil
}

// scanner holds the parse position. Syntactic failures return false
// and leave callers free to backtrack; non-syntactic failures (unknown
// IRI prefix, unrecognized modal option) abort the whole parse through
// the err field.
type scanner struct {
	parser *Parser
	input  string
	pos    int
	err    error
}

func (s *scanner) finish(ok bool) error {
	if s.err != nil {
		return s.err
	}
	s.skipWS()
	if !ok || s.pos != len(s.input) {
		return queries.NewQueryError("Query string (%s) has invalid syntax.", s.input)
	}
	return nil
}

func (s *scanner) abort(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *scanner) failed() bool { return s.err != nil }

func (s *scanner) skipWS() {
	for s.pos < len(s.input) {
		switch s.input[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) peek() byte {
	if s.pos < len(s.input) {
		return s.input[s.pos]
	}
	return 0
}

// expect skips whitespace and consumes the given byte.
func (s *scanner) expect(c byte) bool {
	s.skipWS()
	if s.peek() == c {
		s.pos++
		return true
	}
	return false
}

// expectString skips whitespace and consumes the given string.
func (s *scanner) expectString(lit string) bool {
	s.skipWS()
	if strings.HasPrefix(s.input[s.pos:], lit) {
		s.pos += len(lit)
		return true
	}
	return false
}

//////////////////////////////
// lexemes

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isIdent(c byte) bool { return isLower(c) || isUpper(c) || isDigit(c) || c == '_' }

func (s *scanner) lexIdent(first func(byte) bool) (string, bool) {
	if s.pos >= len(s.input) || !first(s.input[s.pos]) {
		return "", false
	}
	start := s.pos
	s.pos++
	for s.pos < len(s.input) && isIdent(s.input[s.pos]) {
		s.pos++
	}
	return s.input[start:s.pos], true
}

func (s *scanner) lexQuoted(quote byte) (string, bool) {
	if s.peek() != quote {
		return "", false
	}
	start := s.pos
	s.pos++
	begin := s.pos
	for s.pos < len(s.input) && s.input[s.pos] != quote {
		s.pos++
	}
	if s.pos >= len(s.input) || s.pos == begin {
		s.pos = start
		return "", false
	}
	text := s.input[begin:s.pos]
	s.pos++
	return text, true
}

func (s *scanner) lexNumber() (float64, bool) {
	start := s.pos
	if c := s.peek(); c == '+' || c == '-' {
		s.pos++
	}
	digits := 0
	for s.pos < len(s.input) && isDigit(s.input[s.pos]) {
		s.pos++
		digits++
	}
	if s.peek() == '.' {
		s.pos++
		for s.pos < len(s.input) && isDigit(s.input[s.pos]) {
			s.pos++
			digits++
		}
	}
	if digits == 0 {
		s.pos = start
		return 0, false
	}
	if c := s.peek(); c == 'e' || c == 'E' {
		mark := s.pos
		s.pos++
		if c := s.peek(); c == '+' || c == '-' {
			s.pos++
		}
		expDigits := 0
		for s.pos < len(s.input) && isDigit(s.input[s.pos]) {
			s.pos++
			expDigits++
		}
		if expDigits == 0 {
			s.pos = mark
		}
	}
	v, err := strconv.ParseFloat(s.input[start:s.pos], 64)
	if err != nil {
		s.pos = start
		return 0, false
	}
	return v, true
}

//////////////////////////////
// atoms and constants

// parseRawAtom matches single-quoted text, an IRI "ns:name", or a
// lowercase identifier. IRIs are expanded immediately; an unregistered
// namespace aborts the parse.
func (s *scanner) parseRawAtom() (string, bool) {
	if s.failed() {
		return "", false
	}
	s.skipWS()

	if text, ok := s.lexQuoted('\''); ok {
		return text, true
	}

	save := s.pos
	if ns, ok := s.lexIdent(func(c byte) bool { return isLower(c) || isUpper(c) }); ok {
		if s.peek() == ':' {
			s.pos++
			entity, ok := s.lexQuoted('\'')
			if !ok {
				entity, ok = s.lexIdent(func(c byte) bool { return isLower(c) || isUpper(c) })
			}
			if ok {
				expanded, found := s.parser.registry.CreateIRI(ns, entity)
				if !found {
					s.abort(queries.NewQueryError(
						"Cannot construct IRI for '%s': IRI prefix '%s' is not registered!", entity, ns))
					return "", false
				}
				return expanded, true
			}
		}
		s.pos = save
	}

	if text, ok := s.lexIdent(isLower); ok {
		return text, true
	}
	return "", false
}

func (s *scanner) parseConstant() (terms.Term, bool) {
	if s.failed() {
		return nil, false
	}
	s.skipWS()
	if text, ok := s.parseRawAtom(); ok {
		return terms.NewAtom(text), true
	}
	if s.failed() {
		return nil, false
	}
	if text, ok := s.lexQuoted('"'); ok {
		return terms.NewString(text), true
	}
	if v, ok := s.lexNumber(); ok {
		return terms.NewFloat(v), true
	}
	return nil, false
}

func (s *scanner) parseVariable() (terms.Term, bool) {
	s.skipWS()
	if name, ok := s.lexIdent(isUpper); ok {
		return terms.NewVariable(name), true
	}
	return nil, false
}

func (s *scanner) parseConstantList() (terms.Term, bool) {
	save := s.pos
	if !s.expect('[') {
		return nil, false
	}
	var items []terms.Term
	for {
		c, ok := s.parseConstant()
		if !ok {
			s.pos = save
			return nil, false
		}
		items = append(items, c)
		if s.expect(',') {
			continue
		}
		if s.expect(']') {
			return terms.NewList(items), true
		}
		s.pos = save
		return nil, false
	}
}

// parseCompoundArg matches "atom(arg,...)" with at least one argument.
func (s *scanner) parseCompoundArg() (terms.Term, bool) {
	save := s.pos
	name, ok := s.parseRawAtom()
	if !ok {
		s.pos = save
		return nil, false
	}
	args, ok := s.parseArgList()
	if !ok {
		s.pos = save
		return nil, false
	}
	return terms.NewCompound(name, args), true
}

// parseArgList matches "(arg, arg, ...)".
func (s *scanner) parseArgList() ([]terms.Term, bool) {
	save := s.pos
	if !s.expect('(') {
		return nil, false
	}
	var args []terms.Term
	for {
		a, ok := s.parseArgument()
		if !ok {
			s.pos = save
			return nil, false
		}
		args = append(args, a)
		if s.expect(',') {
			continue
		}
		if s.expect(')') {
			return args, true
		}
		s.pos = save
		return nil, false
	}
}

func (s *scanner) parseArgument() (terms.Term, bool) {
	if s.failed() {
		return nil, false
	}
	if c, ok := s.parseCompoundArg(); ok {
		return c, true
	}
	if s.failed() {
		return nil, false
	}
	if v, ok := s.parseVariable(); ok {
		return v, true
	}
	if c, ok := s.parseConstant(); ok {
		return c, true
	}
	if s.failed() {
		return nil, false
	}
	return s.parseConstantList()
}

// parsePredicate matches an atom with an optional argument list.
func (s *scanner) parsePredicate() (*terms.Compound, bool) {
	if s.failed() {
		return nil, false
	}
	name, ok := s.parseRawAtom()
	if !ok {
		return nil, false
	}
	if args, ok := s.parseArgList(); ok {
		return terms.NewCompound(name, args), true
	}
	if s.failed() {
		return nil, false
	}
	return terms.NewCompound(name, nil), true
}

//////////////////////////////
// modal option lists

// option is one entry of a modal option list. A nil value with no key
// denotes an empty positional slot, as in "[,20]".
type option struct {
	key   string
	value terms.Term
}

func (o option) String() string {
	if o.key != "" {
		var b strings.Builder
		b.WriteString("=(")
		b.WriteString(o.key)
		b.WriteByte(',')
		o.value.Write(&b)
		b.WriteByte(')')
		return b.String()
	}
	if o.value == nil {
		return ""
	}
	var b strings.Builder
	o.value.Write(&b)
	return b.String()
}

// stringish extracts the text of an atom or string term.
func stringish(t terms.Term) (string, bool) {
	switch x := t.(type) {
	case terms.Atom:
		return x.Text, true
	case terms.Str:
		return x.Text, true
	default:
		return "", false
	}
}

// parseOptions matches "[option, ...]" if present. The present return
// distinguishes a missing list from a syntactically bad one.
func (s *scanner) parseOptions() (opts []option, present, ok bool) {
	s.skipWS()
	if s.peek() != '[' {
		return nil, false, true
	}
	save := s.pos
	s.pos++

	expectItem := true
	for {
		s.skipWS()
		switch {
		case expectItem && s.peek() == ',':
			// empty positional slot
			opts = append(opts, option{})
			s.pos++
		case expectItem && s.peek() == ']' && len(opts) > 0:
			// trailing empty slot, e.g. "[10,]"
			opts = append(opts, option{})
			s.pos++
			return opts, true, true
		case expectItem:
			o, itemOK := s.parseOption()
			if !itemOK {
				s.pos = save
				return nil, true, false
			}
			opts = append(opts, o)
			expectItem = false
		case s.peek() == ',':
			s.pos++
			expectItem = true
		case s.peek() == ']':
			s.pos++
			return opts, true, true
		default:
			s.pos = save
			return nil, true, false
		}
	}
}

func (s *scanner) parseOption() (option, bool) {
	if s.failed() {
		return option{}, false
	}
	save := s.pos
	if key, ok := s.parseRawAtom(); ok {
		if s.expect('=') {
			if value, ok := s.parseConstant(); ok {
				return option{key: key, value: value}, true
			}
			s.pos = save
			return option{}, false
		}
		s.pos = save
	}
	if s.failed() {
		return option{}, false
	}
	if value, ok := s.parseConstant(); ok {
		return option{value: value}, true
	}
	return option{}, false
}

func unrecognizedOption(o option) error {
	return queries.NewQueryError("Unrecognized option (%s) in modal operator.", o)
}

// buildBelief interprets a B option list: a positional string names the
// agent, a positional float sets the confidence; named keys are
// agent/a and confidence/c.
func buildBelief(opts []option) (*formulas.ModalOperator, error) {
	var agent *string
	var confidence *float64
	for _, o := range opts {
		if o.key == "" {
			if text, ok := stringish(o.value); ok && agent == nil && o.value != nil {
				agent = &text
				continue
			}
			if f, ok := o.value.(terms.Float); ok && confidence == nil {
				confidence = &f.Value
				continue
			}
			return nil, unrecognizedOption(o)
		}
		if text, ok := stringish(o.value); ok && agent == nil && (o.key == "agent" || o.key == "a") {
			agent = &text
			continue
		}
		if f, ok := o.value.(terms.Float); ok && confidence == nil && (o.key == "confidence" || o.key == "c") {
			confidence = &f.Value
			continue
		}
		return nil, unrecognizedOption(o)
	}

	switch {
	case agent != nil && confidence != nil:
		return formulas.BAgentConfidence(*agent, *confidence), nil
	case agent != nil:
		return formulas.BAgent(*agent), nil
	case confidence != nil:
		return formulas.BConfidence(*confidence), nil
	default:
		return formulas.B(), nil
	}
}

// buildKnowledge interprets a K option list: only an agent is allowed.
func buildKnowledge(opts []option) (*formulas.ModalOperator, error) {
	var agent *string
	for _, o := range opts {
		if o.key == "" {
			if text, ok := stringish(o.value); ok && agent == nil && o.value != nil {
				agent = &text
				continue
			}
			return nil, unrecognizedOption(o)
		}
		if text, ok := stringish(o.value); ok && agent == nil && (o.key == "agent" || o.key == "a") {
			agent = &text
			continue
		}
		return nil, unrecognizedOption(o)
	}
	if agent != nil {
		return formulas.KAgent(*agent), nil
	}
	return formulas.K(), nil
}

// buildPast interprets a P/H option list into a time interval. The
// first positional slot is the begin time, the second the end time;
// empty slots advance the position. Named keys are begin/since and
// end/until.
func buildPast(kind byte, opts []option) (*formulas.ModalOperator, error) {
	var begin, end *float64
	posIdx := 0
	for _, o := range opts {
		if o.key == "" {
			if o.value == nil {
				posIdx++
				continue
			}
			f, ok := o.value.(terms.Float)
			if !ok {
				return nil, unrecognizedOption(o)
			}
			if posIdx == 0 && begin == nil {
				begin = &f.Value
			} else if posIdx <= 1 && end == nil {
				end = &f.Value
			} else {
				return nil, unrecognizedOption(o)
			}
			posIdx++
			continue
		}
		if f, ok := o.value.(terms.Float); ok && begin == nil && (o.key == "begin" || o.key == "since") {
			begin = &f.Value
			continue
		}
		if f, ok := o.value.(terms.Float); ok && end == nil && (o.key == "end" || o.key == "until") {
			end = &f.Value
			continue
		}
		return nil, unrecognizedOption(o)
	}

	if begin == nil && end == nil {
		if kind == 'P' {
			return formulas.P(), nil
		}
		return formulas.H(), nil
	}
	interval, err := formulas.NewTimeInterval(begin, end)
	if err != nil {
		return nil, err
	}
	if kind == 'P' {
		return formulas.PInterval(interval), nil
	}
	return formulas.HInterval(interval), nil
}

//////////////////////////////
// formulas

func (s *scanner) parseBrackets() (formulas.Formula, bool) {
	save := s.pos
	if !s.expect('(') {
		return nil, false
	}
	f, ok := s.parseFormula()
	if !ok || !s.expect(')') {
		if s.failed() {
			return nil, false
		}
		s.pos = save
		return nil, false
	}
	return f, true
}

// parseUnaryOrBrackets matches a unary formula or a parenthesized one.
func (s *scanner) parseUnaryOrBrackets() (formulas.Formula, bool) {
	if s.failed() {
		return nil, false
	}
	s.skipWS()
	if s.peek() == '(' {
		return s.parseBrackets()
	}
	return s.parseUnary()
}

func (s *scanner) parseUnary() (formulas.Formula, bool) {
	if s.failed() {
		return nil, false
	}
	s.skipWS()
	c := s.peek()

	if c == '~' {
		s.pos++
		body, ok := s.parseUnaryOrBrackets()
		if !ok {
			return nil, false
		}
		return formulas.Not(body), true
	}

	if c == 'B' || c == 'K' || c == 'P' || c == 'H' {
		if m, ok := s.parseModal(c); ok {
			return m, true
		}
		if s.failed() {
			return nil, false
		}
	}

	if p, ok := s.parsePredicate(); ok {
		return formulas.NewPredicate(p), true
	}
	return nil, false
}

func (s *scanner) parseModal(kind byte) (formulas.Formula, bool) {
	save := s.pos
	s.pos++ // operator symbol

	opts, _, ok := s.parseOptions()
	if !ok {
		s.pos = save
		return nil, false
	}
	body, ok := s.parseUnaryOrBrackets()
	if !ok {
		s.pos = save
		return nil, false
	}

	var op *formulas.ModalOperator
	var err error
	switch kind {
	case 'B':
		op, err = buildBelief(opts)
	case 'K':
		op, err = buildKnowledge(opts)
	default:
		op, err = buildPast(kind, opts)
	}
	if err != nil {
		s.abort(err)
		return nil, false
	}
	return formulas.NewModal(op, body), true
}

func (s *scanner) parseConjunction() (formulas.Formula, bool) {
	left, ok := s.parseUnaryOrBrackets()
	if !ok {
		return nil, false
	}
	s.skipWS()
	if c := s.peek(); c == ',' || c == '&' {
		s.pos++
		right, ok := s.parseConjunction()
		if !ok {
			return nil, false
		}
		return formulas.And(left, right), true
	}
	return left, true
}

func (s *scanner) parseDisjunction() (formulas.Formula, bool) {
	left, ok := s.parseConjunction()
	if !ok {
		return nil, false
	}
	s.skipWS()
	if c := s.peek(); c == ';' || c == '|' {
		s.pos++
		right, ok := s.parseDisjunction()
		if !ok {
			return nil, false
		}
		return formulas.Or(left, right), true
	}
	return left, true
}

func (s *scanner) parseImplication() (formulas.Formula, bool) {
	left, ok := s.parseDisjunction()
	if !ok {
		return nil, false
	}
	if s.expectString("->") {
		right, ok := s.parseImplication()
		if !ok {
			return nil, false
		}
		return formulas.Implies(left, right), true
	}
	return left, true
}

func (s *scanner) parseFormula() (formulas.Formula, bool) {
	return s.parseImplication()
}
