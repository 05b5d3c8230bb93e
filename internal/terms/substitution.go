package terms

import (
	"sort"
	"strings"
)

// Substitution is a finite mapping from variables to terms.
type Substitution struct {
	mapping map[Variable]Term
}

// NewSubstitution returns an empty substitution.
func NewSubstitution() *Substitution {
	return &Substitution{mapping: make(map[Variable]Term)}
}

// Set binds a variable to a term, overwriting any previous binding.
func (s *Substitution) Set(v Variable, t Term) { s.mapping[v] = t }

// Get returns the binding of a variable, if any.
func (s *Substitution) Get(v Variable) (Term, bool) {
	t, ok := s.mapping[v]
	return t, ok
}

// GetByName returns the binding of the variable with the given name.
func (s *Substitution) GetByName(name string) (Term, bool) {
	return s.Get(Variable{Name: name})
}

// Contains reports whether the variable is bound.
func (s *Substitution) Contains(v Variable) bool {
	_, ok := s.mapping[v]
	return ok
}

// Erase removes a binding.
func (s *Substitution) Erase(v Variable) { delete(s.mapping, v) }

// Len returns the number of bindings.
func (s *Substitution) Len() int { return len(s.mapping) }

// Range calls fn for every binding until fn returns false.
func (s *Substitution) Range(fn func(Variable, Term) bool) {
	for v, t := range s.mapping {
		if !fn(v, t) {
			return
		}
	}
}

// Copy returns a shallow copy; the terms themselves are immutable and
// shared.
func (s *Substitution) Copy() *Substitution {
	out := &Substitution{mapping: make(map[Variable]Term, len(s.mapping))}
	for v, t := range s.mapping {
		out.mapping[v] = t
	}
	return out
}

// Equals reports whether both substitutions bind the same variables to
// structurally equal terms.
func (s *Substitution) Equals(other *Substitution) bool {
	if len(s.mapping) != len(other.mapping) {
		return false
	}
	for v, t := range s.mapping {
		ot, ok := other.mapping[v]
		if !ok || !t.Equals(ot) {
			return false
		}
	}
	return true
}

// sortedVars returns the bound variables ordered by name, for
// deterministic hashing and printing.
func (s *Substitution) sortedVars() []Variable {
	vars := make([]Variable, 0, len(s.mapping))
	for v := range s.mapping {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Less(vars[j]) })
	return vars
}

// Hash returns an order-independent structural hash of the mapping.
func (s *Substitution) Hash() uint64 {
	const goldenRatio uint64 = 0x9e3779b97f4a7c15

	var seed uint64
	for _, v := range s.sortedVars() {
		seed ^= v.Hash() + goldenRatio + (seed << 6) + (seed >> 2)
		seed ^= s.mapping[v].Hash() + goldenRatio + (seed << 6) + (seed >> 2)
	}
	return seed
}

func (s *Substitution) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range s.sortedVars() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(v.Name)
		b.WriteString(": ")
		s.mapping[v].Write(&b)
	}
	b.WriteByte('}')
	return b.String()
}

// Reversible is a LIFO journal of undo closures. Every mutation of a
// substitution during a merge pushes exactly one undo; Rollback pops
// and runs them in reverse order.
type Reversible struct {
	undo []func()
}

// Push appends an undo closure.
func (r *Reversible) Push(fn func()) { r.undo = append(r.undo, fn) }

// Empty reports whether no undo is recorded.
func (r *Reversible) Empty() bool { return len(r.undo) == 0 }

// Rollback runs all recorded undos in LIFO order and clears the journal.
func (r *Reversible) Rollback() {
	for i := len(r.undo) - 1; i >= 0; i-- {
		r.undo[i]()
	}
	r.undo = r.undo[:0]
}

// UnifyWith merges another substitution into this one. Variables bound
// only in other are inserted; variables bound in both are unified and
// overwritten with the unified term. On conflict false is returned and
// the caller is expected to roll back through the journal. A nil
// journal skips undo recording.
func (s *Substitution) UnifyWith(other *Substitution, journal *Reversible) bool {
	for v, t1 := range other.mapping {
		t0, ok := s.mapping[v]
		if !ok {
			s.mapping[v] = t1
			if journal != nil {
				v := v
				journal.Push(func() { delete(s.mapping, v) })
			}
			continue
		}
		sigma := NewUnifier(t0, t1)
		if !sigma.Exists() {
			return false
		}
		s.mapping[v] = sigma.Apply()
		if journal != nil {
			v, t0 := v, t0
			journal.Push(func() { s.mapping[v] = t0 })
		}
	}
	return true
}

// Apply substitutes bound variables in t. The walk is single-pass and
// structure-sharing: ground subtrees and unchanged arguments are
// returned by reference.
func Apply(t Term, s *Substitution) Term {
	switch x := t.(type) {
	case Variable:
		if bound, ok := s.mapping[x]; ok {
			return bound
		}
		return t
	case *Compound:
		if x.ground {
			return t
		}
		var newArgs []Term
		for i, a := range x.args {
			mapped := Apply(a, s)
			if newArgs == nil {
				if mapped == a {
					continue
				}
				newArgs = make([]Term, len(x.args))
				copy(newArgs, x.args[:i])
			}
			newArgs[i] = mapped
		}
		if newArgs == nil {
			return t
		}
		return NewCompound(x.functor, newArgs)
	default:
		return t
	}
}
