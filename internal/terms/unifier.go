package terms

// Unifier computes a most general unifier of two terms. The unifier
// extends Substitution, so a successful unification can be merged into
// other substitutions directly.
type Unifier struct {
	*Substitution
	t0, t1 Term
	exists bool
}

// NewUnifier unifies t0 with t1. Exists reports success; Apply returns
// the canonical unified term.
func NewUnifier(t0, t1 Term) *Unifier {
	u := &Unifier{Substitution: NewSubstitution(), t0: t0, t1: t1}
	u.exists = u.unify(t0, t1)
	if u.exists {
		u.resolve()
	}
	return u
}

// Exists reports whether a unifier was found.
func (u *Unifier) Exists() bool { return u.exists }

func (u *Unifier) unify(t0, t1 Term) bool {
	t0 = u.walk(t0)
	t1 = u.walk(t1)

	if v1, ok := t1.(Variable); ok {
		if v0, ok := t0.(Variable); ok && v0.Name == v1.Name {
			return true
		}
		return u.bind(v1, t0)
	}

	switch x := t0.(type) {
	case Variable:
		return u.bind(x, t1)
	case *Compound:
		// compounds only unify with other compounds
		y, ok := t1.(*Compound)
		if !ok || x.functor != y.functor || len(x.args) != len(y.args) {
			return false
		}
		for i := range x.args {
			if !u.unify(x.args[i], y.args[i]) {
				return false
			}
		}
		return true
	case *List:
		y, ok := t1.(*List)
		if !ok || len(x.items) != len(y.items) {
			return false
		}
		for i := range x.items {
			if !u.unify(x.items[i], y.items[i]) {
				return false
			}
		}
		return true
	case Atom, Str, Int32, Int64, Float:
		return t0.Kind() == t1.Kind() && t0.Equals(t1)
	case *topTerm, *bottomTerm:
		return t0 == t1
	default:
		return false
	}
}

// walk dereferences a variable through the bindings accumulated so far.
func (u *Unifier) walk(t Term) Term {
	for {
		v, ok := t.(Variable)
		if !ok {
			return t
		}
		bound, ok := u.mapping[v]
		if !ok {
			return t
		}
		t = bound
	}
}

// bind records v ↦ t after an occurs check, keeping the mapping
// acyclic.
func (u *Unifier) bind(v Variable, t Term) bool {
	if u.occurs(v, t) {
		return false
	}
	u.mapping[v] = t
	return true
}

func (u *Unifier) occurs(v Variable, t Term) bool {
	switch x := t.(type) {
	case Variable:
		if x.Name == v.Name {
			return true
		}
		if bound, ok := u.mapping[x]; ok {
			return u.occurs(v, bound)
		}
		return false
	case *Compound:
		if x.ground {
			return false
		}
		for _, a := range x.args {
			if u.occurs(v, a) {
				return true
			}
		}
		return false
	case *List:
		if x.ground {
			return false
		}
		for _, it := range x.items {
			if u.occurs(v, it) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// resolve rewrites every binding to its fully substituted form, so a
// single-pass Apply over the result is sound even when variables were
// bound through chains.
func (u *Unifier) resolve() {
	for v, t := range u.mapping {
		u.mapping[v] = u.deepApply(t)
	}
}

func (u *Unifier) deepApply(t Term) Term {
	switch x := t.(type) {
	case Variable:
		if bound, ok := u.mapping[x]; ok {
			return u.deepApply(bound)
		}
		return t
	case *Compound:
		if x.ground {
			return t
		}
		args := make([]Term, len(x.args))
		for i, a := range x.args {
			args[i] = u.deepApply(a)
		}
		return NewCompound(x.functor, args)
	case *List:
		if x.ground {
			return t
		}
		items := make([]Term, len(x.items))
		for i, it := range x.items {
			items[i] = u.deepApply(it)
		}
		return NewList(items)
	default:
		return t
	}
}

// Apply returns the canonical unified term, preferring the more-ground
// input side. Without a unifier, Bottom is returned.
func (u *Unifier) Apply() Term {
	switch {
	case !u.exists:
		return Bottom()
	case len(u.mapping) == 0 || u.t0.IsGround() || u.t1.Kind() == KindVariable:
		return u.t0
	case u.t1.IsGround() || u.t0.Kind() == KindVariable:
		return u.t1
	default:
		// both sides contain variables; instantiate t0
		return Apply(u.t0, u.Substitution)
	}
}
