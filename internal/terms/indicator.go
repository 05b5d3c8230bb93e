package terms

import "strconv"

// PredicateIndicator identifies a callable name by functor and arity.
type PredicateIndicator struct {
	Functor string
	Arity   int
}

// Less orders indicators lexicographically by (functor, arity).
func (p PredicateIndicator) Less(other PredicateIndicator) bool {
	if p.Functor != other.Functor {
		return p.Functor < other.Functor
	}
	return p.Arity < other.Arity
}

func (p PredicateIndicator) String() string {
	return p.Functor + "/" + strconv.Itoa(p.Arity)
}
