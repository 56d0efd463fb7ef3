package query

// Predicate is a filter condition. Sealed to this package.
type Predicate interface {
	predicateNode()
}

// Equals matches field = value. Value is a string, bool or int64.
type Equals struct {
	Field string
	Value any
}

// In matches field IN (values...). An empty list matches nothing.
type In struct {
	Field  string
	Values []any
}

// Like matches field LIKE pattern with '\' as the escape character.
type Like struct {
	Field   string
	Pattern string
}

// And matches when every predicate matches. An empty And matches everything.
type And struct {
	Predicates []Predicate
}

func (Equals) predicateNode() {}
func (In) predicateNode()     {}
func (Like) predicateNode()   {}
func (And) predicateNode()    {}

// All combines predicates, dropping nils. It returns nil when none remain.
func All(preds ...Predicate) Predicate {
	var out []Predicate
	for _, p := range preds {
		if p != nil {
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return And{Predicates: out}
	}
}
