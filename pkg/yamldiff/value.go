package yamldiff

// Value is a node of a normalized document: one of Scalar, Map or
// List.
type Value interface {
	isValue()
}

// Scalar is the canonical text of a leaf value.
type Scalar string

// Map associates keys with values. Key order carries no meaning.
type Map map[string]Value

// List is an ordered sequence of values.
type List []Value

func (Scalar) isValue() {}
func (Map) isValue()    {}
func (List) isValue()   {}

// Equal reports whether a and b are structurally equal: same variant,
// same scalar text, same map entries, and same list elements in the
// same order.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Scalar:
		b, ok := b.(Scalar)
		return ok && a == b
	case Map:
		b, ok := b.(Map)
		if !ok || len(a) != len(b) {
			return false
		}
		for k, va := range a {
			vb, found := b[k]
			if !found || !Equal(va, vb) {
				return false
			}
		}
		return true
	case List:
		b, ok := b.(List)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !Equal(a[i], b[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Kind names the variant of v, for messages.
func Kind(v Value) string {
	switch v.(type) {
	case Scalar:
		return "scalar"
	case Map:
		return "map"
	case List:
		return "list"
	}
	return "invalid"
}
