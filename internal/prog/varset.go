package prog

import "slices"

// VarSet is a set of variable names. The zero value is an empty set ready to use.
type VarSet struct {
	m map[string]struct{}
}

// NewVarSet returns a set holding names.
func NewVarSet(names ...string) VarSet {
	var s VarSet
	for _, n := range names {
		s.Add(n)
	}
	return s
}

func (s *VarSet) Add(name string) {
	if s.m == nil {
		s.m = make(map[string]struct{})
	}
	s.m[name] = struct{}{}
}

func (s VarSet) Has(name string) bool {
	_, ok := s.m[name]
	return ok
}

func (s VarSet) Len() int { return len(s.m) }

// AddAll adds every name of other.
func (s *VarSet) AddAll(other VarSet) {
	for n := range other.m {
		s.Add(n)
	}
}

// Names returns the members in sorted order.
func (s VarSet) Names() []string {
	out := make([]string, 0, len(s.m))
	for n := range s.m {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Union returns a new set with the members of s and other.
func (s VarSet) Union(other VarSet) VarSet {
	var out VarSet
	out.AddAll(s)
	out.AddAll(other)
	return out
}

// Minus returns a new set with the members of s that are not in other.
func (s VarSet) Minus(other VarSet) VarSet {
	var out VarSet
	for n := range s.m {
		if !other.Has(n) {
			out.Add(n)
		}
	}
	return out
}

// Equal reports whether both sets hold the same names.
func (s VarSet) Equal(other VarSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for n := range s.m {
		if !other.Has(n) {
			return false
		}
	}
	return true
}
