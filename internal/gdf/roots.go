package gdf

import "slices"

// Roots maps variable names to the node holding their value at a program
// point. Branches and loop bodies work on clones, so sibling scopes never
// observe each other's bindings.
type Roots struct {
	m map[string]NodeID
}

func NewRoots() *Roots {
	return &Roots{m: make(map[string]NodeID)}
}

// Clone returns an independent copy of r.
func (r *Roots) Clone() *Roots {
	out := &Roots{m: make(map[string]NodeID, len(r.m))}
	for k, v := range r.m {
		out.m[k] = v
	}
	return out
}

func (r *Roots) Get(name string) (NodeID, bool) {
	id, ok := r.m[name]
	return id, ok
}

func (r *Roots) Has(name string) bool {
	_, ok := r.m[name]
	return ok
}

func (r *Roots) Bind(name string, id NodeID) {
	r.m[name] = id
}

func (r *Roots) Len() int { return len(r.m) }

// Names returns the bound names in sorted order.
func (r *Roots) Names() []string {
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
