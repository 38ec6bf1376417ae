package gdf

import (
	"errors"
	"fmt"

	"gdfplan/internal/hop"
	"gdfplan/internal/prog"
)

// Validate checks graph invariants.
// Returns error if any invariant is violated.
func Validate(g *Graph) error {
	if g == nil {
		return nil
	}
	var errs []error

	// 1. Node handles and input edges
	if err := validateEdges(g); err != nil {
		errs = append(errs, err)
	}

	// 2. Node payloads match their kind
	if err := validatePayloads(g); err != nil {
		errs = append(errs, err)
	}

	// 3. One node per computation node within a generic block
	if err := validateSharing(g); err != nil {
		errs = append(errs, err)
	}

	// 4. Sinks and exit bindings point into the arena
	if err := validateRoots(g); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// validateEdges checks that every input refers to an earlier node. Build
// allocates inputs first, so this also rules out cycles.
func validateEdges(g *Graph) error {
	var errs []error
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if int(n.ID) != i {
			errs = append(errs, fmt.Errorf("%s: stored at index %d", n.ID, i))
		}
		for _, in := range n.Inputs {
			if !in.IsValid() || in >= n.ID {
				errs = append(errs, fmt.Errorf("%s: bad input %s", n.ID, in))
			}
		}
	}
	return errors.Join(errs...)
}

func validatePayloads(g *Graph) error {
	var errs []error
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Block == nil {
			errs = append(errs, fmt.Errorf("%s: no owning block", n.ID))
		}
		switch n.Kind {
		case NodeOp:
			if n.Hop == nil {
				errs = append(errs, fmt.Errorf("%s: operator node without computation node", n.ID))
				continue
			}
			want := len(n.Hop.Inputs)
			if n.Hop.Op == hop.OpTransientRead {
				want++
			}
			if len(n.Inputs) != want {
				errs = append(errs, fmt.Errorf("%s: %d inputs, want %d", n.ID, len(n.Inputs), want))
			}
		case NodeForPred:
			if len(n.Inputs) > 3 {
				errs = append(errs, fmt.Errorf("%s: for predicate with %d inputs", n.ID, len(n.Inputs)))
			}
		case NodeCrossBlock:
			switch n.Cross.Shape {
			case CrossPlain:
				if len(n.Inputs) != 1 {
					errs = append(errs, fmt.Errorf("%s: PLAIN with %d inputs", n.ID, len(n.Inputs)))
				}
			case CrossMerge:
				if len(n.Inputs) != 2 {
					errs = append(errs, fmt.Errorf("%s: MERGE with %d inputs", n.ID, len(n.Inputs)))
				} else if n.Inputs[0] == n.Inputs[1] {
					errs = append(errs, fmt.Errorf("%s: MERGE over identical inputs %s", n.ID, n.Inputs[0]))
				}
			}
			if n.Cross.Var == "" {
				errs = append(errs, fmt.Errorf("%s: cross-block node without variable", n.ID))
			}
		case NodeLoop:
			if len(n.Inputs) != len(n.Loop.In)+1 || len(n.Inputs) == 0 || n.Inputs[0] != n.Loop.Pred {
				errs = append(errs, fmt.Errorf("%s: loop inputs do not match predicate and input map", n.ID))
			}
			for name, out := range n.Loop.Out {
				if !out.IsValid() || out >= n.ID {
					errs = append(errs, fmt.Errorf("%s: bad output %s for %q", n.ID, out, name))
				}
			}
		default:
			errs = append(errs, fmt.Errorf("%s: unknown node kind %d", n.ID, n.Kind))
		}
	}
	return errors.Join(errs...)
}

func validateSharing(g *Graph) error {
	type key struct {
		blk *prog.Block
		h   *hop.Node
	}
	seen := make(map[key]NodeID)
	var errs []error
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Kind != NodeOp || n.Block == nil || n.Block.Kind != prog.BlockGeneric {
			continue
		}
		k := key{blk: n.Block, h: n.Hop}
		if prev, ok := seen[k]; ok {
			errs = append(errs, fmt.Errorf("%s: duplicates %s for %s", n.ID, prev, hop.Explain(n.Hop)))
			continue
		}
		seen[k] = n.ID
	}
	return errors.Join(errs...)
}

func validateRoots(g *Graph) error {
	var errs []error
	for _, id := range g.Outputs {
		if g.Node(id) == nil {
			errs = append(errs, fmt.Errorf("output %s out of range", id))
		}
	}
	if g.Vars != nil {
		for _, name := range g.Vars.Names() {
			id, _ := g.Vars.Get(name)
			if g.Node(id) == nil {
				errs = append(errs, fmt.Errorf("variable %q bound to %s out of range", name, id))
			}
		}
	}
	return errors.Join(errs...)
}
