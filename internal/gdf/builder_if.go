package gdf

import (
	"gdfplan/internal/hop"
	"gdfplan/internal/prog"
)

// conditional builds both arms against independent copies of roots and joins
// them back. A missing else arm leaves its copy equal to the entry bindings.
func (b *builder) conditional(blk *prog.Block, roots *Roots) error {
	if blk.Predicate != nil {
		pred, err := b.dag(blk.Predicate, blk, roots)
		if err != nil {
			return err
		}
		// visible to both arms, so it never needs a merge. A literal is not
		// bound: its name holds the constant's value, not a variable.
		if blk.Predicate.Name != "" && blk.Predicate.Op != hop.OpLiteral {
			roots.Bind(blk.Predicate.Name, pred)
		}
	}

	ifRoots := roots.Clone()
	elseRoots := roots.Clone()
	if err := b.blocks(blk.Body, ifRoots); err != nil {
		return err
	}
	if err := b.blocks(blk.Else, elseRoots); err != nil {
		return err
	}
	return b.reconcile(blk, ifRoots, elseRoots, roots)
}

// reconcile writes the join of both arms into roots. A name bound to
// different nodes in the two arms gets a MERGE node over (then, else); a name
// bound to the same node, or bound in one arm only, is rebound as is.
func (b *builder) reconcile(blk *prog.Block, ifRoots, elseRoots, roots *Roots) error {
	for _, name := range ifRoots.Names() {
		n1, _ := ifRoots.Get(name)
		n2, ok := elseRoots.Get(name)
		if ok && n1 != n2 {
			merged, err := b.cross(CrossMerge, nil, blk, name, n1, n2)
			if err != nil {
				return err
			}
			n1 = merged
		}
		roots.Bind(name, n1)
	}
	for _, name := range elseRoots.Names() {
		if ifRoots.Has(name) {
			continue
		}
		n2, _ := elseRoots.Get(name)
		roots.Bind(name, n2)
	}
	return nil
}
