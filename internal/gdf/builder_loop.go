package gdf

import (
	"maps"
	"slices"

	"gdfplan/internal/hop"
	"gdfplan/internal/prog"
	"gdfplan/internal/trace"
)

// loop builds the body once against a table holding only the loop inputs and
// wraps predicate, inputs and outputs into one NodeLoop. The trip count never
// influences the graph.
func (b *builder) loop(blk *prog.Block, roots *Roots) error {
	pred, err := b.loopPredicate(blk, roots)
	if err != nil {
		return err
	}
	in, err := b.loopInputs(blk, roots)
	if err != nil {
		return err
	}

	local := NewRoots()
	for name, id := range in {
		local.Bind(name, id)
	}
	if blk.Kind.IsCounted() && blk.Iter != "" {
		local.Bind(blk.Iter, pred)
	}
	if err := b.blocks(blk.Body, local); err != nil {
		return err
	}

	out, err := b.loopOutputs(blk, local)
	if err != nil {
		return err
	}

	inputs := make([]NodeID, 0, len(in)+1)
	inputs = append(inputs, pred)
	for _, name := range slices.Sorted(maps.Keys(in)) {
		inputs = append(inputs, in[name])
	}
	id, err := b.g.alloc(NodeLoop, nil, blk, inputs)
	if err != nil {
		return err
	}
	b.g.Nodes[id].Loop = Loop{Pred: pred, In: in, Out: out}

	// the loop may run zero times, so a value leaving it competes with the
	// value that entered it
	for _, name := range slices.Sorted(maps.Keys(out)) {
		if !blk.LiveOut.Has(name) {
			continue
		}
		var cross NodeID
		if prior, ok := roots.Get(name); ok {
			cross, err = b.cross(CrossMerge, nil, blk, name, prior, id)
		} else {
			cross, err = b.cross(CrossPlain, nil, blk, name, id)
		}
		if err != nil {
			return err
		}
		roots.Bind(name, cross)
	}
	return nil
}

// loopPredicate builds the while predicate, or for counted loops a
// structural node over whichever of from/to/incr are present.
func (b *builder) loopPredicate(blk *prog.Block, roots *Roots) (NodeID, error) {
	if !blk.Kind.IsCounted() {
		if blk.Predicate == nil {
			return NoNodeID, malformed(blk, nil, "loop without predicate")
		}
		return b.dag(blk.Predicate, blk, roots)
	}

	memo := make(map[hop.ID]NodeID)
	var inputs []NodeID
	for _, h := range []*hop.Node{blk.From, blk.To, blk.Incr} {
		if h == nil {
			continue
		}
		id, err := b.hop(h, blk, memo, roots)
		if err != nil {
			return NoNodeID, err
		}
		inputs = append(inputs, id)
	}
	return b.g.alloc(NodeForPred, nil, blk, inputs)
}

// loopInputs binds every variable the loop reads that is live on entry. The
// iteration variable of a counted loop is bound by the loop itself.
func (b *builder) loopInputs(blk *prog.Block, roots *Roots) (map[string]NodeID, error) {
	in := make(map[string]NodeID)
	for _, name := range blk.Read.Names() {
		if !blk.LiveIn.Has(name) {
			continue
		}
		if blk.Kind.IsCounted() && name == blk.Iter {
			continue
		}
		id, ok := roots.Get(name)
		if !ok {
			e := newBuildError(ErrUnresolvedName, blk)
			e.Var = name
			e.Detail = "non-existing input node for variable"
			return nil, e
		}
		in[name] = id
	}
	return in, nil
}

func (b *builder) loopOutputs(blk *prog.Block, local *Roots) (map[string]NodeID, error) {
	out := make(map[string]NodeID)
	for _, name := range blk.Updated.Names() {
		id, ok := local.Get(name)
		if !ok {
			if b.opts.Strict {
				e := newBuildError(ErrUnboundLoopOutput, blk)
				e.Var = name
				e.Detail = "updated variable has no binding after the loop body"
				return nil, e
			}
			trace.Point(b.tracer, trace.ScopeNode, "skip-unbound", b.span, name)
			continue
		}
		out[name] = id
	}
	return out, nil
}
