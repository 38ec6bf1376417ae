package prog

import "gdfplan/internal/hop"

// Analyze fills Read, Updated, LiveIn and LiveOut of every block of p.
//
// Read and Updated are collected bottom-up from transient reads and writes.
// Liveness is a backward data-flow pass seeded with p.Outputs; loop headers
// are iterated to a fixpoint since the body flows back into the predicate.
func Analyze(p *Program) {
	if p == nil {
		return
	}
	for _, b := range p.Blocks {
		collectVars(b)
	}
	liveInSeq(p.Blocks, p.Outputs)
}

func collectVars(b *Block) {
	if b == nil {
		return
	}
	b.Read, b.Updated = VarSet{}, VarSet{}
	switch b.Kind {
	case BlockGeneric:
		seen := make(map[hop.ID]bool)
		for _, h := range b.Hops {
			collectReads(h, &b.Read, seen)
			if h != nil && h.Op == hop.OpTransientWrite {
				b.Updated.Add(h.Name)
			}
		}
	default:
		seen := make(map[hop.ID]bool)
		for _, h := range b.PredicateHops() {
			collectReads(h, &b.Read, seen)
		}
		for _, c := range b.Body {
			collectVars(c)
			b.Read.AddAll(c.Read)
			b.Updated.AddAll(c.Updated)
		}
		for _, c := range b.Else {
			collectVars(c)
			b.Read.AddAll(c.Read)
			b.Updated.AddAll(c.Updated)
		}
		if b.Kind.IsCounted() && b.Iter != "" {
			b.Updated.Add(b.Iter)
		}
	}
}

func collectReads(h *hop.Node, out *VarSet, seen map[hop.ID]bool) {
	if h == nil || seen[h.ID] {
		return
	}
	seen[h.ID] = true
	if h.Op == hop.OpTransientRead {
		out.Add(h.Name)
	}
	for _, in := range h.Inputs {
		collectReads(in, out, seen)
	}
}

func predicateReads(b *Block) VarSet {
	var out VarSet
	seen := make(map[hop.ID]bool)
	for _, h := range b.PredicateHops() {
		collectReads(h, &out, seen)
	}
	return out
}

// liveInSeq sets LiveOut/LiveIn for blocks executed in order with out live
// after the last one, and returns the set live before the first one.
func liveInSeq(blocks []*Block, out VarSet) VarSet {
	for i := len(blocks) - 1; i >= 0; i-- {
		if blocks[i] == nil {
			continue
		}
		out = liveInBlock(blocks[i], out)
	}
	return out
}

func liveInBlock(b *Block, out VarSet) VarSet {
	b.LiveOut = out.Union(VarSet{})
	switch b.Kind {
	case BlockIf:
		in := predicateReads(b)
		in.AddAll(liveInSeq(b.Body, out))
		if b.HasElse {
			in.AddAll(liveInSeq(b.Else, out))
		} else {
			in.AddAll(out)
		}
		b.LiveIn = in
	case BlockWhile, BlockFor, BlockParFor:
		pred := predicateReads(b)
		header := pred.Union(out)
		for {
			bodyIn := liveInSeq(b.Body, header)
			if b.Kind.IsCounted() && b.Iter != "" {
				bodyIn = bodyIn.Minus(NewVarSet(b.Iter))
			}
			next := pred.Union(out).Union(bodyIn)
			if next.Equal(header) {
				break
			}
			header = next
		}
		b.LiveIn = header
	default:
		b.LiveIn = b.Read.Union(out.Minus(b.Updated))
	}
	return b.LiveIn
}
