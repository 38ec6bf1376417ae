// Package gdf builds the global data-flow graph of a program.
//
// The graph keeps every block's operator DAG with its sharing intact, turns
// each loop into a single node with explicit inputs and outputs, and joins
// the two arms of a conditional with MERGE nodes wherever they bind a
// variable to different producers. Global optimization passes (placement,
// cost-based rewrites) work on this graph rather than on individual blocks.
//
// Build walks the block tree once, top-down and left to right, threading a
// Roots table that maps variable names to the node currently holding their
// value. Conditional arms and loop bodies receive their own copies of the
// table; their results re-enter the enclosing table only through the join
// rules in builder_if.go and builder_loop.go.
package gdf

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"gdfplan/internal/hop"
	"gdfplan/internal/prog"
	"gdfplan/internal/trace"
)

type Options struct {
	// Strict reports a loop-updated variable that has no binding after the
	// body as ErrUnboundLoopOutput. By default such variables are left out
	// of the loop outputs.
	Strict bool
}

type builder struct {
	g      *Graph
	opts   Options
	tracer trace.Tracer
	span   uint64
}

// Build constructs the graph of p. On error no graph is returned: a partial
// graph would break the sharing and merge invariants.
//
// Build keeps all of its state in the call; separate programs may be built
// concurrently.
func Build(ctx context.Context, p *prog.Program, opts Options) (*Graph, error) {
	if p == nil {
		return nil, errors.New("gdf: nil program")
	}
	t := trace.FromContext(ctx)
	span := trace.Begin(t, trace.ScopePass, "gdf-build", trace.ParentSpan(ctx))

	b := &builder{
		g:      &Graph{Program: p},
		opts:   opts,
		tracer: t,
		span:   span.ID(),
	}
	roots := NewRoots()
	if err := b.blocks(p.Blocks, roots); err != nil {
		span.End(err.Error())
		return nil, err
	}
	b.g.Vars = roots

	st := b.g.Stats()
	span.WithExtra("nodes", strconv.Itoa(st.TotalNodes)).
		WithExtra("merges", strconv.Itoa(st.Merge)).
		WithExtra("loops", strconv.Itoa(st.Loops)).
		End("")
	return b.g, nil
}

func (b *builder) blocks(blocks []*prog.Block, roots *Roots) error {
	for _, blk := range blocks {
		if err := b.block(blk, roots); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) block(blk *prog.Block, roots *Roots) error {
	if blk == nil {
		return nil
	}
	trace.Point(b.tracer, trace.ScopeBlock, "block", b.span, blk.Label())

	switch blk.Kind {
	case prog.BlockGeneric:
		return b.generic(blk, roots)
	case prog.BlockIf:
		return b.conditional(blk, roots)
	case prog.BlockWhile, prog.BlockFor, prog.BlockParFor:
		return b.loop(blk, roots)
	case prog.BlockFunction:
		e := newBuildError(ErrUnsupportedBlock, blk)
		e.Detail = "function blocks are not supported"
		if blk.FuncName != "" {
			e.Detail += " (" + blk.FuncName + ")"
		}
		return e
	default:
		e := newBuildError(ErrUnsupportedBlock, blk)
		e.Detail = fmt.Sprintf("unknown block kind %d", blk.Kind)
		return e
	}
}

// generic builds the DAG of a last-level block. Transient writes are wrapped
// in PLAIN cross-block nodes before they are bound, so every use in a later
// block goes through an explicit join point.
func (b *builder) generic(blk *prog.Block, roots *Roots) error {
	memo := make(map[hop.ID]NodeID)
	for _, h := range blk.Hops {
		if h == nil {
			return malformed(blk, nil, "nil dag root")
		}
		id, err := b.hop(h, blk, memo, roots)
		if err != nil {
			return err
		}
		if h.Op != hop.OpTransientWrite {
			if !slices.Contains(b.g.Outputs, id) {
				b.g.Outputs = append(b.g.Outputs, id)
			}
			continue
		}
		cross, err := b.cross(CrossPlain, h, blk, h.Name, id)
		if err != nil {
			return err
		}
		roots.Bind(h.Name, cross)
	}
	return nil
}

// hop builds the node for h after its inputs, reusing memo entries so each
// computation node maps to exactly one graph node within the block.
func (b *builder) hop(h *hop.Node, blk *prog.Block, memo map[hop.ID]NodeID, roots *Roots) (NodeID, error) {
	if id, ok := memo[h.ID]; ok {
		if !id.IsValid() {
			return NoNodeID, malformed(blk, h, "operator depends on itself")
		}
		return id, nil
	}
	memo[h.ID] = NoNodeID // in progress

	inputs := make([]NodeID, 0, len(h.Inputs)+1)
	for i, in := range h.Inputs {
		if in == nil {
			return NoNodeID, malformed(blk, h, fmt.Sprintf("input %d is missing", i))
		}
		id, err := b.hop(in, blk, memo, roots)
		if err != nil {
			return NoNodeID, err
		}
		if !id.IsValid() {
			return NoNodeID, malformed(blk, in, "no graph node built")
		}
		inputs = append(inputs, id)
	}

	// a transient read continues the value bound by an earlier block
	if h.Op == hop.OpTransientRead {
		src, ok := roots.Get(h.Name)
		if !ok {
			e := newBuildError(ErrUnresolvedName, blk)
			e.Var = h.Name
			e.Op = hop.Explain(h)
			return NoNodeID, e
		}
		inputs = append(inputs, src)
	}

	id, err := b.g.alloc(NodeOp, h, blk, inputs)
	if err != nil {
		return NoNodeID, err
	}
	memo[h.ID] = id
	return id, nil
}

// dag builds a standalone expression such as a predicate with a fresh memo.
func (b *builder) dag(h *hop.Node, blk *prog.Block, roots *Roots) (NodeID, error) {
	return b.hop(h, blk, make(map[hop.ID]NodeID), roots)
}

func (b *builder) cross(shape CrossShape, h *hop.Node, blk *prog.Block, name string, inputs ...NodeID) (NodeID, error) {
	id, err := b.g.alloc(NodeCrossBlock, h, blk, inputs)
	if err != nil {
		return NoNodeID, err
	}
	b.g.Nodes[id].Cross = CrossBlock{Shape: shape, Var: name}
	if shape == CrossMerge {
		trace.Point(b.tracer, trace.ScopeNode, "merge", b.span, fmt.Sprintf("%s = %s(%s, %s)", name, id, inputs[0], inputs[1]))
	}
	return id, nil
}

func malformed(blk *prog.Block, h *hop.Node, detail string) *BuildError {
	e := newBuildError(ErrMalformedDAG, blk)
	if h != nil {
		e.Op = hop.Explain(h)
	}
	e.Detail = detail
	return e
}
