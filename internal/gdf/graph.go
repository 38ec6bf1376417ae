package gdf

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"gdfplan/internal/hop"
	"gdfplan/internal/prog"
)

// Graph is the global data-flow graph of one program. It is immutable once
// Build returns it.
type Graph struct {
	Program *prog.Program
	Nodes   []Node   // arena, indexed by NodeID
	Outputs []NodeID // program sinks in build order
	Vars    *Roots   // bindings at program exit
}

// Node returns the node for id, or nil if id is out of range.
func (g *Graph) Node(id NodeID) *Node {
	if g == nil || id < 0 || int(id) >= len(g.Nodes) {
		return nil
	}
	return &g.Nodes[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.Nodes) }

func (g *Graph) alloc(kind NodeKind, h *hop.Node, b *prog.Block, inputs []NodeID) (NodeID, error) {
	raw, err := safecast.Conv[int32](len(g.Nodes))
	if err != nil {
		return NoNodeID, fmt.Errorf("graph node count overflow: %w", err)
	}
	id := NodeID(raw)
	g.Nodes = append(g.Nodes, Node{
		ID:     id,
		Kind:   kind,
		Hop:    h,
		Block:  b,
		Inputs: inputs,
	})
	return id, nil
}

// Consumers returns every node that lists id among its inputs, in handle
// order. A node consuming id twice is reported once per edge.
func (g *Graph) Consumers(id NodeID) []NodeID {
	var out []NodeID
	for i := range g.Nodes {
		for _, in := range g.Nodes[i].Inputs {
			if in == id {
				out = append(out, g.Nodes[i].ID)
			}
		}
	}
	return out
}

// NodesFor returns all graph nodes wrapping h.
func (g *Graph) NodesFor(h *hop.Node) []NodeID {
	var out []NodeID
	for i := range g.Nodes {
		if g.Nodes[i].Hop == h && g.Nodes[i].Kind == NodeOp {
			out = append(out, g.Nodes[i].ID)
		}
	}
	return out
}

// Loops returns the loop nodes in creation order.
func (g *Graph) Loops() []NodeID {
	var out []NodeID
	for i := range g.Nodes {
		if g.Nodes[i].Kind == NodeLoop {
			out = append(out, g.Nodes[i].ID)
		}
	}
	return out
}

// Stats counts nodes by kind.
type Stats struct {
	Ops        int
	ForPreds   int
	Plain      int
	Merge      int
	Loops      int
	Outputs    int
	TotalNodes int
}

func (g *Graph) Stats() Stats {
	var s Stats
	for i := range g.Nodes {
		n := &g.Nodes[i]
		switch n.Kind {
		case NodeOp:
			s.Ops++
		case NodeForPred:
			s.ForPreds++
		case NodeCrossBlock:
			if n.Cross.Shape == CrossMerge {
				s.Merge++
			} else {
				s.Plain++
			}
		case NodeLoop:
			s.Loops++
		}
	}
	s.Outputs = len(g.Outputs)
	s.TotalNodes = len(g.Nodes)
	return s
}

// Topo returns node handles so that every node follows its inputs. Loop
// output nodes are visited before the loop node that exposes them.
func (g *Graph) Topo() []NodeID {
	order := make([]NodeID, 0, len(g.Nodes))
	state := make([]uint8, len(g.Nodes))
	var visit func(id NodeID)
	visit = func(id NodeID) {
		if !id.IsValid() || state[id] != 0 {
			return
		}
		state[id] = 1
		n := &g.Nodes[id]
		for _, in := range n.Inputs {
			visit(in)
		}
		if n.Kind == NodeLoop {
			names := make([]string, 0, len(n.Loop.Out))
			for name := range n.Loop.Out {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				visit(n.Loop.Out[name])
			}
		}
		state[id] = 2
		order = append(order, id)
	}
	for i := range g.Nodes {
		visit(NodeID(i))
	}
	return order
}
