package gdf

import (
	"fmt"

	"gdfplan/internal/hop"
	"gdfplan/internal/prog"
)

// NodeID is a handle into Graph.Nodes. Two nodes are the same node iff their
// handles are equal.
type NodeID int32

const NoNodeID NodeID = -1

func (id NodeID) IsValid() bool { return id >= 0 }

func (id NodeID) String() string {
	if !id.IsValid() {
		return "n?"
	}
	return fmt.Sprintf("n%d", int32(id))
}

type NodeKind uint8

const (
	// NodeOp wraps one computation node of a block DAG.
	NodeOp NodeKind = iota
	// NodeForPred is the structural predicate of a counted loop over its
	// from/to/increment expressions.
	NodeForPred
	// NodeCrossBlock marks an inter-block dependency for one variable.
	NodeCrossBlock
	// NodeLoop stands for a whole loop through its input/output interface.
	NodeLoop
)

func (k NodeKind) String() string {
	switch k {
	case NodeOp:
		return "op"
	case NodeForPred:
		return "forpred"
	case NodeCrossBlock:
		return "crossblock"
	case NodeLoop:
		return "loop"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

type CrossShape uint8

const (
	CrossPlain CrossShape = iota
	CrossMerge
)

func (s CrossShape) String() string {
	if s == CrossMerge {
		return "MERGE"
	}
	return "PLAIN"
}

// CrossBlock is the payload of a NodeCrossBlock node. A PLAIN node has one
// input, a MERGE node exactly two distinct inputs.
type CrossBlock struct {
	Shape CrossShape
	Var   string
}

// Loop is the payload of a NodeLoop node.
type Loop struct {
	Pred NodeID
	In   map[string]NodeID // bound at loop entry
	Out  map[string]NodeID // bound at the end of one body pass
}

type Node struct {
	ID    NodeID
	Kind  NodeKind
	Hop   *hop.Node   // nil for structural nodes
	Block *prog.Block // owning block

	// Inputs in operand order. For loops: Pred followed by Loop.In in name order.
	Inputs []NodeID

	Cross CrossBlock
	Loop  Loop
}

// IsMerge reports whether n is a MERGE cross-block node.
func (n *Node) IsMerge() bool {
	return n != nil && n.Kind == NodeCrossBlock && n.Cross.Shape == CrossMerge
}

// Label renders a short description: "n4 op ba+*", "n7 MERGE x".
func (n *Node) Label() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case NodeOp:
		s := fmt.Sprintf("%s %s", n.ID, n.Hop.Op)
		if n.Hop.Name != "" {
			s += " " + n.Hop.Name
		}
		return s
	case NodeCrossBlock:
		return fmt.Sprintf("%s %s %s", n.ID, n.Cross.Shape, n.Cross.Var)
	case NodeLoop:
		return fmt.Sprintf("%s loop %s", n.ID, n.Block.Label())
	default:
		return fmt.Sprintf("%s %s", n.ID, n.Kind)
	}
}
