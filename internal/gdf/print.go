package gdf

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"
)

const maxNameWidth = 24

// Dump writes a human-readable listing of g, one node per line in handle
// order, followed by the program sinks and the exit bindings.
func Dump(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	if g == nil {
		fmt.Fprintln(bw, "<nil graph>")
		return bw.Flush()
	}

	name := "program"
	if g.Program != nil && g.Program.Name != "" {
		name = g.Program.Name
	}
	st := g.Stats()
	fmt.Fprintf(bw, "graph %s: %d nodes (%d ops, %d plain, %d merge, %d loops)\n",
		name, st.TotalNodes, st.Ops, st.Plain, st.Merge, st.Loops)

	width := 0
	for i := range g.Nodes {
		width = max(width, runewidth.StringWidth(nodeDetail(&g.Nodes[i])))
	}
	width = min(width, maxNameWidth)

	for i := range g.Nodes {
		n := &g.Nodes[i]
		fmt.Fprintf(bw, "  %-5s %-10s %s  <- %s",
			n.ID, n.Kind, column(nodeDetail(n), width), joinIDs(n.Inputs))
		if n.Block != nil {
			fmt.Fprintf(bw, "  [%s#%d]", n.Block.Kind, n.Block.ID)
		}
		if n.Kind == NodeLoop {
			fmt.Fprintf(bw, "  out{%s}", loopOutputs(n))
		}
		fmt.Fprintln(bw)
	}

	fmt.Fprintf(bw, "outputs: %s\n", joinIDs(g.Outputs))
	if g.Vars != nil {
		for _, v := range g.Vars.Names() {
			id, _ := g.Vars.Get(v)
			fmt.Fprintf(bw, "  %s = %s\n", v, id)
		}
	}
	return bw.Flush()
}

func nodeDetail(n *Node) string {
	switch n.Kind {
	case NodeOp:
		if n.Hop.Name != "" {
			return n.Hop.Op.String() + " " + n.Hop.Name
		}
		return n.Hop.Op.String()
	case NodeCrossBlock:
		return n.Cross.Shape.String() + " " + n.Cross.Var
	case NodeLoop:
		if n.Block != nil && n.Block.Iter != "" {
			return n.Block.Kind.String() + " " + n.Block.Iter
		}
		if n.Block != nil {
			return n.Block.Kind.String()
		}
	}
	return ""
}

func column(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "...")
	}
	return runewidth.FillRight(s, width)
}

func joinIDs(ids []NodeID) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}

func loopOutputs(n *Node) string {
	names := make([]string, 0, len(n.Loop.Out))
	for name := range n.Loop.Out {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + n.Loop.Out[name].String()
	}
	return strings.Join(parts, " ")
}
