package cost

import (
	"math"

	"gdfplan/internal/hop"
)

const (
	peakFlops   = 1e9   // operations per second
	ioBandwidth = 100e6 // bytes per second for persistent reads and writes

	// defaultCells stands in for matrices of unknown size.
	defaultCells = 1_000_000
)

// opWeights are per-cell operation counts.
var opWeights = map[hop.Op]float64{
	hop.OpUnary:      1,
	hop.OpBinary:     1,
	hop.OpTernary:    2,
	hop.OpAggUnary:   1,
	hop.OpReorg:      1,
	hop.OpIndexing:   1,
	hop.OpDataGen:    2,
	hop.OpGroupedAgg: 4,
	hop.OpWSigmoid:   8,
}

// staticTime sums compute and I/O time over the distinct nodes reachable from hs.
func staticTime(hs []*hop.Node, st Stats) (float64, error) {
	var total float64
	seen := make(map[*hop.Node]bool)
	var visit func(h *hop.Node)
	visit = func(h *hop.Node) {
		if h == nil || seen[h] {
			return
		}
		seen[h] = true
		for _, in := range h.Inputs {
			visit(in)
		}
		total += nodeTime(h, st)
	}
	for _, h := range hs {
		visit(h)
	}
	return total, nil
}

func nodeTime(h *hop.Node, st Stats) float64 {
	switch h.Op {
	case hop.OpPersistentRead, hop.OpPersistentWrite:
		return cells(h, st) * 8 / ioBandwidth
	case hop.OpMatMult:
		if len(h.Inputs) == 2 {
			l, r := h.Inputs[0], h.Inputs[1]
			if l.DimsKnown() && r.DimsKnown() {
				return 2 * float64(l.Rows) * float64(l.Cols) * float64(r.Cols) / peakFlops
			}
		}
		return 2 * cells(h, st) * 1000 / peakFlops
	case hop.OpSort:
		c := cells(h, st)
		return c * math.Log2(max(c, 2)) / peakFlops
	}
	if w, ok := opWeights[h.Op]; ok {
		return w * cells(h, st) / peakFlops
	}
	return 0
}

// cells returns the output size of h, consulting st for named variables.
func cells(h *hop.Node, st Stats) float64 {
	if h.DataType == hop.DataScalar {
		return 1
	}
	if h.DimsKnown() {
		return float64(h.Cells())
	}
	if h.Name != "" && h.Op.IsData() {
		if d, ok := st.Vars[h.Name]; ok && d.Rows >= 0 && d.Cols >= 0 {
			return float64(d.Rows) * float64(d.Cols)
		}
	}
	return defaultCells
}
