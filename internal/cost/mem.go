package cost

import (
	"math"

	"gdfplan/internal/hop"
)

const (
	denseCellBytes  = 8
	sparseCellBytes = 12 // value plus column index
	sparseThreshold = 0.4
)

// Unknown is returned by the memory estimates when a size is not known.
const Unknown int64 = -1

// OutputMem estimates the in-memory size of h's result in bytes.
func OutputMem(h *hop.Node) int64 {
	if h == nil {
		return 0
	}
	if h.DataType == hop.DataScalar {
		return denseCellBytes
	}
	if !h.DimsKnown() {
		return Unknown
	}
	cells := h.Cells()
	if h.NNZ >= 0 && cells > 0 && float64(h.NNZ)/float64(cells) < sparseThreshold {
		return satMul(h.NNZ, sparseCellBytes)
	}
	return satMul(cells, denseCellBytes)
}

// MemEstimate is the memory needed to execute h in a single process: its
// output plus every input. Unknown if any operand size is unknown.
func MemEstimate(h *hop.Node) int64 {
	total := OutputMem(h)
	if total == Unknown {
		return Unknown
	}
	for _, in := range h.Inputs {
		m := OutputMem(in)
		if m == Unknown {
			return Unknown
		}
		total = satAdd(total, m)
	}
	return total
}

func satMul(a, b int64) int64 {
	if a != 0 && a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

func satAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
