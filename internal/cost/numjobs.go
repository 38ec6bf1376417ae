package cost

import (
	"gdfplan/internal/hop"
	"gdfplan/internal/lops"
)

// numJobs lowers hs entirely to batch jobs and counts the jobs the plan needs.
func numJobs(hs []*hop.Node, _ Stats) (float64, error) {
	if len(hs) == 0 {
		return 0, nil
	}
	p := lops.NewPlanner(batchPlacement, lops.Options{})
	for _, h := range hs {
		if _, err := p.Lower(h); err != nil {
			return 0, err
		}
	}
	return float64(p.Plan().Jobs), nil
}

// batchPlacement sends everything to MR except the operators that can only
// run in the control program.
func batchPlacement(h *hop.Node) lops.ExecType {
	switch h.Op {
	case hop.OpFunctionCall, hop.OpPrint:
		return lops.ExecCP
	}
	if h.DataType == hop.DataScalar {
		return lops.ExecCP
	}
	return lops.ExecMR
}
