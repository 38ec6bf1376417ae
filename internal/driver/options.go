package driver

import (
	"fmt"
	"strings"

	"gdfplan/internal/cost"
	"gdfplan/internal/hop"
	"gdfplan/internal/lops"
)

// ExecMode selects how operators are placed on backends.
type ExecMode uint8

const (
	ModeAuto ExecMode = iota // control program when the operation fits the memory budget
	ModeCP
	ModeMR
	ModeSpark
)

func (m ExecMode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeCP:
		return "cp"
	case ModeMR:
		return "mr"
	case ModeSpark:
		return "spark"
	default:
		return fmt.Sprintf("mode(%d)", m)
	}
}

func ParseExecMode(s string) (ExecMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "cp":
		return ModeCP, nil
	case "mr":
		return ModeMR, nil
	case "spark":
		return ModeSpark, nil
	default:
		return ModeAuto, fmt.Errorf("invalid exec mode %q (expected: auto|cp|mr|spark)", s)
	}
}

const (
	DefaultMemBudget      = 2 << 30
	DefaultCacheBudget    = 64 << 20
	DefaultMaxDiagnostics = 100
)

type Options struct {
	File string // reported in diagnostics

	Exec ExecMode
	// Distributed is the backend ModeAuto falls back to; MR unless set to Spark.
	Distributed lops.ExecType
	// MemBudget bounds, in bytes, the operations ModeAuto keeps in the
	// control program.
	MemBudget int64
	// CacheBudget bounds distributed-cache inputs of batch operators; zero
	// means DefaultCacheBudget and a negative value disables caching.
	CacheBudget int64

	// Strict rejects loop-updated variables without a binding after the body.
	Strict bool

	Cost     cost.CostType
	SkipCost bool
	Stats    cost.Stats

	MaxDiagnostics int
	Observer       PhaseObserver
}

func (o Options) withDefaults() Options {
	if o.MemBudget <= 0 {
		o.MemBudget = DefaultMemBudget
	}
	switch {
	case o.CacheBudget == 0:
		o.CacheBudget = DefaultCacheBudget
	case o.CacheBudget < 0:
		o.CacheBudget = 0 // caching disabled
	}
	if o.MaxDiagnostics <= 0 {
		o.MaxDiagnostics = DefaultMaxDiagnostics
	}
	if o.Distributed != lops.ExecSpark {
		o.Distributed = lops.ExecMR
	}
	return o
}

// Placement returns the placement function for o.
func (o Options) Placement() lops.Placement {
	o = o.withDefaults()
	switch o.Exec {
	case ModeCP:
		return lops.Fixed(lops.ExecCP)
	case ModeMR:
		return lops.Fixed(lops.ExecMR)
	case ModeSpark:
		return lops.Fixed(lops.ExecSpark)
	}
	budget, dist := o.MemBudget, o.Distributed
	return func(h *hop.Node) lops.ExecType {
		switch h.Op {
		case hop.OpFunctionCall, hop.OpPrint, hop.OpLiteral:
			return lops.ExecCP
		}
		if m := cost.MemEstimate(h); m != cost.Unknown && m <= budget {
			return lops.ExecCP
		}
		return dist
	}
}
