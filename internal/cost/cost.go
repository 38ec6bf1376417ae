// Package cost estimates the cost of programs, blocks and operator lists.
//
// Estimators are oracles for placement and rewrite decisions. They never
// fail on missing size information; unknown sizes fall back to defaults.
package cost

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gdfplan/internal/hop"
	"gdfplan/internal/prog"
)

type CostType uint8

const (
	NumJobs CostType = iota // number of batch jobs
	Static                  // time from operation counts and I/O volume, in seconds
	Dynamic                 // time from recorded performance profiles
)

func (c CostType) String() string {
	switch c {
	case NumJobs:
		return "num-jobs"
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("cost(%d)", c)
	}
}

// ParseCostType accepts the names printed by String.
func ParseCostType(s string) (CostType, error) {
	for _, c := range []CostType{NumJobs, Static, Dynamic} {
		if strings.EqualFold(c.String(), s) {
			return c, nil
		}
	}
	return Static, fmt.Errorf("unknown cost type %q", s)
}

// DefaultIterations is assumed for loops whose trip count is not a constant.
const DefaultIterations = 10

// Dims is the known size of a variable.
type Dims struct {
	Rows, Cols int64
}

// Stats carries sizes known at estimation time, by variable name.
type Stats struct {
	Vars map[string]Dims
}

type Estimator interface {
	Program(p *prog.Program, st Stats) (float64, error)
	// Block estimates b; children of control blocks are included only when
	// recursive is set.
	Block(b *prog.Block, st Stats, recursive bool) (float64, error)
	Hops(hs []*hop.Node, st Stats) (float64, error)
}

// New returns the estimator for t. Dynamic estimation needs profiles this
// build does not record.
func New(t CostType) (Estimator, error) {
	switch t {
	case NumJobs:
		return &walker{leaf: numJobs}, nil
	case Static:
		return &walker{leaf: staticTime}, nil
	default:
		return nil, fmt.Errorf("unknown cost type: %s", t)
	}
}

// walker aggregates leaf estimates over the block tree: sequences add up,
// conditionals take the costlier arm and loops scale their body.
type walker struct {
	leaf func(hs []*hop.Node, st Stats) (float64, error)
}

func (w *walker) Hops(hs []*hop.Node, st Stats) (float64, error) {
	return w.leaf(hs, st)
}

func (w *walker) Program(p *prog.Program, st Stats) (float64, error) {
	if p == nil {
		return 0, nil
	}
	return w.seq(p.Blocks, st)
}

func (w *walker) seq(blocks []*prog.Block, st Stats) (float64, error) {
	var total float64
	for _, b := range blocks {
		c, err := w.Block(b, st, true)
		if err != nil {
			return 0, err
		}
		total += c
	}
	return total, nil
}

func (w *walker) Block(b *prog.Block, st Stats, recursive bool) (float64, error) {
	if b == nil {
		return 0, nil
	}
	if b.Kind == prog.BlockGeneric {
		return w.leaf(b.Hops, st)
	}

	pred, err := w.leaf(b.PredicateHops(), st)
	if err != nil {
		return 0, fmt.Errorf("%s predicate: %w", b.Label(), err)
	}
	if !recursive {
		return pred, nil
	}

	body, err := w.seq(b.Body, st)
	if err != nil {
		return 0, err
	}
	switch b.Kind {
	case prog.BlockIf:
		alt, err := w.seq(b.Else, st)
		if err != nil {
			return 0, err
		}
		return pred + max(body, alt), nil
	case prog.BlockWhile, prog.BlockFor, prog.BlockParFor:
		n := float64(Iterations(b))
		return n * (pred + body), nil
	default:
		return pred + body, nil
	}
}

// Iterations returns the trip count of a counted loop with literal bounds,
// or DefaultIterations. Counts beyond int64 saturate at math.MaxInt64.
func Iterations(b *prog.Block) int64 {
	if b == nil || !b.Kind.IsCounted() {
		return DefaultIterations
	}
	from, ok1 := literal(b.From, 1)
	to, ok2 := literal(b.To, 0)
	incr, ok3 := literal(b.Incr, 1)
	if !ok1 || !ok2 || !ok3 || incr <= 0 || b.To == nil {
		return DefaultIterations
	}
	if to < from {
		return 0
	}
	n := math.Floor((to - from) / incr)
	switch {
	case math.IsNaN(n):
		return DefaultIterations
	case n >= math.MaxInt64:
		return math.MaxInt64
	}
	return int64(n) + 1
}

// literal parses h as a numeric constant; an absent h yields def.
func literal(h *hop.Node, def float64) (float64, bool) {
	if h == nil {
		return def, true
	}
	if h.Op != hop.OpLiteral {
		return 0, false
	}
	v, err := strconv.ParseFloat(h.Name, 64)
	return v, err == nil
}
