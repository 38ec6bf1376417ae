package cost_test

import (
	"math"
	"testing"

	"gdfplan/internal/cost"
	"gdfplan/internal/hop"
	"gdfplan/internal/prog"
)

func sized(n *hop.Node, rows, cols int64) *hop.Node {
	n.Rows, n.Cols = rows, cols
	return n
}

func estimator(t *testing.T, c cost.CostType) cost.Estimator {
	t.Helper()
	e, err := cost.New(c)
	if err != nil {
		t.Fatalf("New(%s): %v", c, err)
	}
	return e
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}

// oneJob writes a cross-product multiply of two unsized reads.
func oneJob(b *hop.Builder) *prog.Block {
	mm := b.MatMult(b.PRead("X"), b.PRead("Y"))
	return &prog.Block{Kind: prog.BlockGeneric, Hops: []*hop.Node{b.PWrite("Z", mm)}}
}

// twoJobs sorts an unsized read: one sort job plus the job holding its combine step.
func twoJobs(b *hop.Builder) *prog.Block {
	s := b.New(hop.OpSort, "", hop.DataMatrix, hop.ValueDouble, b.PRead("X"))
	return &prog.Block{Kind: prog.BlockGeneric, Hops: []*hop.Node{b.PWrite("S", s)}}
}

func TestNew_UnknownType(t *testing.T) {
	for _, c := range []cost.CostType{cost.Dynamic, cost.CostType(9)} {
		if _, err := cost.New(c); err == nil {
			t.Fatalf("New(%s) succeeded", c)
		}
	}
	got, err := cost.ParseCostType("NUM-JOBS")
	if err != nil || got != cost.NumJobs {
		t.Fatalf("ParseCostType = %v, %v", got, err)
	}
	if _, err := cost.ParseCostType("wallclock"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNumJobs_Hops(t *testing.T) {
	b := hop.NewBuilder()
	e := estimator(t, cost.NumJobs)

	got, err := e.Hops(oneJob(b).Hops, cost.Stats{})
	if err != nil || got != 1 {
		t.Fatalf("matmult jobs = %v, %v; want 1", got, err)
	}
	got, err = e.Hops(twoJobs(b).Hops, cost.Stats{})
	if err != nil || got != 2 {
		t.Fatalf("sort jobs = %v, %v; want 2", got, err)
	}
	got, err = e.Hops([]*hop.Node{b.Print(b.ReadScalar("i"))}, cost.Stats{})
	if err != nil || got != 0 {
		t.Fatalf("control program jobs = %v, %v; want 0", got, err)
	}
}

func TestNumJobs_ControlFlow(t *testing.T) {
	b := hop.NewBuilder()
	e := estimator(t, cost.NumJobs)

	cond := &prog.Block{
		Kind:      prog.BlockIf,
		Predicate: b.ReadScalar("c"),
		Body:      []*prog.Block{oneJob(b)},
		Else:      []*prog.Block{twoJobs(b)},
		HasElse:   true,
	}
	loop := &prog.Block{
		Kind:      prog.BlockWhile,
		Predicate: b.ReadScalar("c"),
		Body:      []*prog.Block{oneJob(b)},
	}
	p := &prog.Program{Blocks: []*prog.Block{oneJob(b), cond, loop}}

	tests := []struct {
		name      string
		block     *prog.Block
		recursive bool
		want      float64
	}{
		{name: "if_takes_costlier_arm", block: cond, recursive: true, want: 2},
		{name: "if_predicate_only", block: cond, want: 0},
		{name: "while_scales_body", block: loop, recursive: true, want: cost.DefaultIterations},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Block(tt.block, cost.Stats{}, tt.recursive)
			if err != nil {
				t.Fatalf("Block: %v", err)
			}
			if got != tt.want {
				t.Fatalf("estimate = %v, want %v", got, tt.want)
			}
		})
	}

	got, err := e.Program(p, cost.Stats{})
	if err != nil {
		t.Fatalf("Program: %v", err)
	}
	if want := 1 + 2 + float64(cost.DefaultIterations); got != want {
		t.Fatalf("program = %v, want %v", got, want)
	}
}

func TestNumJobs_PropagatesLoweringErrors(t *testing.T) {
	b := hop.NewBuilder()
	bad := b.New(hop.OpWSigmoid, "", hop.DataMatrix, hop.ValueDouble, b.PRead("X"))
	if _, err := estimator(t, cost.NumJobs).Hops([]*hop.Node{bad}, cost.Stats{}); err == nil {
		t.Fatalf("malformed sigmoid estimated")
	}
}

func TestIterations(t *testing.T) {
	b := hop.NewBuilder()
	tests := []struct {
		name  string
		block *prog.Block
		want  int64
	}{
		{name: "from_to", block: &prog.Block{Kind: prog.BlockFor, From: b.Literal("1"), To: b.Literal("5")}, want: 5},
		{name: "stepped", block: &prog.Block{Kind: prog.BlockParFor, From: b.Literal("1"), To: b.Literal("6"), Incr: b.Literal("2")}, want: 3},
		{name: "implicit_from", block: &prog.Block{Kind: prog.BlockFor, To: b.Literal("4")}, want: 4},
		{name: "empty_range", block: &prog.Block{Kind: prog.BlockFor, From: b.Literal("5"), To: b.Literal("1")}, want: 0},
		{name: "dynamic_bound", block: &prog.Block{Kind: prog.BlockFor, From: b.Literal("1"), To: b.ReadScalar("n")}, want: cost.DefaultIterations},
		{name: "no_upper_bound", block: &prog.Block{Kind: prog.BlockFor, From: b.Literal("1")}, want: cost.DefaultIterations},
		{name: "while", block: &prog.Block{Kind: prog.BlockWhile}, want: cost.DefaultIterations},
		{name: "huge_bound", block: &prog.Block{Kind: prog.BlockFor, From: b.Literal("1"), To: b.Literal("1e30")}, want: math.MaxInt64},
		{name: "infinite_bound", block: &prog.Block{Kind: prog.BlockFor, From: b.Literal("1"), To: b.Literal("+Inf")}, want: math.MaxInt64},
		{name: "nan_step", block: &prog.Block{Kind: prog.BlockFor, From: b.Literal("1"), To: b.Literal("5"), Incr: b.Literal("NaN")}, want: cost.DefaultIterations},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cost.Iterations(tt.block); got != tt.want {
				t.Fatalf("Iterations = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStatic_KnownSizes(t *testing.T) {
	b := hop.NewBuilder()
	x := sized(b.PRead("X"), 100, 100)
	y := sized(b.PRead("Y"), 100, 100)
	mm := b.MatMult(x, y)

	got, err := estimator(t, cost.Static).Hops([]*hop.Node{mm}, cost.Stats{})
	if err != nil {
		t.Fatalf("Hops: %v", err)
	}
	// two reads of 80KB at 100MB/s plus 2*100^3 operations at 1GFLOP/s
	want := 2*80_000/100e6 + 2e6/1e9
	if !near(got, want) {
		t.Fatalf("estimate = %v, want %v", got, want)
	}

	// shared operands count once
	twice, _ := estimator(t, cost.Static).Hops([]*hop.Node{mm, mm}, cost.Stats{})
	if !near(twice, got) {
		t.Fatalf("repeated root counted twice: %v vs %v", twice, got)
	}
}

func TestStatic_UsesVariableStats(t *testing.T) {
	b := hop.NewBuilder()
	hs := []*hop.Node{b.Unary("exp", b.PRead("X"))}
	e := estimator(t, cost.Static)

	unknown, err := e.Hops(hs, cost.Stats{})
	if err != nil {
		t.Fatalf("Hops: %v", err)
	}
	small, err := e.Hops(hs, cost.Stats{Vars: map[string]cost.Dims{"X": {Rows: 10, Cols: 10}}})
	if err != nil {
		t.Fatalf("Hops: %v", err)
	}
	if !(small < unknown) {
		t.Fatalf("known small input estimated %v, unknown %v", small, unknown)
	}
}

func TestMemEstimate(t *testing.T) {
	b := hop.NewBuilder()
	dense := sized(b.PRead("X"), 1000, 1000)
	sparse := sized(b.PRead("S"), 1000, 1000)
	sparse.NNZ = 1000

	tests := []struct {
		name string
		node *hop.Node
		want int64
	}{
		{name: "scalar", node: b.ReadScalar("i"), want: 8},
		{name: "dense", node: dense, want: 8_000_000},
		{name: "sparse", node: sparse, want: 12_000},
		{name: "unknown", node: b.PRead("U"), want: cost.Unknown},
		{name: "with_inputs", node: sized(b.Binary("+", dense, sparse), 1000, 1000), want: 2*8_000_000 + 12_000},
		{name: "unknown_input", node: sized(b.Unary("exp", b.PRead("V")), 10, 10), want: cost.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cost.MemEstimate(tt.node); got != tt.want {
				t.Fatalf("MemEstimate = %d, want %d", got, tt.want)
			}
		})
	}

	huge := sized(b.PRead("H"), math.MaxInt32, math.MaxInt32)
	if got := cost.MemEstimate(sized(b.Unary("exp", huge), math.MaxInt32, math.MaxInt32)); got != math.MaxInt64 {
		t.Fatalf("overflowing estimate = %d", got)
	}
	wrapped := sized(b.PRead("W"), 1<<32, 1<<32)
	if got := cost.OutputMem(wrapped); got != math.MaxInt64 {
		t.Fatalf("OutputMem(2^32 x 2^32) = %d", got)
	}
	if got := cost.MemEstimate(wrapped); got != math.MaxInt64 {
		t.Fatalf("MemEstimate(2^32 x 2^32) = %d", got)
	}
}
