package driver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gdfplan/internal/cost"
	"gdfplan/internal/diag"
	"gdfplan/internal/driver"
	"gdfplan/internal/gdf"
	"gdfplan/internal/hop"
	"gdfplan/internal/lops"
	"gdfplan/internal/prog"
)

func generic(hs ...*hop.Node) *prog.Block {
	return &prog.Block{Kind: prog.BlockGeneric, Hops: hs}
}

func program(blocks ...*prog.Block) *prog.Program {
	p := &prog.Program{Name: "test", Blocks: blocks}
	prog.Renumber(p)
	prog.Analyze(p)
	return p
}

// iterative reads X once, refines A in a while loop and writes it out.
func iterative() *prog.Program {
	b := hop.NewBuilder()
	init := generic(
		b.Write("c", b.Literal("1")),
		b.Write("A", b.Unary("exp", b.PRead("X"))),
	)
	loop := &prog.Block{
		Kind:      prog.BlockWhile,
		Predicate: b.ReadScalar("c"),
		Body: []*prog.Block{generic(
			b.Write("A", b.Binary("+", b.Read("A"), b.Read("A"))),
			b.Write("c", b.Literal("0")),
		)},
	}
	out := generic(b.PWrite("out", b.Read("A")))
	return program(init, loop, out)
}

func codes(bag *diag.Bag) []string {
	var out []string
	for _, d := range bag.Items() {
		out = append(out, d.Code.String())
	}
	return out
}

func TestCompile_Phases(t *testing.T) {
	var events []string
	opts := driver.Options{
		Exec: driver.ModeCP,
		Observer: func(ev driver.PhaseEvent) {
			if ev.Status == driver.PhaseStart {
				events = append(events, "+"+ev.Name)
			} else {
				events = append(events, "-"+ev.Name)
			}
		},
	}
	res, err := driver.Compile(context.Background(), iterative(), opts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if diff := cmp.Diff([]string{"+graph", "-graph", "+lower", "-lower", "+cost", "-cost"}, events); diff != "" {
		t.Fatalf("phase events (-want +got):\n%s", diff)
	}
	if res.Graph == nil || res.Graph.Stats().Loops != 1 {
		t.Fatalf("graph = %+v", res.Graph)
	}
	if res.Plan.Jobs != 0 || res.Plan.ByExec[lops.ExecCP] != len(res.Plan.Lops) {
		t.Fatalf("control program plan has jobs: %+v", res.Plan)
	}
	// one batch job before the loop, one per assumed iteration inside it
	if !res.HasCost || res.CostType != cost.NumJobs || res.Estimate != 1+cost.DefaultIterations {
		t.Fatalf("estimate = %v (%s, %v)", res.Estimate, res.CostType, res.HasCost)
	}
	if len(res.Timer.Report().Phases) != 3 {
		t.Fatalf("timer phases = %+v", res.Timer.Report().Phases)
	}
	if res.Counters.Get("loops") != 1 || res.Counters.Get("lops") != int64(len(res.Plan.Lops)) {
		t.Fatalf("counters = %s", res.Counters)
	}
	if res.Bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics %v", codes(res.Bag))
	}
}

func TestCompile_LowersEveryOperatorOnce(t *testing.T) {
	res, err := driver.Compile(context.Background(), iterative(), driver.Options{Exec: driver.ModeMR, SkipCost: true})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.HasCost {
		t.Fatalf("cost ran although skipped")
	}
	// the planner memoizes by node, so the plan holds exactly the operators
	// reachable from the graph
	seen := make(map[*hop.Node]bool)
	var visit func(h *hop.Node)
	visit = func(h *hop.Node) {
		if seen[h] {
			return
		}
		seen[h] = true
		for _, in := range h.Inputs {
			visit(in)
		}
	}
	for i := range res.Graph.Nodes {
		if n := &res.Graph.Nodes[i]; n.Kind == gdf.NodeOp {
			visit(n.Hop)
		}
	}
	if got := len(res.Plan.Lops) - res.Plan.Aux; got != len(seen) {
		t.Fatalf("lowered %d operators for %d reachable nodes", got, len(seen))
	}
	if res.Plan.Jobs == 0 {
		t.Fatalf("batch plan without jobs")
	}
}

func TestCompile_GraphErrors(t *testing.T) {
	b := hop.NewBuilder()
	p := program(generic(b.PWrite("out", b.Read("ghost"))))

	res, err := driver.Compile(context.Background(), p, driver.Options{File: "ghost.gdf.toml"})
	if !errors.Is(err, gdf.ErrUnresolvedName) {
		t.Fatalf("err = %v", err)
	}
	if res.Graph != nil || res.Plan != nil {
		t.Fatalf("later phases ran after graph failure")
	}
	if diff := cmp.Diff([]string{"GDF1001"}, codes(res.Bag)); diff != "" {
		t.Fatalf("codes (-want +got):\n%s", diff)
	}
	loc := res.Bag.Items()[0].Primary
	if loc.File != "ghost.gdf.toml" || loc.Block != "generic#0" {
		t.Fatalf("location = %+v", loc)
	}
}

func TestCompile_StrictUnboundLoopOutput(t *testing.T) {
	b := hop.NewBuilder()
	// tmp is marked updated but nothing in the body binds it
	init := generic(b.Write("c", b.Literal("1")))
	loop := &prog.Block{
		Kind:      prog.BlockWhile,
		Predicate: b.ReadScalar("c"),
		Body:      []*prog.Block{generic(b.Write("c", b.Literal("0")))},
	}
	p := program(init, loop)
	loop.Updated.Add("tmp")

	if _, err := driver.Compile(context.Background(), p, driver.Options{}); err != nil {
		t.Fatalf("lenient compile: %v", err)
	}
	res, err := driver.Compile(context.Background(), p, driver.Options{Strict: true})
	if !errors.Is(err, gdf.ErrUnboundLoopOutput) {
		t.Fatalf("strict err = %v", err)
	}
	d := res.Bag.Items()[0]
	if d.Code != diag.GraphUnboundLoopOutput || len(d.Notes) != 1 {
		t.Fatalf("diagnostic = %+v", d)
	}
}

func TestCompile_FunctionCallPlacement(t *testing.T) {
	b := hop.NewBuilder()
	call := b.New(hop.OpFunctionCall, "train", hop.DataMatrix, hop.ValueDouble, b.PRead("X"))
	p := program(generic(b.PWrite("model", call)))

	res, err := driver.Compile(context.Background(), p, driver.Options{Exec: driver.ModeMR})
	if !errors.Is(err, lops.ErrInvalidExecType) {
		t.Fatalf("err = %v", err)
	}
	d := res.Bag.Items()[0]
	if d.Code != diag.LowerInvalidExecType || d.Primary.Op == "" {
		t.Fatalf("diagnostic = %+v", d)
	}

	// automatic placement keeps calls in the control program
	if _, err := driver.Compile(context.Background(), p, driver.Options{}); err != nil {
		t.Fatalf("auto: %v", err)
	}
}

func TestCompile_DynamicCostIsAWarning(t *testing.T) {
	res, err := driver.Compile(context.Background(), iterative(), driver.Options{Cost: cost.Dynamic})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.HasCost || res.Bag.HasErrors() || !res.Bag.HasWarnings() {
		t.Fatalf("cost %v, diagnostics %v", res.HasCost, codes(res.Bag))
	}
}

func TestCompile_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := driver.Compile(ctx, iterative(), driver.Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if _, err := driver.Compile(context.Background(), nil, driver.Options{}); err == nil {
		t.Fatalf("nil program compiled")
	}
}

func TestPlacement_Auto(t *testing.T) {
	b := hop.NewBuilder()
	small := b.PRead("s")
	small.Rows, small.Cols = 10, 10
	unknown := b.PRead("u")
	huge := b.PRead("h")
	huge.Rows, huge.Cols = 1<<32, 1<<32

	tests := []struct {
		name string
		opts driver.Options
		node *hop.Node
		want lops.ExecType
	}{
		{name: "fits", node: small, want: lops.ExecCP},
		{name: "unknown_size", node: unknown, want: lops.ExecMR},
		{name: "over_budget", opts: driver.Options{MemBudget: 100}, node: small, want: lops.ExecMR},
		{name: "overflowing_size", node: huge, want: lops.ExecMR},
		{name: "spark_fallback", opts: driver.Options{Distributed: lops.ExecSpark}, node: unknown, want: lops.ExecSpark},
		{name: "print", node: b.Print(unknown), want: lops.ExecCP},
		{name: "fixed", opts: driver.Options{Exec: driver.ModeSpark}, node: small, want: lops.ExecSpark},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.Placement()(tt.node); got != tt.want {
				t.Fatalf("placement = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseExecMode(t *testing.T) {
	for _, m := range []driver.ExecMode{driver.ModeAuto, driver.ModeCP, driver.ModeMR, driver.ModeSpark} {
		got, err := driver.ParseExecMode(m.String())
		if err != nil || got != m {
			t.Fatalf("ParseExecMode(%q) = %v, %v", m, got, err)
		}
	}
	if _, err := driver.ParseExecMode("tez"); err == nil {
		t.Fatalf("expected error")
	}
}
