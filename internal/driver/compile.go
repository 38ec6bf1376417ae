// Package driver compiles one program: it builds the global data-flow graph,
// lowers every operator onto its backend and estimates the program's cost.
package driver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gdfplan/internal/cost"
	"gdfplan/internal/diag"
	"gdfplan/internal/gdf"
	"gdfplan/internal/lops"
	"gdfplan/internal/observ"
	"gdfplan/internal/prog"
	"gdfplan/internal/trace"
)

// Result is everything one compile produced. Fields of phases that did not
// run are nil or zero.
type Result struct {
	Program  *prog.Program
	Graph    *gdf.Graph
	Plan     *lops.Plan
	Estimate float64
	CostType cost.CostType
	HasCost  bool

	Bag      *diag.Bag
	Timer    *observ.Timer
	Counters *observ.Counters
}

// Compile runs the graph, lower and cost phases over p. Phase failures are
// recorded in Result.Bag and returned as the error; the partial Result is
// returned either way.
func Compile(ctx context.Context, p *prog.Program, opts Options) (*Result, error) {
	if p == nil {
		return nil, errors.New("compile: nil program")
	}
	opts = opts.withDefaults()

	t := trace.FromContext(ctx)
	span := trace.Begin(t, trace.ScopeDriver, "compile", trace.ParentSpan(ctx))
	ctx = trace.WithParent(ctx, span.ID())

	c := &compilation{
		ctx:  ctx,
		opts: opts,
		res: &Result{
			Program:  p,
			Bag:      diag.NewBag(opts.MaxDiagnostics),
			Timer:    observ.NewTimer(),
			Counters: observ.NewCounters(),
		},
	}
	c.report = diag.NewDedupReporter(diag.BagReporter{Bag: c.res.Bag})

	err := c.run()
	if err != nil {
		span.End(err.Error())
	} else {
		span.WithExtra("jobs", strconv.Itoa(c.res.Plan.Jobs)).End(c.res.Counters.String())
	}
	return c.res, err
}

type compilation struct {
	ctx    context.Context
	opts   Options
	res    *Result
	report diag.Reporter
}

func (c *compilation) run() error {
	if err := c.phase("graph", c.buildGraph); err != nil {
		return err
	}
	if err := c.phase("lower", c.lower); err != nil {
		return err
	}
	if c.opts.SkipCost {
		return nil
	}
	return c.phase("cost", c.estimate)
}

// phase times fn, notifies the observer and wraps fn's error with the phase name.
func (c *compilation) phase(name string, fn func() (string, error)) error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	if c.opts.Observer != nil {
		c.opts.Observer(PhaseEvent{Name: name, Status: PhaseStart})
	}
	span := trace.Begin(trace.FromContext(c.ctx), trace.ScopePass, name, trace.ParentSpan(c.ctx))
	start := time.Now()
	idx := c.res.Timer.Begin(name)

	note, err := fn()

	c.res.Timer.End(idx, note)
	if err != nil {
		span.End(err.Error())
	} else {
		span.End(note)
	}
	if c.opts.Observer != nil {
		c.opts.Observer(PhaseEvent{Name: name, Status: PhaseEnd, Elapsed: time.Since(start), Err: err})
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (c *compilation) buildGraph() (string, error) {
	p := c.res.Program
	g, err := gdf.Build(c.ctx, p, gdf.Options{Strict: c.opts.Strict})
	if err != nil {
		c.report.Report(graphDiagnostic(c.opts.File, p, err))
		return "", err
	}
	if err := gdf.Validate(g); err != nil {
		c.report.Report(diag.NewError(diag.GraphInvalid, diag.Location{File: c.opts.File}, err.Error()))
		return "", err
	}
	c.res.Graph = g

	st := g.Stats()
	c.res.Counters.Set("nodes", int64(st.TotalNodes))
	c.res.Counters.Set("merges", int64(st.Merge))
	c.res.Counters.Set("loops", int64(st.Loops))
	return fmt.Sprintf("%d nodes, %d merges, %d loops", st.TotalNodes, st.Merge, st.Loops), nil
}

// lower places and lowers every operator of the graph, inputs first.
func (c *compilation) lower() (string, error) {
	g := c.res.Graph
	planner := lops.NewPlanner(c.opts.Placement(), lops.Options{CacheBudget: c.opts.CacheBudget})
	for _, id := range g.Topo() {
		n := g.Node(id)
		if n.Kind != gdf.NodeOp {
			continue
		}
		if _, err := planner.Lower(n.Hop); err != nil {
			c.report.Report(lowerDiagnostic(c.opts.File, n, err))
			return "", err
		}
	}

	plan := planner.Plan()
	c.res.Plan = plan
	c.res.Counters.Set("lops", int64(len(plan.Lops)))
	c.res.Counters.Set("jobs", int64(plan.Jobs))
	return fmt.Sprintf("%d operators, %d jobs", len(plan.Lops), plan.Jobs), nil
}

// estimate never fails the compile; an unavailable estimator is a warning.
func (c *compilation) estimate() (string, error) {
	est, err := cost.New(c.opts.Cost)
	if err != nil {
		c.report.Report(diag.New(diag.SevWarning, diag.CostUnavailable, diag.Location{File: c.opts.File}, err.Error()))
		return "skipped", nil
	}
	v, err := est.Program(c.res.Program, c.opts.Stats)
	if err != nil {
		c.report.Report(diag.New(diag.SevWarning, diag.CostUnavailable, diag.Location{File: c.opts.File}, err.Error()))
		return "failed", nil
	}
	c.res.Estimate = v
	c.res.CostType = c.opts.Cost
	c.res.HasCost = true
	return fmt.Sprintf("%s %g", c.opts.Cost, v), nil
}
