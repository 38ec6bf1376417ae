// Package pipeline compiles a set of program files: each file is loaded,
// compiled by the driver and optionally served from or stored into the plan
// cache and exported. Files are independent and compile in parallel.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"gdfplan/internal/diag"
	"gdfplan/internal/driver"
	"gdfplan/internal/prog"
	"gdfplan/internal/progfile"
	"gdfplan/internal/trace"
)

// CompileRequest configures the shared compilation pipeline.
type CompileRequest struct {
	Files []string
	// Options apply to every file. File is set per file; Observer, when
	// set, is called from every file's goroutine.
	Options driver.Options
	// Jobs bounds the files compiled at once; zero means GOMAXPROCS.
	Jobs     int
	Progress ProgressSink
	// Cache, when set, is consulted before compiling and filled after.
	Cache *driver.PlanCache
	// ExportDir, when set, receives one plan file per compiled program.
	ExportDir string
}

// FileResult is the outcome for one file. Result is nil when the file did
// not load or its plan came from the cache; Payload is set whenever a plan
// exists.
type FileResult struct {
	File     string
	Result   *driver.Result
	Payload  *driver.PlanPayload
	Cached   bool
	Exported string
	Bag      *diag.Bag
	Err      error
	Timings  Timings
}

// CompileResult captures per-file results in request order and the stage
// timings summed over files.
type CompileResult struct {
	Files   []FileResult
	Timings Timings
}

// HasErrors reports whether any file failed or reported an error diagnostic.
func (r CompileResult) HasErrors() bool {
	for i := range r.Files {
		if r.Files[i].Err != nil || r.Files[i].Bag.HasErrors() {
			return true
		}
	}
	return false
}

// Bag merges the diagnostics of every file in request order.
func (r CompileResult) Bag(maxDiagnostics int) *diag.Bag {
	out := diag.NewBag(maxDiagnostics)
	for i := range r.Files {
		if r.Files[i].Bag != nil {
			out.Merge(r.Files[i].Bag)
		}
	}
	return out
}

// Compile runs load, compile and export for every file. Per-file failures
// are reported in the file's result; the returned error is set only for a
// malformed request or cancellation.
func Compile(ctx context.Context, req *CompileRequest) (CompileResult, error) {
	var result CompileResult
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing compile request")
	}
	if len(req.Files) == 0 {
		return result, fmt.Errorf("no program files")
	}

	t := trace.FromContext(ctx)
	span := trace.Begin(t, trace.ScopeDriver, "pipeline", trace.ParentSpan(ctx))
	ctx = trace.WithParent(ctx, span.ID())

	emitQueued(req.Progress, req.Files)

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	// each goroutine writes only its own slot
	result.Files = make([]FileResult, len(req.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(req.Files)))
	for i, file := range req.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result.Files[i] = compileFile(gctx, req, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.End(err.Error())
		return result, err
	}
	if err := ctx.Err(); err != nil {
		span.End(err.Error())
		return result, err
	}

	for i := range result.Files {
		ft := result.Files[i].Timings
		for _, stage := range Stages() {
			if ft.Has(stage) {
				result.Timings.Add(stage, ft.Duration(stage))
			}
		}
	}
	span.WithExtra("files", fmt.Sprint(len(req.Files))).End("")
	return result, nil
}

func compileFile(ctx context.Context, req *CompileRequest, file string) FileResult {
	maxDiag := req.Options.MaxDiagnostics
	if maxDiag <= 0 {
		maxDiag = driver.DefaultMaxDiagnostics
	}
	fr := FileResult{File: file, Bag: diag.NewBag(maxDiag)}
	sink := req.Progress

	emitFile(sink, file, StageLoad, StatusWorking, nil, 0)
	loadStart := time.Now()
	data, err := os.ReadFile(file)
	var p *prog.Program
	if err == nil {
		p, err = progfile.Parse(file, data)
	}
	fr.Timings.Set(StageLoad, time.Since(loadStart))
	if err != nil {
		fr.Err = err
		fr.Bag.Add(loadDiagnostic(file, err))
		emitFile(sink, file, StageLoad, StatusError, err, fr.Timings.Duration(StageLoad))
		return fr
	}
	emitFile(sink, file, StageLoad, StatusDone, nil, fr.Timings.Duration(StageLoad))

	opts := req.Options
	opts.File = file
	key := driver.DigestOf(data, opts)
	if req.Cache != nil {
		var payload driver.PlanPayload
		ok, err := req.Cache.Get(key, &payload)
		if err != nil {
			fr.Bag.Add(diag.New(diag.SevWarning, diag.PlanCacheFailed, diag.Location{File: file}, err.Error()))
		}
		if ok {
			fr.Payload = &payload
			fr.Cached = true
			for _, stage := range []Stage{StageGraph, StageLower, StageCost} {
				emitFile(sink, file, stage, StatusCached, nil, 0)
			}
			fr.export(req, sink)
			return fr
		}
	}

	opts.Observer = phaseObserver(sink, file, &fr.Timings, req.Options.Observer)
	res, err := driver.Compile(ctx, p, opts)
	fr.Result = res
	if res != nil && res.Bag != nil {
		fr.Bag.Merge(res.Bag)
	}
	if err != nil {
		fr.Err = err
		return fr
	}

	fr.Payload = driver.NewPlanPayload(file, res)
	if req.Cache != nil {
		if err := req.Cache.Put(key, fr.Payload); err != nil {
			fr.Bag.Add(diag.New(diag.SevWarning, diag.PlanCacheFailed, diag.Location{File: file}, err.Error()))
		}
	}
	fr.export(req, sink)
	return fr
}

func (fr *FileResult) export(req *CompileRequest, sink ProgressSink) {
	if req.ExportDir == "" || fr.Payload == nil {
		return
	}
	emitFile(sink, fr.File, StageExport, StatusWorking, nil, 0)
	start := time.Now()
	path, err := ExportPlan(req.ExportDir, fr.Payload)
	fr.Timings.Set(StageExport, time.Since(start))
	if err != nil {
		fr.Bag.Add(diag.NewError(diag.PlanExportFailed, diag.Location{File: fr.File}, err.Error()))
		emitFile(sink, fr.File, StageExport, StatusError, err, fr.Timings.Duration(StageExport))
		return
	}
	fr.Exported = path
	emitFile(sink, fr.File, StageExport, StatusDone, nil, fr.Timings.Duration(StageExport))
}

var phaseStages = map[string]Stage{
	"graph": StageGraph,
	"lower": StageLower,
	"cost":  StageCost,
}

// phaseObserver turns driver phase events into progress events for file.
// The observer runs on the file's goroutine, so timings need no locking.
func phaseObserver(sink ProgressSink, file string, timings *Timings, next driver.PhaseObserver) driver.PhaseObserver {
	return func(ev driver.PhaseEvent) {
		if next != nil {
			next(ev)
		}
		stage, ok := phaseStages[ev.Name]
		if !ok {
			return
		}
		switch ev.Status {
		case driver.PhaseStart:
			emitFile(sink, file, stage, StatusWorking, nil, 0)
		case driver.PhaseEnd:
			timings.Set(stage, ev.Elapsed)
			status := StatusDone
			if ev.Err != nil {
				status = StatusError
			}
			emitFile(sink, file, stage, status, ev.Err, ev.Elapsed)
		}
	}
}

func loadDiagnostic(file string, err error) diag.Diagnostic {
	loc := diag.Location{File: file}
	var perr *progfile.Error
	if errors.As(err, &perr) {
		loc.Block = perr.Path
		loc.Line = perr.Line
		if perr.Hop != "" {
			loc.Op = fmt.Sprintf("hop %q", perr.Hop)
		}
		msg := perr.Err.Error()
		if errors.Is(err, progfile.ErrDecode) {
			return diag.NewError(diag.LoadDecode, loc, msg)
		}
		return diag.NewError(diag.LoadInvalid, loc, msg)
	}
	return diag.NewError(diag.LoadRead, loc, err.Error())
}

func emitQueued(sink ProgressSink, files []string) {
	if sink == nil {
		return
	}
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: StageLoad, Status: StatusQueued})
	}
}

func emitFile(sink ProgressSink, file string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}
