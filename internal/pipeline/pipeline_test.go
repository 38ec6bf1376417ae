package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gdfplan/internal/diag"
	"gdfplan/internal/driver"
	"gdfplan/internal/pipeline"
)

const scaleProgram = `
name = "scale"
outputs = ["A"]

[[block]]
kind = "generic"
  [[block.hop]]
  id = "x"
  op = "pread"
  name = "X"
  rows = 1000
  cols = 1000
  [[block.hop]]
  id = "a"
  op = "twrite"
  name = "A"
  inputs = ["s"]
  [[block.hop]]
  id = "s"
  op = "b"
  name = "*"
  inputs = ["x", "x"]

[[block]]
kind = "generic"
  [[block.hop]]
  id = "r"
  op = "tread"
  name = "A"
  [[block.hop]]
  id = "w"
  op = "pwrite"
  name = "out"
  inputs = ["r"]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func trail(events []pipeline.Event, file string) []string {
	var out []string
	for _, ev := range events {
		if ev.File == file {
			out = append(out, string(ev.Stage)+":"+string(ev.Status))
		}
	}
	return out
}

func TestCompile_Files(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "scale.gdf.toml", scaleProgram)
	other := writeFile(t, dir, "scale2.gdf.toml", scaleProgram)
	bad := writeFile(t, dir, "bad.gdf.toml", "[[block]]\nkind = \"loop\"\n")
	missing := filepath.Join(dir, "missing.gdf.toml")

	sink := &pipeline.RecordingSink{}
	res, err := pipeline.Compile(context.Background(), &pipeline.CompileRequest{
		Files:    []string{good, bad, missing, other},
		Options:  driver.Options{Exec: driver.ModeMR},
		Jobs:     2,
		Progress: sink,
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(res.Files) != 4 || !res.HasErrors() {
		t.Fatalf("results = %+v", res.Files)
	}

	for _, fr := range []pipeline.FileResult{res.Files[0], res.Files[3]} {
		if fr.Err != nil || fr.Payload == nil || fr.Result == nil || fr.Cached {
			t.Fatalf("%s: err %v payload %v", fr.File, fr.Err, fr.Payload)
		}
		if fr.Payload.Name != "scale" || fr.Payload.Jobs == 0 {
			t.Fatalf("%s: payload = %+v", fr.File, fr.Payload)
		}
		want := []string{
			"load:queued", "load:working", "load:done",
			"graph:working", "graph:done",
			"lower:working", "lower:done",
			"cost:working", "cost:done",
		}
		if diff := cmp.Diff(want, trail(sink.Events(), fr.File)); diff != "" {
			t.Fatalf("%s events (-want +got):\n%s", fr.File, diff)
		}
	}

	invalid := res.Files[1].Bag.Items()
	if len(invalid) != 1 || invalid[0].Code != diag.LoadInvalid || invalid[0].Primary.Block != "block[0]" {
		t.Fatalf("invalid file diagnostics = %+v", invalid)
	}
	unread := res.Files[2].Bag.Items()
	if len(unread) != 1 || unread[0].Code != diag.LoadRead || !errors.Is(res.Files[2].Err, os.ErrNotExist) {
		t.Fatalf("missing file diagnostics = %+v (%v)", unread, res.Files[2].Err)
	}
	if diff := cmp.Diff([]string{"load:queued", "load:working", "load:error"}, trail(sink.Events(), missing)); diff != "" {
		t.Fatalf("missing file events (-want +got):\n%s", diff)
	}

	if got := res.Bag(100).Len(); got != 2 {
		t.Fatalf("merged diagnostics = %d", got)
	}
	if !res.Timings.Has(pipeline.StageGraph) || res.Timings.Has(pipeline.StageExport) {
		t.Fatalf("timings missing or unexpected")
	}
}

func TestCompile_CacheAndExport(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "scale.gdf.toml", scaleProgram)
	cache, err := driver.OpenPlanCache(filepath.Join(dir, "cache"), "gdfplan")
	if err != nil {
		t.Fatalf("OpenPlanCache: %v", err)
	}
	req := &pipeline.CompileRequest{
		Files:     []string{file},
		Options:   driver.Options{Exec: driver.ModeSpark},
		Cache:     cache,
		ExportDir: filepath.Join(dir, "plans"),
	}

	first, err := pipeline.Compile(context.Background(), req)
	if err != nil {
		t.Fatalf("first Compile: %v", err)
	}
	fr := first.Files[0]
	if fr.Cached || fr.Err != nil {
		t.Fatalf("first run: cached %v err %v", fr.Cached, fr.Err)
	}
	if want := filepath.Join(dir, "plans", "scale.plan.mp"); fr.Exported != want {
		t.Fatalf("exported to %q, want %q", fr.Exported, want)
	}
	read, err := pipeline.ReadPlan(fr.Exported)
	if err != nil {
		t.Fatalf("ReadPlan: %v", err)
	}
	if diff := cmp.Diff(fr.Payload.Entries, read.Entries); diff != "" {
		t.Fatalf("exported entries (-want +got):\n%s", diff)
	}

	sink := &pipeline.RecordingSink{}
	req.Progress = sink
	second, err := pipeline.Compile(context.Background(), req)
	if err != nil {
		t.Fatalf("second Compile: %v", err)
	}
	fr2 := second.Files[0]
	if !fr2.Cached || fr2.Result != nil {
		t.Fatalf("second run not served from cache: %+v", fr2)
	}
	if diff := cmp.Diff(fr.Payload.Entries, fr2.Payload.Entries); diff != "" {
		t.Fatalf("cached entries (-want +got):\n%s", diff)
	}
	want := []string{
		"load:queued", "load:working", "load:done",
		"graph:cached", "lower:cached", "cost:cached",
		"export:working", "export:done",
	}
	if diff := cmp.Diff(want, trail(sink.Events(), file)); diff != "" {
		t.Fatalf("cached events (-want +got):\n%s", diff)
	}

	// other options miss the cache
	req.Options = driver.Options{Exec: driver.ModeMR}
	third, err := pipeline.Compile(context.Background(), req)
	if err != nil {
		t.Fatalf("third Compile: %v", err)
	}
	if third.Files[0].Cached {
		t.Fatalf("cache hit across exec modes")
	}
}

func TestCompile_GraphFailure(t *testing.T) {
	src := `
[[block]]
kind = "generic"
  [[block.hop]]
  id = "r"
  op = "tread"
  name = "ghost"
  [[block.hop]]
  id = "w"
  op = "pwrite"
  name = "out"
  inputs = ["r"]
`
	file := writeFile(t, t.TempDir(), "ghost.gdf.toml", src)
	sink := &pipeline.RecordingSink{}
	res, err := pipeline.Compile(context.Background(), &pipeline.CompileRequest{Files: []string{file}, Progress: sink})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	fr := res.Files[0]
	if fr.Err == nil || fr.Payload != nil {
		t.Fatalf("unresolved read compiled: %+v", fr)
	}
	if items := fr.Bag.Items(); len(items) != 1 || items[0].Code != diag.GraphUnresolvedName {
		t.Fatalf("diagnostics = %+v", items)
	}
	want := []string{"load:queued", "load:working", "load:done", "graph:working", "graph:error"}
	if diff := cmp.Diff(want, trail(sink.Events(), file)); diff != "" {
		t.Fatalf("events (-want +got):\n%s", diff)
	}
}

func TestCompile_Request(t *testing.T) {
	if _, err := pipeline.Compile(context.Background(), nil); err == nil {
		t.Fatalf("nil request accepted")
	}
	if _, err := pipeline.Compile(context.Background(), &pipeline.CompileRequest{}); err == nil {
		t.Fatalf("empty request accepted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	file := writeFile(t, t.TempDir(), "scale.gdf.toml", scaleProgram)
	if _, err := pipeline.Compile(ctx, &pipeline.CompileRequest{Files: []string{file}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestPlanFileName(t *testing.T) {
	tests := map[string]string{
		"progs/kmeans.gdf.toml": "kmeans.plan.mp",
		"als.toml":              "als.plan.mp",
		"noext":                 "noext.plan.mp",
		"plan.v2.toml":          "plan.v2.plan.mp",
	}
	for in, want := range tests {
		if got := pipeline.PlanFileName(in); got != want {
			t.Fatalf("PlanFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
