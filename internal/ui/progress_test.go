package ui

import (
	"errors"
	"math"
	"strings"
	"testing"

	"gdfplan/internal/pipeline"
)

func TestProgressModel_Events(t *testing.T) {
	files := []string{"a.gdf.toml", "b.gdf.toml", "c.gdf.toml"}
	m := NewProgressModel("plan", files, pipeline.StageCost, nil).(*progressModel)

	for _, ev := range []pipeline.Event{
		{File: "a.gdf.toml", Stage: pipeline.StageLoad, Status: pipeline.StatusWorking},
		{File: "a.gdf.toml", Stage: pipeline.StageLower, Status: pipeline.StatusWorking},
		{File: "b.gdf.toml", Stage: pipeline.StageLoad, Status: pipeline.StatusError, Err: errors.New("boom")},
		{File: "b.gdf.toml", Stage: pipeline.StageGraph, Status: pipeline.StatusWorking},
		{File: "c.gdf.toml", Stage: pipeline.StageCost, Status: pipeline.StatusCached},
		{File: "unknown.gdf.toml", Stage: pipeline.StageLoad, Status: pipeline.StatusWorking},
	} {
		m.applyEvent(ev)
	}

	want := []string{"lowering", "error", "cached"}
	for i, item := range m.items {
		if item.status != want[i] {
			t.Fatalf("%s status = %q, want %q", item.path, item.status, want[i])
		}
	}
	if m.finished() != 2 {
		t.Fatalf("finished = %d", m.finished())
	}
	if got, want := m.percent(), (0.6+1+1)/3; math.Abs(got-want) > 1e-9 {
		t.Fatalf("percent = %v, want %v", got, want)
	}

	m.applyEvent(pipeline.Event{File: "a.gdf.toml", Stage: pipeline.StageCost, Status: pipeline.StatusDone})
	if m.items[0].status != "done" || m.finished() != 3 {
		t.Fatalf("a not finished: %+v", m.items[0])
	}

	m.Update(doneMsg{})
	view := m.View()
	if !strings.Contains(view, "done: plan (3/3)") {
		t.Fatalf("view header missing:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"programs/kmeans.gdf.toml", 10, "prog..."},
		{"abcdef", 3, "abc"},
		{"日本語のファイル", 10, "日本..."},
		{"any", 0, "any"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
