package diagfmt_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gdfplan/internal/diag"
	"gdfplan/internal/diagfmt"
)

func sampleBag() *diag.Bag {
	bag := diag.NewBag(8)
	loc := diag.Location{File: "/work/progs/loop.gdf.toml", Block: "while#2 (line 4)"}
	bag.Add(diag.NewError(diag.GraphUnresolvedName, loc, `non-existing input node for variable "a"`).
		WithNote(diag.Location{Block: "generic#1"}, "a is first written here"))
	bag.Add(diag.New(diag.SevWarning, diag.GraphUnboundLoopOutput, diag.Location{}, "b skipped"))
	return bag
}

func TestPretty(t *testing.T) {
	var buf bytes.Buffer
	err := diagfmt.Pretty(&buf, sampleBag(), diagfmt.PrettyOpts{PathMode: diagfmt.PathModeBasename, ShowNotes: true, ShowTitle: true})
	if err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	want := `loop.gdf.toml: while#2 (line 4): error GDF1001: non-existing input node for variable "a"
  = Variable read before any binding
  note: generic#1: a is first written here
warning GDF1004: b skipped
  = Loop-updated variable has no binding after the body
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("output (-want +got):\n%s", diff)
	}
}

func TestPretty_HidesNotes(t *testing.T) {
	var buf bytes.Buffer
	if err := diagfmt.Pretty(&buf, sampleBag(), diagfmt.PrettyOpts{}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte("note")) {
		t.Fatalf("notes printed:\n%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("/work/progs/loop.gdf.toml")) {
		t.Fatalf("full path missing:\n%s", buf.String())
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := diagfmt.JSON(&buf, sampleBag(), diagfmt.JSONOpts{Max: 1, IncludeNotes: true}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var got diagfmt.DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Count != 1 || got.Diagnostics[0].Code != "GDF1001" {
		t.Fatalf("output = %+v", got)
	}
	if len(got.Diagnostics[0].Notes) != 1 || got.Diagnostics[0].Location.Block != "while#2 (line 4)" {
		t.Fatalf("location or notes lost: %+v", got.Diagnostics[0])
	}
}
