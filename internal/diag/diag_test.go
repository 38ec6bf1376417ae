package diag_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"gdfplan/internal/diag"
)

func TestCode_String(t *testing.T) {
	if got := diag.GraphUnresolvedName.String(); got != "GDF1001" {
		t.Fatalf("String = %q", got)
	}
	if diag.Code(4242).Title() != diag.UnknownCode.Title() {
		t.Fatalf("unregistered code has its own title")
	}
}

func TestBag_SortAndDedup(t *testing.T) {
	bag := diag.NewBag(10)
	b := diag.Location{File: "b.gdf.toml", Line: 3}
	a := diag.Location{File: "a.gdf.toml", Line: 7}
	bag.Add(diag.New(diag.SevWarning, diag.GraphUnboundLoopOutput, a, "x"))
	bag.Add(diag.NewError(diag.LowerFailed, b, "y"))
	bag.Add(diag.NewError(diag.GraphUnresolvedName, a, "z"))
	bag.Add(diag.NewError(diag.GraphUnresolvedName, a, "z"))

	bag.Dedup()
	bag.Sort()

	var got []string
	for _, d := range bag.Items() {
		got = append(got, d.Primary.File+" "+d.Code.String())
	}
	want := []string{
		"a.gdf.toml GDF1001",
		"a.gdf.toml GDF1004",
		"b.gdf.toml GDF2002",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
	if !bag.HasErrors() || !bag.HasWarnings() {
		t.Fatalf("severity queries wrong")
	}
}

func TestBag_Limit(t *testing.T) {
	bag := diag.NewBag(1)
	if !bag.Add(diag.NewError(diag.LoadRead, diag.Location{}, "first")) {
		t.Fatalf("first add rejected")
	}
	if bag.Add(diag.NewError(diag.LoadRead, diag.Location{}, "second")) {
		t.Fatalf("add past limit accepted")
	}

	other := diag.NewBag(2)
	other.Add(diag.New(diag.SevInfo, diag.CostUnavailable, diag.Location{}, "a"))
	other.Add(diag.New(diag.SevInfo, diag.CostUnavailable, diag.Location{}, "b"))
	bag.Merge(other)
	if bag.Len() != 3 || bag.Cap() < 3 {
		t.Fatalf("merge: len %d cap %d", bag.Len(), bag.Cap())
	}
	if bag.HasWarnings() != true {
		t.Fatalf("error counts as warning")
	}
}

func TestDedupReporter(t *testing.T) {
	bag := diag.NewBag(10)
	r := diag.NewDedupReporter(diag.MultiReporter{diag.BagReporter{Bag: bag}, diag.NopReporter{}})
	d := diag.NewError(diag.GraphMalformedDAG, diag.Location{Block: "generic#1", Op: "(3) b +"}, "cycle")
	r.Report(d)
	r.Report(d)
	r.Report(d.WithNote(diag.Location{}, "ignored: same key"))
	if bag.Len() != 1 {
		t.Fatalf("reported %d times", bag.Len())
	}
	if got := bag.Items()[0].Primary.String(); got != "generic#1: (3) b +" {
		t.Fatalf("location = %q", got)
	}
}
