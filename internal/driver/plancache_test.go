package driver_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gdfplan/internal/cost"
	"gdfplan/internal/driver"
)

func TestPlanCache_RoundTrip(t *testing.T) {
	c, err := driver.OpenPlanCache(t.TempDir(), "gdfplan")
	if err != nil {
		t.Fatalf("OpenPlanCache: %v", err)
	}

	opts := driver.Options{Exec: driver.ModeMR}
	res, err := driver.Compile(context.Background(), iterative(), opts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	payload := driver.NewPlanPayload("iter.gdf.toml", res)
	key := driver.DigestOf([]byte("program bytes"), opts)

	var got driver.PlanPayload
	if ok, err := c.Get(key, &got); ok || err != nil {
		t.Fatalf("empty cache hit: %v, %v", ok, err)
	}
	if err := c.Put(key, payload); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ok, err := c.Get(key, &got)
	if !ok || err != nil {
		t.Fatalf("Get: %v, %v", ok, err)
	}
	if diff := cmp.Diff(payload.Entries, got.Entries); diff != "" {
		t.Fatalf("entries (-want +got):\n%s", diff)
	}
	if got.Jobs != res.Plan.Jobs || got.Name != "test" || got.Loops != 1 {
		t.Fatalf("payload = %+v", got)
	}

	if err := c.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if ok, _ := c.Get(key, &got); ok {
		t.Fatalf("hit after DropAll")
	}
	if err := c.Put(key, payload); err != nil {
		t.Fatalf("Put after DropAll: %v", err)
	}
}

func TestDigestOf_IncludesOptions(t *testing.T) {
	src := []byte("[[block]]")
	base := driver.DigestOf(src, driver.Options{})
	if base.IsZero() {
		t.Fatalf("zero digest")
	}
	if driver.DigestOf(src, driver.Options{}) != base {
		t.Fatalf("digest not deterministic")
	}
	for name, opts := range map[string]driver.Options{
		"exec":   {Exec: driver.ModeSpark},
		"strict": {Strict: true},
		"budget": {MemBudget: 1 << 20},
		"stats":  {Stats: cost.Stats{Vars: map[string]cost.Dims{"X": {Rows: 10, Cols: 10}}}},
	} {
		if driver.DigestOf(src, opts) == base {
			t.Fatalf("%s does not change the digest", name)
		}
	}
	withX := func(rows int64) driver.Options {
		return driver.Options{Cost: cost.Static, Stats: cost.Stats{Vars: map[string]cost.Dims{
			"X": {Rows: rows, Cols: 10},
			"Y": {Rows: 10, Cols: 1},
		}}}
	}
	if driver.DigestOf(src, withX(100)) == driver.DigestOf(src, withX(200)) {
		t.Fatalf("variable sizes do not change the digest")
	}
	if driver.DigestOf(src, withX(100)) != driver.DigestOf(src, withX(100)) {
		t.Fatalf("stats digest depends on map order")
	}
	if driver.DigestOf([]byte("[[block]] "), driver.Options{}) == base {
		t.Fatalf("content does not change the digest")
	}
}
