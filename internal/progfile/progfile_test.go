package progfile_test

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gdfplan/internal/gdf"
	"gdfplan/internal/hop"
	"gdfplan/internal/prog"
	"gdfplan/internal/progfile"
)

func TestLoad_KMeans(t *testing.T) {
	p, err := progfile.Load(filepath.Join("testdata", "kmeans.gdf.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name != "kmeans" || !p.Outputs.Has("C") {
		t.Fatalf("program = %q outputs %v", p.Name, p.Outputs.Names())
	}

	var kinds []string
	for _, b := range p.Blocks {
		kinds = append(kinds, b.Kind.String())
	}
	if diff := cmp.Diff([]string{"generic", "while", "generic"}, kinds); diff != "" {
		t.Fatalf("kinds (-want +got):\n%s", diff)
	}

	var roots []string
	for _, h := range p.Blocks[0].Hops {
		roots = append(roots, h.Name)
	}
	if diff := cmp.Diff([]string{"X", "C", "go"}, roots); diff != "" {
		t.Fatalf("init roots (-want +got):\n%s", diff)
	}

	loop := p.Blocks[1]
	if loop.Predicate == nil || loop.Predicate.Op != hop.OpTransientRead || loop.Predicate.DataType != hop.DataScalar {
		t.Fatalf("predicate = %+v", loop.Predicate)
	}
	if diff := cmp.Diff([]string{"C", "D", "go"}, loop.Updated.Names()); diff != "" {
		t.Fatalf("loop updated (-want +got):\n%s", diff)
	}
	if !loop.Read.Has("X") || !loop.Read.Has("go") {
		t.Fatalf("loop read = %v", loop.Read.Names())
	}

	// declared before its inputs; still a single root feeding from the matmult
	dist := loop.Body[0]
	if len(dist.Hops) != 1 || dist.Hops[0].Name != "D" {
		t.Fatalf("distance roots = %+v", dist.Hops)
	}
	mm := dist.Hops[0].Inputs[0]
	if mm.Op != hop.OpMatMult || mm.Rows != 100000 || mm.Cols != 5 {
		t.Fatalf("matmult = %s %dx%d", mm.Op, mm.Rows, mm.Cols)
	}

	cond := loop.Body[1]
	if cond.Kind != prog.BlockIf || !cond.HasElse || len(cond.Else) != 1 {
		t.Fatalf("conditional = %+v", cond)
	}

	g, err := gdf.Build(context.Background(), p, gdf.Options{Strict: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := gdf.Validate(g); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if st := g.Stats(); st.Loops != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestParse_Kinds(t *testing.T) {
	src := `
[[block]]
kind = "for"
iter = "i"
  [[block.from]]
  id = "a"
  op = "lit"
  value = "1"
  [[block.to]]
  id = "b"
  op = "lit"
  value = "4"
  [[block.body]]
  kind = "generic"
    [[block.body.hop]]
    id = "p"
    op = "print"
    inputs = ["i"]
    [[block.body.hop]]
    id = "i"
    op = "tread"
    name = "i"
    type = "scalar"
    vtype = "int"

[[block]]
kind = "parfor"
iter = "j"
  [[block.to]]
  id = "n"
  op = "lit"
  value = "8"

[[block]]
kind = "function"
func = "train"
line = 12
`
	p, err := progfile.Parse("kinds.gdf.toml", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Name != "kinds.gdf.toml" {
		t.Fatalf("default name = %q", p.Name)
	}
	loop := p.Blocks[0]
	if loop.Iter != "i" || loop.From.Name != "1" || loop.To.Name != "4" || loop.Incr != nil {
		t.Fatalf("for header = %q %v %v %v", loop.Iter, loop.From, loop.To, loop.Incr)
	}
	pr := loop.Body[0].Hops[0]
	if pr.Op != hop.OpPrint || pr.DataType != hop.DataScalar || pr.Inputs[0].ValueType != hop.ValueInt {
		t.Fatalf("print = %+v", pr)
	}
	if p.Blocks[1].Kind != prog.BlockParFor || p.Blocks[1].From != nil {
		t.Fatalf("parfor = %+v", p.Blocks[1])
	}
	fn := p.Blocks[2]
	if fn.Kind != prog.BlockFunction || fn.FuncName != "train" || fn.Line != 12 {
		t.Fatalf("function = %+v", fn)
	}
	// ids are unique across the program after numbering
	seen := make(map[prog.BlockID]bool)
	_ = prog.Walk(p.Blocks, func(b *prog.Block) error {
		if seen[b.ID] {
			t.Fatalf("duplicate block id %d", b.ID)
		}
		seen[b.ID] = true
		return nil
	})
}

func TestParse_NormalizesNames(t *testing.T) {
	// decomposed on write, precomposed on read
	src := `
[[block]]
kind = "generic"
  [[block.hop]]
  id = "x"
  op = "pread"
  name = "X"
  [[block.hop]]
  id = "w"
  op = "twrite"
  name = "  cafe\u0301 "
  inputs = ["x"]

[[block]]
kind = "generic"
  [[block.hop]]
  id = "r"
  op = "tread"
  name = "caf\u00e9"
  [[block.hop]]
  id = "o"
  op = "pwrite"
  name = "out"
  inputs = ["r"]
`
	p, err := progfile.Parse("nfc.gdf.toml", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.Blocks[0].Updated.Has("caf\u00e9") || !p.Blocks[1].Read.Has("caf\u00e9") {
		t.Fatalf("updated %q read %q", p.Blocks[0].Updated.Names(), p.Blocks[1].Read.Names())
	}
	if _, err := gdf.Build(context.Background(), p, gdf.Options{}); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

func TestParse_Errors(t *testing.T) {
	const head = "[[block]]\nkind = \"generic\"\n"
	tests := []struct {
		name     string
		src      string
		sentinel error
		path     string
		hop      string
		msg      string
	}{
		{
			name:     "syntax",
			src:      head + "[[block.hop]]\nid = \n",
			sentinel: progfile.ErrDecode,
		},
		{
			name:     "unknown_key",
			src:      head + "[[block.hop]]\nid = \"a\"\nop = \"lit\"\nvalue = \"1\"\ncolor = \"red\"\n",
			sentinel: progfile.ErrInvalid,
			msg:      "block.hop.color",
		},
		{
			name:     "no_blocks",
			src:      "name = \"empty\"\n",
			sentinel: progfile.ErrInvalid,
			msg:      "no blocks",
		},
		{
			name:     "unknown_kind",
			src:      "[[block]]\nkind = \"repeat\"\n",
			sentinel: progfile.ErrInvalid,
			path:     "block[0]",
			msg:      "unknown block kind",
		},
		{
			name:     "generic_without_hops",
			src:      head,
			sentinel: progfile.ErrInvalid,
			path:     "block[0]",
			msg:      `needs "hop"`,
		},
		{
			name:     "hop_in_while",
			src:      "[[block]]\nkind = \"while\"\n[[block.predicate]]\nid = \"p\"\nop = \"lit\"\nvalue = \"1\"\n[[block.hop]]\nid = \"a\"\nop = \"lit\"\nvalue = \"1\"\n",
			sentinel: progfile.ErrInvalid,
			path:     "block[0]",
			msg:      `"hop" is not allowed`,
		},
		{
			name:     "nested_path",
			src:      "[[block]]\nkind = \"while\"\n[[block.predicate]]\nid = \"p\"\nop = \"lit\"\nvalue = \"1\"\n[[block.body]]\nkind = \"for\"\niter = \"i\"\n",
			sentinel: progfile.ErrInvalid,
			path:     "block[0].body[0]",
			msg:      `needs "to"`,
		},
		{
			name:     "duplicate_id",
			src:      head + "[[block.hop]]\nid = \"a\"\nop = \"lit\"\nvalue = \"1\"\n[[block.hop]]\nid = \"a\"\nop = \"lit\"\nvalue = \"2\"\n",
			sentinel: progfile.ErrInvalid,
			path:     "block[0].hop",
			hop:      "a",
			msg:      "duplicate id",
		},
		{
			name:     "dangling_input",
			src:      head + "[[block.hop]]\nid = \"w\"\nop = \"twrite\"\nname = \"A\"\ninputs = [\"nope\"]\n",
			sentinel: progfile.ErrInvalid,
			hop:      "w",
			msg:      `input "nope"`,
		},
		{
			name:     "cycle",
			src:      head + "[[block.hop]]\nid = \"a\"\nop = \"u\"\nname = \"exp\"\ninputs = [\"b\"]\n[[block.hop]]\nid = \"b\"\nop = \"u\"\nname = \"log\"\ninputs = [\"a\"]\n",
			sentinel: progfile.ErrInvalid,
			hop:      "a",
			msg:      "depends on itself",
		},
		{
			name:     "unknown_op",
			src:      head + "[[block.hop]]\nid = \"a\"\nop = \"fft\"\n",
			sentinel: progfile.ErrInvalid,
			hop:      "a",
		},
		{
			name:     "arity",
			src:      head + "[[block.hop]]\nid = \"a\"\nop = \"lit\"\nvalue = \"1\"\n[[block.hop]]\nid = \"m\"\nop = \"ba+*\"\ninputs = [\"a\"]\n",
			sentinel: progfile.ErrInvalid,
			hop:      "m",
			msg:      "needs more inputs",
		},
		{
			name:     "literal_without_value",
			src:      head + "[[block.hop]]\nid = \"a\"\nop = \"lit\"\n",
			sentinel: progfile.ErrInvalid,
			hop:      "a",
			msg:      "literal without value",
		},
		{
			name:     "value_on_non_literal",
			src:      head + "[[block.hop]]\nid = \"a\"\nop = \"pread\"\nname = \"X\"\nvalue = \"3\"\n",
			sentinel: progfile.ErrInvalid,
			hop:      "a",
			msg:      "only literals",
		},
		{
			name:     "read_without_name",
			src:      head + "[[block.hop]]\nid = \"a\"\nop = \"pread\"\n",
			sentinel: progfile.ErrInvalid,
			hop:      "a",
			msg:      "variable name",
		},
		{
			name:     "negative_rows",
			src:      head + "[[block.hop]]\nid = \"a\"\nop = \"pread\"\nname = \"X\"\nrows = -1\n",
			sentinel: progfile.ErrInvalid,
			hop:      "a",
			msg:      "negative rows",
		},
		{
			name:     "bad_type",
			src:      head + "[[block.hop]]\nid = \"a\"\nop = \"pread\"\nname = \"X\"\ntype = \"tensor\"\n",
			sentinel: progfile.ErrInvalid,
			hop:      "a",
			msg:      "unknown data type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := progfile.Parse("bad.gdf.toml", []byte(tt.src))
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("err = %v, want %v", err, tt.sentinel)
			}
			var perr *progfile.Error
			if !errors.As(err, &perr) {
				t.Fatalf("err %T is not *progfile.Error", err)
			}
			if perr.File != "bad.gdf.toml" {
				t.Fatalf("file = %q", perr.File)
			}
			if tt.path != "" && perr.Path != tt.path {
				t.Fatalf("path = %q, want %q", perr.Path, tt.path)
			}
			if perr.Hop != tt.hop {
				t.Fatalf("hop = %q, want %q", perr.Hop, tt.hop)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Fatalf("message %q does not mention %q", err, tt.msg)
			}
		})
	}
}

func TestParse_DecodeErrorLine(t *testing.T) {
	src := "[[block]]\nkind = \"generic\"\n\n[[block.hop]]\nid = \n"
	_, err := progfile.Parse("line.gdf.toml", []byte(src))
	var perr *progfile.Error
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v", err)
	}
	if perr.Line != 5 {
		t.Fatalf("line = %d, want 5 (%v)", perr.Line, err)
	}
	if !strings.HasPrefix(err.Error(), "line.gdf.toml:5: ") {
		t.Fatalf("message = %q", err)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := progfile.Load(filepath.Join(t.TempDir(), "absent.gdf.toml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v", err)
	}
}
