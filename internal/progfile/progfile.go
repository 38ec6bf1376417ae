// Package progfile loads program descriptions written in TOML.
//
// A file lists top-level blocks as [[block]] tables. Control blocks nest
// their children in [[block.body]] and [[block.else]]; generic blocks list
// their operators in [[block.hop]]. Predicates and loop bounds are operator
// lists of their own ([[block.predicate]], [[block.from]], [[block.to]],
// [[block.incr]]) whose last operator is the value. Operator ids are local
// to their list; inputs name earlier or later ids of the same list.
//
//	name = "scale"
//	outputs = ["A"]
//
//	[[block]]
//	kind = "generic"
//	  [[block.hop]]
//	  id = "x"
//	  op = "pread"
//	  name = "X"
//	  [[block.hop]]
//	  id = "a"
//	  op = "twrite"
//	  name = "A"
//	  inputs = ["x"]
package progfile

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/unicode/norm"

	"gdfplan/internal/hop"
	"gdfplan/internal/prog"
)

type fileSpec struct {
	Name    string      `toml:"name"`
	Outputs []string    `toml:"outputs"`
	Blocks  []blockSpec `toml:"block"`
}

type blockSpec struct {
	Kind string `toml:"kind"`
	Line int    `toml:"line"`

	Hops      []hopSpec `toml:"hop"`
	Predicate []hopSpec `toml:"predicate"`

	Iter string    `toml:"iter"`
	From []hopSpec `toml:"from"`
	To   []hopSpec `toml:"to"`
	Incr []hopSpec `toml:"incr"`

	Body []blockSpec `toml:"body"`
	Else []blockSpec `toml:"else"`

	Func string `toml:"func"`
}

type hopSpec struct {
	ID     string   `toml:"id"`
	Op     string   `toml:"op"`
	Name   string   `toml:"name"`
	Value  string   `toml:"value"`
	Type   string   `toml:"type"`
	VType  string   `toml:"vtype"`
	Inputs []string `toml:"inputs"`
	Rows   *int64   `toml:"rows"`
	Cols   *int64   `toml:"cols"`
	NNZ    *int64   `toml:"nnz"`
	Line   int      `toml:"line"`
}

// Load reads and decodes the program file at path.
func Load(path string) (*prog.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, data)
}

// Parse decodes a program description. The returned program is numbered and
// analyzed. file is used in errors and as the default program name.
func Parse(file string, data []byte) (*prog.Program, error) {
	var spec fileSpec
	meta, err := toml.Decode(string(data), &spec)
	if err != nil {
		e := &Error{File: file, Err: fmt.Errorf("%w: %w", ErrDecode, err)}
		var perr toml.ParseError
		if errors.As(err, &perr) {
			e.Line = perr.Position.Line
			e.Err = fmt.Errorf("%w: %s", ErrDecode, perr.Message)
		}
		return nil, e
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, &Error{File: file, Err: fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(keys, ", "))}
	}
	if len(spec.Blocks) == 0 {
		return nil, &Error{File: file, Err: fmt.Errorf("%w: no blocks", ErrInvalid)}
	}

	d := &decoder{b: hop.NewBuilder()}
	blocks, err := d.blocks(spec.Blocks, "block")
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.File = file
			return nil, e
		}
		return nil, &Error{File: file, Err: err}
	}

	name := ident(spec.Name)
	if name == "" {
		name = file
	}
	p := &prog.Program{Name: name, Blocks: blocks}
	for _, out := range spec.Outputs {
		p.Outputs.Add(ident(out))
	}
	prog.Renumber(p)
	prog.Analyze(p)
	return p, nil
}

// ident normalizes a user-written name so that canonically equivalent
// spellings bind the same variable.
func ident(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

type decoder struct {
	b *hop.Builder
}

func (d *decoder) blocks(specs []blockSpec, path string) ([]*prog.Block, error) {
	out := make([]*prog.Block, 0, len(specs))
	for i := range specs {
		blk, err := d.block(&specs[i], fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, blk)
	}
	return out, nil
}

func (d *decoder) block(s *blockSpec, path string) (*prog.Block, error) {
	kind, err := prog.ParseBlockKind(strings.TrimSpace(s.Kind))
	if err != nil {
		return nil, invalid(path, "", "%v", err)
	}
	if err := checkShape(s, kind, path); err != nil {
		return nil, err
	}

	blk := &prog.Block{Kind: kind, Line: s.Line}
	switch kind {
	case prog.BlockGeneric:
		nodes, err := d.hops(s.Hops, path+".hop")
		if err != nil {
			return nil, err
		}
		blk.Hops = hop.Roots(nodes)
	case prog.BlockIf, prog.BlockWhile:
		if blk.Predicate, err = d.value(s.Predicate, path+".predicate"); err != nil {
			return nil, err
		}
	case prog.BlockFor, prog.BlockParFor:
		blk.Iter = ident(s.Iter)
		if blk.From, err = d.value(s.From, path+".from"); err != nil {
			return nil, err
		}
		if blk.To, err = d.value(s.To, path+".to"); err != nil {
			return nil, err
		}
		if blk.Incr, err = d.value(s.Incr, path+".incr"); err != nil {
			return nil, err
		}
	case prog.BlockFunction:
		blk.FuncName = ident(s.Func)
	}

	if blk.Body, err = d.blocks(s.Body, path+".body"); err != nil {
		return nil, err
	}
	if kind == prog.BlockIf && s.Else != nil {
		blk.HasElse = true
		if blk.Else, err = d.blocks(s.Else, path+".else"); err != nil {
			return nil, err
		}
	}
	return blk, nil
}

var shapeKeys = []string{"hop", "predicate", "iter", "from", "to", "incr", "body", "else", "func"}

// checkShape rejects fields that do not belong to kind and missing required ones.
func checkShape(s *blockSpec, kind prog.BlockKind, path string) error {
	has := map[string]bool{
		"hop":       len(s.Hops) > 0,
		"predicate": len(s.Predicate) > 0,
		"iter":      s.Iter != "",
		"from":      len(s.From) > 0,
		"to":        len(s.To) > 0,
		"incr":      len(s.Incr) > 0,
		"body":      len(s.Body) > 0,
		"else":      len(s.Else) > 0,
		"func":      s.Func != "",
	}
	var allowed, required []string
	switch kind {
	case prog.BlockGeneric:
		allowed, required = []string{"hop"}, []string{"hop"}
	case prog.BlockIf:
		allowed, required = []string{"predicate", "body", "else"}, []string{"predicate"}
	case prog.BlockWhile:
		allowed, required = []string{"predicate", "body"}, []string{"predicate"}
	case prog.BlockFor, prog.BlockParFor:
		allowed, required = []string{"iter", "from", "to", "incr", "body"}, []string{"iter", "to"}
	case prog.BlockFunction:
		allowed, required = []string{"func", "body"}, []string{"func"}
	}
	for _, key := range required {
		if !has[key] {
			return invalid(path, "", "%s block needs %q", kind, key)
		}
	}
	for _, key := range shapeKeys {
		if has[key] && !slices.Contains(allowed, key) {
			return invalid(path, "", "%q is not allowed in a %s block", key, kind)
		}
	}
	return nil
}
