// Package prog describes a compiled script as a tree of program blocks.
//
// A Program is an ordered sequence of blocks. Last-level (generic) blocks
// carry the roots of their operator DAG; control blocks carry predicates and
// child block sequences. Every block exposes the variables it reads and
// updates and the variables live on entry and exit, as computed by Analyze.
package prog

import (
	"fmt"

	"gdfplan/internal/hop"
)

type BlockID int32

const NoBlockID BlockID = -1

// BlockKind is the closed set of block shapes.
type BlockKind uint8

const (
	BlockGeneric BlockKind = iota
	BlockIf
	BlockWhile
	BlockFor
	BlockParFor
	BlockFunction

	blockKindCount
)

// BlockKinds returns every block kind, used to check dispatchers cover all of them.
func BlockKinds() []BlockKind {
	out := make([]BlockKind, 0, blockKindCount)
	for k := BlockKind(0); k < blockKindCount; k++ {
		out = append(out, k)
	}
	return out
}

func (k BlockKind) String() string {
	switch k {
	case BlockGeneric:
		return "generic"
	case BlockIf:
		return "if"
	case BlockWhile:
		return "while"
	case BlockFor:
		return "for"
	case BlockParFor:
		return "parfor"
	case BlockFunction:
		return "function"
	default:
		return fmt.Sprintf("block(%d)", k)
	}
}

// ParseBlockKind resolves a kind name as printed by String.
func ParseBlockKind(s string) (BlockKind, error) {
	for _, k := range BlockKinds() {
		if k.String() == s {
			return k, nil
		}
	}
	return BlockGeneric, fmt.Errorf("unknown block kind %q", s)
}

// IsLoop reports whether k iterates its body.
func (k BlockKind) IsLoop() bool {
	return k == BlockWhile || k == BlockFor || k == BlockParFor
}

// IsCounted reports whether k is a for or parfor loop.
func (k BlockKind) IsCounted() bool {
	return k == BlockFor || k == BlockParFor
}

type Block struct {
	ID   BlockID
	Kind BlockKind

	// generic
	Hops []*hop.Node // DAG roots in statement order

	// if, while
	Predicate *hop.Node

	// for, parfor; any of From/To/Incr may be nil
	Iter string
	From *hop.Node
	To   *hop.Node
	Incr *hop.Node

	// if (then branch), while, for, parfor, function
	Body []*Block

	// if
	Else    []*Block
	HasElse bool

	// function
	FuncName string

	Read    VarSet
	Updated VarSet
	LiveIn  VarSet
	LiveOut VarSet

	Line int
}

// Label is a short description used in diagnostics: "while#3 (line 12)".
func (b *Block) Label() string {
	if b == nil {
		return "<nil block>"
	}
	s := fmt.Sprintf("%s#%d", b.Kind, b.ID)
	if b.Kind == BlockFunction && b.FuncName != "" {
		s += " " + b.FuncName
	}
	if b.Line > 0 {
		s += fmt.Sprintf(" (line %d)", b.Line)
	}
	return s
}

// PredicateHops returns the predicate DAG roots of b, skipping absent ones.
func (b *Block) PredicateHops() []*hop.Node {
	var out []*hop.Node
	for _, h := range []*hop.Node{b.Predicate, b.From, b.To, b.Incr} {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

type Program struct {
	Name    string
	Blocks  []*Block
	Outputs VarSet // live at program exit
}

// Walk calls fn for every block in pre-order. It stops at the first error.
func Walk(blocks []*Block, fn func(b *Block) error) error {
	for _, b := range blocks {
		if b == nil {
			continue
		}
		if err := fn(b); err != nil {
			return err
		}
		if err := Walk(b.Body, fn); err != nil {
			return err
		}
		if err := Walk(b.Else, fn); err != nil {
			return err
		}
	}
	return nil
}

// Renumber assigns block IDs in pre-order starting at 0.
func Renumber(p *Program) {
	var next BlockID
	_ = Walk(p.Blocks, func(b *Block) error {
		b.ID = next
		next++
		return nil
	})
}
