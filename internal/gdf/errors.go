package gdf

import (
	"errors"
	"fmt"

	"gdfplan/internal/prog"
)

var (
	ErrUnsupportedBlock  = errors.New("unsupported block")
	ErrUnresolvedName    = errors.New("unresolved variable")
	ErrUnboundLoopOutput = errors.New("unbound loop output")
	ErrMalformedDAG      = errors.New("malformed operator dag")
)

// BuildError describes why a graph could not be built. It matches one of the
// Err* sentinels through errors.Is.
type BuildError struct {
	Kind    error // one of the Err* sentinels
	Var     string
	Block   prog.BlockKind
	BlockID prog.BlockID
	Op      string // offending operator, see hop.Explain
	Detail  string
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("gdf: %s", e.Kind)
	if e.Var != "" {
		msg += fmt.Sprintf(" %q", e.Var)
	}
	msg += fmt.Sprintf(" in %s#%d", e.Block, e.BlockID)
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *BuildError) Unwrap() error { return e.Kind }

func newBuildError(kind error, b *prog.Block) *BuildError {
	e := &BuildError{Kind: kind, BlockID: prog.NoBlockID}
	if b != nil {
		e.Block = b.Kind
		e.BlockID = b.ID
	}
	return e
}
