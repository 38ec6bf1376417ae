package driver

import (
	"errors"
	"fmt"

	"gdfplan/internal/diag"
	"gdfplan/internal/gdf"
	"gdfplan/internal/hop"
	"gdfplan/internal/lops"
	"gdfplan/internal/prog"
)

var graphCodes = []struct {
	kind error
	code diag.Code
}{
	{gdf.ErrUnresolvedName, diag.GraphUnresolvedName},
	{gdf.ErrUnsupportedBlock, diag.GraphUnsupportedBlock},
	{gdf.ErrMalformedDAG, diag.GraphMalformedDAG},
	{gdf.ErrUnboundLoopOutput, diag.GraphUnboundLoopOutput},
}

func graphDiagnostic(file string, p *prog.Program, err error) diag.Diagnostic {
	loc := diag.Location{File: file}
	code := diag.GraphInvalid
	for _, gc := range graphCodes {
		if errors.Is(err, gc.kind) {
			code = gc.code
			break
		}
	}

	var be *gdf.BuildError
	if errors.As(err, &be) {
		loc.Op = be.Op
		if b := findBlock(p, be.BlockID); b != nil {
			loc.Block = b.Label()
			loc.Line = b.Line
		} else if be.BlockID != prog.NoBlockID {
			loc.Block = fmt.Sprintf("%s#%d", be.Block, be.BlockID)
		}
	}
	d := diag.NewError(code, loc, err.Error())
	if code == diag.GraphUnboundLoopOutput {
		d = d.WithNote(diag.Location{}, "compile without --strict to leave such variables out of the loop outputs")
	}
	return d
}

func lowerDiagnostic(file string, n *gdf.Node, err error) diag.Diagnostic {
	loc := diag.Location{File: file, Op: hop.Explain(n.Hop)}
	if n.Block != nil {
		loc.Block = n.Block.Label()
		loc.Line = n.Block.Line
	}
	if n.Hop != nil && n.Hop.Line > 0 {
		loc.Line = n.Hop.Line
	}
	code := diag.LowerFailed
	if errors.Is(err, lops.ErrInvalidExecType) {
		code = diag.LowerInvalidExecType
	}
	return diag.NewError(code, loc, err.Error())
}

func findBlock(p *prog.Program, id prog.BlockID) *prog.Block {
	if p == nil || id == prog.NoBlockID {
		return nil
	}
	var found *prog.Block
	errFound := errors.New("found")
	_ = prog.Walk(p.Blocks, func(b *prog.Block) error {
		if b.ID == id {
			found = b
			return errFound
		}
		return nil
	})
	return found
}
