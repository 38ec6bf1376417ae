// Package diag defines the diagnostic model shared by the compile phases.
//
// A Diagnostic is located by program file, block and operator rather than by
// source span: the compiler consumes already-analyzed programs. Formatting
// lives in internal/diagfmt.
package diag

import "strings"

// Location points at the part of a program a diagnostic is about. Any field
// may be empty.
type Location struct {
	File  string
	Block string // block label, see prog.Block.Label
	Op    string // operator identity, see hop.Explain
	Line  int
}

func (l Location) String() string {
	var parts []string
	if l.File != "" {
		parts = append(parts, l.File)
	}
	if l.Block != "" {
		parts = append(parts, l.Block)
	}
	if l.Op != "" {
		parts = append(parts, l.Op)
	}
	return strings.Join(parts, ": ")
}

type Note struct {
	Loc Location
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Location
	Notes    []Note
}

func New(sev Severity, code Code, primary Location, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary Location, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(loc Location, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Loc: loc, Msg: msg})
	return d
}
