package diagfmt

import (
	"bufio"
	"io"
	"path/filepath"

	"github.com/fatih/color"

	"gdfplan/internal/diag"
)

type palette struct {
	err, warn, info, code, loc, note *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow, color.Bold),
		info: color.New(color.FgCyan),
		code: color.New(color.Faint),
		loc:  color.New(color.Bold),
		note: color.New(color.FgBlue),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.code, p.loc, p.note} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty writes one diagnostic per line, in bag order:
//
//	<location>: <severity> <CODE>: <message>
//	  note: <location>: <message>
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) error {
	bw := bufio.NewWriter(w)
	p := newPalette(opts.Color)

	for _, d := range bag.Items() {
		if loc := formatLocation(d.Primary, opts.PathMode); loc != "" {
			p.loc.Fprint(bw, loc)
			bw.WriteString(": ")
		}
		p.severity(d.Severity).Fprint(bw, d.Severity.String())
		bw.WriteByte(' ')
		p.code.Fprint(bw, d.Code.String())
		bw.WriteString(": ")
		bw.WriteString(d.Message)
		bw.WriteByte('\n')

		if opts.ShowTitle {
			bw.WriteString("  = ")
			bw.WriteString(d.Code.Title())
			bw.WriteByte('\n')
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			bw.WriteString("  ")
			p.note.Fprint(bw, "note")
			bw.WriteString(": ")
			if loc := formatLocation(n.Loc, opts.PathMode); loc != "" {
				bw.WriteString(loc)
				bw.WriteString(": ")
			}
			bw.WriteString(n.Msg)
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

func formatLocation(l diag.Location, mode PathMode) string {
	if mode == PathModeBasename && l.File != "" {
		l.File = filepath.Base(l.File)
	}
	return l.String()
}
