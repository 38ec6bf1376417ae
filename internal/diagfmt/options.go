package diagfmt

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	PathModeAsIs PathMode = iota
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	ShowNotes bool
	ShowTitle bool // append the code's title on its own line
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	PathMode     PathMode
	Max          int // truncates output, not the Bag
	IncludeNotes bool
}
