package diagfmt

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAsIs prints paths the way they were given.
	PathModeAsIs PathMode = iota
	// PathModeBasename prints only the file name.
	PathModeBasename
)

// ParsePathMode reads "asis" or "basename".
func ParsePathMode(s string) (PathMode, bool) {
	switch s {
	case "", "asis":
		return PathModeAsIs, true
	case "basename":
		return PathModeBasename, true
	}
	return PathModeAsIs, false
}

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	Width     int // maximum display width of a message, 0 means unlimited
	ShowNotes bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	PathMode     PathMode
	Max          int // truncates the output, not the input
	IncludeNotes bool
}
