package diagfmt

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"xsltrace/internal/diag"
)

// Pretty writes diagnostics in a human-readable form, one per line:
//
//	<file>:<line>: <SEV> <CODE>: <message>
//
// followed by indented notes when ShowNotes is set.
func Pretty(w io.Writer, diags []diag.Diagnostic, opts PrettyOpts) {
	sevColor := func(s diag.Severity) *color.Color {
		switch s {
		case diag.SevError:
			return color.New(color.FgRed, color.Bold)
		case diag.SevWarning:
			return color.New(color.FgYellow, color.Bold)
		default:
			return color.New(color.FgCyan)
		}
	}
	codeColor := color.New(color.Faint)
	noteColor := color.New(color.FgBlue)

	for _, d := range diags {
		sev := sevColor(d.Severity)
		code := codeColor
		note := noteColor
		if !opts.Color {
			sev.DisableColor()
			code.DisableColor()
			note.DisableColor()
		} else {
			sev.EnableColor()
			code.EnableColor()
			note.EnableColor()
		}
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			location(d.Location, opts.PathMode),
			sev.Sprint(d.Severity.String()),
			code.Sprint(d.Code.ID()),
			clip(d.Message, opts.Width))
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s %s: %s\n", note.Sprint("note:"), location(n.Location, opts.PathMode), clip(n.Msg, opts.Width))
		}
	}
}

func location(loc diag.Location, mode PathMode) string {
	loc.File = displayPath(loc.File, mode)
	return loc.String()
}

func displayPath(path string, mode PathMode) string {
	if mode == PathModeBasename && path != "" {
		return filepath.Base(path)
	}
	return path
}

func clip(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
