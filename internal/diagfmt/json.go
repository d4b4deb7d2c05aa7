package diagfmt

import (
	"encoding/json"
	"io"

	"xsltrace/internal/diag"
)

// LocationJSON is a stylesheet position.
type LocationJSON struct {
	File string `json:"file"`
	Line int    `json:"line,omitempty"`
}

// NoteJSON is an additional note.
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// DiagnosticJSON is one diagnostic.
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// DiagnosticsOutput is the root of the JSON output.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

func makeLocation(loc diag.Location, mode PathMode) LocationJSON {
	return LocationJSON{File: displayPath(loc.File, mode), Line: loc.Line}
}

// Build converts diagnostics to their JSON form. Count is the number of
// diagnostics before truncation.
func Build(diags []diag.Diagnostic, opts JSONOpts) DiagnosticsOutput {
	out := DiagnosticsOutput{
		Diagnostics: make([]DiagnosticJSON, 0, len(diags)),
		Count:       len(diags),
	}
	for i, d := range diags {
		if opts.Max > 0 && i >= opts.Max {
			break
		}
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Message:  d.Message,
			Location: makeLocation(d.Location, opts.PathMode),
		}
		if opts.IncludeNotes {
			for _, n := range d.Notes {
				dj.Notes = append(dj.Notes, NoteJSON{Message: n.Msg, Location: makeLocation(n.Location, opts.PathMode)})
			}
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	return out
}

// JSON writes diagnostics as an indented JSON document.
func JSON(w io.Writer, diags []diag.Diagnostic, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Build(diags, opts))
}
