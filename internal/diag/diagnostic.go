package diag

import (
	"fmt"
	"strings"
)

// Location points into a stylesheet. Line 0 means unknown.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	file := l.File
	if file == "" {
		file = "<stylesheet>"
	}
	if l.Line <= 0 {
		return file
	}
	return fmt.Sprintf("%s:%d", file, l.Line)
}

type Note struct {
	Location Location
	Msg      string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Location Location
	Notes    []Note
}

func New(sev Severity, code Code, loc Location, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Location: loc,
		Message:  msg,
	}
}

func NewError(code Code, loc Location, msg string) Diagnostic {
	return New(SevError, code, loc, msg)
}

func (d Diagnostic) WithNote(loc Location, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Location: loc, Msg: msg})
	return d
}

// Error renders the diagnostic on one line, so a Diagnostic can travel as an error.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s %s %s: %s", strings.ToLower(d.Severity.String()), d.Code.ID(), d.Location, d.Message)
}
