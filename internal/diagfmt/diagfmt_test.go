package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"xsltrace/internal/diag"
)

func sample() []diag.Diagnostic {
	return []diag.Diagnostic{
		diag.New(diag.SevWarning, diag.XslUnusedWithParam, diag.Location{File: "dir/a.xsl", Line: 4}, "parameter extra is not declared").
			WithNote(diag.Location{File: "dir/a.xsl", Line: 9}, "template t declared here"),
		diag.NewError(diag.RunDynamic, diag.Location{}, "division by zero"),
	}
}

func TestPretty(t *testing.T) {
	var buf bytes.Buffer
	Pretty(&buf, sample(), PrettyOpts{PathMode: PathModeBasename, ShowNotes: true})
	want := "a.xsl:4: WARNING XSL1011: parameter extra is not declared\n" +
		"  note: a.xsl:9: template t declared here\n" +
		"<stylesheet>: ERROR RUN4004: division by zero\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("Pretty() mismatch (-want +got):\n%s", diff)
	}
}

func TestPrettyClipsMessages(t *testing.T) {
	var buf bytes.Buffer
	Pretty(&buf, sample()[:1], PrettyOpts{Width: 10})
	if !strings.Contains(buf.String(), "parameter…") {
		t.Fatalf("Pretty() = %q, want a clipped message", buf.String())
	}
	if strings.Contains(buf.String(), "note:") {
		t.Fatalf("Pretty() printed notes without ShowNotes")
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, sample(), JSONOpts{Max: 1, IncludeNotes: true}); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	var got DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Count != 2 || len(got.Diagnostics) != 1 {
		t.Fatalf("JSON() count=%d len=%d, want 2 and 1", got.Count, len(got.Diagnostics))
	}
	d := got.Diagnostics[0]
	if d.Code != "XSL1011" || d.Location.File != "dir/a.xsl" || len(d.Notes) != 1 {
		t.Fatalf("JSON() diagnostic = %+v", d)
	}
}
