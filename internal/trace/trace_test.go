package trace

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
)

func TestFormatRecord(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{"value", Event{Kind: KindVar, Name: "total", Body: "42"}, "TRACE_VAR_START|total\n42\nTRACE_VAR_END\n"},
		{"empty", Event{Kind: KindVar, Name: "x"}, "TRACE_VAR_START|x\nTRACE_VAR_END\n"},
		{"multiline", Event{Kind: KindVar, Name: "doc", Body: "<a>\n<b/>\n</a>"}, "TRACE_VAR_START|doc\n<a>\n<b/>\n</a>\nTRACE_VAR_END\n"},
		{"debug", Event{Kind: KindDebug, Detail: "enter x\nmore"}, "TRACE_DEBUG enter x more\n"},
		{"diag", Event{Kind: KindDiag, Detail: "slot 3"}, "TRACE_DIAG: slot 3\n"},
	}
	for _, tt := range tests {
		if got := string(FormatEvent(&tt.ev, FormatText)); got != tt.want {
			t.Fatalf("%s: FormatEvent() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFormatNDJSON(t *testing.T) {
	ev := Event{Kind: KindVar, Seq: 7, Name: "total", Body: "42"}
	got := string(FormatEvent(&ev, FormatNDJSON))
	want := `{"seq":7,"kind":"var","name":"total","value":"42"}` + "\n"
	if got != want {
		t.Fatalf("FormatEvent(ndjson) = %q, want %q", got, want)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelVars, FormatText)
	d := NewDiagnostics(tr)
	d.Debugf("hidden %d", 1)
	tr.Emit(&Event{Kind: KindVar, Name: "a", Body: "1"})
	if d.Enabled() {
		t.Fatalf("Diagnostics.Enabled() = true at LevelVars")
	}
	if got, want := buf.String(), "TRACE_VAR_START|a\n1\nTRACE_VAR_END\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}

	buf.Reset()
	tr = NewStreamTracer(&buf, LevelDebug, FormatText)
	NewDiagnostics(tr).Diagf("shown")
	if got := buf.String(); got != "TRACE_DIAG: shown\n" {
		t.Fatalf("output = %q, want diag line", got)
	}
}

func TestNilDiagnosticsIsSilent(t *testing.T) {
	var d *Diagnostics
	d.Debugf("x")
	d.DumpOnce("ctx", map[string]any{})
	if d.Enabled() {
		t.Fatalf("nil Diagnostics reports enabled")
	}
}

type brokenWriter struct{ writes int }

func (b *brokenWriter) Write(p []byte) (int, error) {
	b.writes++
	return 0, errors.New("disk full")
}

func TestStreamWriteFailureIsBestEffort(t *testing.T) {
	w := &brokenWriter{}
	tr := NewStreamTracer(w, LevelVars, FormatText)
	tr.Emit(&Event{Kind: KindVar, Name: "a"})
	tr.Emit(&Event{Kind: KindVar, Name: "b"})
	if !tr.Failed() {
		t.Fatalf("Failed() = false after write error")
	}
	if w.writes != 1 {
		t.Fatalf("writes = %d, want 1 (later events dropped)", w.writes)
	}
}

func TestConcurrentEmitKeepsFramesIntact(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatText)
	d := NewDiagnostics(tr)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				tr.Emit(&Event{Kind: KindVar, Name: "v", Body: "line1\nline2"})
				d.Debugf("noise")
			}
		}()
	}
	wg.Wait()
	inside := false
	for line := range strings.Lines(buf.String()) {
		line = strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(line, VarStart):
			inside = true
		case line == VarEnd:
			inside = false
		case strings.HasPrefix(line, DebugMark) && inside:
			t.Fatalf("diagnostic line inside a record frame")
		}
	}
}

func TestRingRecords(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	r.Emit(&Event{Kind: KindVar, Name: "a"})
	r.Emit(&Event{Kind: KindDebug, Detail: "d"})
	r.Emit(&Event{Kind: KindVar, Name: "b"})
	r.Emit(&Event{Kind: KindVar, Name: "c"})
	recs := r.Records()
	if len(recs) != 2 || recs[0].Name != "b" || recs[1].Name != "c" {
		t.Fatalf("Records() = %+v, want b, c after wrap", recs)
	}
}

func TestMultiAndFindRing(t *testing.T) {
	var buf bytes.Buffer
	ring := NewRingTracer(8, LevelVars)
	m := NewMultiTracer(LevelVars, NewStreamTracer(&buf, LevelVars, FormatText), ring)
	m.Emit(&Event{Kind: KindVar, Name: "x"})
	if FindRing(m) != ring {
		t.Fatalf("FindRing() did not find the ring")
	}
	if len(ring.Records()) != 1 || buf.Len() == 0 {
		t.Fatalf("event not fanned out: ring=%d stream=%d", len(ring.Records()), buf.Len())
	}
}

func TestMultiSharesSequence(t *testing.T) {
	var buf bytes.Buffer
	ring := NewRingTracer(8, LevelVars)
	m := NewMultiTracer(LevelVars, NewStreamTracer(&buf, LevelVars, FormatNDJSON), ring)
	m.Emit(&Event{Kind: KindVar, Name: "x"})
	m.Emit(&Event{Kind: KindDebug, Detail: "dropped at LevelVars"})

	recs := ring.Records()
	if len(recs) != 1 {
		t.Fatalf("Records() = %+v, want one record", recs)
	}
	want := fmt.Sprintf(`"seq":%d`, recs[0].Seq)
	if !strings.Contains(buf.String(), want) || strings.Count(buf.String(), "\n") != 1 {
		t.Fatalf("stream = %q, want one line with %s", buf.String(), want)
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr != Nop {
		t.Fatalf("New(off) = %v, %v, want Nop", tr, err)
	}
}

func TestNewUnopenableOutputDegrades(t *testing.T) {
	tr, err := New(Config{Level: LevelVars, Mode: ModeBoth, OutputPath: t.TempDir() + "/missing/dir/trace.log"})
	if err == nil {
		t.Fatalf("New() error = nil, want open failure")
	}
	if FindRing(tr) == nil {
		t.Fatalf("degraded tracer lost its ring")
	}
}

func TestNewAppendsToFile(t *testing.T) {
	path := t.TempDir() + "/trace.log"
	for _, name := range []string{"a", "b"} {
		tr, err := New(Config{Level: LevelVars, OutputPath: path})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		tr.Emit(&Event{Kind: KindVar, Name: name, Body: "1"})
		if err := tr.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}
	data := readFile(t, path)
	if strings.Count(data, VarStart) != 2 {
		t.Fatalf("trace file = %q, want two records", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{"off": LevelOff, "vars": LevelVars, "ON": LevelVars, "debug": LevelDebug}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("ParseLevel(loud) error = nil")
	}
}

func TestFirstSighting(t *testing.T) {
	obj := map[string]any{"k": 1}
	if !FirstSighting(obj) {
		t.Fatalf("FirstSighting() = false on first call")
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	fresh := 0
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if FirstSighting(obj) {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if fresh != 0 {
		t.Fatalf("object reported new %d more times", fresh)
	}
	if !FirstSighting("value") || !FirstSighting("value") {
		t.Fatalf("values without identity must always be new")
	}
}

func TestDumpOnce(t *testing.T) {
	var buf bytes.Buffer
	d := NewDiagnostics(NewStreamTracer(&buf, LevelDebug, FormatText))
	ctx := map[string]any{"b": 2, "a": "x"}
	d.DumpOnce("context", ctx)
	d.DumpOnce("context", ctx)
	if got, want := buf.String(), "TRACE_DIAG: context {a=string{x}, b=int{2}}\n"; got != want {
		t.Fatalf("DumpOnce output = %q, want %q", got, want)
	}
}

func TestDumpOnceCutsCycles(t *testing.T) {
	var buf bytes.Buffer
	d := NewDiagnostics(NewStreamTracer(&buf, LevelDebug, FormatText))
	list := make([]any, 2)
	list[0] = "x"
	list[1] = list
	m := map[string]any{"list": list}
	m["self"] = m
	d.DumpOnce("loop", m)
	want := "TRACE_DIAG: loop {list=[]interface {}{[x <cycle>]}, self=map[string]interface {}{map[list:[x <cycle>] self:<cycle>]}}\n"
	if got := buf.String(); got != want {
		t.Fatalf("DumpOnce output = %q, want %q", got, want)
	}
}

func TestPreviewTruncates(t *testing.T) {
	long := strings.Repeat("界", 200)
	got := Preview(long)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("Preview() = %q, want truncated", got)
	}
	if Preview(nil) != "null" {
		t.Fatalf("Preview(nil) = %q, want null", Preview(nil))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	return string(data)
}
