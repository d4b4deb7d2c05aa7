package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"xsltrace/internal/diag"
	"xsltrace/internal/trace"
)

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	want := writeFile(t, root, "")

	got, ok, err := Find(nested)
	if err != nil || !ok {
		t.Fatalf("Find() = %q, %v, %v", got, ok, err)
	}
	if got != want {
		t.Fatalf("Find() = %q, want %q", got, want)
	}
}

func TestDiscoverWithoutFile(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if cfg.Path != "" || cfg.TraceLevel() != trace.LevelOff {
		t.Fatalf("Discover() = %+v, want defaults", cfg)
	}
}

func TestLoad(t *testing.T) {
	path := writeFile(t, t.TempDir(), `
[trace]
debug = true
output = "out/trace.log"

[run]
timeout = "2s"
jobs = 8

[params]
region = "EU"

[probes]
slot_fields = ["slotNumber"]

[functions]
namespace = "urn:custom"

[diagnostics]
suppress = ["XSL1010", "1010", "RUN4002"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TraceLevel() != trace.LevelDebug {
		t.Fatalf("TraceLevel() = %v, want debug", cfg.TraceLevel())
	}
	if cfg.Trace.RingSize != 4096 || cfg.Trace.Format != "text" {
		t.Fatalf("defaults lost: %+v", cfg.Trace)
	}
	if d, _ := cfg.Timeout(); d != 2*time.Second {
		t.Fatalf("Timeout() = %v, want 2s", d)
	}
	if diff := cmp.Diff(map[string]string{"region": "EU"}, cfg.Params); diff != "" {
		t.Fatalf("Params mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"slotNumber"}, cfg.Probes.SlotFields); diff != "" {
		t.Fatalf("Probes.SlotFields mismatch (-want +got):\n%s", diff)
	}
	codes, err := cfg.SuppressedCodes()
	if err != nil {
		t.Fatalf("SuppressedCodes() error = %v", err)
	}
	if diff := cmp.Diff([]diag.Code{diag.XslShadowedVariable, diag.RunMessage}, codes); diff != "" {
		t.Fatalf("SuppressedCodes() mismatch (-want +got):\n%s", diff)
	}
	if cfg.Functions.Namespace != "urn:custom" || cfg.Run.Jobs != 8 {
		t.Fatalf("Load() = %+v", cfg)
	}
}

func TestLoadTraceSwitch(t *testing.T) {
	cfg, err := Load(writeFile(t, t.TempDir(), "[trace]\nenabled = false\ndebug = true\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TraceLevel() != trace.LevelOff {
		t.Fatalf("TraceLevel() = %v, want off", cfg.TraceLevel())
	}
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"syntax":       "[trace\n",
		"unknown key":  "[trace]\ncolour = true\n",
		"format":       "[trace]\nformat = \"xml\"\n",
		"timeout":      "[run]\ntimeout = \"soon\"\n",
		"code":         "[diagnostics]\nsuppress = [\"NOPE1\"]\n",
		"negative job": "[run]\njobs = -1\n",
	}
	for name, content := range tests {
		if _, err := Load(writeFile(t, t.TempDir(), content)); err == nil {
			t.Fatalf("Load(%s) error = nil, want an error", name)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvTraceDebug:  "true",
		EnvTraceOutput: " /tmp/t.log ",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if !cfg.Trace.Debug || cfg.Trace.Output != "/tmp/t.log" {
		t.Fatalf("ApplyEnv() = %+v", cfg.Trace)
	}

	cfg = Default()
	cfg.ApplyEnv(func(k string) (string, bool) {
		if k == EnvTraceDebug {
			return "maybe", true
		}
		return "", false
	})
	if cfg.Trace.Debug {
		t.Fatalf("ApplyEnv() accepted an invalid boolean")
	}
}
