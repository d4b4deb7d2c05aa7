package prof

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStartWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		CPU: filepath.Join(dir, "cpu.out"),
		Mem: filepath.Join(dir, "mem.out"),
	}
	stop, err := Start(opts)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := stop(); err != nil {
		t.Fatalf("stop() error = %v", err)
	}
	for _, p := range []string{opts.CPU, opts.Mem} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("profile %s missing: %v", p, err)
		}
	}
}

func TestStartNothing(t *testing.T) {
	stop, err := Start(Options{})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := stop(); err != nil {
		t.Fatalf("stop() error = %v", err)
	}
}
