// Package prof wires the runtime profilers to command-line flags.
package prof

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options names the profile files to write. Empty paths are skipped.
type Options struct {
	CPU       string
	Mem       string
	Execution string
}

// Start begins the requested profiles and returns the function that stops
// them and writes the heap profile. Stop is safe to call when nothing was
// requested.
func Start(opts Options) (stop func() error, err error) {
	var stops []func() error
	stopAll := func() error {
		var errs []error
		for i := len(stops) - 1; i >= 0; i-- {
			errs = append(errs, stops[i]())
		}
		return errors.Join(errs...)
	}

	if opts.CPU != "" {
		f, err := os.Create(opts.CPU)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("cpu profile: %w", err)
		}
		stops = append(stops, func() error {
			pprof.StopCPUProfile()
			return f.Close()
		})
	}
	if opts.Execution != "" {
		f, err := os.Create(opts.Execution)
		if err != nil {
			_ = stopAll()
			return nil, err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			_ = stopAll()
			return nil, fmt.Errorf("execution trace: %w", err)
		}
		stops = append(stops, func() error {
			trace.Stop()
			return f.Close()
		})
	}
	if opts.Mem != "" {
		stops = append(stops, func() error { return writeHeap(opts.Mem) })
	}
	return stopAll, nil
}

func writeHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("heap profile: %w", err)
	}
	return f.Close()
}
