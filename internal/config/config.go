// Package config loads xsltrace.toml, the optional project file that holds
// defaults for traced runs.
//
//	[trace]
//	enabled = true
//	debug = false
//	output = "trace.log"
//
//	[params]
//	region = "EU"
//
//	[diagnostics]
//	suppress = ["XSL1010"]
//
// The file is found by walking up from the working directory. Environment
// variables and command-line flags override it, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"xsltrace/internal/diag"
	"xsltrace/internal/probe"
	"xsltrace/internal/trace"
)

// FileName is the name Find looks for.
const FileName = "xsltrace.toml"

// Environment overrides.
const (
	EnvTraceDebug  = "XSLT_TRACE_DEBUG"
	EnvTraceOutput = "XSLTRACE_TRACE_OUTPUT"
)

// Config is the merged configuration of a run.
type Config struct {
	Trace       TraceConfig       `toml:"trace"`
	Run         RunConfig         `toml:"run"`
	Params      map[string]string `toml:"params"`
	Probes      probe.Table       `toml:"probes"`
	Functions   FunctionsConfig   `toml:"functions"`
	Diagnostics DiagConfig        `toml:"diagnostics"`

	// Path is the file the configuration was read from, if any.
	Path string `toml:"-"`
}

type TraceConfig struct {
	Enabled  bool   `toml:"enabled"`
	Debug    bool   `toml:"debug"`
	Output   string `toml:"output"`
	Format   string `toml:"format"`
	RingSize int    `toml:"ring_size"`
}

type RunConfig struct {
	Timeout   string `toml:"timeout"`
	Jobs      int    `toml:"jobs"`
	MaxTraced int    `toml:"max_traced"`
}

type FunctionsConfig struct {
	Namespace string `toml:"namespace"`
}

type DiagConfig struct {
	Suppress []string `toml:"suppress"`
	Max      int      `toml:"max"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Trace: TraceConfig{Format: "text", RingSize: 4096},
		Run:   RunConfig{Jobs: 4},
		Diagnostics: DiagConfig{
			Max: 100,
		},
		Params: map[string]string{},
	}
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	// A [trace] table without an explicit switch turns tracing on.
	if meta.IsDefined("trace") && !meta.IsDefined("trace", "enabled") {
		cfg.Trace.Enabled = true
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the nearest FileName above startDir, or the defaults when
// there is none.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks values that TOML decoding cannot.
func (c *Config) Validate() error {
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		return fmt.Errorf("[trace].format: %w", err)
	}
	if c.Trace.RingSize < 0 {
		return fmt.Errorf("[trace].ring_size must not be negative")
	}
	if c.Run.Jobs < 0 {
		return fmt.Errorf("[run].jobs must not be negative")
	}
	if _, err := c.Timeout(); err != nil {
		return fmt.Errorf("[run].timeout: %w", err)
	}
	if _, err := c.SuppressedCodes(); err != nil {
		return fmt.Errorf("[diagnostics].suppress: %w", err)
	}
	return nil
}

// Timeout parses [run].timeout. Zero means no limit.
func (c *Config) Timeout() (time.Duration, error) {
	s := strings.TrimSpace(c.Run.Timeout)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

// SuppressedCodes converts [diagnostics].suppress to codes.
func (c *Config) SuppressedCodes() ([]diag.Code, error) {
	out := make([]diag.Code, 0, len(c.Diagnostics.Suppress))
	for _, s := range c.Diagnostics.Suppress {
		code, ok := diag.ParseCode(s)
		if !ok {
			return nil, fmt.Errorf("unknown diagnostic code %q", s)
		}
		if !slices.Contains(out, code) {
			out = append(out, code)
		}
	}
	return out, nil
}

// TraceLevel is the trace level the configuration asks for.
func (c *Config) TraceLevel() trace.Level {
	switch {
	case !c.Trace.Enabled:
		return trace.LevelOff
	case c.Trace.Debug:
		return trace.LevelDebug
	default:
		return trace.LevelVars
	}
}

// ApplyEnv applies the environment overrides read through lookup, usually
// os.LookupEnv. XSLT_TRACE_DEBUG=true enables diagnostics; a non-empty
// XSLTRACE_TRACE_OUTPUT sets the trace destination.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvTraceDebug); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Trace.Debug = b
		}
	}
	if v, ok := lookup(EnvTraceOutput); ok && strings.TrimSpace(v) != "" {
		c.Trace.Output = strings.TrimSpace(v)
	}
}
