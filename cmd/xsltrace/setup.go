package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"xsltrace/internal/config"
	"xsltrace/internal/diag"
	"xsltrace/internal/diagfmt"
	"xsltrace/internal/prof"
	"xsltrace/internal/runner"
)

// stopProfiling ends the profiles started by setup. Later calls do nothing.
var stopProfiling = func() error { return nil }

// setup configures logging and starts the requested profiles.
func setup(cmd *cobra.Command, args []string) error {
	if err := setupLogging(cmd); err != nil {
		return err
	}
	flags := cmd.Root().PersistentFlags()
	var opts prof.Options
	opts.CPU, _ = flags.GetString("cpuprofile")
	opts.Mem, _ = flags.GetString("memprofile")
	opts.Execution, _ = flags.GetString("exectrace")
	stop, err := prof.Start(opts)
	if err != nil {
		return err
	}
	var once sync.Once
	stopProfiling = func() error {
		var err error
		once.Do(func() { err = stop() })
		return err
	}
	return nil
}

// setupLogging installs the default slog logger on stderr at --log-level.
func setupLogging(cmd *cobra.Command) error {
	levelStr, err := cmd.Root().PersistentFlags().GetString("log-level")
	if err != nil {
		return fmt.Errorf("failed to get log-level flag: %w", err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(levelStr))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

// loadConfig reads --config, or discovers xsltrace.toml, then applies the
// environment overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	var cfg config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return config.Config{}, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if cfg.Path != "" {
		slog.Debug("configuration loaded", "path", cfg.Path)
	}
	return cfg, nil
}

// newRunner builds a runner whose diagnostics are printed to stderr as they
// arrive, once each.
func newRunner(cmd *cobra.Command, cfg config.Config) (*runner.Runner, error) {
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	maxDiags, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if maxDiags > 0 {
		cfg.Diagnostics.Max = maxDiags
	}
	sevStr, _ := cmd.Root().PersistentFlags().GetString("min-severity")
	minSev, ok := diag.ParseSeverity(sevStr)
	if !ok {
		return nil, fmt.Errorf("invalid --min-severity %q (must be info, warning or error)", sevStr)
	}
	if quiet {
		minSev = max(minSev, diag.SevError)
	}
	pathStr, _ := cmd.Root().PersistentFlags().GetString("path-mode")
	pathMode, ok := diagfmt.ParsePathMode(pathStr)
	if !ok {
		return nil, fmt.Errorf("invalid --path-mode %q (must be asis or basename)", pathStr)
	}
	printer := &diagPrinter{
		cmd:    cmd,
		minSev: minSev,
		opts: diagfmt.PrettyOpts{
			Color:     useColor(cmd, os.Stderr),
			PathMode:  pathMode,
			ShowNotes: true,
		},
		max: cfg.Diagnostics.Max,
	}
	return runner.New(runner.Options{
		Config:   cfg,
		Stderr:   cmd.ErrOrStderr(),
		Reporter: printer,
	})
}

// diagPrinter prints each diagnostic as it is reported. --quiet raises the
// minimum severity to errors. The runner serializes calls.
type diagPrinter struct {
	cmd     *cobra.Command
	minSev  diag.Severity
	opts    diagfmt.PrettyOpts
	max     int
	printed int
}

func (p *diagPrinter) Report(code diag.Code, sev diag.Severity, loc diag.Location, msg string, notes []diag.Note) {
	if sev < p.minSev {
		return
	}
	if p.max > 0 && p.printed >= p.max {
		return
	}
	p.printed++
	d := diag.New(sev, code, loc, msg)
	d.Notes = notes
	diagfmt.Pretty(p.cmd.ErrOrStderr(), []diag.Diagnostic{d}, p.opts)
}
