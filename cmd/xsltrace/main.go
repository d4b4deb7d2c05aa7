package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"xsltrace/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "xsltrace",
	Short: "Trace variable values of stylesheet transformations",
	Long: `xsltrace runs stylesheets and records the value bound to every variable
and parameter as the transformation evaluates it.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return stopProfiling()
	},
}

// main registers the subcommands and persistent flags, then executes the
// root command. Any command error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(functionsCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().String("config", "", "path to xsltrace.toml (default: search upward from the working directory)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	rootCmd.PersistentFlags().String("min-severity", "info", "lowest diagnostic severity to show (info|warning|error)")
	rootCmd.PersistentFlags().String("path-mode", "asis", "how diagnostic paths are shown (asis|basename)")
	rootCmd.PersistentFlags().String("cpuprofile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("memprofile", "", "write a heap profile to this file on exit")
	rootCmd.PersistentFlags().String("exectrace", "", "write a runtime execution trace to this file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if perr := stopProfiling(); perr != nil {
		fmt.Fprintf(os.Stderr, "profiling: %v\n", perr)
	}
	if err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves the --color flag against the given stream.
func useColor(cmd *cobra.Command, f *os.File) bool {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false
	}
	return mode == "on" || (mode == "auto" && isTerminal(f))
}
