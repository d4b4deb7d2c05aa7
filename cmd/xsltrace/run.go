package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"xsltrace/internal/config"
	"xsltrace/internal/runner"
	"xsltrace/internal/tracefile"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <stylesheet> [name=value|+name=path]...",
	Short: "Run a stylesheet, optionally tracing its variables",
	Long: `Run a stylesheet against a source document. With --trace every variable
and parameter is recorded as it is evaluated; the records go to --trace-out
(appended) or stderr, and --entries prints them as JSON when the run ends.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringP("source", "s", "", "source document")
	runCmd.Flags().StringP("output", "o", "", "write the result to this file instead of stdout")
	runCmd.Flags().Bool("trace", false, "trace variable values")
	runCmd.Flags().String("trace-out", "", "append trace records to this file (default: stderr)")
	runCmd.Flags().Bool("trace-debug", false, "also emit TRACE_DEBUG/TRACE_DIAG lines")
	runCmd.Flags().String("initial-template", "", "name of the template to start with")
	runCmd.Flags().String("entries", "", "print the traced entries when done (json|msgpack)")
	runCmd.Flags().Bool("timings", false, "print phase timings to stderr")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	job := runner.Job{Stylesheet: args[0]}
	for _, a := range args[1:] {
		p, err := runner.ParseParam(a)
		if err != nil {
			return err
		}
		job.Params = append(job.Params, p)
	}

	flags := cmd.Flags()
	job.Source, _ = flags.GetString("source")
	job.Output, _ = flags.GetString("output")
	job.InitialTemplate, _ = flags.GetString("initial-template")
	job.Trace, _ = flags.GetBool("trace")
	job.Trace = job.Trace || cfg.Trace.Enabled
	job.TraceOut, _ = flags.GetString("trace-out")
	if job.TraceOut == "" {
		job.TraceOut = cfg.Trace.Output
	}
	if debug, _ := flags.GetBool("trace-debug"); debug {
		cfg.Trace.Debug = true
	}
	entriesFormat, _ := flags.GetString("entries")

	return execute(cmd, cfg, job, entriesFormat)
}

// execute runs one job and writes its result and, if asked, its entries to
// stdout.
func execute(cmd *cobra.Command, cfg config.Config, job runner.Job, entriesFormat string) error {
	var format tracefile.Format
	if entriesFormat != "" {
		f, err := tracefile.ParseFormat(entriesFormat)
		if err != nil {
			return err
		}
		format = f
	}
	r, err := newRunner(cmd, cfg)
	if err != nil {
		return err
	}
	res, err := r.Run(cmd.Context(), job)
	if err != nil {
		return err
	}
	if timings, _ := cmd.Flags().GetBool("timings"); timings {
		fmt.Fprint(cmd.ErrOrStderr(), res.Timings.Summary())
	}

	out := cmd.OutOrStdout()
	if job.Output == "" {
		if _, err := io.WriteString(out, res.Output); err != nil {
			return err
		}
		if !strings.HasSuffix(res.Output, "\n") {
			fmt.Fprintln(out)
		}
	}
	if entriesFormat != "" {
		return tracefile.Encode(out, res.Entries, format)
	}
	return nil
}
