package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"xsltrace/internal/runner"
	"xsltrace/internal/tracefile"
)

var batchCmd = &cobra.Command{
	Use:   "batch [flags] <jobs-file>",
	Short: "Run many jobs concurrently",
	Long: `batch reads one job per line, written as exec arguments. Blank lines and
lines starting with # are skipped. Jobs run concurrently and share one
diagnostic filter, so a warning repeated by several jobs is printed once.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().Int("jobs", 0, "max parallel jobs (0 = [run].jobs from the config)")
	batchCmd.Flags().String("entries-dir", "", "write each job's entries to <dir>/<n>.json")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	jobs, err := readJobs(args[0])
	if err != nil {
		return err
	}
	parallel, _ := cmd.Flags().GetInt("jobs")
	entriesDir, _ := cmd.Flags().GetString("entries-dir")

	r, err := newRunner(cmd, cfg)
	if err != nil {
		return err
	}
	results, runErr := r.RunAll(cmd.Context(), jobs, parallel)

	ok := color.New(color.FgGreen)
	fail := color.New(color.FgRed, color.Bold)
	if !useColor(cmd, os.Stdout) {
		ok.DisableColor()
		fail.DisableColor()
	}
	out := cmd.OutOrStdout()
	for i, res := range results {
		if res.Err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", fail.Sprint("FAIL"), res.Job.Name, res.Err)
			continue
		}
		fmt.Fprintf(out, "%s %s (%d entries, %s)\n", ok.Sprint("ok  "), res.Job.Name, len(res.Entries), res.Duration.Round(time.Millisecond))
		if entriesDir != "" {
			if err := writeEntries(entriesDir, i, res.Entries); err != nil {
				return err
			}
		}
	}
	if runErr != nil {
		return fmt.Errorf("%d of %d jobs failed", countFailed(results), len(results))
	}
	return nil
}

func readJobs(path string) ([]runner.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var jobs []runner.Job
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		job, err := runner.ParseArgs(strings.Fields(text))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		job.Name = fmt.Sprintf("%s:%d", path, line)
		jobs = append(jobs, job)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func writeEntries(dir string, n int, entries []tracefile.Entry) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(fmt.Sprintf("%s/%d.json", dir, n+1))
	if err != nil {
		return err
	}
	if err := tracefile.Encode(f, entries, tracefile.FormatJSON); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func countFailed(results []*runner.Result) int {
	n := 0
	for _, res := range results {
		if res.Err != nil {
			n++
		}
	}
	return n
}
