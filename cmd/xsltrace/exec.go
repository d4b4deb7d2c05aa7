package main

import (
	"github.com/spf13/cobra"

	"xsltrace/internal/runner"
)

var execCmd = &cobra.Command{
	Use:   "exec -xsl:<file> [-s:<file>] [-o:<file>] [-trace] [-traceout:<file>] [name=value|+name=path]...",
	Short: "Run with processor-style arguments",
	Long: `exec accepts the classic processor command line, so existing scripts can
call xsltrace unchanged:

  xsltrace exec -xsl:style.xsl -s:in.xml -o:out.xml -trace -traceout:trace.log region=EU`,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := runner.ParseArgs(args)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if job.TraceOut == "" {
			job.TraceOut = cfg.Trace.Output
		}
		return execute(cmd, cfg, job, "")
	},
}
