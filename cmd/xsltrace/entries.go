package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"xsltrace/internal/tracefile"
)

var entriesCmd = &cobra.Command{
	Use:   "entries [flags] <trace-file|->",
	Short: "Extract variable entries from trace output",
	Long: `entries reads trace output (a --trace-out file, or stdin with "-"), drops
the TRACE_DEBUG lines and prints the recorded variables.`,
	Args: cobra.ExactArgs(1),
	RunE: runEntries,
}

func init() {
	entriesCmd.Flags().String("format", "text", "output format (text|json|msgpack)")
	entriesCmd.Flags().String("name", "", "only show entries with this name")
	entriesCmd.Flags().Bool("filtered", false, "print the trace text without TRACE_DEBUG lines instead")
}

func runEntries(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	entries, text := tracefile.Parse(string(data))
	out := cmd.OutOrStdout()
	if filtered, _ := cmd.Flags().GetBool("filtered"); filtered {
		_, err := io.WriteString(out, text)
		return err
	}
	if name, _ := cmd.Flags().GetString("name"); name != "" {
		kept := entries[:0]
		for _, e := range entries {
			if e.Name == name {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	format, _ := cmd.Flags().GetString("format")
	if strings.EqualFold(format, "text") {
		printEntries(out, entries, useColor(cmd, os.Stdout))
		return nil
	}
	f, err := tracefile.ParseFormat(format)
	if err != nil {
		return err
	}
	return tracefile.Encode(out, entries, f)
}

// printEntries writes "name = value", indenting continuation lines of
// multi-line values under the value.
func printEntries(w io.Writer, entries []tracefile.Entry, colored bool) {
	nameColor := color.New(color.FgCyan, color.Bold)
	emptyColor := color.New(color.Faint)
	if !colored {
		nameColor.DisableColor()
		emptyColor.DisableColor()
	} else {
		nameColor.EnableColor()
		emptyColor.EnableColor()
	}
	for _, e := range entries {
		if e.Value == "" {
			fmt.Fprintf(w, "%s = %s\n", nameColor.Sprint(e.Name), emptyColor.Sprint("()"))
			continue
		}
		indent := strings.Repeat(" ", len(e.Name)+3)
		value := strings.ReplaceAll(e.Value, "\n", "\n"+indent)
		fmt.Fprintf(w, "%s = %s\n", nameColor.Sprint(e.Name), value)
	}
}
