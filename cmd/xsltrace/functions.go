package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xsltrace/internal/extfn"
	"xsltrace/internal/xpath"
)

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List the functions available to stylesheets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		lib := extfn.Library(cfg.Functions.Namespace)
		if core, _ := cmd.Flags().GetBool("core"); core {
			lib.Merge(xpath.Core())
		}
		for _, sig := range lib.Signatures() {
			fmt.Fprintln(cmd.OutOrStdout(), sig)
		}
		return nil
	},
}

func init() {
	functionsCmd.Flags().Bool("core", false, "include the built-in function library")
}
