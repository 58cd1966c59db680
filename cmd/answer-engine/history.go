// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/answer-engine/internal/archive"
	"github.com/pdiddy/answer-engine/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List or show archived runs",
	Long: `History reads the run archive written by ask and serve when
archive.enabled is set. Without arguments it lists recent runs, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		grep, _ := cmd.Flags().GetString("grep")
		runs, err := a.List(cmd.Context(), limit, grep)
		if err != nil {
			return err
		}
		report.FormatHistory(runs, cmd.OutOrStdout())
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print one archived run (ID or unique prefix)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return report.FormatJSON(resp, cmd.OutOrStdout())
		}
		report.FormatText(resp, cmd.OutOrStdout())
		return nil
	},
}

// openArchive opens the configured archive whether or not recording is
// enabled, so past runs stay readable.
func openArchive() (*archive.Archive, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Archive.Path == "" {
		return nil, fmt.Errorf("archive.path is not configured")
	}
	return archive.Open(cfg.Archive.Path)
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().String("grep", "", "only list runs whose question contains this text")
	historyShowCmd.Flags().Bool("json", false, "print the full response as JSON")

	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}
