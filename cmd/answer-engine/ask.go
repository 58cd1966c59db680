// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/report"
	"github.com/pdiddy/answer-engine/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the best-suited knowledge sources",
	Long: `Ask classifies the question, queries the recommended sources in parallel,
and prints a synthesized answer followed by the per-source status.

With --file, every question in a YAML file is answered in turn. The file holds
either a list of strings or a "questions" list with optional per-question
providers, max_providers, timeout, and max_tokens, plus shared "defaults".`,
	Args: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" && len(args) == 0 {
			return fmt.Errorf("requires a question or --file")
		}
		if file != "" && len(args) > 0 {
			return fmt.Errorf("give either a question or --file, not both")
		}
		return nil
	},
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("file", "", "YAML file of questions to answer in turn")
	askCmd.Flags().StringSlice("providers", nil, "sources to query instead of the classifier's choice (comma-separated)")
	askCmd.Flags().Int("max-providers", 0, "maximum number of sources to query (0 = configured default)")
	askCmd.Flags().Duration("timeout", 0, "per-source timeout (0 = configured default)")
	askCmd.Flags().Int("max-tokens", 0, "maximum synthesis length in tokens (0 = configured default)")
	askCmd.Flags().String("output", "", "also write the full response to this file (.json or .yaml) or directory")
	askCmd.Flags().Bool("json", false, "print the full response as JSON")
	askCmd.Flags().Bool("yaml", false, "print the full response as YAML")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flagQ, err := questionFromFlags(cmd)
	if err != nil {
		return err
	}

	var questions []types.Options
	var queries []string
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		qf, err := report.ReadQuestionsFile(file)
		if err != nil {
			return err
		}
		// Command-line flags take precedence over the file's defaults.
		defaults := overlay(flagQ, qf.Defaults)
		for _, q := range qf.Questions {
			opts, err := q.Options(defaults)
			if err != nil {
				return fmt.Errorf("question %q: %w", q.Query, err)
			}
			questions = append(questions, opts)
			queries = append(queries, q.Query)
		}
	} else {
		opts, err := flagQ.Options(report.Question{})
		if err != nil {
			return err
		}
		questions = append(questions, opts)
		queries = append(queries, strings.Join(args, " "))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	eng, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close(context.Background())

	out := cmd.OutOrStdout()
	for i, query := range queries {
		if len(queries) > 1 {
			fmt.Fprintf(out, "\n[%d/%d] %s\n", i+1, len(queries), query)
		}
		resp, err := eng.pipeline.Run(ctx, query, questions[i])
		if err != nil {
			if len(queries) == 1 {
				return err
			}
			logger.Error("question failed", zap.String("query", query), zap.Error(err))
			continue
		}
		eng.record(ctx, resp)

		if err := printResponse(cmd, resp); err != nil {
			return err
		}
		if err := writeOutput(cmd, resp); err != nil {
			return err
		}
	}
	return nil
}

// questionFromFlags collects the option flags into a Question so they merge
// with a questions file the same way per-question settings do.
func questionFromFlags(cmd *cobra.Command) (report.Question, error) {
	var q report.Question
	var err error
	if q.Providers, err = cmd.Flags().GetStringSlice("providers"); err != nil {
		return q, err
	}
	if q.MaxProviders, err = cmd.Flags().GetInt("max-providers"); err != nil {
		return q, err
	}
	if q.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return q, err
	}
	if q.MaxTokens, err = cmd.Flags().GetInt("max-tokens"); err != nil {
		return q, err
	}
	return q, nil
}

// overlay returns base with every field set in top replacing it.
func overlay(top, base report.Question) report.Question {
	if len(top.Providers) > 0 {
		base.Providers = top.Providers
	}
	if top.MaxProviders != 0 {
		base.MaxProviders = top.MaxProviders
	}
	if top.Timeout != 0 {
		base.Timeout = top.Timeout
	}
	if top.MaxTokens != 0 {
		base.MaxTokens = top.MaxTokens
	}
	return base
}

func printResponse(cmd *cobra.Command, resp *types.PipelineResponse) error {
	out := cmd.OutOrStdout()
	asJSON, _ := cmd.Flags().GetBool("json")
	asYAML, _ := cmd.Flags().GetBool("yaml")
	switch {
	case asJSON:
		return report.FormatJSON(resp, out)
	case asYAML:
		return report.FormatYAML(resp, out)
	default:
		report.FormatText(resp, out)
		return nil
	}
}

// writeOutput saves resp when --output is set. A directory (existing, or a
// path ending in a separator) receives a timestamped JSON file.
func writeOutput(cmd *cobra.Command, resp *types.PipelineResponse) error {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		return nil
	}
	if info, err := os.Stat(path); (err == nil && info.IsDir()) || strings.HasSuffix(path, string(os.PathSeparator)) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		started := resp.StartedAt
		if started.IsZero() {
			started = time.Now()
		}
		path = filepath.Join(path, report.DefaultFileName(started))
	}
	if err := report.WriteFile(path, resp); err != nil {
		return err
	}
	logger.Info("response written", zap.String("path", path))
	return nil
}
