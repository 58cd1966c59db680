// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders pipeline responses for the terminal and for files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/answer-engine/internal/archive"
	"github.com/pdiddy/answer-engine/pkg/types"
)

const rule = "============================================================"

// traceTail is the number of trailing trace stages FormatText prints.
const traceTail = 5

// FormatText writes the synthesized answer, one status line per provider
// (successful providers first), the classification, and the last stages of
// the execution trace.
func FormatText(resp *types.PipelineResponse, w io.Writer) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Answer")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, strings.TrimSpace(resp.Synthesis))

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Sources")
	fmt.Fprintln(w, rule)
	for _, pr := range sortedResults(resp) {
		switch pr.Status {
		case types.StatusSuccess:
			fmt.Fprintf(w, "✓ %s: %d result(s) in %s\n", pr.Provider, len(pr.Items), pr.Duration.Round(time.Millisecond))
		case types.StatusTimeout:
			fmt.Fprintf(w, "✗ %s: timeout (%s)\n", pr.Provider, orUnknown(pr.ErrorDetail))
		default:
			fmt.Fprintf(w, "✗ %s: %s\n", pr.Provider, orUnknown(pr.ErrorDetail))
		}
	}

	cls := resp.Classification
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Classification")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "query type: %s", cls.QueryType)
	if cls.Degraded {
		fmt.Fprint(w, " (default strategy)")
	}
	fmt.Fprintln(w)
	names := make([]string, len(cls.RecommendedProviders))
	for i, p := range cls.RecommendedProviders {
		names[i] = string(p)
	}
	fmt.Fprintf(w, "sources:    %s\n", orNone(strings.Join(names, ", ")))
	fmt.Fprintf(w, "keywords:   %s\n", orNone(strings.Join(cls.Keywords, ", ")))
	fmt.Fprintf(w, "reasoning:  %s\n", orNone(strings.TrimSpace(cls.Reasoning)))

	if n := len(resp.Trace); n > 0 {
		first := resp.Trace[0].Timestamp
		tail := resp.Trace
		if n > traceTail {
			tail = tail[n-traceTail:]
		}
		fmt.Fprintf(w, "\ntrace (last %d of %d stages):\n", len(tail), n)
		for _, e := range tail {
			fmt.Fprintf(w, "  +%-8s %s\n", e.Timestamp.Sub(first).Round(time.Millisecond), e.Stage)
		}
	}
	fmt.Fprintf(w, "\nrequest: %s  took: %s\n", resp.RequestID, resp.Duration.Round(time.Millisecond))
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// sortedResults orders successes before failures, then by name.
func sortedResults(resp *types.PipelineResponse) []types.ProviderResult {
	out := make([]types.ProviderResult, 0, len(resp.ProviderResults))
	for name, pr := range resp.ProviderResults {
		if pr.Provider == "" {
			pr.Provider = name
		}
		out = append(out, pr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OK() != out[j].OK() {
			return out[i].OK()
		}
		return out[i].Provider < out[j].Provider
	})
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown error"
	}
	return s
}

// FormatJSON writes resp as indented JSON.
func FormatJSON(resp *types.PipelineResponse, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

// FormatYAML writes resp as YAML.
func FormatYAML(resp *types.PipelineResponse, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}

// WriteFile saves resp to path, as YAML for .yaml/.yml and JSON otherwise.
func WriteFile(path string, resp *types.PipelineResponse) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = FormatYAML(resp, f)
	default:
		err = FormatJSON(resp, f)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// DefaultFileName is the timestamped name used when --output is a directory.
func DefaultFileName(t time.Time) string {
	return "search_result_" + t.Format("20060102_150405") + ".json"
}

// FormatHistory writes archived runs as a table.
func FormatHistory(runs []archive.Run, w io.Writer) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-8s  %-19s  %-8s  %-7s  %-8s  %s\n",
		"ID", "Started", "Type", "Sources", "Took", "Query")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, r := range runs {
		typ := string(r.QueryType)
		if r.Degraded {
			typ += "*"
		}
		fmt.Fprintf(w, "%-8s  %-19s  %-8s  %-7s  %-8s  %s\n",
			shortID(r.RequestID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			typ,
			fmt.Sprintf("%d/%d", r.Succeeded, r.Total),
			r.Duration.Round(100*time.Millisecond),
			truncate(r.Query, 50))
	}
	fmt.Fprintf(w, "\n%d run(s)\n", len(runs))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
