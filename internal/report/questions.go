// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// QuestionsFile is a batch of questions run one after another by
// "ask --file".
type QuestionsFile struct {
	Defaults  Question   `yaml:"defaults"`
	Questions []Question `yaml:"questions"`
}

// Question is one batch entry. Unset fields inherit from the file's
// defaults and then from the configuration.
type Question struct {
	Query        string        `yaml:"query"`
	Providers    []string      `yaml:"providers,omitempty"`
	MaxProviders int           `yaml:"max_providers,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	MaxTokens    int           `yaml:"max_tokens,omitempty"`
}

// ReadQuestionsFile loads a batch file. A file holding a plain YAML list of
// strings is accepted as well.
func ReadQuestionsFile(path string) (*QuestionsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading questions file: %w", err)
	}

	var qf QuestionsFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		var plain []string
		if perr := yaml.Unmarshal(data, &plain); perr != nil {
			return nil, fmt.Errorf("parsing questions file: %w", err)
		}
		for _, q := range plain {
			qf.Questions = append(qf.Questions, Question{Query: q})
		}
	}

	var kept []Question
	for _, q := range qf.Questions {
		if strings.TrimSpace(q.Query) != "" {
			kept = append(kept, q)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("questions file %s has no questions", path)
	}
	qf.Questions = kept
	return &qf, nil
}

// Options converts q into pipeline options, filling gaps from defaults.
func (q Question) Options(defaults Question) (types.Options, error) {
	names := q.Providers
	if len(names) == 0 {
		names = defaults.Providers
	}
	providers, err := ParseProviders(names)
	if err != nil {
		return types.Options{}, err
	}
	opts := types.Options{
		Providers:          providers,
		MaxProviders:       firstNonZero(q.MaxProviders, defaults.MaxProviders),
		PerProviderTimeout: time.Duration(firstNonZero(int(q.Timeout), int(defaults.Timeout))),
		MaxSynthesisTokens: firstNonZero(q.MaxTokens, defaults.MaxTokens),
	}
	return opts, opts.Validate()
}

// ParseProviders validates provider names given on the command line or in
// a questions file.
func ParseProviders(names []string) ([]types.ProviderName, error) {
	var out []types.ProviderName
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			p, ok := types.ParseProviderName(part)
			if !ok {
				return nil, fmt.Errorf("unknown provider %q", part)
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}
