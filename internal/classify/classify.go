// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify maps a raw query to a query type, a prioritized list of
// providers, and search keywords by asking the language model for a small
// JSON object. Any failure yields the fallback classification instead of an
// error.
package classify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/internal/provider"
	"github.com/pdiddy/answer-engine/internal/trace"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// FallbackReasoning is the reasoning attached to the fallback classification.
const FallbackReasoning = "default strategy"

const classifyMaxTokens = 1024

// ErrNoObject is returned by Parse when the text holds no JSON object.
var ErrNoObject = errors.New("no JSON object in model output")

var classifyPromptTmpl = template.Must(template.New("classify").Parse(`Analyze the following question and decide which search sources should be used to answer it.

Question: {{.Query}}

Available sources:
{{.Sources}}
Respond with a JSON object of this shape:
{
  "query_type": "academic | general | mixed",
  "recommended_sources": ["source1", "source2"],
  "search_keywords": ["keyword1", "keyword2"],
  "reasoning": "why these sources"
}

Use only source names from the list above. Return only the JSON object, with no other text.`))

// Classifier asks the compact model for an intent analysis.
type Classifier struct {
	gen      llm.Generator
	reg      *provider.Registry
	fallback []types.ProviderName
	logger   *zap.Logger
}

// New returns a Classifier. The fallback set is used whenever the model
// fails or recommends nothing usable; it must not be empty.
func New(gen llm.Generator, reg *provider.Registry, fallback []types.ProviderName, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{gen: gen, reg: reg, fallback: fallback, logger: logger}
}

// Fallback returns the classification used in degraded mode.
func (c *Classifier) Fallback(query string) types.Classification {
	return types.Classification{
		QueryType:            types.QueryMixed,
		RecommendedProviders: append([]types.ProviderName(nil), c.fallback...),
		Keywords:             []string{query},
		Reasoning:            FallbackReasoning,
		Degraded:             true,
	}
}

// Classify never fails. It appends classification_start and then either
// classification_complete or classification_error to tr.
func (c *Classifier) Classify(ctx context.Context, query string, tr *trace.Trace) types.Classification {
	tr.Add(trace.StageClassificationStart, map[string]any{"query": query})

	cls, err := c.classify(ctx, query)
	if err != nil {
		c.logger.Warn("classification degraded", zap.String("request_id", tr.ID()), zap.Error(err))
		cls = c.Fallback(query)
		tr.Add(trace.StageClassificationError, map[string]any{
			"error":                 err.Error(),
			"recommended_providers": cls.RecommendedProviders,
		})
		return cls
	}

	tr.Add(trace.StageClassificationComplete, map[string]any{
		"query_type":            cls.QueryType,
		"recommended_providers": cls.RecommendedProviders,
		"keywords":              cls.Keywords,
		"reasoning":             cls.Reasoning,
	})
	return cls
}

func (c *Classifier) classify(ctx context.Context, query string) (types.Classification, error) {
	if c.gen == nil {
		return types.Classification{}, errors.New("no language model configured")
	}
	prompt, err := c.renderPrompt(query)
	if err != nil {
		return types.Classification{}, fmt.Errorf("rendering prompt: %w", err)
	}
	text, err := c.gen.Generate(ctx, llm.Request{
		Prompt:          prompt,
		Variant:         llm.VariantCompact,
		MaxOutputTokens: classifyMaxTokens,
	})
	if err != nil {
		return types.Classification{}, fmt.Errorf("model call: %w", err)
	}
	raw, err := Parse(text)
	if err != nil {
		return types.Classification{}, err
	}
	return c.normalize(query, raw), nil
}

func (c *Classifier) renderPrompt(query string) (string, error) {
	sources := ""
	if c.reg != nil {
		sources = c.reg.Describe()
	}
	var buf bytes.Buffer
	err := classifyPromptTmpl.Execute(&buf, struct{ Query, Sources string }{Query: query, Sources: sources})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// normalize drops unknown or unregistered providers, removes duplicates,
// and substitutes the fallback set when nothing usable remains. The parsed
// type and keywords are kept in that case.
func (c *Classifier) normalize(query string, raw Raw) types.Classification {
	var names []types.ProviderName
	for _, s := range raw.RecommendedSources {
		p, ok := types.ParseProviderName(s)
		if !ok {
			c.logger.Debug("dropping unknown provider from classification", zap.String("provider", s))
			continue
		}
		names = append(names, p)
	}
	if c.reg != nil {
		names, _ = c.reg.Filter(names)
	} else {
		names = dedupe(names)
	}
	if len(names) == 0 {
		names = append([]types.ProviderName(nil), c.fallback...)
	}

	var keywords []string
	for _, k := range raw.SearchKeywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		keywords = []string{query}
	}

	return types.Classification{
		QueryType:            types.ParseQueryType(raw.QueryType),
		RecommendedProviders: names,
		Keywords:             keywords,
		Reasoning:            strings.TrimSpace(raw.Reasoning),
	}
}

func dedupe(names []types.ProviderName) []types.ProviderName {
	seen := make(map[types.ProviderName]bool, len(names))
	var out []types.ProviderName
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
