// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the answer-engine pipeline:
// the query and its execution options, the classification produced for it,
// per-provider results, and the final response handed back to callers.
package types

import (
	"fmt"
	"strings"
	"time"
)

// ProviderName identifies one knowledge source. Values are stable across
// requests so trace entries and result maps can be correlated.
type ProviderName string

const (
	// ProviderArxiv is the academic-preprints source.
	ProviderArxiv ProviderName = "arxiv"
	// ProviderWikipedia is the encyclopedia source.
	ProviderWikipedia ProviderName = "wikipedia"
	// ProviderScholar is the Google Scholar citation index (via SerpApi).
	ProviderScholar ProviderName = "google_scholar"
	// ProviderOpenAlex is the OpenAlex citation index.
	ProviderOpenAlex ProviderName = "openalex"
	// ProviderWeb is grounded general web search.
	ProviderWeb ProviderName = "web"
)

// KnownProviders lists every built-in provider in default priority order.
var KnownProviders = []ProviderName{
	ProviderArxiv,
	ProviderWikipedia,
	ProviderScholar,
	ProviderOpenAlex,
	ProviderWeb,
}

// ParseProviderName normalizes s and reports whether it names a built-in
// provider. Common spellings ("google-scholar", "Wikipedia") are accepted.
func ParseProviderName(s string) (ProviderName, bool) {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.ReplaceAll(n, "-", "_")
	n = strings.ReplaceAll(n, " ", "_")
	switch n {
	case "web_search", "google_search", "google":
		n = string(ProviderWeb)
	case "scholar":
		n = string(ProviderScholar)
	}
	for _, p := range KnownProviders {
		if string(p) == n {
			return p, true
		}
	}
	return "", false
}

// QueryType is the coarse intent of a query.
type QueryType string

const (
	QueryAcademic QueryType = "academic"
	QueryGeneral  QueryType = "general"
	QueryMixed    QueryType = "mixed"
)

// ParseQueryType maps a model-provided label onto a QueryType. Anything
// unrecognised is treated as mixed.
func ParseQueryType(s string) QueryType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "academic", "scholarly", "research":
		return QueryAcademic
	case "general", "encyclopedic", "common":
		return QueryGeneral
	default:
		return QueryMixed
	}
}

// Options are the optional execution parameters of one query. Zero values
// mean "use the configured default".
type Options struct {
	// MaxProviders caps how many providers are dispatched (0 = no cap).
	MaxProviders int `json:"max_providers,omitempty" yaml:"max_providers,omitempty"`

	// PerProviderTimeout bounds each provider call independently.
	PerProviderTimeout time.Duration `json:"per_provider_timeout,omitempty" yaml:"per_provider_timeout,omitempty"`

	// MaxSynthesisTokens bounds the synthesis model output.
	MaxSynthesisTokens int `json:"max_synthesis_tokens,omitempty" yaml:"max_synthesis_tokens,omitempty"`

	// Providers, when non-empty, overrides the classifier's recommendation.
	Providers []ProviderName `json:"providers,omitempty" yaml:"providers,omitempty"`
}

// Validate rejects negative limits.
func (o Options) Validate() error {
	if o.MaxProviders < 0 {
		return fmt.Errorf("max providers must not be negative, got %d", o.MaxProviders)
	}
	if o.PerProviderTimeout < 0 {
		return fmt.Errorf("per-provider timeout must not be negative, got %v", o.PerProviderTimeout)
	}
	if o.MaxSynthesisTokens < 0 {
		return fmt.Errorf("max synthesis tokens must not be negative, got %d", o.MaxSynthesisTokens)
	}
	return nil
}

// WithDefaults fills zero-valued fields from the pipeline configuration.
func (o Options) WithDefaults(cfg PipelineConfig) Options {
	if o.MaxProviders == 0 {
		o.MaxProviders = cfg.MaxProviders
	}
	if o.PerProviderTimeout == 0 {
		o.PerProviderTimeout = cfg.PerProviderTimeout
	}
	if o.MaxSynthesisTokens == 0 {
		o.MaxSynthesisTokens = cfg.MaxSynthesisTokens
	}
	return o
}

// Classification is the intent analysis of one query. It is produced once per
// request and never modified afterwards.
type Classification struct {
	QueryType QueryType `json:"query_type" yaml:"query_type"`

	// RecommendedProviders is deduplicated and never empty; order is
	// relevance priority.
	RecommendedProviders []ProviderName `json:"recommended_providers" yaml:"recommended_providers"`

	Keywords  []string `json:"keywords" yaml:"keywords"`
	Reasoning string   `json:"reasoning" yaml:"reasoning"`

	// Degraded is set when the fallback classification was substituted.
	Degraded bool `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}
