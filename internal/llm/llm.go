// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm abstracts the language-model service behind a single
// text-in/text-out capability. The classifier and the synthesizer depend
// only on Generator; swapping Claude for Gemini changes no orchestration code.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// Variant selects between the compact and the higher-capacity model.
type Variant string

const (
	VariantCompact  Variant = "compact"
	VariantExtended Variant = "extended"
)

// Request is one generation call.
type Request struct {
	Prompt          string
	Variant         Variant
	MaxOutputTokens int
}

// Generator produces text for a prompt. Implementations must be safe for
// concurrent use.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Models maps variants to backend model identifiers.
type Models struct {
	Compact  string
	Extended string
}

// For returns the model id for v. An empty extended model falls back to the
// compact one.
func (m Models) For(v Variant) string {
	if v == VariantExtended && m.Extended != "" {
		return m.Extended
	}
	return m.Compact
}

// ErrMissingAPIKey is returned by New when the selected backend has no key.
var ErrMissingAPIKey = errors.New("llm: API key is not set")

// ErrEmptyResponse is returned when the service answers with no text.
var ErrEmptyResponse = errors.New("llm: empty response")

const defaultMaxOutputTokens = 4096

// StatusError is a non-200 answer from a language-model API.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned %d: %s", e.Service, e.Code, e.Body)
}

// New builds the Generator selected by cfg, wrapped with retries.
func New(ctx context.Context, cfg types.LLMConfig, client *http.Client, logger *zap.Logger) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for backend %q", ErrMissingAPIKey, cfg.Backend)
	}
	models := Models{Compact: cfg.CompactModel, Extended: cfg.ExtendedModel}
	if models.Compact == "" {
		return nil, fmt.Errorf("llm: compact model is not configured")
	}

	var g Generator
	switch cfg.Backend {
	case types.BackendClaude:
		g = &ClaudeBackend{APIKey: cfg.APIKey, Models: models, Client: client}
	case types.BackendGemini, "":
		gb, err := NewGeminiBackend(ctx, GeminiConfig{APIKey: cfg.APIKey, Models: models, HTTPClient: client})
		if err != nil {
			return nil, err
		}
		g = gb
	default:
		return nil, fmt.Errorf("llm: unsupported backend %q (supported: claude, gemini)", cfg.Backend)
	}

	return WithRetry(g, cfg.MaxRetries, logger), nil
}
