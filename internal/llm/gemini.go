// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig configures a GeminiBackend.
type GeminiConfig struct {
	APIKey string
	Models Models

	// HTTPClient and BaseURL are optional; tests point BaseURL at an
	// httptest server.
	HTTPClient *http.Client
	BaseURL    string
}

// GeminiBackend calls the Gemini API through the genai SDK.
type GeminiBackend struct {
	client *genai.Client
	models Models
}

// NewGeminiBackend creates a Gemini client for the Gemini API backend.
func NewGeminiBackend(ctx context.Context, cfg GeminiConfig) (*GeminiBackend, error) {
	client, err := NewGenaiClient(ctx, cfg.APIKey, cfg.HTTPClient, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return &GeminiBackend{client: client, models: cfg.Models}, nil
}

// NewGenaiClient constructs a genai client. It is shared with the grounded
// web-search provider.
func NewGenaiClient(ctx context.Context, apiKey string, httpClient *http.Client, baseURL string) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if httpClient != nil {
		cc.HTTPClient = httpClient
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return client, nil
}

// Generate calls GenerateContent with the model chosen by the variant.
func (g *GeminiBackend) Generate(ctx context.Context, r Request) (string, error) {
	maxTokens := r.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}

	model := g.models.For(r.Variant)
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(r.Prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("calling Gemini API (%s): %w", model, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
