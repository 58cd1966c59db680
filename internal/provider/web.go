// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// ContentGenerator is the subset of *genai.Models used for grounded search.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

const webAnswerLen = 2000

// WebSearch answers a query with a Gemini model grounded on Google Search.
// The grounded answer becomes the first item; each grounding source becomes
// one more item.
type WebSearch struct {
	Models   ContentGenerator
	Model    string
	MaxItems int
}

// Name returns the provider identifier.
func (w *WebSearch) Name() types.ProviderName { return types.ProviderWeb }

// Description is shown to the classifier.
func (w *WebSearch) Description() string {
	return "general web search for news, current events, products, and real-time information"
}

// Search issues one grounded generation call.
func (w *WebSearch) Search(ctx context.Context, query string) ([]types.ResultItem, error) {
	if w.Models == nil {
		return nil, fmt.Errorf("web search: %w", ErrMissingAPIKey)
	}
	model := w.Model
	if model == "" {
		model = "gemini-2.0-flash-001"
	}
	maxItems := w.MaxItems
	if maxItems <= 0 {
		maxItems = types.DefaultMaxItems
	}

	prompt := fmt.Sprintf("Search the web and summarize the most recent information about: %s", query)
	resp, err := w.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.1),
		Tools:       []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	})
	if err != nil {
		return nil, fmt.Errorf("grounded search: %w", err)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return nil, nil
	}

	sources := groundingSources(resp)
	items := []types.ResultItem{{
		Title:   "Web search summary",
		Snippet: truncate(answer, webAnswerLen),
		Extra:   map[string]any{"grounding_sources": len(sources)},
	}}
	if len(sources) > 0 {
		items[0].SourceURL = sources[0].SourceURL
	}
	for _, s := range sources {
		if len(items) >= maxItems {
			break
		}
		items = append(items, s)
	}
	return items, nil
}

// groundingSources lists the web chunks cited by the first candidate,
// deduplicated by URI.
func groundingSources(resp *genai.GenerateContentResponse) []types.ResultItem {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []types.ResultItem
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		out = append(out, types.ResultItem{
			Title:     chunk.Web.Title,
			SourceURL: chunk.Web.URI,
			Extra:     map[string]any{"grounding_chunk": true},
		})
	}
	return out
}
