// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	g "github.com/serpapi/google-search-results-golang"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// serpHTTPClient carries every SerpApi request. Tests point its transport
// at an httptest server.
var serpHTTPClient = &http.Client{Timeout: 60 * time.Second}

// serpSearch runs one SerpApi query. The SerpApi client takes no context, so
// a timed-out call is abandoned by the dispatcher rather than cancelled.
// Declared as a var so tests can substitute canned responses.
var serpSearch = func(params map[string]string, apiKey string) (map[string]interface{}, error) {
	search := g.NewGoogleSearch(params, apiKey)
	search.HttpSearch = serpHTTPClient
	return search.GetJSON()
}

const scholarAuthors = 3

// Scholar queries Google Scholar through SerpApi.
type Scholar struct {
	APIKey   string
	MaxItems int
}

// Name returns the provider identifier.
func (s *Scholar) Name() types.ProviderName { return types.ProviderScholar }

// Description is shown to the classifier.
func (s *Scholar) Description() string {
	return "journal articles, scholarly literature, citation counts"
}

// Search returns the organic Scholar results.
func (s *Scholar) Search(ctx context.Context, query string) ([]types.ResultItem, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("google scholar: %w", ErrMissingAPIKey)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	maxItems := s.MaxItems
	if maxItems <= 0 {
		maxItems = types.DefaultMaxItems
	}

	results, err := serpSearch(map[string]string{
		"engine": "google_scholar",
		"q":      query,
		"hl":     "en",
		"num":    fmt.Sprintf("%d", maxItems),
	}, s.APIKey)
	if err != nil {
		return nil, fmt.Errorf("serpapi scholar search: %w", err)
	}
	if msg, ok := results["error"].(string); ok && msg != "" {
		return nil, fmt.Errorf("serpapi scholar search: %s", msg)
	}

	organic, _ := results["organic_results"].([]interface{})
	var items []types.ResultItem
	for _, raw := range organic {
		res, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		title, _ := res["title"].(string)
		if title == "" {
			continue
		}
		link, _ := res["link"].(string)
		snippet, _ := res["snippet"].(string)

		pubInfo, _ := res["publication_info"].(map[string]interface{})
		summary, _ := pubInfo["summary"].(string)

		items = append(items, types.ResultItem{
			Title:     title,
			Snippet:   snippet,
			SourceURL: link,
			Extra: map[string]any{
				"publication_info": summary,
				"cited_by":         citedBy(res),
				"authors":          firstN(scholarAuthorNames(pubInfo), scholarAuthors),
			},
		})
		if len(items) >= maxItems {
			break
		}
	}
	return items, nil
}

// citedBy reads inline_links.cited_by.total; JSON numbers decode as float64.
func citedBy(res map[string]interface{}) int {
	links, _ := res["inline_links"].(map[string]interface{})
	cb, _ := links["cited_by"].(map[string]interface{})
	total, _ := cb["total"].(float64)
	return int(total)
}

func scholarAuthorNames(pubInfo map[string]interface{}) []string {
	raw, _ := pubInfo["authors"].([]interface{})
	var names []string
	for _, a := range raw {
		m, ok := a.(map[string]interface{})
		if !ok {
			continue
		}
		if name, _ := m["name"].(string); name != "" {
			names = append(names, name)
		}
	}
	return names
}
