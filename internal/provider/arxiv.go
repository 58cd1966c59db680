// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/answer-engine/internal/httputil"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

const (
	arxivSummaryLen = 300
	arxivAuthors    = 3
)

// Arxiv queries the arXiv Atom API for preprints.
type Arxiv struct {
	Client    *http.Client
	UserAgent string
	MaxItems  int
}

// Name returns the provider identifier.
func (a *Arxiv) Name() types.ProviderName { return types.ProviderArxiv }

// Description is shown to the classifier.
func (a *Arxiv) Description() string {
	return "academic papers, preprints, recent research results"
}

// Search runs an all-fields arXiv query sorted by relevance.
func (a *Arxiv) Search(ctx context.Context, query string) ([]types.ResultItem, error) {
	q := buildArxivQuery(query)
	if q == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}

	maxItems := a.MaxItems
	if maxItems <= 0 {
		maxItems = types.DefaultMaxItems
	}

	reqURL := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, q, maxItems)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.client(), req, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var items []types.ResultItem
	for _, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}

		var authors []string
		for _, au := range entry.Authors {
			authors = append(authors, strings.TrimSpace(au.Name))
		}

		items = append(items, types.ResultItem{
			Title:     collapseSpace(entry.Title),
			Snippet:   truncate(collapseSpace(entry.Summary), arxivSummaryLen),
			SourceURL: "https://arxiv.org/abs/" + arxivID,
			Extra: map[string]any{
				"arxiv_id":  arxivID,
				"authors":   firstN(authors, arxivAuthors),
				"published": strings.TrimSpace(entry.Published),
			},
		})
		if len(items) >= maxItems {
			break
		}
	}
	return items, nil
}

func (a *Arxiv) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

// buildArxivQuery turns free text into an escaped "all:" search_query value.
func buildArxivQuery(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	escaped := make([]string, len(terms))
	for i, t := range terms {
		escaped[i] = url.QueryEscape(t)
	}
	return "all:" + strings.Join(escaped, "+")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := strings.TrimSpace(idURL[idx+len(prefix):])

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

// collapseSpace joins whitespace runs (arXiv titles wrap across lines).
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
