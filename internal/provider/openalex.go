// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/answer-engine/internal/httputil"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

const openAlexAbstractLen = 600

// OpenAlex queries the OpenAlex citation index.
type OpenAlex struct {
	Client    *http.Client
	UserAgent string
	// Email is sent as mailto parameter for polite pool access.
	Email    string
	MaxItems int
}

// Name returns the provider identifier.
func (o *OpenAlex) Name() types.ProviderName { return types.ProviderOpenAlex }

// Description is shown to the classifier.
func (o *OpenAlex) Description() string {
	return "open citation index of published works, venues, and citation counts"
}

// Search queries the Works endpoint; results come back sorted by relevance.
func (o *OpenAlex) Search(ctx context.Context, query string) ([]types.ResultItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}

	maxItems := o.MaxItems
	if maxItems <= 0 {
		maxItems = types.DefaultMaxItems
	}
	if maxItems > 200 {
		maxItems = 200
	}

	params := url.Values{
		"search":   {query},
		"per_page": {strconv.Itoa(maxItems)},
		"page":     {"1"},
	}
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", o.UserAgent)

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	var items []types.ResultItem
	for _, work := range oar.Results {
		if work.Title == "" {
			continue
		}
		var authors []string
		for _, authorship := range work.Authorships {
			if authorship.Author.DisplayName != "" {
				authors = append(authors, authorship.Author.DisplayName)
			}
		}

		link := work.DOI
		if link == "" {
			link = work.ID
		}

		items = append(items, types.ResultItem{
			Title:     work.Title,
			Snippet:   truncate(reconstructAbstract(work.AbstractInvertedIndex), openAlexAbstractLen),
			SourceURL: link,
			Extra: map[string]any{
				"doi":              strings.TrimPrefix(work.DOI, "https://doi.org/"),
				"publication_year": work.PublicationYear,
				"cited_by":         work.CitedByCount,
				"authors":          firstN(authors, arxivAuthors),
				"open_access_url":  work.OpenAccess.OAURL,
			},
		})
		if len(items) >= maxItems {
			break
		}
	}
	return items, nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationYear       int                  `json:"publication_year"`
	CitedByCount          int                  `json:"cited_by_count"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	OpenAccess            openAlexOpenAccess   `json:"open_access"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	DisplayName string `json:"display_name"`
}

type openAlexOpenAccess struct {
	OAURL string `json:"oa_url"`
}
