// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/pdiddy/answer-engine/internal/httputil"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// wikipediaAPIBase is the MediaWiki action API endpoint; {lang} is replaced
// by the configured edition. Declared as a var so tests can substitute an
// httptest server.
var wikipediaAPIBase = "https://{lang}.wikipedia.org/w/api.php"

const wikipediaExtractLen = 1000

// stripTags removes the <span class="searchmatch"> markup MediaWiki puts in
// search snippets.
var stripTags = bluemonday.StrictPolicy()

// Wikipedia searches an encyclopedia edition and fetches intro extracts for
// the matching pages.
type Wikipedia struct {
	Client    *http.Client
	UserAgent string
	Lang      string
	MaxItems  int
}

// Name returns the provider identifier.
func (w *Wikipedia) Name() types.ProviderName { return types.ProviderWikipedia }

// Description is shown to the classifier.
func (w *Wikipedia) Description() string {
	return "general knowledge, concept explanations, people, historical events"
}

// Search runs list=search, then one prop=extracts request for all hits.
func (w *Wikipedia) Search(ctx context.Context, query string) ([]types.ResultItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty Wikipedia query")
	}

	maxItems := w.MaxItems
	if maxItems <= 0 {
		maxItems = types.DefaultMaxItems
	}

	var sr wikiSearchResponse
	err := w.get(ctx, url.Values{
		"action":   {"query"},
		"format":   {"json"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {strconv.Itoa(maxItems)},
		"srprop":   {"snippet|wordcount|timestamp"},
	}, &sr)
	if err != nil {
		return nil, err
	}
	hits := sr.Query.Search
	if len(hits) > maxItems {
		hits = hits[:maxItems]
	}
	if len(hits) == 0 {
		return nil, nil
	}

	extracts, err := w.extracts(ctx, hits)
	if err != nil {
		return nil, err
	}

	items := make([]types.ResultItem, 0, len(hits))
	for _, h := range hits {
		snippet := extracts[h.PageID]
		if snippet == "" {
			snippet = cleanSnippet(h.Snippet)
		}
		items = append(items, types.ResultItem{
			Title:     h.Title,
			Snippet:   truncate(snippet, wikipediaExtractLen),
			SourceURL: w.pageURL(h.Title),
			Extra: map[string]any{
				"page_id":   h.PageID,
				"wordcount": h.WordCount,
				"timestamp": h.Timestamp,
			},
		})
	}
	return items, nil
}

// extracts fetches plain-text intro sections keyed by page id.
func (w *Wikipedia) extracts(ctx context.Context, hits []wikiSearchHit) (map[int]string, error) {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = strconv.Itoa(h.PageID)
	}

	var er wikiExtractResponse
	err := w.get(ctx, url.Values{
		"action":          {"query"},
		"format":          {"json"},
		"prop":            {"extracts"},
		"pageids":         {strings.Join(ids, "|")},
		"exintro":         {"1"},
		"explaintext":     {"1"},
		"exlimit":         {"max"},
		"exsectionformat": {"plain"},
	}, &er)
	if err != nil {
		return nil, err
	}

	out := make(map[int]string, len(er.Query.Pages))
	for _, p := range er.Query.Pages {
		out[p.PageID] = strings.TrimSpace(p.Extract)
	}
	return out, nil
}

func (w *Wikipedia) get(ctx context.Context, params url.Values, into any) error {
	reqURL := w.endpoint() + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", w.UserAgent)

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return fmt.Errorf("Wikipedia API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Wikipedia API returned HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("parsing Wikipedia response: %w", err)
	}
	return nil
}

func (w *Wikipedia) lang() string {
	if w.Lang == "" {
		return "en"
	}
	return w.Lang
}

func (w *Wikipedia) endpoint() string {
	return strings.ReplaceAll(wikipediaAPIBase, "{lang}", w.lang())
}

// wikiTitleEscaper restores the characters MediaWiki keeps literal in
// canonical article links.
var wikiTitleEscaper = strings.NewReplacer("%28", "(", "%29", ")", "%2C", ",", "%27", "'")

func (w *Wikipedia) pageURL(title string) string {
	escaped := wikiTitleEscaper.Replace(url.PathEscape(strings.ReplaceAll(title, " ", "_")))
	return fmt.Sprintf("https://%s.wikipedia.org/wiki/%s", w.lang(), escaped)
}

// cleanSnippet strips HTML and decodes entities.
func cleanSnippet(s string) string {
	return collapseSpace(html.UnescapeString(stripTags.Sanitize(s)))
}

// MediaWiki JSON structures.
type wikiSearchResponse struct {
	Query struct {
		Search []wikiSearchHit `json:"search"`
	} `json:"query"`
}

type wikiSearchHit struct {
	Title     string `json:"title"`
	PageID    int    `json:"pageid"`
	Snippet   string `json:"snippet"`
	WordCount int    `json:"wordcount"`
	Timestamp string `json:"timestamp"`
}

type wikiExtractResponse struct {
	Query struct {
		Pages map[string]wikiPage `json:"pages"`
	} `json:"query"`
}

type wikiPage struct {
	PageID  int    `json:"pageid"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
}
