// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleArxivSearchXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v1</id>
    <title>Attention Is
      All You Need</title>
    <summary>We propose a new architecture based solely on attention mechanisms.</summary>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
    <author><name>Niki Parmar</name></author>
    <author><name>Jakob Uszkoreit</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1810.04805v2</id>
    <title>BERT: Pre-training of Deep Bidirectional Transformers</title>
    <summary>We introduce BERT.</summary>
    <published>2018-10-11T00:00:00Z</published>
    <author><name>Jacob Devlin</name></author>
  </entry>
  <entry>
    <id>malformed</id>
    <title>No id</title>
  </entry>
</feed>`

func withArxivServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := arxivAPIBase
	arxivAPIBase = ts.URL
	t.Cleanup(func() {
		arxivAPIBase = old
		ts.Close()
	})
	return ts
}

func TestArxivSearch(t *testing.T) {
	var gotQuery string
	ts := withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, sampleArxivSearchXML)
	})

	a := &Arxiv{Client: ts.Client(), UserAgent: "test/0.1", MaxItems: 5}
	items, err := a.Search(context.Background(), "large language models")
	require.NoError(t, err)
	require.Len(t, items, 2, "entry without an abs id is skipped")

	it := items[0]
	assert.Equal(t, "Attention Is All You Need", it.Title)
	assert.Equal(t, "https://arxiv.org/abs/1706.03762", it.SourceURL)
	assert.Equal(t, "1706.03762", it.Extra["arxiv_id"])
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer", "Niki Parmar"}, it.Extra["authors"])
	assert.Contains(t, gotQuery, "search_query=all:large+language+models")
	assert.Contains(t, gotQuery, "max_results=5")
}

func TestArxivSearchCapsItems(t *testing.T) {
	ts := withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, sampleArxivSearchXML)
	})

	a := &Arxiv{Client: ts.Client(), MaxItems: 1}
	items, err := a.Search(context.Background(), "attention")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestArxivSearchTruncatesSummary(t *testing.T) {
	long := strings.Repeat("word ", 200)
	ts := withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<feed xmlns="http://www.w3.org/2005/Atom"><entry><id>http://arxiv.org/abs/2401.00001v1</id><title>T</title><summary>%s</summary></entry></feed>`, long)
	})

	items, err := (&Arxiv{Client: ts.Client()}).Search(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Len(t, []rune(items[0].Snippet), arxivSummaryLen)
	assert.True(t, strings.HasSuffix(items[0].Snippet, "..."))
}

func TestArxivSearchErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		ts := withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := (&Arxiv{Client: ts.Client()}).Search(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 500")
	})

	t.Run("malformed xml", func(t *testing.T) {
		ts := withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "<feed><entry>")
		})
		_, err := (&Arxiv{Client: ts.Client()}).Search(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing arXiv response")
	})

	t.Run("empty query", func(t *testing.T) {
		_, err := (&Arxiv{}).Search(context.Background(), "   ")
		assert.Error(t, err)
	})
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/1706.03762v5", "1706.03762"},
		{"http://arxiv.org/abs/2301.12345", "2301.12345"},
		{"https://arxiv.org/abs/2301.07041v2", "2301.07041"},
		{"not a url", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, extractArxivID(tt.input))
		})
	}
}

func TestBuildArxivQuery(t *testing.T) {
	assert.Equal(t, "all:attention+is+all", buildArxivQuery("attention  is all"))
	assert.Equal(t, "all:c%2B%2B", buildArxivQuery("c++"))
	assert.Equal(t, "", buildArxivQuery(" "))
}
