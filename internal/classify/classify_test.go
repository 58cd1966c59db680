// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/internal/provider"
	"github.com/pdiddy/answer-engine/internal/trace"
	"github.com/pdiddy/answer-engine/pkg/types"
)

type stubGenerator struct {
	text string
	err  error
	req  llm.Request
}

func (s *stubGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	s.req = req
	return s.text, s.err
}

var fallback = []types.ProviderName{types.ProviderArxiv, types.ProviderWikipedia}

func testRegistry() *provider.Registry {
	return provider.NewRegistry(&provider.Arxiv{}, &provider.Wikipedia{}, &provider.Scholar{})
}

func TestClassify(t *testing.T) {
	gen := &stubGenerator{text: "Sure! Here is the analysis:\n```json\n" + `{
  "query_type": "academic",
  "recommended_sources": ["google_scholar", "arxiv", "arxiv", "bing"],
  "search_keywords": ["large language models", " ", "LLM"],
  "reasoning": "research topic"
}` + "\n```"}
	c := New(gen, testRegistry(), fallback, nil)
	tr := trace.New("req-1")

	cls := c.Classify(context.Background(), "recent advances in large language models", tr)

	assert.Equal(t, types.QueryAcademic, cls.QueryType)
	assert.Equal(t, []types.ProviderName{types.ProviderScholar, types.ProviderArxiv}, cls.RecommendedProviders)
	assert.Equal(t, []string{"large language models", "LLM"}, cls.Keywords)
	assert.Equal(t, "research topic", cls.Reasoning)
	assert.False(t, cls.Degraded)

	assert.Equal(t, []string{trace.StageClassificationStart, trace.StageClassificationComplete}, tr.Stages())
	assert.Equal(t, llm.VariantCompact, gen.req.Variant)
	assert.Contains(t, gen.req.Prompt, "recent advances in large language models")
	assert.Contains(t, gen.req.Prompt, "1. arxiv - ")
	assert.Contains(t, gen.req.Prompt, "3. google_scholar - ")
}

func TestClassifyUnregisteredProvidersFallBack(t *testing.T) {
	gen := &stubGenerator{text: `{"query_type":"general","recommended_sources":["web","openalex"],"search_keywords":["go"],"reasoning":"r"}`}
	c := New(gen, testRegistry(), fallback, nil)
	tr := trace.New("req-2")

	cls := c.Classify(context.Background(), "what is go", tr)

	assert.Equal(t, fallback, cls.RecommendedProviders)
	assert.Equal(t, types.QueryGeneral, cls.QueryType, "parsed type is kept")
	assert.Equal(t, []string{"go"}, cls.Keywords)
	assert.False(t, cls.Degraded)
	assert.Equal(t, trace.StageClassificationComplete, tr.Stages()[1])
}

func TestClassifyDegraded(t *testing.T) {
	tests := []struct {
		name string
		gen  llm.Generator
	}{
		{name: "model unreachable", gen: &stubGenerator{err: errors.New("dial tcp: connection refused")}},
		{name: "no json", gen: &stubGenerator{text: "I cannot help with that."}},
		{name: "malformed json", gen: &stubGenerator{text: `{"query_type": academic}`}},
		{name: "no generator", gen: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.gen, testRegistry(), fallback, nil)
			tr := trace.New("req")

			cls := c.Classify(context.Background(), "q", tr)

			assert.True(t, cls.Degraded)
			assert.Equal(t, types.QueryMixed, cls.QueryType)
			assert.Equal(t, fallback, cls.RecommendedProviders)
			assert.Equal(t, []string{"q"}, cls.Keywords)
			assert.Equal(t, FallbackReasoning, cls.Reasoning)

			entries := tr.Entries()
			require.Len(t, entries, 2)
			assert.Equal(t, trace.StageClassificationError, entries[1].Stage)
			assert.NotEmpty(t, entries[1].Payload["error"])
		})
	}
}

func TestFallbackIsACopy(t *testing.T) {
	c := New(nil, nil, fallback, nil)
	cls := c.Fallback("q")
	cls.RecommendedProviders[0] = "mutated"
	assert.Equal(t, types.ProviderArxiv, fallback[0])
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    Raw
		wantErr bool
	}{
		{
			name: "bare object",
			text: `{"query_type":"mixed","recommended_sources":["arxiv"]}`,
			want: Raw{QueryType: "mixed", RecommendedSources: []string{"arxiv"}},
		},
		{
			name: "prose around object",
			text: `Answer: {"reasoning":"has } brace in string"} trailing {"x":1}`,
			want: Raw{Reasoning: "has } brace in string"},
		},
		{
			name: "skips malformed candidate",
			text: `{not json} then {"query_type":"general"}`,
			want: Raw{QueryType: "general"},
		},
		{
			name: "unclosed outer brace",
			text: `{ oops {"query_type":"academic"}`,
			want: Raw{QueryType: "academic"},
		},
		{
			name:    "no object",
			text:    "nothing here",
			wantErr: true,
		},
		{
			name:    "empty",
			text:    "",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoObject)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
