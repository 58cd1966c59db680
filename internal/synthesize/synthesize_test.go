// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/answer-engine/internal/aggregate"
	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/internal/trace"
	"github.com/pdiddy/answer-engine/pkg/types"
)

type recordingGenerator struct {
	reqs []llm.Request
	text string
	err  error
}

func (r *recordingGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	r.reqs = append(r.reqs, req)
	return r.text, r.err
}

func evidence(n int) aggregate.SynthesisInput {
	items := make([]types.ResultItem, n)
	for i := range items {
		items[i] = types.ResultItem{
			Title:     "Attention Is All You Need",
			Snippet:   "We propose the Transformer.",
			SourceURL: "https://arxiv.org/abs/1706.03762",
		}
	}
	return aggregate.SynthesisInput{Sections: []aggregate.Section{{Provider: types.ProviderArxiv, Items: items}}}
}

func TestSynthesize(t *testing.T) {
	gen := &recordingGenerator{text: "  Transformers replaced recurrence [arxiv].  "}
	s := New(gen, 0, nil)
	tr := trace.New("req")

	got := s.Synthesize(context.Background(), "what is a transformer", evidence(3), 2048, tr)

	assert.Equal(t, "Transformers replaced recurrence [arxiv].", got)
	require.Len(t, gen.reqs, 1)
	req := gen.reqs[0]
	assert.Equal(t, llm.VariantCompact, req.Variant)
	assert.Equal(t, 2048, req.MaxOutputTokens)
	assert.Contains(t, req.Prompt, "what is a transformer")
	assert.Contains(t, req.Prompt, `"title": "Attention Is All You Need"`)

	entries := tr.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, trace.StageSummarizationStart, entries[0].Stage)
	assert.Equal(t, trace.StageSummarizationComplete, entries[1].Stage)
	assert.Equal(t, len(got), entries[1].Payload["summary_length"])
	assert.Equal(t, llm.VariantCompact, entries[1].Payload["model_variant"])
}

func TestSynthesizeSelectsExtendedVariant(t *testing.T) {
	in := evidence(3)
	threshold := in.Len() - 1

	gen := &recordingGenerator{text: "answer"}
	New(gen, threshold, nil).Synthesize(context.Background(), "q", in, 0, nil)
	require.Len(t, gen.reqs, 1)
	assert.Equal(t, llm.VariantExtended, gen.reqs[0].Variant)

	gen = &recordingGenerator{text: "answer"}
	New(gen, in.Len(), nil).Synthesize(context.Background(), "q", in, 0, nil)
	assert.Equal(t, llm.VariantCompact, gen.reqs[0].Variant, "threshold itself stays compact")
}

func TestSynthesizeNoEvidence(t *testing.T) {
	gen := &recordingGenerator{text: "No external evidence was retrieved. From general knowledge..."}
	got := New(gen, 0, nil).Synthesize(context.Background(), "q", aggregate.SynthesisInput{}, 0, nil)

	assert.NotEmpty(t, got)
	require.Len(t, gen.reqs, 1, "model is still called without evidence")
	assert.Contains(t, gen.reqs[0].Prompt, "No external search results")
}

func TestSynthesizeNoEvidenceAndModelDown(t *testing.T) {
	gen := &recordingGenerator{err: errors.New("unreachable")}
	tr := trace.New("req")
	got := New(gen, 0, nil).Synthesize(context.Background(), "q", aggregate.SynthesisInput{}, 0, tr)

	assert.Equal(t, NoEvidenceFallback, got)
	assert.Equal(t, []string{trace.StageSummarizationStart, trace.StageSummarizationError}, tr.Stages())
}

func TestSynthesizeDegraded(t *testing.T) {
	tests := []struct {
		name string
		gen  llm.Generator
		want string
	}{
		{name: "model error", gen: &recordingGenerator{err: errors.New("HTTP 503")}, want: "[synthesis unavailable: HTTP 503]"},
		{name: "blank answer", gen: &recordingGenerator{text: "  \n"}, want: "[synthesis unavailable: llm: empty response]"},
		{name: "no generator", gen: nil, want: "[synthesis unavailable: no language model configured]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := trace.New("req")
			got := New(tt.gen, 0, nil).Synthesize(context.Background(), "q", evidence(2), 0, tr)

			assert.True(t, strings.HasPrefix(got, tt.want), got)
			assert.Contains(t, got, "## arxiv")
			assert.Contains(t, got, "- Attention Is All You Need <https://arxiv.org/abs/1706.03762>")
			assert.Equal(t, trace.StageSummarizationError, tr.Stages()[1])
		})
	}
}

func TestDegradedClipsSnippets(t *testing.T) {
	in := aggregate.SynthesisInput{Sections: []aggregate.Section{{
		Provider: types.ProviderWikipedia,
		Items:    []types.ResultItem{{Title: "Long", Snippet: strings.Repeat("a", 1000)}},
	}}}
	got := Degraded(errors.New("x"), in)
	assert.Contains(t, got, strings.Repeat("a", digestSnippetLen-3)+"...")
	assert.NotContains(t, got, strings.Repeat("a", digestSnippetLen))
}
