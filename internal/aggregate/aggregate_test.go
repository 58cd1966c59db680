// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/answer-engine/pkg/types"
)

func item(title string) types.ResultItem {
	return types.ResultItem{
		Title:     title,
		Snippet:   "snippet of " + title,
		SourceURL: "https://example.com/" + title,
		Extra:     map[string]any{"b": 2, "a": []string{"x", "y"}},
	}
}

func sampleResults() map[types.ProviderName]types.ProviderResult {
	return map[types.ProviderName]types.ProviderResult{
		types.ProviderArxiv:     {Provider: types.ProviderArxiv, Status: types.StatusSuccess, Items: []types.ResultItem{item("p1"), item("p2")}},
		types.ProviderWikipedia: {Provider: types.ProviderWikipedia, Status: types.StatusTimeout, Items: []types.ResultItem{}},
		types.ProviderScholar:   {Provider: types.ProviderScholar, Status: types.StatusSuccess, Items: []types.ResultItem{item("s1")}},
		types.ProviderWeb:       {Provider: types.ProviderWeb, Status: types.StatusError, ErrorDetail: "boom"},
	}
}

var dispatchOrder = []types.ProviderName{types.ProviderScholar, types.ProviderWikipedia, types.ProviderArxiv, types.ProviderWeb}

func TestAggregateKeepsSuccessfulInDispatchOrder(t *testing.T) {
	in := Aggregate(dispatchOrder, sampleResults())

	require.Len(t, in.Sections, 2)
	assert.Equal(t, []types.ProviderName{types.ProviderScholar, types.ProviderArxiv}, in.Providers())
	assert.Equal(t, 3, in.ItemCount())
	assert.False(t, in.IsEmpty())
}

func TestAggregateEmpty(t *testing.T) {
	results := map[types.ProviderName]types.ProviderResult{
		types.ProviderArxiv: {Status: types.StatusTimeout},
	}
	in := Aggregate([]types.ProviderName{types.ProviderArxiv}, results)
	assert.True(t, in.IsEmpty())
	assert.Equal(t, 0, in.ItemCount())
	assert.JSONEq(t, `{"sources":[]}`, in.Serialize())

	assert.True(t, Aggregate(nil, nil).IsEmpty())
}

func TestAggregateDeterministicAcrossCompletionOrder(t *testing.T) {
	want := Aggregate(dispatchOrder, sampleResults()).Serialize()

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		// Rebuild the map in a random insertion order, as concurrent
		// completion would.
		src := sampleResults()
		keys := make([]types.ProviderName, 0, len(src))
		for k := range src {
			keys = append(keys, k)
		}
		rng.Shuffle(len(keys), func(a, b int) { keys[a], keys[b] = keys[b], keys[a] })
		shuffled := make(map[types.ProviderName]types.ProviderResult, len(src))
		for _, k := range keys {
			shuffled[k] = src[k]
		}

		assert.Equal(t, want, Aggregate(dispatchOrder, shuffled).Serialize())
	}
}

func TestSerialize(t *testing.T) {
	in := SynthesisInput{Sections: []Section{{
		Provider: types.ProviderArxiv,
		Items:    []types.ResultItem{{Title: "A <b> & C", SourceURL: "https://arxiv.org/abs/1"}},
	}}}
	got := in.Serialize()

	assert.Contains(t, got, `"provider": "arxiv"`)
	assert.Contains(t, got, `"title": "A <b> & C"`, "HTML is not escaped")
	assert.NotContains(t, got, "\n\n")
	assert.Equal(t, len(got), in.Len())
}
