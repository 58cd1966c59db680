package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseProviderName(t *testing.T) {
	tests := []struct {
		in   string
		want ProviderName
		ok   bool
	}{
		{"arxiv", ProviderArxiv, true},
		{" Wikipedia ", ProviderWikipedia, true},
		{"google-scholar", ProviderScholar, true},
		{"scholar", ProviderScholar, true},
		{"OpenAlex", ProviderOpenAlex, true},
		{"web_search", ProviderWeb, true},
		{"google", ProviderWeb, true},
		{"bing", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseProviderName(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseQueryType(t *testing.T) {
	assert.Equal(t, QueryAcademic, ParseQueryType("Academic"))
	assert.Equal(t, QueryGeneral, ParseQueryType("general"))
	assert.Equal(t, QueryMixed, ParseQueryType("mixed"))
	assert.Equal(t, QueryMixed, ParseQueryType("混合"))
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, Options{}.Validate())
	assert.Error(t, Options{MaxProviders: -1}.Validate())
	assert.Error(t, Options{PerProviderTimeout: -time.Second}.Validate())
	assert.Error(t, Options{MaxSynthesisTokens: -5}.Validate())
}

func TestOptionsWithDefaults(t *testing.T) {
	cfg := DefaultConfig().Pipeline
	got := Options{MaxProviders: 2}.WithDefaults(cfg)

	assert.Equal(t, 2, got.MaxProviders)
	assert.Equal(t, DefaultPerProviderTimeout, got.PerProviderTimeout)
	assert.Equal(t, DefaultMaxSynthesisTokens, got.MaxSynthesisTokens)
}

func TestProvidersConfigCapFor(t *testing.T) {
	cfg := ProvidersConfig{MaxItems: 3, ItemCaps: map[string]int{"arxiv": 5}}
	assert.Equal(t, 5, cfg.CapFor(ProviderArxiv))
	assert.Equal(t, 3, cfg.CapFor(ProviderWikipedia))
	assert.Equal(t, DefaultMaxItems, ProvidersConfig{}.CapFor(ProviderWeb))
}

func TestPipelineResponseCounts(t *testing.T) {
	r := &PipelineResponse{ProviderResults: map[ProviderName]ProviderResult{
		ProviderArxiv:     {Provider: ProviderArxiv, Status: StatusSuccess},
		ProviderWikipedia: {Provider: ProviderWikipedia, Status: StatusTimeout},
		ProviderScholar:   {Provider: ProviderScholar, Status: StatusError},
	}}
	assert.Equal(t, 1, r.Succeeded())
	assert.Equal(t, 2, r.Failed())
}
