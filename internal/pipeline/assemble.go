// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"github.com/pdiddy/answer-engine/internal/trace"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Assemble combines the outputs of one request into its response. It has no
// side effects; tr should already be frozen. StartedAt and Duration are taken
// from the first and last trace entries.
func Assemble(query string, cls types.Classification, results map[types.ProviderName]types.ProviderResult, synthesis string, tr *trace.Trace) *types.PipelineResponse {
	entries := tr.Entries()
	if entries == nil {
		entries = []types.TraceEntry{}
	}
	copied := make(map[types.ProviderName]types.ProviderResult, len(results))
	for k, v := range results {
		copied[k] = v
	}

	resp := &types.PipelineResponse{
		RequestID:       tr.ID(),
		Query:           query,
		Classification:  cls,
		ProviderResults: copied,
		Synthesis:       synthesis,
		Trace:           entries,
	}
	if n := len(entries); n > 0 {
		resp.StartedAt = entries[0].Timestamp
		resp.Duration = entries[n-1].Timestamp.Sub(entries[0].Timestamp)
	}
	return resp
}
