// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate turns the per-provider results of one dispatch into the
// ordered evidence set handed to synthesis.
package aggregate

import (
	"bytes"
	"encoding/json"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// Section is the evidence contributed by one successful provider.
type Section struct {
	Provider types.ProviderName `json:"provider"`
	Items    []types.ResultItem `json:"items"`
}

// SynthesisInput is the successful-only evidence, in dispatch order. It is
// derived per request and never cached.
type SynthesisInput struct {
	Sections []Section `json:"sources"`
}

// Aggregate keeps the successful results, ordered by the dispatch order in
// order. Providers present in results but absent from order are ignored;
// completion order never matters.
func Aggregate(order []types.ProviderName, results map[types.ProviderName]types.ProviderResult) SynthesisInput {
	var in SynthesisInput
	seen := make(map[types.ProviderName]bool, len(order))
	for _, name := range order {
		if seen[name] {
			continue
		}
		seen[name] = true
		r, ok := results[name]
		if !ok || !r.OK() {
			continue
		}
		in.Sections = append(in.Sections, Section{Provider: name, Items: r.Items})
	}
	return in
}

// IsEmpty reports whether no provider succeeded.
func (in SynthesisInput) IsEmpty() bool { return len(in.Sections) == 0 }

// ItemCount is the total number of items across sections.
func (in SynthesisInput) ItemCount() int {
	n := 0
	for _, s := range in.Sections {
		n += len(s.Items)
	}
	return n
}

// Providers lists the contributing providers in order.
func (in SynthesisInput) Providers() []types.ProviderName {
	out := make([]types.ProviderName, len(in.Sections))
	for i, s := range in.Sections {
		out[i] = s.Provider
	}
	return out
}

// Serialize renders the input as indented JSON. The output is identical for
// identical inputs. HTML characters are left unescaped since the text goes
// into a prompt, not a page.
func (in SynthesisInput) Serialize() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	sections := in.Sections
	if sections == nil {
		sections = []Section{}
	}
	if err := enc.Encode(SynthesisInput{Sections: sections}); err != nil {
		// Items hold only strings and JSON-decoded values.
		return "{}"
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Len is the length in bytes of Serialize's output.
func (in SynthesisInput) Len() int { return len(in.Serialize()) }
