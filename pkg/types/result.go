// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ProviderStatus is the terminal state of one provider call.
type ProviderStatus string

const (
	StatusSuccess ProviderStatus = "success"
	StatusError   ProviderStatus = "error"
	StatusTimeout ProviderStatus = "timeout"
)

// ResultItem is one normalized record returned by a provider.
type ResultItem struct {
	// Title is the document, page, or paper title.
	Title string `json:"title" yaml:"title"`

	// Snippet is an abstract, summary, or search snippet.
	Snippet string `json:"snippet" yaml:"snippet"`

	// SourceURL links back to the original document.
	SourceURL string `json:"source_url" yaml:"source_url"`

	// Extra holds provider-specific fields (authors, cited_by, published...).
	Extra map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// ProviderResult is the outcome of dispatching one provider. Items is empty
// unless Status is success.
type ProviderResult struct {
	Provider    ProviderName   `json:"provider" yaml:"provider"`
	Status      ProviderStatus `json:"status" yaml:"status"`
	Items       []ResultItem   `json:"items" yaml:"items"`
	ErrorDetail string         `json:"error_detail,omitempty" yaml:"error_detail,omitempty"`

	// Duration is how long the provider took to reach its terminal state.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// OK reports whether the provider succeeded.
func (r ProviderResult) OK() bool { return r.Status == StatusSuccess }

// TraceEntry is one stage record of an execution trace.
type TraceEntry struct {
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Stage     string         `json:"stage" yaml:"stage"`
	Payload   map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// PipelineResponse is the terminal artifact of one request.
type PipelineResponse struct {
	RequestID       string                          `json:"request_id" yaml:"request_id"`
	Query           string                          `json:"query" yaml:"query"`
	StartedAt       time.Time                       `json:"started_at" yaml:"started_at"`
	Duration        time.Duration                   `json:"duration" yaml:"duration"`
	Classification  Classification                  `json:"classification" yaml:"classification"`
	ProviderResults map[ProviderName]ProviderResult `json:"provider_results" yaml:"provider_results"`
	Synthesis       string                          `json:"synthesis" yaml:"synthesis"`
	Trace           []TraceEntry                    `json:"trace" yaml:"trace"`
}

// Succeeded returns the number of providers that returned results.
func (r *PipelineResponse) Succeeded() int {
	n := 0
	for _, pr := range r.ProviderResults {
		if pr.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of providers that errored or timed out.
func (r *PipelineResponse) Failed() int {
	return len(r.ProviderResults) - r.Succeeded()
}
