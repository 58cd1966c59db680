// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package trace records the per-request execution log. A Trace is owned by
// exactly one request; components append stage entries to it while the
// pipeline runs, and it becomes read-only once frozen.
package trace

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// Stage names shared by the pipeline components.
const (
	StageSearchStart            = "search_start"
	StageSearchComplete         = "search_complete"
	StageClassificationStart    = "classification_start"
	StageClassificationComplete = "classification_complete"
	StageClassificationError    = "classification_error"
	StageProvidersResolved      = "providers_resolved"
	StageParallelSearchStart    = "parallel_search_start"
	StageParallelSearchComplete = "parallel_search_complete"
	StageSummarizationStart     = "summarization_start"
	StageSummarizationComplete  = "summarization_complete"
	StageSummarizationError     = "summarization_error"
)

// ProviderStage returns the per-provider stage name, e.g. "arxiv_search_start".
// Suffix is one of "start", "complete", "error", "timeout".
func ProviderStage(p types.ProviderName, suffix string) string {
	return string(p) + "_search_" + suffix
}

// Trace is an append-only, concurrency-safe stage log.
type Trace struct {
	RequestID string

	mu      sync.Mutex
	entries []types.TraceEntry
	frozen  bool
	dropped int
	now     func() time.Time
}

// New returns an empty trace for the given request.
func New(requestID string) *Trace {
	return &Trace{RequestID: requestID, now: time.Now}
}

// ID returns the request id, or "" for a nil trace.
func (t *Trace) ID() string {
	if t == nil {
		return ""
	}
	return t.RequestID
}

// WithClock replaces the timestamp source. Intended for tests.
func (t *Trace) WithClock(now func() time.Time) *Trace {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
	return t
}

// Add appends one entry. It is safe to call from multiple goroutines. Adds on
// a nil or frozen trace are ignored.
func (t *Trace) Add(stage string, payload map[string]any) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen {
		t.dropped++
		return
	}
	t.entries = append(t.entries, types.TraceEntry{
		Timestamp: t.now(),
		Stage:     stage,
		Payload:   payload,
	})
}

// Freeze makes the trace read-only.
func (t *Trace) Freeze() {
	t.mu.Lock()
	t.frozen = true
	t.mu.Unlock()
}

// Dropped returns how many entries were rejected after Freeze.
func (t *Trace) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Entries returns a copy of the recorded entries in append order.
func (t *Trace) Entries() []types.TraceEntry {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.TraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Stages returns the stage names in append order.
func (t *Trace) Stages() []string {
	entries := t.Entries()
	stages := make([]string, len(entries))
	for i, e := range entries {
		stages[i] = e.Stage
	}
	return stages
}

// Len returns the number of recorded entries.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// MarshalJSON encodes the entries as a JSON array.
func (t *Trace) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Entries())
}
