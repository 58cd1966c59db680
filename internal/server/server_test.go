// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/answer-engine/internal/archive"
	"github.com/pdiddy/answer-engine/internal/pipeline"
	"github.com/pdiddy/answer-engine/pkg/types"
)

type fakeRunner struct {
	query string
	opts  types.Options
	err   error
}

func (f *fakeRunner) Run(_ context.Context, query string, opts types.Options) (*types.PipelineResponse, error) {
	f.query, f.opts = query, opts
	if f.err != nil {
		return nil, f.err
	}
	return &types.PipelineResponse{
		RequestID: "req-1",
		Query:     query,
		ProviderResults: map[types.ProviderName]types.ProviderResult{
			types.ProviderArxiv: {Provider: types.ProviderArxiv, Status: types.StatusSuccess, Items: []types.ResultItem{{Title: "A"}}},
		},
		Synthesis: "answer",
	}, nil
}

type memHistory struct {
	mu    sync.Mutex
	saved map[string]*types.PipelineResponse
}

func (m *memHistory) Save(_ context.Context, resp *types.PipelineResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[resp.RequestID] = resp
	return nil
}

func (m *memHistory) List(_ context.Context, limit int, contains string) ([]archive.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var runs []archive.Run
	for id, r := range m.saved {
		if contains == "" || strings.Contains(r.Query, contains) {
			runs = append(runs, archive.Run{RequestID: id, Query: r.Query})
		}
	}
	return runs, nil
}

func (m *memHistory) Get(_ context.Context, id string) (*types.PipelineResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.saved[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s", archive.ErrNotFound, id)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSearch(t *testing.T) {
	runner := &fakeRunner{}
	hist := &memHistory{saved: map[string]*types.PipelineResponse{}}
	s := New(Config{Runner: runner, History: hist, RequestTimeout: time.Minute})

	rec := do(t, s, http.MethodPost, "/api/search",
		`{"query":"what is attention","options":{"providers":["arxiv","wikipedia"],"per_provider_timeout":"5s","max_providers":2}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp types.PipelineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "answer", resp.Synthesis)
	assert.Equal(t, types.StatusSuccess, resp.ProviderResults[types.ProviderArxiv].Status)

	assert.Equal(t, "what is attention", runner.query)
	assert.Equal(t, []types.ProviderName{types.ProviderArxiv, types.ProviderWikipedia}, runner.opts.Providers)
	assert.Equal(t, 5*time.Second, runner.opts.PerProviderTimeout)
	assert.Equal(t, 2, runner.opts.MaxProviders)

	assert.Contains(t, hist.saved, "req-1")
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeRunner
		body   string
		code   int
	}{
		{name: "bad json", runner: &fakeRunner{}, body: `{"query":`, code: http.StatusBadRequest},
		{name: "unknown provider", runner: &fakeRunner{}, body: `{"query":"q","options":{"providers":["bing"]}}`, code: http.StatusBadRequest},
		{name: "bad timeout", runner: &fakeRunner{}, body: `{"query":"q","options":{"per_provider_timeout":"soon"}}`, code: http.StatusBadRequest},
		{name: "fatal pipeline error", runner: &fakeRunner{err: &pipeline.FatalError{Err: pipeline.ErrEmptyQuery}}, body: `{"query":""}`, code: http.StatusBadRequest},
		{name: "unexpected error", runner: &fakeRunner{err: errors.New("boom")}, body: `{"query":"q"}`, code: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, New(Config{Runner: tt.runner}), http.MethodPost, "/api/search", tt.body)
			assert.Equal(t, tt.code, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHealthAndIndex(t *testing.T) {
	s := New(Config{Runner: &fakeRunner{}, Providers: []types.ProviderName{types.ProviderArxiv}})

	rec := do(t, s, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, []any{"arxiv"}, health["providers"])

	rec = do(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "POST /api/search")

	rec = do(t, s, http.MethodGet, "/api/search", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	hist := &memHistory{saved: map[string]*types.PipelineResponse{
		"r1": {RequestID: "r1", Query: "protein folding"},
	}}
	s := New(Config{Runner: &fakeRunner{}, History: hist})

	rec := do(t, s, http.MethodGet, "/api/history?q=protein", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []archive.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].RequestID)

	rec = do(t, s, http.MethodGet, "/api/history/r1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "protein folding")

	rec = do(t, s, http.MethodGet, "/api/history/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	disabled := New(Config{Runner: &fakeRunner{}})
	rec = do(t, disabled, http.MethodGet, "/api/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
