// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/answer-engine/pkg/types"
)

func dialWS(t *testing.T, h http.Handler) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestWebSocketAnswersQueries(t *testing.T) {
	hist := &memHistory{saved: map[string]*types.PipelineResponse{}}
	conn := dialWS(t, New(Config{Runner: &fakeRunner{}, History: hist}))

	require.NoError(t, conn.WriteJSON(SearchRequest{Query: "what is rag", Options: RequestOptions{Providers: []string{"arxiv"}}}))

	start := readFrame(t, conn)
	assert.Equal(t, FrameStart, start.Type)
	assert.Equal(t, "what is rag", start.Query)
	_, err := time.Parse(time.RFC3339, start.Timestamp)
	assert.NoError(t, err)

	result := readFrame(t, conn)
	assert.Equal(t, FrameResult, result.Type)
	require.NotNil(t, result.Data)
	assert.Equal(t, "req-1", result.Data.RequestID)
	assert.Equal(t, "what is rag", result.Data.Query)
	assert.Equal(t, "answer", result.Data.Synthesis)

	complete := readFrame(t, conn)
	assert.Equal(t, FrameComplete, complete.Type)
	assert.NotEmpty(t, complete.Timestamp)

	// The connection stays open for the next query.
	require.NoError(t, conn.WriteJSON(SearchRequest{Query: "second"}))
	assert.Equal(t, FrameStart, readFrame(t, conn).Type)
	assert.Equal(t, "second", readFrame(t, conn).Data.Query)
	assert.Equal(t, FrameComplete, readFrame(t, conn).Type)

	hist.mu.Lock()
	defer hist.mu.Unlock()
	assert.Contains(t, hist.saved, "req-1")
}

func TestWebSocketErrorFrames(t *testing.T) {
	tests := []struct {
		name    string
		runner  *fakeRunner
		message string
		want    string
		started bool
	}{
		{name: "empty query", runner: &fakeRunner{}, message: `{"query":""}`, want: "query is required"},
		{name: "not json", runner: &fakeRunner{}, message: `hello`, want: "invalid request"},
		{name: "unknown provider", runner: &fakeRunner{}, message: `{"query":"q","options":{"providers":["altavista"]}}`, want: "altavista"},
		{name: "bad timeout", runner: &fakeRunner{}, message: `{"query":"q","options":{"per_provider_timeout":"soon"}}`, want: "per_provider_timeout"},
		{name: "pipeline failure", runner: &fakeRunner{err: errors.New("boom")}, message: `{"query":"q"}`, want: "boom", started: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dialWS(t, New(Config{Runner: tt.runner}))
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.message)))

			if tt.started {
				assert.Equal(t, FrameStart, readFrame(t, conn).Type)
			}
			f := readFrame(t, conn)
			assert.Equal(t, FrameError, f.Type)
			assert.Contains(t, f.Message, tt.want)
			assert.Nil(t, f.Data)

			// An error frame does not end the session.
			require.NoError(t, conn.WriteJSON(SearchRequest{Query: ""}))
			assert.Equal(t, "query is required", readFrame(t, conn).Message)
		})
	}
}

func TestWebSocketRejectsPlainHTTP(t *testing.T) {
	rec := do(t, New(Config{Runner: &fakeRunner{}}), http.MethodGet, "/ws", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
