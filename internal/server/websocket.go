// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/pkg/types"
)

const (
	wsWriteWait    = 10 * time.Second
	wsMaxReadBytes = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Frame is one server message on /ws. Every query produces either an
// error frame or start, result and complete in that order.
type Frame struct {
	Type      string                  `json:"type"`
	Query     string                  `json:"query,omitempty"`
	Message   string                  `json:"message,omitempty"`
	Data      *types.PipelineResponse `json:"data,omitempty"`
	Timestamp string                  `json:"timestamp,omitempty"`
}

// Frame types.
const (
	FrameStart    = "start"
	FrameResult   = "result"
	FrameComplete = "complete"
	FrameError    = "error"
)

// handleWebSocket answers SearchRequest messages one at a time until the
// client disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxReadBytes)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		if err := s.answerFrame(r.Context(), conn, msg); err != nil {
			s.logger.Warn("websocket write failed", zap.Error(err))
			return
		}
	}
}

// answerFrame handles one client message. Only write failures are
// returned; query problems go back to the client as error frames.
func (s *Server) answerFrame(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	var req SearchRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return writeFrame(conn, Frame{Type: FrameError, Message: "invalid request: " + err.Error()})
	}
	if req.Query == "" {
		return writeFrame(conn, Frame{Type: FrameError, Message: "query is required"})
	}
	opts, err := req.Options.toOptions()
	if err != nil {
		return writeFrame(conn, Frame{Type: FrameError, Message: err.Error()})
	}

	if err := writeFrame(conn, Frame{Type: FrameStart, Query: req.Query, Timestamp: now()}); err != nil {
		return err
	}

	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}
	resp, err := s.runner.Run(ctx, req.Query, opts)
	if err != nil {
		return writeFrame(conn, Frame{Type: FrameError, Message: err.Error()})
	}
	s.archive(context.WithoutCancel(ctx), resp)

	if err := writeFrame(conn, Frame{Type: FrameResult, Data: resp}); err != nil {
		return err
	}
	return writeFrame(conn, Frame{Type: FrameComplete, Timestamp: now()})
}

func writeFrame(conn *websocket.Conn, f Frame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(f)
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }
