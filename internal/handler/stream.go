package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/matthewbaird/reactivation/internal/profile"
	"github.com/matthewbaird/reactivation/internal/reactivation"
	"github.com/matthewbaird/reactivation/internal/types"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "analyze", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// AnalyzeData is the payload for "analyze" messages.
type AnalyzeData struct {
	Wells   []reactivation.WellInput `json:"wells"`
	Profile string                   `json:"profile,omitempty"`
	AsOf    string                   `json:"as_of,omitempty"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "result", "summary", "done", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// ResultData carries one well's result and its position in the batch.
type ResultData struct {
	Index  int                  `json:"index"`
	Result types.AnalysisResult `json:"result"`
}

// DoneData signals completion of a batch.
type DoneData struct {
	Total   int    `json:"total"`
	Elapsed string `json:"elapsed"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StreamHandler streams batch analysis results over a WebSocket, one
// message per well as it is scored.
type StreamHandler struct {
	analysis *AnalysisHandler
	origins  []string
}

// NewStreamHandler creates a StreamHandler. origins lists the accepted
// Origin host patterns; empty means same-origin only.
func NewStreamHandler(h *AnalysisHandler, origins []string) *StreamHandler {
	return &StreamHandler{analysis: h, origins: origins}
}

// ServeHTTP upgrades to WebSocket and runs the message loop.
// GET /v1/batches/stream
func (s *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		log.Printf("stream: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("stream: connection closed: %v", websocket.CloseStatus(err))
			}
			return
		}

		switch msg.Type {
		case "analyze":
			s.handleAnalyze(ctx, conn, msg)
		case "ping":
			s.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			s.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (s *StreamHandler) handleAnalyze(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	start := time.Now()

	var data AnalyzeData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		s.sendError(ctx, conn, msg.ID, "invalid_data", "invalid analyze data")
		return
	}
	if len(data.Wells) == 0 {
		s.sendError(ctx, conn, msg.ID, "empty_batch", "wells must not be empty")
		return
	}
	asOf, err := parseAsOf(data.AsOf)
	if err != nil {
		s.sendError(ctx, conn, msg.ID, "invalid_as_of", err.Error())
		return
	}
	pl, err := s.analysis.pipelineFor(data.Profile)
	if err != nil {
		code := "internal_error"
		if errors.Is(err, profile.ErrUnknownProfile) {
			code = "unknown_profile"
		}
		s.sendError(ctx, conn, msg.ID, code, err.Error())
		return
	}

	results := make([]types.AnalysisResult, 0, len(data.Wells))
	for i, in := range data.Wells {
		if ctx.Err() != nil {
			return
		}
		res := pl.Analyze(ctx, in, asOf)
		results = append(results, res)
		s.send(ctx, conn, ServerMessage{
			Type:      "result",
			RequestID: msg.ID,
			Data:      ResultData{Index: i, Result: res},
		})
	}

	summary, err := reactivation.Summarize(results, pl.Analyzer().Config().Bands)
	if err != nil {
		s.sendError(ctx, conn, msg.ID, "summary_error", err.Error())
		return
	}
	s.send(ctx, conn, ServerMessage{Type: "summary", RequestID: msg.ID, Data: summary})
	s.send(ctx, conn, ServerMessage{
		Type:      "done",
		RequestID: msg.ID,
		Data: DoneData{
			Total:   len(results),
			Elapsed: time.Since(start).String(),
		},
	})
}

func (s *StreamHandler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		log.Printf("stream: write error: %v", err)
	}
}

func (s *StreamHandler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	s.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}
