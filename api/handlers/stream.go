package handlers

import (
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceflow/stream"
)

// StreamHandler upgrades GET /v1/stream to a websocket and hands the
// connection to the orchestrator.
type StreamHandler struct {
	orch   *stream.Orchestrator
	logger *zap.Logger
}

// NewStreamHandler wires the streaming orchestrator.
func NewStreamHandler(orch *stream.Orchestrator, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		orch:   orch,
		logger: logger.With(zap.String("handler", "stream")),
	}
}

// ServeHTTP performs the websocket upgrade and runs the session loop until
// the peer disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	wsConn := stream.NewWSConn(conn)
	if err := h.orch.Run(r.Context(), wsConn); err != nil {
		h.logger.Warn("stream session ended with error", zap.Error(err))
	}
	_ = wsConn.Close(websocket.StatusNormalClosure, "")
}
