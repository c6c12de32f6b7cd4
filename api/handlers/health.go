package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// StatusOK is the healthy stage status.
const StatusOK = "ok"

// Probe reports one backend's status string ("ok" or a degraded status).
type Probe func(ctx context.Context) string

// StageHealth is the health payload, one status per pipeline stage.
type StageHealth struct {
	ASR string `json:"asr"`
	LLM string `json:"llm"`
	TTS string `json:"tts"`
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	asrProbe Probe
	llmProbe Probe
	ttsProbe Probe
	logger   *zap.Logger
}

// NewHealthHandler builds the health endpoint. Nil probes default to
// always-ok, which is correct for the built-in stub backends.
func NewHealthHandler(asrProbe, llmProbe, ttsProbe Probe, logger *zap.Logger) *HealthHandler {
	ok := func(context.Context) string { return StatusOK }
	if asrProbe == nil {
		asrProbe = ok
	}
	if llmProbe == nil {
		llmProbe = ok
	}
	if ttsProbe == nil {
		ttsProbe = ok
	}
	return &HealthHandler{
		asrProbe: asrProbe,
		llmProbe: llmProbe,
		ttsProbe: ttsProbe,
		logger:   logger.With(zap.String("handler", "health")),
	}
}

// Health reports per-stage status; 503 when any stage is degraded.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	health := StageHealth{
		ASR: h.asrProbe(ctx),
		LLM: h.llmProbe(ctx),
		TTS: h.ttsProbe(ctx),
	}

	status := http.StatusOK
	if health.ASR != StatusOK || health.LLM != StatusOK || health.TTS != StatusOK {
		status = http.StatusServiceUnavailable
		h.logger.Warn("health check degraded",
			zap.String("asr", health.ASR),
			zap.String("llm", health.LLM),
			zap.String("tts", health.TTS),
		)
	}

	WriteJSON(w, status, Response{
		Success:   status == http.StatusOK,
		Data:      health,
		Timestamp: time.Now(),
	})
}
