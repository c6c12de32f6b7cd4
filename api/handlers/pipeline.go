package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceflow/asr"
	"github.com/BaSui01/voiceflow/lang"
	"github.com/BaSui01/voiceflow/llm"
	"github.com/BaSui01/voiceflow/session"
	"github.com/BaSui01/voiceflow/trace"
	"github.com/BaSui01/voiceflow/tts"
	"github.com/BaSui01/voiceflow/types"
)

// TranscribeRequest is the one-shot transcription input.
type TranscribeRequest struct {
	Audio     string `json:"audio"`
	SessionID string `json:"sessionId,omitempty"`
	TraceID   string `json:"traceId,omitempty"`
	Lang      string `json:"lang,omitempty"`
}

// TranscribeResponse is the one-shot transcription output.
type TranscribeResponse struct {
	Text       string    `json:"text"`
	Lang       lang.Tag  `json:"lang"`
	Timestamps []float64 `json:"timestamps"`
	TraceID    string    `json:"traceId"`
}

// ChatRequest is the reply generation input.
type ChatRequest struct {
	Text      string `json:"text"`
	Lang      string `json:"lang,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	TraceID   string `json:"traceId,omitempty"`
}

// ChatResponse is the reply generation output.
type ChatResponse struct {
	Reply   string         `json:"reply"`
	Lang    lang.Tag       `json:"lang"`
	Context []session.Turn `json:"context"`
	TraceID string         `json:"traceId"`
}

// SynthesizeRequest is the synthesis input. Lang is required and must be a
// supported tag.
type SynthesizeRequest struct {
	Text    string `json:"text"`
	Lang    string `json:"lang"`
	Voice   string `json:"voice,omitempty"`
	TraceID string `json:"traceId,omitempty"`
}

// SynthesizeResponse is the synthesis output.
type SynthesizeResponse struct {
	Audio      string `json:"audio"`
	DurationMS int64  `json:"durationMs"`
	TraceID    string `json:"traceId"`
}

// PipelineHandler serves the three one-shot pipeline endpoints.
type PipelineHandler struct {
	asr    *asr.Service
	llm    *llm.Service
	tts    *tts.Service
	store  session.Store
	logger *zap.Logger
}

// NewPipelineHandler wires the pipeline stages and the session store.
func NewPipelineHandler(asrSvc *asr.Service, llmSvc *llm.Service, ttsSvc *tts.Service, store session.Store, logger *zap.Logger) *PipelineHandler {
	return &PipelineHandler{
		asr:    asrSvc,
		llm:    llmSvc,
		tts:    ttsSvc,
		store:  store,
		logger: logger.With(zap.String("handler", "pipeline")),
	}
}

// Transcribe handles POST /v1/transcribe.
func (h *PipelineHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req TranscribeRequest
	if DecodeJSONBody(w, r, &req, h.logger) != nil {
		return
	}
	if req.Audio == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrValidation, "audio is required", h.logger)
		return
	}

	traceID := trace.Ensure(req.TraceID)
	result, err := h.asr.Transcribe(r.Context(), req.Audio, traceID, req.SessionID)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	WriteSuccess(w, TranscribeResponse{
		Text:       result.Text,
		Lang:       result.Lang,
		Timestamps: result.Timestamps,
		TraceID:    result.TraceID,
	})
}

// Chat handles POST /v1/chat. On success it appends the user turn and the
// assistant turn to the session context, in that order.
func (h *PipelineHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req ChatRequest
	if DecodeJSONBody(w, r, &req, h.logger) != nil {
		return
	}
	if req.Text == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrValidation, "text is required", h.logger)
		return
	}

	traceID := trace.Ensure(req.TraceID)
	ctx := r.Context()

	var contextTurns []session.Turn
	if req.SessionID != "" {
		turns, ok, err := h.store.Get(ctx, req.SessionID)
		if err != nil {
			h.logger.Warn("session context unavailable",
				zap.String("trace_id", traceID), zap.Error(err))
		} else if ok {
			contextTurns = turns
		}
	}

	reply, err := h.llm.GenerateReply(ctx, req.Text, req.Lang, req.SessionID, contextTurns, traceID)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	if req.SessionID != "" {
		turns := []session.Turn{
			{Role: types.RoleUser, Text: req.Text, Lang: reply.Lang},
			{Role: types.RoleAssistant, Text: reply.Text, Lang: reply.Lang},
		}
		for _, turn := range turns {
			if err := h.store.Append(ctx, req.SessionID, turn); err != nil {
				h.logger.Warn("session append failed",
					zap.String("trace_id", traceID), zap.Error(err))
				break
			}
		}
	}

	WriteSuccess(w, ChatResponse{
		Reply:   reply.Text,
		Lang:    reply.Lang,
		Context: reply.Context,
		TraceID: reply.TraceID,
	})
}

// Synthesize handles POST /v1/tts. Lang is validated against the supported
// set before the stage runs.
func (h *PipelineHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req SynthesizeRequest
	if DecodeJSONBody(w, r, &req, h.logger) != nil {
		return
	}
	if req.Text == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrValidation, "text is required", h.logger)
		return
	}
	if !lang.IsSupported(req.Lang) {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrValidation,
			"lang must be one of: de, en, es, pt", h.logger)
		return
	}

	traceID := trace.Ensure(req.TraceID)
	result, err := h.tts.Synthesize(r.Context(), req.Text, req.Lang, req.Voice, traceID)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	WriteSuccess(w, SynthesizeResponse{
		Audio:      base64.StdEncoding.EncodeToString(result.Audio),
		DurationMS: result.DurationMS,
		TraceID:    result.TraceID,
	})
}

func (h *PipelineHandler) writePipelineError(w http.ResponseWriter, err error) {
	var apiErr *types.Error
	if errors.As(err, &apiErr) {
		WriteError(w, apiErr, h.logger)
		return
	}
	WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError, err.Error(), h.logger)
}
