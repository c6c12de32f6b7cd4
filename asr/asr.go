package asr

import (
	"context"
	"encoding/base64"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceflow/internal/metrics"
	"github.com/BaSui01/voiceflow/lang"
	"github.com/BaSui01/voiceflow/types"
)

// Backend is the external acoustic transcription model. Implementations
// receive a decoded audio buffer plus the resolved language and return the
// recognized text. They must be replaceable and independently failable.
type Backend interface {
	Transcribe(ctx context.Context, audio []byte, language lang.Tag) (string, error)
	Name() string
}

// Result is a complete transcription.
type Result struct {
	Text       string    `json:"text"`
	Lang       lang.Tag  `json:"lang"`
	Timestamps []float64 `json:"timestamps"`
	TraceID    string    `json:"trace_id"`
}

// ChunkResult is a streaming partial transcription.
type ChunkResult struct {
	Text    string   `json:"text"`
	Lang    lang.Tag `json:"lang"`
	TraceID string   `json:"trace_id"`
}

// Service wraps the transcription backend with language resolution,
// latency recording, and structured completion logging.
type Service struct {
	backend Backend
	metrics *metrics.Collector
	logger  *zap.Logger
	tracer  oteltrace.Tracer
}

// NewService creates the transcription stage.
func NewService(backend Backend, collector *metrics.Collector, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend: backend,
		metrics: collector,
		logger:  logger.With(zap.String("component", "asr")),
		tracer:  otel.Tracer("voiceflow/asr"),
	}
}

// Transcribe decodes a base64 audio payload, detects its language, and
// produces a complete transcription. The call either succeeds with full
// text or fails; no partial text is ever returned.
func (s *Service) Transcribe(ctx context.Context, audioBase64, traceID, sessionID string) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "asr.transcribe",
		oteltrace.WithAttributes(attribute.String("trace_id", traceID)))
	defer span.End()

	start := time.Now()

	audio, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		s.metrics.RecordStage("asr", "decode_error", time.Since(start))
		return nil, types.NewError(types.ErrDecode, "audio payload is not valid base64").
			WithCause(err).WithStage("asr").WithTraceID(traceID)
	}
	if len(audio) == 0 {
		s.metrics.RecordStage("asr", "decode_error", time.Since(start))
		return nil, types.NewError(types.ErrDecode, "audio payload is empty").
			WithStage("asr").WithTraceID(traceID)
	}

	language := lang.Detect(audio)
	text, err := s.backend.Transcribe(ctx, audio, language)
	if err != nil {
		s.metrics.RecordStage("asr", "error", time.Since(start))
		return nil, types.NewError(types.ErrBackendFailure, "transcription backend failed").
			WithCause(err).WithStage("asr").WithTraceID(traceID).WithRetryable(true)
	}

	latency := time.Since(start)
	s.metrics.RecordStage("asr", "ok", latency)
	s.logger.Info("asr_complete",
		zap.String("trace_id", traceID),
		zap.String("session_id", sessionID),
		zap.String("lang", string(language)),
		zap.Int64("latency_ms", latency.Milliseconds()),
	)

	return &Result{
		Text:       text,
		Lang:       language,
		Timestamps: []float64{},
		TraceID:    traceID,
	}, nil
}

// TranscribeChunk transcribes one streaming audio frame. A non-"auto" hint
// is normalized and trusted; otherwise the language is detected from the
// frame itself. Logged at debug verbosity; completion events stay on the
// request/response path.
func (s *Service) TranscribeChunk(ctx context.Context, audio []byte, langHint, traceID string) (*ChunkResult, error) {
	ctx, span := s.tracer.Start(ctx, "asr.transcribe_chunk",
		oteltrace.WithAttributes(attribute.String("trace_id", traceID)))
	defer span.End()

	start := time.Now()

	if len(audio) == 0 {
		s.metrics.RecordStage("asr", "decode_error", time.Since(start))
		return nil, types.NewError(types.ErrDecode, "audio frame is empty").
			WithStage("asr").WithTraceID(traceID)
	}

	var language lang.Tag
	if langHint != lang.Auto && langHint != "" {
		language = lang.Normalize(langHint)
	} else {
		language = lang.Detect(audio)
	}

	text, err := s.backend.Transcribe(ctx, audio, language)
	if err != nil {
		s.metrics.RecordStage("asr", "error", time.Since(start))
		return nil, types.NewError(types.ErrBackendFailure, "transcription backend failed").
			WithCause(err).WithStage("asr").WithTraceID(traceID).WithRetryable(true)
	}

	s.metrics.RecordStage("asr", "ok", time.Since(start))
	s.logger.Debug("asr_stream_chunk",
		zap.String("trace_id", traceID),
		zap.String("lang", string(language)),
		zap.Int("chunk", len(audio)),
	)

	return &ChunkResult{Text: text, Lang: language, TraceID: traceID}, nil
}
