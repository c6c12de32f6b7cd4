package tts

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceflow/internal/metrics"
	"github.com/BaSui01/voiceflow/lang"
	"github.com/BaSui01/voiceflow/types"
)

// DefaultVoice is used when the caller does not select a voice.
const DefaultVoice = "default"

// ChunkStream is a finite audio chunk producer. Next returns the next
// chunk and true, or nil and false once the stream is exhausted. Streams
// always terminate; there is no infinite producer.
type ChunkStream interface {
	Next() ([]byte, bool)
}

// Backend is the external synthesis model. Both calls are total for
// non-empty normalized input; failures surface as errors, never as
// truncated audio.
type Backend interface {
	Synthesize(ctx context.Context, text string, language lang.Tag, voice string) ([]byte, error)
	SynthesizeStream(ctx context.Context, text string, language lang.Tag, voice string) (ChunkStream, error)
	Name() string
}

// Result is a complete synthesis.
type Result struct {
	Audio      []byte   `json:"audio"`
	Lang       lang.Tag `json:"lang"`
	Voice      string   `json:"voice"`
	DurationMS int64    `json:"duration_ms"`
	TraceID    string   `json:"trace_id"`
}

// Service wraps the synthesis backend with language normalization, latency
// recording, and structured completion logging.
type Service struct {
	backend Backend
	metrics *metrics.Collector
	logger  *zap.Logger
	tracer  oteltrace.Tracer
}

// NewService creates the synthesis stage.
func NewService(backend Backend, collector *metrics.Collector, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend: backend,
		metrics: collector,
		logger:  logger.With(zap.String("component", "tts")),
		tracer:  otel.Tracer("voiceflow/tts"),
	}
}

// Synthesize produces the complete audio rendering of the text.
func (s *Service) Synthesize(ctx context.Context, text, langHint, voice, traceID string) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "tts.synthesize",
		oteltrace.WithAttributes(attribute.String("trace_id", traceID)))
	defer span.End()

	start := time.Now()

	if text == "" {
		s.metrics.RecordStage("tts", "validation_error", time.Since(start))
		return nil, types.NewError(types.ErrValidation, "text must not be empty").
			WithStage("tts").WithTraceID(traceID)
	}
	language := lang.Normalize(langHint)
	if voice == "" {
		voice = DefaultVoice
	}

	audio, err := s.backend.Synthesize(ctx, text, language, voice)
	if err != nil {
		s.metrics.RecordStage("tts", "error", time.Since(start))
		return nil, types.NewError(types.ErrBackendFailure, "synthesis backend failed").
			WithCause(err).WithStage("tts").WithTraceID(traceID).WithRetryable(true)
	}

	latency := time.Since(start)
	s.metrics.RecordStage("tts", "ok", latency)
	s.logger.Info("tts_complete",
		zap.String("trace_id", traceID),
		zap.String("lang", string(language)),
		zap.String("voice", voice),
		zap.Int("audio_bytes", len(audio)),
		zap.Int64("latency_ms", latency.Milliseconds()),
	)

	return &Result{
		Audio:      audio,
		Lang:       language,
		Voice:      voice,
		DurationMS: latency.Milliseconds(),
		TraceID:    traceID,
	}, nil
}

// SynthesizeStream produces a finite chunked rendering of the text. The
// returned stream yields at least one chunk for any accepted text.
func (s *Service) SynthesizeStream(ctx context.Context, text, langHint, voice, traceID string) (ChunkStream, error) {
	ctx, span := s.tracer.Start(ctx, "tts.synthesize_stream",
		oteltrace.WithAttributes(attribute.String("trace_id", traceID)))
	defer span.End()

	start := time.Now()

	language := lang.Normalize(langHint)
	if voice == "" {
		voice = DefaultVoice
	}

	stream, err := s.backend.SynthesizeStream(ctx, text, language, voice)
	if err != nil {
		s.metrics.RecordStage("tts", "error", time.Since(start))
		return nil, types.NewError(types.ErrBackendFailure, "synthesis backend failed").
			WithCause(err).WithStage("tts").WithTraceID(traceID).WithRetryable(true)
	}

	s.metrics.RecordStage("tts", "ok", time.Since(start))
	s.logger.Debug("tts_stream_started",
		zap.String("trace_id", traceID),
		zap.String("lang", string(language)),
		zap.String("voice", voice),
	)

	return stream, nil
}
