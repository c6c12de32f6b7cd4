package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceflow/internal/metrics"
	"github.com/BaSui01/voiceflow/lang"
	"github.com/BaSui01/voiceflow/session"
	"github.com/BaSui01/voiceflow/types"
)

// memoryTurns bounds how many trailing context turns are folded into the
// prompt prefix. Smaller than the store window on purpose: the store keeps
// more history than a single prompt should carry.
const memoryTurns = 5

// Backend is the language model behind the reply stage. It receives the
// user text, the target language, and a pre-rendered memory prefix.
type Backend interface {
	Generate(ctx context.Context, text string, language lang.Tag, memoryPrefix string) (string, error)
	Name() string
}

// Reply is a generated assistant response.
type Reply struct {
	Text    string         `json:"text"`
	Lang    lang.Tag       `json:"lang"`
	Context []session.Turn `json:"context"`
	TraceID string         `json:"trace_id"`
}

// Service wraps the reply backend with language normalization, context
// folding, latency recording, and structured completion logging.
type Service struct {
	backend Backend
	metrics *metrics.Collector
	logger  *zap.Logger
	tracer  oteltrace.Tracer
}

// NewService creates the reply stage.
func NewService(backend Backend, collector *metrics.Collector, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend: backend,
		metrics: collector,
		logger:  logger.With(zap.String("component", "llm")),
		tracer:  otel.Tracer("voiceflow/llm"),
	}
}

// GenerateReply produces an assistant reply in the normalized language,
// conditioned on the caller-provided context turns. The context slice is
// read only; persisting the exchange is the caller's responsibility.
func (s *Service) GenerateReply(ctx context.Context, text, langHint, sessionID string, contextTurns []session.Turn, traceID string) (*Reply, error) {
	ctx, span := s.tracer.Start(ctx, "llm.generate_reply",
		oteltrace.WithAttributes(attribute.String("trace_id", traceID)))
	defer span.End()

	start := time.Now()

	language := lang.Normalize(langHint)
	prefix := MemoryPrefix(contextTurns)

	reply, err := s.backend.Generate(ctx, text, language, prefix)
	if err != nil {
		s.metrics.RecordStage("llm", "error", time.Since(start))
		return nil, types.NewError(types.ErrBackendFailure, "reply backend failed").
			WithCause(err).WithStage("llm").WithTraceID(traceID).WithRetryable(true)
	}

	latency := time.Since(start)
	s.metrics.RecordStage("llm", "ok", latency)
	s.logger.Info("llm_complete",
		zap.String("trace_id", traceID),
		zap.String("session_id", sessionID),
		zap.String("lang", string(language)),
		zap.Int("context_turns", len(contextTurns)),
		zap.Int64("latency_ms", latency.Milliseconds()),
	)

	if contextTurns == nil {
		contextTurns = []session.Turn{}
	}
	return &Reply{
		Text:    reply,
		Lang:    language,
		Context: contextTurns,
		TraceID: traceID,
	}, nil
}

// MemoryPrefix renders the trailing context turns into the prompt prefix.
// Empty context yields the empty string so context-free prompts stay clean.
func MemoryPrefix(turns []session.Turn) string {
	if len(turns) == 0 {
		return ""
	}
	tail := turns
	if len(tail) > memoryTurns {
		tail = tail[len(tail)-memoryTurns:]
	}
	parts := make([]string, 0, len(tail))
	for _, turn := range tail {
		parts = append(parts, fmt.Sprintf("%s: %s", turn.Role, turn.Text))
	}
	return fmt.Sprintf("Contexto: %s. ", strings.Join(parts, " | "))
}
