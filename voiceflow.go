// Package voiceflow provides a top-level convenience entry point for
// assembling the voice pipeline with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/voiceflow"
//
//	p := voiceflow.New()
//	p := voiceflow.New(voiceflow.WithLogger(logger), voiceflow.WithFragmentThreshold(5))
//
// The returned pipeline uses the built-in stub backends and an in-memory
// session store; swap either via options. Servers that need configuration
// files, auth, and metrics ports should use cmd/voiceflow instead.
package voiceflow

import (
	"go.uber.org/zap"

	"github.com/BaSui01/voiceflow/asr"
	"github.com/BaSui01/voiceflow/internal/metrics"
	"github.com/BaSui01/voiceflow/llm"
	"github.com/BaSui01/voiceflow/session"
	"github.com/BaSui01/voiceflow/stream"
	"github.com/BaSui01/voiceflow/tts"
)

// Pipeline bundles the three stages, the session store, and the streaming
// orchestrator.
type Pipeline struct {
	ASR          *asr.Service
	LLM          *llm.Service
	TTS          *tts.Service
	Store        session.Store
	Orchestrator *stream.Orchestrator
}

// Option configures the pipeline created by [New].
type Option func(*options)

type options struct {
	logger       *zap.Logger
	store        session.Store
	asrBackend   asr.Backend
	llmBackend   llm.Backend
	ttsBackend   tts.Backend
	streamConfig stream.Config
	namespace    string
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithStore sets a custom session store.
func WithStore(store session.Store) Option {
	return func(o *options) { o.store = store }
}

// WithASRBackend replaces the stub transcription backend.
func WithASRBackend(backend asr.Backend) Option {
	return func(o *options) { o.asrBackend = backend }
}

// WithLLMBackend replaces the stub reply backend.
func WithLLMBackend(backend llm.Backend) Option {
	return func(o *options) { o.llmBackend = backend }
}

// WithTTSBackend replaces the stub synthesis backend.
func WithTTSBackend(backend tts.Backend) Option {
	return func(o *options) { o.ttsBackend = backend }
}

// WithFragmentThreshold overrides the reply-trigger threshold.
func WithFragmentThreshold(n int) Option {
	return func(o *options) { o.streamConfig.FragmentThreshold = n }
}

// WithVoice overrides the default synthesis voice.
func WithVoice(voice string) Option {
	return func(o *options) { o.streamConfig.Voice = voice }
}

// WithMetricsNamespace overrides the Prometheus namespace. Needed when two
// pipelines live in one process, since series register globally.
func WithMetricsNamespace(namespace string) Option {
	return func(o *options) { o.namespace = namespace }
}

// New assembles a pipeline.
func New(opts ...Option) *Pipeline {
	o := &options{
		logger:     zap.NewNop(),
		asrBackend: asr.NewStubBackend(),
		llmBackend: llm.NewStubBackend(),
		ttsBackend: tts.NewStubBackend(),
		namespace:  "voiceflow",
	}
	for _, opt := range opts {
		opt(o)
	}

	collector := metrics.NewCollector(o.namespace, o.logger)
	if o.store == nil {
		o.store = session.NewMemoryStore(session.DefaultConfig(), o.logger)
	}

	asrSvc := asr.NewService(o.asrBackend, collector, o.logger)
	llmSvc := llm.NewService(o.llmBackend, collector, o.logger)
	ttsSvc := tts.NewService(o.ttsBackend, collector, o.logger)

	return &Pipeline{
		ASR:          asrSvc,
		LLM:          llmSvc,
		TTS:          ttsSvc,
		Store:        o.store,
		Orchestrator: stream.NewOrchestrator(asrSvc, llmSvc, ttsSvc, o.store, collector, o.logger, o.streamConfig),
	}
}
