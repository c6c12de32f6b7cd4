package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceflow/api/handlers"
	"github.com/BaSui01/voiceflow/asr"
	"github.com/BaSui01/voiceflow/config"
	"github.com/BaSui01/voiceflow/internal/metrics"
	"github.com/BaSui01/voiceflow/internal/server"
	"github.com/BaSui01/voiceflow/internal/telemetry"
	"github.com/BaSui01/voiceflow/llm"
	"github.com/BaSui01/voiceflow/session"
	"github.com/BaSui01/voiceflow/stream"
	"github.com/BaSui01/voiceflow/tts"
)

// Server bundles the API listener, the metrics listener, and the shared
// session store.
type Server struct {
	cfg            *config.Config
	logger         *zap.Logger
	store          session.Store
	apiManager     *server.Manager
	metricsManager *server.Manager
	telemetry      *telemetry.Providers
	cancel         context.CancelFunc
}

// NewServer wires the pipeline stages, the streaming orchestrator, and the
// HTTP surface from configuration.
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) (*Server, error) {
	collector := metrics.NewCollector("voiceflow", logger)

	store, err := buildStore(cfg, collector, logger)
	if err != nil {
		return nil, fmt.Errorf("build session store: %w", err)
	}

	asrSvc := asr.NewService(asr.NewStubBackend(), collector, logger)
	llmSvc := llm.NewService(llm.NewStubBackend(), collector, logger)
	ttsSvc := tts.NewService(tts.NewStubBackend(), collector, logger)

	orch := stream.NewOrchestrator(asrSvc, llmSvc, ttsSvc, store, collector, logger, stream.Config{
		FragmentThreshold: cfg.Pipeline.FragmentThreshold,
		Voice:             cfg.Pipeline.Voice,
		BackendTimeout:    cfg.Pipeline.BackendTimeout,
	})

	pipeline := handlers.NewPipelineHandler(asrSvc, llmSvc, ttsSvc, store, logger)
	health := handlers.NewHealthHandler(nil, nil, nil, logger)
	streamHandler := handlers.NewStreamHandler(orch, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/transcribe", pipeline.Transcribe)
	mux.HandleFunc("POST /v1/chat", pipeline.Chat)
	mux.HandleFunc("POST /v1/tts", pipeline.Synthesize)
	mux.Handle("GET /v1/stream", streamHandler)
	mux.HandleFunc("GET /health", health.Health)
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteSuccess(w, map[string]string{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})
	if cfg.Server.UIDir != "" {
		mux.Handle("GET /ui/", http.StripPrefix("/ui/", http.FileServer(http.Dir(cfg.Server.UIDir))))
	}

	ctx, cancel := context.WithCancel(context.Background())

	middlewares := []Middleware{
		Recovery(logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(logger),
		MetricsMiddleware(collector),
		OTelTracing(),
		CORS(nil),
	}
	if cfg.Server.RateLimit > 0 {
		middlewares = append(middlewares, RateLimiter(ctx, cfg.Server.RateLimit, cfg.Server.RateBurst, logger))
	}
	if cfg.Auth.Enabled {
		skipPaths := []string{"/health", "/version"}
		middlewares = append(middlewares, APIKeyAuth(cfg.Auth.APIKeys, skipPaths, true, logger))
	}

	handler := Chain(mux, middlewares...)

	apiConfig := server.DefaultConfig()
	apiConfig.Addr = fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	apiConfig.ReadTimeout = cfg.Server.ReadTimeout
	apiConfig.WriteTimeout = cfg.Server.WriteTimeout
	apiConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsConfig := server.DefaultConfig()
	metricsConfig.Addr = fmt.Sprintf(":%d", cfg.Server.MetricsPort)

	return &Server{
		cfg:            cfg,
		logger:         logger,
		store:          store,
		apiManager:     server.NewManager(handler, apiConfig, logger),
		metricsManager: server.NewManager(metricsMux, metricsConfig, logger),
		telemetry:      otelProviders,
		cancel:         cancel,
	}, nil
}

// Start brings up the API and metrics listeners.
func (s *Server) Start() error {
	if s.cfg.Server.TLSCert != "" && s.cfg.Server.TLSKey != "" {
		if err := s.apiManager.StartTLS(s.cfg.Server.TLSCert, s.cfg.Server.TLSKey); err != nil {
			return err
		}
	} else {
		if err := s.apiManager.Start(); err != nil {
			return err
		}
	}
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("voiceflow serving",
		zap.String("api_addr", s.apiManager.Addr()),
		zap.String("metrics_addr", s.metricsManager.Addr()),
		zap.String("session_backend", s.cfg.Session.Backend),
	)
	return nil
}

// WaitForShutdown blocks until the API server stops, then releases the
// remaining resources.
func (s *Server) WaitForShutdown() {
	s.apiManager.WaitForShutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.metricsManager.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("metrics server shutdown failed", zap.Error(err))
	}

	s.cancel()

	if closer, ok := s.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error("session store close failed", zap.Error(err))
		}
	}

	if s.telemetry != nil {
		telemetryCtx, cancelTelemetry := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelTelemetry()
		if err := s.telemetry.Shutdown(telemetryCtx); err != nil {
			s.logger.Error("telemetry shutdown failed", zap.Error(err))
		}
	}
}

// buildStore selects the session store backend from configuration. Every
// backend reports capacity evictions through the collector.
func buildStore(cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) (session.Store, error) {
	sessConfig := session.Config{
		Window:   cfg.Session.Window,
		Capacity: cfg.Session.Capacity,
		TTL:      cfg.Session.TTL,
		OnEvict:  func(string) { collector.RecordSessionEviction() },
	}

	switch cfg.Session.Backend {
	case "memory":
		return session.NewMemoryStore(sessConfig, logger), nil
	case "redis":
		return session.NewRedisStore(session.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			PoolSize:  cfg.Redis.PoolSize,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, sessConfig, logger)
	case "sqlite":
		return session.NewSQLiteStore(cfg.Database.Path, sessConfig, logger)
	default:
		return nil, fmt.Errorf("unknown session backend: %s", cfg.Session.Backend)
	}
}
