package stream

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceflow/asr"
	"github.com/BaSui01/voiceflow/internal/metrics"
	"github.com/BaSui01/voiceflow/lang"
	"github.com/BaSui01/voiceflow/llm"
	"github.com/BaSui01/voiceflow/session"
	"github.com/BaSui01/voiceflow/trace"
	"github.com/BaSui01/voiceflow/tts"
	"github.com/BaSui01/voiceflow/types"
)

// MessageConn is the transport seen by the orchestrator. Implementations
// decode frames into Inbound variants and deliver outbound events; they do
// not interpret the protocol.
type MessageConn interface {
	Receive(ctx context.Context) (Inbound, error)
	SendJSON(ctx context.Context, event Event) error
	SendBinary(ctx context.Context, frame []byte) error
}

// Config tunes one orchestrator instance. Zero values fall back to the
// defaults below.
type Config struct {
	// FragmentThreshold is the accumulated fragment count that triggers a
	// reply cycle.
	FragmentThreshold int
	// Voice selects the synthesis voice for streamed replies.
	Voice string
	// BackendTimeout bounds each transcription, reply, and synthesis call.
	// Expiry aborts the chunk or cycle, never the connection.
	BackendTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.FragmentThreshold <= 0 {
		c.FragmentThreshold = 3
	}
	if c.Voice == "" {
		c.Voice = tts.DefaultVoice
	}
	if c.BackendTimeout <= 0 {
		c.BackendTimeout = 10 * time.Second
	}
	return c
}

// Orchestrator drives the per-connection session state machine
// (AwaitingStart -> Streaming -> Closed). One Run call owns one connection;
// instances are safe to share across connections.
type Orchestrator struct {
	asr     *asr.Service
	llm     *llm.Service
	tts     *tts.Service
	store   session.Store
	metrics *metrics.Collector
	logger  *zap.Logger
	cfg     Config
}

// NewOrchestrator wires the three pipeline stages and the session store.
func NewOrchestrator(asrSvc *asr.Service, llmSvc *llm.Service, ttsSvc *tts.Service, store session.Store, collector *metrics.Collector, logger *zap.Logger, cfg Config) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		asr:     asrSvc,
		llm:     llmSvc,
		tts:     ttsSvc,
		store:   store,
		metrics: collector,
		logger:  logger.With(zap.String("component", "stream")),
		cfg:     cfg.withDefaults(),
	}
}

// streamingSession is the orchestrator-local state for one connection. It
// never outlives the connection.
type streamingSession struct {
	id        string
	langHint  string
	traceID   string
	fragments []string
	fragLangs []string
}

func (s *streamingSession) clear() {
	s.fragments = s.fragments[:0]
	s.fragLangs = s.fragLangs[:0]
}

// Run processes one connection to completion. Messages are handled strictly
// in arrival order; a reply cycle finishes emitting before the next message
// is read. The returned error is nil for every orderly close, including a
// peer that never sent a start message.
func (o *Orchestrator) Run(ctx context.Context, conn MessageConn) error {
	o.metrics.ConnectionOpened()
	defer o.metrics.ConnectionClosed()

	sess, ok := o.awaitStart(ctx, conn)
	if !ok {
		return nil
	}

	logger := o.logger.With(
		zap.String("trace_id", sess.traceID),
		zap.String("session_id", sess.id),
	)
	logger.Info("stream_session_started", zap.String("lang", sess.langHint))

	for {
		in, err := conn.Receive(ctx)
		if err != nil || in.Kind == KindDisconnect {
			logger.Info("stream_session_closed")
			return nil
		}

		switch in.Kind {
		case KindAudio:
			o.handleAudioChunk(ctx, conn, sess, in.Audio)
		case KindText:
			if in.Text == "" {
				continue
			}
			o.metrics.RecordEvent(EventError)
			if err := conn.SendJSON(ctx, errorEvent(CodeUnexpectedText, sess.traceID)); err != nil {
				return nil
			}
		}

		if len(sess.fragments) >= o.cfg.FragmentThreshold {
			if err := o.runReplyCycle(ctx, conn, sess, logger); err != nil {
				logger.Info("stream_session_closed", zap.String("reason", "send_failed"))
				return nil
			}
		}
	}
}

// awaitStart consumes messages until a valid start control message arrives
// or the peer disconnects. ok is false when the connection ended without a
// session being established.
func (o *Orchestrator) awaitStart(ctx context.Context, conn MessageConn) (*streamingSession, bool) {
	for {
		in, err := conn.Receive(ctx)
		if err != nil || in.Kind == KindDisconnect {
			return nil, false
		}

		switch in.Kind {
		case KindAudio:
			o.metrics.RecordEvent(EventError)
			if err := conn.SendJSON(ctx, errorEvent(CodeProtocolViolation, "")); err != nil {
				return nil, false
			}
		case KindText:
			var start StartMessage
			if err := json.Unmarshal([]byte(in.Text), &start); err != nil {
				o.metrics.RecordEvent(EventError)
				if err := conn.SendJSON(ctx, errorEvent(CodeDecodeError, "")); err != nil {
					return nil, false
				}
				continue
			}
			if start.Lang == "" {
				start.Lang = lang.Auto
			}
			sess := &streamingSession{
				id:       start.SessionID,
				langHint: start.Lang,
				traceID:  trace.Ensure(start.TraceID),
			}
			o.metrics.RecordEvent(EventAck)
			if err := conn.SendJSON(ctx, ackEvent(sess.traceID)); err != nil {
				return nil, false
			}
			return sess, true
		}
	}
}

// handleAudioChunk transcribes one frame and grows the fragment
// accumulator. Transcription failure degrades to an empty fragment plus an
// error event; the connection and session state survive.
func (o *Orchestrator) handleAudioChunk(ctx context.Context, conn MessageConn, sess *streamingSession, audio []byte) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.BackendTimeout)
	chunk, err := o.asr.TranscribeChunk(callCtx, audio, sess.langHint, sess.traceID)
	cancel()

	if err != nil {
		sess.fragments = append(sess.fragments, "")
		o.metrics.RecordEvent(EventError)
		_ = conn.SendJSON(ctx, errorEvent(CodeDecodeError, sess.traceID))
		return
	}

	sess.fragments = append(sess.fragments, chunk.Text)
	sess.fragLangs = append(sess.fragLangs, string(chunk.Lang))
	o.metrics.RecordEvent(EventPartialText)
	_ = conn.SendJSON(ctx, partialTextEvent(chunk.Text, chunk.Lang))
}

// runReplyCycle turns the accumulated fragments into one utterance, asks
// the reply stage for an answer, persists both turns, and emits
// final_text, the audio frames, and done in that strict order. The
// accumulator is cleared no matter how the cycle ends. A non-nil return
// means the connection is gone; backend failures are absorbed here.
func (o *Orchestrator) runReplyCycle(ctx context.Context, conn MessageConn, sess *streamingSession, logger *zap.Logger) error {
	defer sess.clear()

	utterance := strings.Join(sess.fragments, " ")
	cycleLang := sess.langHint
	if cycleLang == lang.Auto {
		cycleLang = string(lang.MajorityVote(sess.fragLangs))
	}

	contextTurns := o.fetchContext(ctx, sess, logger)

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.BackendTimeout)
	reply, err := o.llm.GenerateReply(callCtx, utterance, cycleLang, sess.id, contextTurns, sess.traceID)
	cancel()
	if err != nil {
		return o.abortCycle(ctx, conn, sess, logger, "reply", err)
	}

	o.persistTurns(ctx, sess, utterance, reply, logger)

	o.metrics.RecordEvent(EventFinalText)
	if err := conn.SendJSON(ctx, finalTextEvent(utterance, reply.Lang)); err != nil {
		return err
	}

	callCtx, cancel = context.WithTimeout(ctx, o.cfg.BackendTimeout)
	audioStream, err := o.tts.SynthesizeStream(callCtx, reply.Text, string(reply.Lang), o.cfg.Voice, sess.traceID)
	cancel()
	if err != nil {
		return o.abortCycle(ctx, conn, sess, logger, "synthesis", err)
	}

	for {
		frame, ok := audioStream.Next()
		if !ok {
			break
		}
		o.metrics.RecordEvent("audio")
		if err := conn.SendBinary(ctx, frame); err != nil {
			return err
		}
	}

	o.metrics.RecordEvent(EventDone)
	if err := conn.SendJSON(ctx, doneEvent(sess.traceID)); err != nil {
		return err
	}

	o.metrics.RecordReplyCycle("ok")
	logger.Info("reply_cycle_complete", zap.String("lang", string(reply.Lang)))
	return nil
}

// abortCycle reports a backend failure for the current cycle without
// closing the connection. The non-nil return path only fires when the
// error event itself cannot be delivered.
func (o *Orchestrator) abortCycle(ctx context.Context, conn MessageConn, sess *streamingSession, logger *zap.Logger, stage string, cause error) error {
	o.metrics.RecordReplyCycle("aborted")
	logger.Warn("reply_cycle_aborted", zap.String("stage", stage), zap.Error(cause))

	o.metrics.RecordEvent(EventError)
	return conn.SendJSON(ctx, errorEvent(CodeCycleFailed, sess.traceID))
}

// fetchContext loads the session window for the cycle. Anonymous sessions
// and store failures both degrade to an empty context.
func (o *Orchestrator) fetchContext(ctx context.Context, sess *streamingSession, logger *zap.Logger) []session.Turn {
	if sess.id == "" {
		return nil
	}
	turns, ok, err := o.store.Get(ctx, sess.id)
	if err != nil {
		logger.Warn("session_context_unavailable", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return turns
}

// persistTurns appends the user utterance and the assistant reply, in that
// order. Store failures degrade to lost memory, not a lost cycle.
func (o *Orchestrator) persistTurns(ctx context.Context, sess *streamingSession, utterance string, reply *llm.Reply, logger *zap.Logger) {
	if sess.id == "" {
		return
	}
	turns := []session.Turn{
		{Role: types.RoleUser, Text: utterance, Lang: reply.Lang},
		{Role: types.RoleAssistant, Text: reply.Text, Lang: reply.Lang},
	}
	for _, turn := range turns {
		if err := o.store.Append(ctx, sess.id, turn); err != nil {
			logger.Warn("session_append_failed", zap.Error(err))
			return
		}
	}
}
