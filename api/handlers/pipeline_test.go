package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceflow/asr"
	"github.com/BaSui01/voiceflow/internal/metrics"
	"github.com/BaSui01/voiceflow/llm"
	"github.com/BaSui01/voiceflow/session"
	"github.com/BaSui01/voiceflow/testutil"
	"github.com/BaSui01/voiceflow/tts"
)

func newTestPipelineHandler(t *testing.T) (*PipelineHandler, *session.MemoryStore) {
	t.Helper()
	logger := zap.NewNop()
	collector := metrics.NewCollector(testutil.MetricsNamespace(), logger)
	store := session.NewMemoryStore(session.DefaultConfig(), logger)
	handler := NewPipelineHandler(
		asr.NewService(asr.NewStubBackend(), collector, logger),
		llm.NewService(llm.NewStubBackend(), collector, logger),
		tts.NewService(tts.NewStubBackend(), collector, logger),
		store,
		logger,
	)
	return handler, store
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) Response {
	t.Helper()
	var envelope Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	if data != nil && envelope.Data != nil {
		raw, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, data))
	}
	return envelope
}

func TestPipelineHandler_Transcribe(t *testing.T) {
	handler, _ := newTestPipelineHandler(t)

	audio := base64.StdEncoding.EncodeToString([]byte("hello"))
	rec := postJSON(t, handler.Transcribe, TranscribeRequest{Audio: audio, SessionID: "s1"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp TranscribeResponse
	envelope := decodeEnvelope(t, rec, &resp)
	assert.True(t, envelope.Success)
	assert.Equal(t, "transcript-en-68656c6c6f", resp.Text)
	assert.Equal(t, "en", string(resp.Lang))
	assert.Len(t, resp.TraceID, 16)
	assert.NotNil(t, resp.Timestamps)
}

func TestPipelineHandler_Transcribe_PropagatesTraceID(t *testing.T) {
	handler, _ := newTestPipelineHandler(t)

	audio := base64.StdEncoding.EncodeToString([]byte("hello"))
	rec := postJSON(t, handler.Transcribe, TranscribeRequest{Audio: audio, TraceID: "caller-trace-0001"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp TranscribeResponse
	decodeEnvelope(t, rec, &resp)
	assert.Equal(t, "caller-trace-0001", resp.TraceID)
}

func TestPipelineHandler_Transcribe_MissingAudio(t *testing.T) {
	handler, _ := newTestPipelineHandler(t)

	rec := postJSON(t, handler.Transcribe, TranscribeRequest{})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec, nil)
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestPipelineHandler_Transcribe_MalformedAudio(t *testing.T) {
	handler, _ := newTestPipelineHandler(t)

	rec := postJSON(t, handler.Transcribe, TranscribeRequest{Audio: "%%%not-base64%%%"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec, nil)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "DECODE_ERROR", envelope.Error.Code)
}

func TestPipelineHandler_Transcribe_RejectsWrongContentType(t *testing.T) {
	handler, _ := newTestPipelineHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	handler.Transcribe(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPipelineHandler_Chat_AppendsBothTurns(t *testing.T) {
	handler, store := newTestPipelineHandler(t)

	rec := postJSON(t, handler.Chat, ChatRequest{Text: "hello", Lang: "en", SessionID: "s1"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	decodeEnvelope(t, rec, &resp)
	assert.Contains(t, resp.Reply, "I understood you and will reply in English.")
	assert.Contains(t, resp.Reply, "Echo: hello")
	assert.Equal(t, "en", string(resp.Lang))
	assert.Empty(t, resp.Context)

	turns, ok, err := store.Get(t.Context(), "s1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, turns, 2)
	assert.Equal(t, "hello", turns[0].Text)
	assert.Equal(t, resp.Reply, turns[1].Text)
}

func TestPipelineHandler_Chat_SecondCallSeesContext(t *testing.T) {
	handler, _ := newTestPipelineHandler(t)

	postJSON(t, handler.Chat, ChatRequest{Text: "first", Lang: "en", SessionID: "s1"})
	rec := postJSON(t, handler.Chat, ChatRequest{Text: "second", Lang: "en", SessionID: "s1"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	decodeEnvelope(t, rec, &resp)
	require.Len(t, resp.Context, 2)
	assert.Contains(t, resp.Reply, "Contexto: user: first")
}

func TestPipelineHandler_Chat_AnonymousSkipsStore(t *testing.T) {
	handler, store := newTestPipelineHandler(t)

	rec := postJSON(t, handler.Chat, ChatRequest{Text: "hello", Lang: "de"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	decodeEnvelope(t, rec, &resp)
	assert.Equal(t, "de", string(resp.Lang))
	assert.Equal(t, 0, store.Len())
}

func TestPipelineHandler_Chat_MissingText(t *testing.T) {
	handler, _ := newTestPipelineHandler(t)

	rec := postJSON(t, handler.Chat, ChatRequest{SessionID: "s1"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec, nil)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestPipelineHandler_Synthesize(t *testing.T) {
	handler, _ := newTestPipelineHandler(t)

	rec := postJSON(t, handler.Synthesize, SynthesizeRequest{Text: "hello world", Lang: "es"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SynthesizeResponse
	decodeEnvelope(t, rec, &resp)

	audio, err := base64.StdEncoding.DecodeString(resp.Audio)
	require.NoError(t, err)
	assert.Len(t, audio, 1600)
	assert.Len(t, resp.TraceID, 16)
}

func TestPipelineHandler_Synthesize_RejectsUnsupportedLang(t *testing.T) {
	handler, _ := newTestPipelineHandler(t)

	for _, unsupported := range []string{"", "fr", "auto", "EN"} {
		rec := postJSON(t, handler.Synthesize, SynthesizeRequest{Text: "hello", Lang: unsupported})

		require.Equal(t, http.StatusBadRequest, rec.Code, "lang=%q", unsupported)
		envelope := decodeEnvelope(t, rec, nil)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	}
}

func TestPipelineHandler_Synthesize_MissingText(t *testing.T) {
	handler, _ := newTestPipelineHandler(t)

	rec := postJSON(t, handler.Synthesize, SynthesizeRequest{Lang: "en"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
