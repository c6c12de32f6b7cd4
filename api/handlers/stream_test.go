package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceflow/asr"
	"github.com/BaSui01/voiceflow/internal/metrics"
	"github.com/BaSui01/voiceflow/llm"
	"github.com/BaSui01/voiceflow/session"
	"github.com/BaSui01/voiceflow/stream"
	"github.com/BaSui01/voiceflow/testutil"
	"github.com/BaSui01/voiceflow/tts"
)

func newStreamTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()
	collector := metrics.NewCollector(testutil.MetricsNamespace(), logger)
	store := session.NewMemoryStore(session.DefaultConfig(), logger)
	orch := stream.NewOrchestrator(
		asr.NewService(asr.NewStubBackend(), collector, logger),
		llm.NewService(llm.NewStubBackend(), collector, logger),
		tts.NewService(tts.NewStubBackend(), collector, logger),
		store,
		collector,
		logger,
		stream.Config{},
	)
	srv := httptest.NewServer(NewStreamHandler(orch, logger))
	t.Cleanup(srv.Close)
	return srv
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) stream.Event {
	t.Helper()
	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)
	var event stream.Event
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestStreamHandler_FullCycleOverWebsocket(t *testing.T) {
	srv := newStreamTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, conn.Write(ctx, websocket.MessageText,
		[]byte(`{"sessionId":"s1","lang":"en"}`)))

	ack := readEvent(t, ctx, conn)
	require.Equal(t, stream.EventAck, ack.Type)
	assert.Len(t, ack.TraceID, 16)

	for i := 0; i < 3; i++ {
		require.NoError(t, conn.Write(ctx, websocket.MessageBinary, []byte{byte('a' + i)}))
		partial := readEvent(t, ctx, conn)
		require.Equal(t, stream.EventPartialText, partial.Type)
		assert.Equal(t, "en", string(partial.Lang))
	}

	final := readEvent(t, ctx, conn)
	require.Equal(t, stream.EventFinalText, final.Type)
	assert.Equal(t, "transcript-en-61 transcript-en-62 transcript-en-63", final.Text)

	// Audio frames arrive as binary until the done event.
	audioFrames := 0
	for {
		typ, data, err := conn.Read(ctx)
		require.NoError(t, err)
		if typ == websocket.MessageBinary {
			audioFrames++
			assert.NotEmpty(t, data)
			continue
		}
		var event stream.Event
		require.NoError(t, json.Unmarshal(data, &event))
		require.Equal(t, stream.EventDone, event.Type)
		assert.Equal(t, ack.TraceID, event.TraceID)
		break
	}
	assert.GreaterOrEqual(t, audioFrames, 1)
}

func TestStreamHandler_TextFrameMidStream(t *testing.T) {
	srv := newStreamTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"lang":"en"}`)))
	require.Equal(t, stream.EventAck, readEvent(t, ctx, conn).Type)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("rogue")))
	event := readEvent(t, ctx, conn)
	require.Equal(t, stream.EventError, event.Type)
	assert.Equal(t, stream.CodeUnexpectedText, event.Code)

	// The connection survives the violation.
	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, []byte("x")))
	assert.Equal(t, stream.EventPartialText, readEvent(t, ctx, conn).Type)
}
