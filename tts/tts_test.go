package tts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/BaSui01/voiceflow/internal/metrics"
	"github.com/BaSui01/voiceflow/lang"
	"github.com/BaSui01/voiceflow/testutil"
	"github.com/BaSui01/voiceflow/types"
)

type failingBackend struct{}

func (failingBackend) Synthesize(context.Context, string, lang.Tag, string) ([]byte, error) {
	return nil, errors.New("voice model unavailable")
}

func (failingBackend) SynthesizeStream(context.Context, string, lang.Tag, string) (ChunkStream, error) {
	return nil, errors.New("voice model unavailable")
}

func (failingBackend) Name() string { return "failing" }

func newTestService(t *testing.T, backend Backend) *Service {
	t.Helper()
	return NewService(backend, metrics.NewCollector(testutil.MetricsNamespace(), zap.NewNop()), zap.NewNop())
}

func drain(stream ChunkStream) [][]byte {
	var chunks [][]byte
	for {
		chunk, ok := stream.Next()
		if !ok {
			return chunks
		}
		chunks = append(chunks, chunk)
	}
}

func TestService_Synthesize(t *testing.T) {
	svc := newTestService(t, NewStubBackend())

	result, err := svc.Synthesize(context.Background(), "hello", "en", "", "trace-1")

	require.NoError(t, err)
	assert.Equal(t, lang.En, result.Lang)
	assert.Equal(t, DefaultVoice, result.Voice)
	assert.Equal(t, "trace-1", result.TraceID)
	assert.Len(t, result.Audio, 1600)
	assert.GreaterOrEqual(t, result.DurationMS, int64(0))
}

func TestService_Synthesize_ScalesWithText(t *testing.T) {
	svc := newTestService(t, NewStubBackend())

	text := strings.Repeat("a", 100)
	result, err := svc.Synthesize(context.Background(), text, "de", "narrator", "trace-2")

	require.NoError(t, err)
	assert.Equal(t, lang.De, result.Lang)
	assert.Equal(t, "narrator", result.Voice)
	assert.Len(t, result.Audio, 2000)
}

func TestService_Synthesize_RejectsEmptyText(t *testing.T) {
	svc := newTestService(t, NewStubBackend())

	_, err := svc.Synthesize(context.Background(), "", "en", "", "trace-3")

	require.Error(t, err)
	assert.Equal(t, types.ErrValidation, types.GetErrorCode(err))
}

func TestService_Synthesize_WrapsBackendFailure(t *testing.T) {
	svc := newTestService(t, failingBackend{})

	_, err := svc.Synthesize(context.Background(), "text", "en", "", "trace-4")

	require.Error(t, err)
	assert.Equal(t, types.ErrBackendFailure, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
}

func TestService_SynthesizeStream_ChunkLabels(t *testing.T) {
	svc := newTestService(t, NewStubBackend())

	stream, err := svc.SynthesizeStream(context.Background(), strings.Repeat("x", 64), "es", "", "trace-5")

	require.NoError(t, err)
	chunks := drain(stream)
	require.Len(t, chunks, 2)
	assert.Equal(t, "es-default-0", string(chunks[0]))
	assert.Equal(t, "es-default-1", string(chunks[1]))
}

func TestService_SynthesizeStream_EmptyTextStillYieldsOneChunk(t *testing.T) {
	svc := newTestService(t, NewStubBackend())

	stream, err := svc.SynthesizeStream(context.Background(), "", "pt", "", "trace-6")

	require.NoError(t, err)
	chunks := drain(stream)
	require.Len(t, chunks, 1)
	assert.Equal(t, "pt-default-0", string(chunks[0]))
}

func TestService_SynthesizeStream_ExhaustedStreamStaysExhausted(t *testing.T) {
	svc := newTestService(t, NewStubBackend())

	stream, err := svc.SynthesizeStream(context.Background(), "short", "en", "", "trace-7")
	require.NoError(t, err)

	drain(stream)
	chunk, ok := stream.Next()
	assert.Nil(t, chunk)
	assert.False(t, ok)
}

func TestProperty_StreamIsFiniteAndNonEmpty(t *testing.T) {
	svc := newTestService(t, NewStubBackend())

	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringN(0, 512, 512).Draw(t, "text")

		stream, err := svc.SynthesizeStream(context.Background(), text, "en", "", "trace-p")
		if err != nil {
			t.Fatalf("stream failed: %v", err)
		}
		chunks := drain(stream)
		if len(chunks) < 1 {
			t.Fatalf("expected at least one chunk, got %d", len(chunks))
		}
		want := (len(text) + 31) / 32
		if want < 1 {
			want = 1
		}
		if len(chunks) != want {
			t.Fatalf("expected %d chunks for %d bytes, got %d", want, len(text), len(chunks))
		}
	})
}
