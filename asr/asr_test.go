package asr

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceflow/internal/metrics"
	"github.com/BaSui01/voiceflow/lang"
	"github.com/BaSui01/voiceflow/testutil"
	"github.com/BaSui01/voiceflow/types"
)

type failingBackend struct{}

func (failingBackend) Transcribe(context.Context, []byte, lang.Tag) (string, error) {
	return "", errors.New("model unavailable")
}

func (failingBackend) Name() string { return "failing" }

func newTestService(t *testing.T, backend Backend) *Service {
	t.Helper()
	return NewService(backend, metrics.NewCollector(testutil.MetricsNamespace(), zap.NewNop()), zap.NewNop())
}

func TestService_Transcribe(t *testing.T) {
	svc := newTestService(t, NewStubBackend())

	audio := base64.StdEncoding.EncodeToString([]byte("hello spoken words"))
	result, err := svc.Transcribe(context.Background(), audio, "trace-1", "sess-1")

	require.NoError(t, err)
	assert.Equal(t, lang.En, result.Lang)
	assert.Equal(t, "transcript-en-68656c6c6f207370", result.Text)
	assert.Equal(t, "trace-1", result.TraceID)
	assert.NotNil(t, result.Timestamps)
	assert.Empty(t, result.Timestamps)
}

func TestService_Transcribe_DetectsGerman(t *testing.T) {
	svc := newTestService(t, NewStubBackend())

	audio := base64.StdEncoding.EncodeToString([]byte("äöü ßß größe"))
	result, err := svc.Transcribe(context.Background(), audio, "trace-2", "sess-1")

	require.NoError(t, err)
	assert.Equal(t, lang.De, result.Lang)
}

func TestService_Transcribe_RejectsMalformedBase64(t *testing.T) {
	svc := newTestService(t, NewStubBackend())

	_, err := svc.Transcribe(context.Background(), "%%%not-base64%%%", "trace-3", "")

	require.Error(t, err)
	assert.Equal(t, types.ErrDecode, types.GetErrorCode(err))
}

func TestService_Transcribe_RejectsEmptyAudio(t *testing.T) {
	svc := newTestService(t, NewStubBackend())

	_, err := svc.Transcribe(context.Background(), "", "trace-4", "")

	require.Error(t, err)
	assert.Equal(t, types.ErrDecode, types.GetErrorCode(err))
}

func TestService_Transcribe_WrapsBackendFailure(t *testing.T) {
	svc := newTestService(t, failingBackend{})

	audio := base64.StdEncoding.EncodeToString([]byte("payload"))
	_, err := svc.Transcribe(context.Background(), audio, "trace-5", "")

	require.Error(t, err)
	assert.Equal(t, types.ErrBackendFailure, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
}

func TestService_TranscribeChunk_TrustsHint(t *testing.T) {
	svc := newTestService(t, NewStubBackend())

	result, err := svc.TranscribeChunk(context.Background(), []byte("chunk"), "pt-BR", "trace-6")

	require.NoError(t, err)
	assert.Equal(t, lang.Pt, result.Lang)
	assert.Equal(t, "transcript-pt-6368756e6b", result.Text)
}

func TestService_TranscribeChunk_AutoDetects(t *testing.T) {
	svc := newTestService(t, NewStubBackend())

	result, err := svc.TranscribeChunk(context.Background(), []byte("ñá é í ó ú ñ ¿qué?"), "auto", "trace-7")

	require.NoError(t, err)
	assert.Equal(t, lang.Es, result.Lang)
}

func TestService_TranscribeChunk_RejectsEmptyFrame(t *testing.T) {
	svc := newTestService(t, NewStubBackend())

	_, err := svc.TranscribeChunk(context.Background(), nil, "auto", "trace-8")

	require.Error(t, err)
	assert.Equal(t, types.ErrDecode, types.GetErrorCode(err))
}
