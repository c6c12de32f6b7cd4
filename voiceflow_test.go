package voiceflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/voiceflow/session"
	"github.com/BaSui01/voiceflow/testutil"
)

func TestNew_Defaults(t *testing.T) {
	p := New(WithMetricsNamespace(testutil.MetricsNamespace()))

	require.NotNil(t, p.ASR)
	require.NotNil(t, p.LLM)
	require.NotNil(t, p.TTS)
	require.NotNil(t, p.Store)
	require.NotNil(t, p.Orchestrator)

	reply, err := p.LLM.GenerateReply(context.Background(), "hi", "en", "", nil, "trace-1")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Echo: hi")
}

func TestNew_WithStore(t *testing.T) {
	store := session.NewMemoryStore(session.Config{Window: 2}, nil)
	p := New(
		WithMetricsNamespace(testutil.MetricsNamespace()),
		WithStore(store),
	)
	assert.Same(t, store, p.Store)
}
