package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceflow/config"
)

func TestInit_DisabledReturnsNoop(t *testing.T) {
	providers, err := Init(config.TelemetryConfig{Enabled: false}, zap.NewNop())

	require.NoError(t, err)
	require.NotNil(t, providers)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestShutdown_NilProviders(t *testing.T) {
	var providers *Providers
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestBuildVersion(t *testing.T) {
	assert.NotEmpty(t, buildVersion())
}
