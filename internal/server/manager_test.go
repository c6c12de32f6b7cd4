package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	config := DefaultConfig()
	config.Addr = "127.0.0.1:0"
	config.ShutdownTimeout = 5 * time.Second

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return NewManager(handler, config, zap.NewNop())
}

func TestManager_StartAndServe(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Start())
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })

	assert.True(t, mgr.IsRunning())
	require.NotEmpty(t, mgr.BoundAddr())

	resp, err := http.Get(fmt.Sprintf("http://%s/", mgr.BoundAddr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestManager_DoubleStartFails(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Start())
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })

	assert.Error(t, mgr.Start())
}

func TestManager_ShutdownIsIdempotent(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Start())

	require.NoError(t, mgr.Shutdown(context.Background()))
	assert.False(t, mgr.IsRunning())
	require.NoError(t, mgr.Shutdown(context.Background()))
	assert.Error(t, mgr.Start())
}
