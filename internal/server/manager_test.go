package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func freePortConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	// Port 0 lets the kernel pick a free port.
	cfg.Addr = "127.0.0.1:0"
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func TestManagerServesAndShutsDown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	})
	m := NewManager(handler, freePortConfig(t), zap.NewNop())
	require.NoError(t, m.Start())
	require.True(t, m.IsRunning())

	addr := m.listener.Addr().String()
	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	require.NoError(t, m.Shutdown(context.Background()))
	assert.False(t, m.IsRunning())

	_, err = http.Get("http://" + addr + "/")
	assert.Error(t, err)
}

func TestManagerDoubleStartFails(t *testing.T) {
	m := NewManager(http.NewServeMux(), freePortConfig(t), zap.NewNop())
	require.NoError(t, m.Start())
	defer m.Shutdown(context.Background())

	assert.Error(t, m.Start())
}

func TestManagerShutdownIsIdempotent(t *testing.T) {
	m := NewManager(http.NewServeMux(), freePortConfig(t), zap.NewNop())
	require.NoError(t, m.Start())

	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))
	assert.Error(t, m.Start())
}

func TestManagerBindFailureSurfacesOnStart(t *testing.T) {
	cfg := freePortConfig(t)
	first := NewManager(http.NewServeMux(), cfg, zap.NewNop())
	require.NoError(t, first.Start())
	defer first.Shutdown(context.Background())

	cfg.Addr = first.listener.Addr().String()
	second := NewManager(http.NewServeMux(), cfg, zap.NewNop())
	assert.Error(t, second.Start())
}
