package crdt

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/internal/metrics"
)

// syncServer is a minimal sync endpoint capturing inbound frames and able
// to push frames back.
type syncServer struct {
	t        *testing.T
	server   *httptest.Server
	inbound  chan wireFrame
	outbound chan wireFrame
}

// trackingListener records accepted connections and severs them when the
// listener is closed. websocket.Accept hijacks connections, and
// httptest.Server forgets hijacked connections, so server.Close /
// CloseClientConnections alone would leave established websockets alive.
type trackingListener struct {
	net.Listener
	mu    sync.Mutex
	conns []net.Conn
}

func (l *trackingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.conns = append(l.conns, conn)
	l.mu.Unlock()
	return conn, nil
}

func (l *trackingListener) Close() error {
	err := l.Listener.Close()
	l.mu.Lock()
	for _, conn := range l.conns {
		conn.Close()
	}
	l.conns = nil
	l.mu.Unlock()
	return err
}

func newSyncServer(t *testing.T) *syncServer {
	s := &syncServer{
		t:        t,
		inbound:  make(chan wireFrame, 16),
		outbound: make(chan wireFrame, 16),
	}
	s.server = httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case frame := <-s.outbound:
					data, _ := json.Marshal(frame)
					if ws.Write(ctx, websocket.MessageText, data) != nil {
						return
					}
				}
			}
		}()

		for {
			_, data, err := ws.Read(ctx)
			if err != nil {
				return
			}
			var frame wireFrame
			if json.Unmarshal(data, &frame) == nil {
				s.inbound <- frame
			}
		}
	}))
	s.server.Listener = &trackingListener{Listener: s.server.Listener}
	s.server.Start()
	t.Cleanup(s.server.Close)
	return s
}

func (s *syncServer) url() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http")
}

func TestConn_PropagatesLocalUpdates(t *testing.T) {
	t.Parallel()

	srv := newSyncServer(t)
	doc := NewDoc()
	conn := NewConn(doc, ConnConfig{URL: srv.url()}, nil, zap.NewNop())
	require.NoError(t, conn.Start(context.Background()))
	defer conn.Stop()

	assert.True(t, doc.Connected())
	doc.AddNode("n1", map[string]any{"id": "n1", "type": "text"})

	select {
	case frame := <-srv.inbound:
		assert.Equal(t, "update", frame.Type)
		assert.Contains(t, frame.Nodes, "n1")
	case <-time.After(3 * time.Second):
		t.Fatal("no frame received by sync server")
	}
}

func TestConn_AppliesRemoteUpdates(t *testing.T) {
	t.Parallel()

	srv := newSyncServer(t)
	doc := NewDoc()
	conn := NewConn(doc, ConnConfig{URL: srv.url()}, nil, zap.NewNop())
	require.NoError(t, conn.Start(context.Background()))
	defer conn.Stop()

	srv.outbound <- wireFrame{
		Type: "update",
		Nodes: map[string]map[string]any{
			"remote-node": {"id": "remote-node", "type": "image", "data": map[string]any{}},
		},
	}

	require.Eventually(t, func() bool {
		_, ok := doc.GetNode("remote-node")
		return ok
	}, 3*time.Second, 10*time.Millisecond)
}

func TestConn_InitialDialFailure(t *testing.T) {
	t.Parallel()

	doc := NewDoc()
	conn := NewConn(doc, ConnConfig{
		URL:            "ws://127.0.0.1:1", // nothing listens here
		ReconnectDelay: 10 * time.Millisecond,
	}, nil, zap.NewNop())

	err := conn.Start(context.Background())
	require.Error(t, err)
	assert.False(t, doc.Connected())
}

func TestConn_StopAfterFailedStart(t *testing.T) {
	t.Parallel()

	doc := NewDoc()
	conn := NewConn(doc, ConnConfig{
		URL: "ws://127.0.0.1:1", // nothing listens here
	}, nil, zap.NewNop())
	require.Error(t, conn.Start(context.Background()))

	// Stop must return even though the connection loop never started.
	returned := make(chan struct{})
	go func() {
		conn.Stop()
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return after a failed Start")
	}
}

func TestConn_ReconnectExhaustionDisconnects(t *testing.T) {
	t.Parallel()

	srv := newSyncServer(t)
	doc := NewDoc()
	collector := metrics.NewCollector("synctest", zap.NewNop())
	conn := NewConn(doc, ConnConfig{
		URL:               srv.url(),
		ReconnectAttempts: 2,
		ReconnectDelay:    20 * time.Millisecond,
	}, collector, zap.NewNop())
	require.NoError(t, conn.Start(context.Background()))

	// Kill the server so the read loop errors and every reconnect fails.
	srv.server.CloseClientConnections()
	srv.server.Close()

	require.Eventually(t, func() bool {
		return !doc.Connected()
	}, 5*time.Second, 20*time.Millisecond)

	// The doc reports disconnected as soon as the retry loop starts, and
	// Stop aborts pending retry delays; wait for both failed attempts to be
	// recorded before stopping so Stop does not cut the loop short.
	const expected = `
# HELP synctest_sync_reconnects_total Total number of sync connection reconnect attempts
# TYPE synctest_sync_reconnects_total counter
synctest_sync_reconnects_total{result="failure"} 2
`
	require.Eventually(t, func() bool {
		return testutil.GatherAndCompare(prometheus.DefaultGatherer,
			strings.NewReader(expected), "synctest_sync_reconnects_total") == nil
	}, 5*time.Second, 20*time.Millisecond)

	conn.Stop()

	require.NoError(t, testutil.GatherAndCompare(prometheus.DefaultGatherer,
		strings.NewReader(expected), "synctest_sync_reconnects_total"))
}
