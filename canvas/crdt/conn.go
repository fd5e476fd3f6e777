package crdt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/internal/metrics"
	"github.com/studioflow/canvasflow/types"
)

// ConnConfig controls the sync connection.
type ConnConfig struct {
	// URL is the websocket sync endpoint.
	URL string `yaml:"url" json:"url"`
	// ReconnectAttempts bounds reconnection tries after a drop.
	ReconnectAttempts int `yaml:"reconnect_attempts" json:"reconnect_attempts"`
	// ReconnectDelay is the fixed delay between reconnection tries.
	ReconnectDelay time.Duration `yaml:"reconnect_delay" json:"reconnect_delay"`
	// SendBuffer is the outbound message queue depth.
	SendBuffer int `yaml:"send_buffer" json:"send_buffer"`
}

// DefaultConnConfig returns the default sync connection configuration.
func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		ReconnectAttempts: 3,
		ReconnectDelay:    2 * time.Second,
		SendBuffer:        256,
	}
}

// wireFrame is the sync protocol message. Both directions carry the same
// shape.
type wireFrame struct {
	Type  string                    `json:"type"`
	Nodes map[string]map[string]any `json:"nodes,omitempty"`
	Edges map[string]map[string]any `json:"edges,omitempty"`
}

// Conn owns the websocket connection to the sync server. One goroutine owns
// the socket; every outbound mutation is submitted as a message on a
// channel, so there is no same-loop-vs-cross-loop branching anywhere: any
// goroutine may call into the Doc, and propagation is serialized here.
type Conn struct {
	doc       *Doc
	cfg       ConnConfig
	collector *metrics.Collector
	logger    *zap.Logger

	sendCh      chan Update
	done        chan struct{}
	started     atomic.Bool
	stopped     chan struct{}
	unsubscribe func()
}

// NewConn creates the connection actor for a document replica. collector may
// be nil.
func NewConn(doc *Doc, cfg ConnConfig, collector *metrics.Collector, logger *zap.Logger) *Conn {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReconnectAttempts <= 0 {
		cfg.ReconnectAttempts = DefaultConnConfig().ReconnectAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultConnConfig().ReconnectDelay
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultConnConfig().SendBuffer
	}
	return &Conn{
		doc:       doc,
		cfg:       cfg,
		collector: collector,
		logger:    logger.With(zap.String("component", "crdt_conn")),
		sendCh:    make(chan Update, cfg.SendBuffer),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// Start dials the sync server and runs the connection loop until Stop or
// until reconnection attempts are exhausted. Dial failure of the initial
// connection is returned synchronously.
func (c *Conn) Start(ctx context.Context) error {
	ws, err := c.dial(ctx)
	if err != nil {
		return types.NewError(types.ErrSyncUnavailable, "initial sync dial failed").
			WithCause(err).WithRetryable(true)
	}

	// Local updates flow: doc notification -> send channel -> socket.
	// The channel is the only cross-goroutine hand-off; if it is full the
	// update is dropped for propagation (the local doc already has it) and
	// the peer converges on the next full-state exchange.
	c.unsubscribe = c.doc.Subscribe(func(u Update) {
		select {
		case c.sendCh <- u:
		case <-c.done:
		default:
			c.logger.Warn("sync send buffer full, dropping propagation")
		}
	})

	c.doc.SetConnected(true)
	c.started.Store(true)
	go c.run(ctx, ws)
	return nil
}

// Stop shuts the actor down and closes the socket. Safe to call whether or
// not Start succeeded; after a failed Start there is no loop to wait for.
func (c *Conn) Stop() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	if !c.started.Load() {
		return
	}
	<-c.stopped
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	ws, _, err := websocket.Dial(dialCtx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", c.cfg.URL, err)
	}
	return ws, nil
}

func (c *Conn) run(ctx context.Context, ws *websocket.Conn) {
	defer close(c.stopped)
	defer func() {
		c.doc.SetConnected(false)
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
	}()

	for {
		err := c.pump(ctx, ws)
		ws.Close(websocket.StatusNormalClosure, "closing")
		if err == nil {
			return // clean stop
		}

		c.logger.Warn("sync connection dropped", zap.Error(err))

		ws = c.reconnect(ctx)
		if ws == nil {
			c.logger.Error("sync reconnect attempts exhausted",
				zap.Int("attempts", c.cfg.ReconnectAttempts))
			return
		}
	}
}

// pump moves frames in both directions until the connection breaks or the
// actor stops. Returns nil on clean stop, the transport error otherwise.
func (c *Conn) pump(ctx context.Context, ws *websocket.Conn) error {
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := ws.Read(ctx)
			if err != nil {
				readErr <- err
				return
			}
			var frame wireFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				c.logger.Warn("discarding malformed sync frame", zap.Error(err))
				continue
			}
			// Remote updates are applied in receipt order.
			c.doc.ApplyRemote(Update{Nodes: frame.Nodes, Edges: frame.Edges})
		}
	}()

	for {
		select {
		case <-c.done:
			return nil
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case u := <-c.sendCh:
			data, err := json.Marshal(wireFrame{Type: "update", Nodes: u.Nodes, Edges: u.Edges})
			if err != nil {
				c.logger.Error("marshal sync frame", zap.Error(err))
				continue
			}
			if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
				return err
			}
		}
	}
}

// reconnect retries the dial a bounded number of times with a fixed delay.
// Returns nil when attempts are exhausted or the actor stopped.
func (c *Conn) reconnect(ctx context.Context) *websocket.Conn {
	c.doc.SetConnected(false)
	for attempt := 1; attempt <= c.cfg.ReconnectAttempts; attempt++ {
		select {
		case <-c.done:
			return nil
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.ReconnectDelay):
		}

		ws, err := c.dial(ctx)
		if err != nil {
			c.collector.RecordSyncReconnect(false)
			c.logger.Warn("sync reconnect failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.cfg.ReconnectAttempts),
				zap.Error(err),
			)
			continue
		}
		c.collector.RecordSyncReconnect(true)
		c.logger.Info("sync reconnected", zap.Int("attempt", attempt))
		c.doc.SetConnected(true)
		return ws
	}
	return nil
}
