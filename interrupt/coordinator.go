package interrupt

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/internal/metrics"
	"github.com/studioflow/canvasflow/types"
)

// DefaultCacheWindow bounds how stale a between-token interrupt check may
// be. Every model call and tool call force-refreshes the cache, so a
// mid-stream interrupt is observed within one window at worst.
const DefaultCacheWindow = 500 * time.Millisecond

type cacheEntry struct {
	interrupted bool
	at          time.Time
}

// Coordinator drives the session interrupt state machine against a shared
// SessionStore and serves the fresh and cached check paths.
type Coordinator struct {
	store     SessionStore
	window    time.Duration
	collector *metrics.Collector
	logger    *zap.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCacheWindow overrides the cached-check refresh interval.
func WithCacheWindow(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithClock fixes the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a coordinator. collector may be nil.
func NewCoordinator(store SessionStore, collector *metrics.Collector, logger *zap.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		store:     store,
		window:    DefaultCacheWindow,
		collector: collector,
		logger:    logger.With(zap.String("component", "interrupt_coordinator")),
		cache:     make(map[string]cacheEntry),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin marks a session running and clears any stale cached check.
func (c *Coordinator) Begin(ctx context.Context, threadID string) error {
	if err := c.store.Put(ctx, threadID, StatusRunning); err != nil {
		return err
	}
	c.dropCache(threadID)
	return nil
}

// RequestInterrupt asks a running session to stop at its next checkpoint.
// Returns true when the session moved running -> completing. A session that
// is absent or not running is reported false, never an error: the state
// machine only moves forward and a finished session has nothing to stop.
func (c *Coordinator) RequestInterrupt(ctx context.Context, threadID string) (bool, error) {
	swapped, err := c.store.Transition(ctx, threadID, StatusRunning, StatusCompleting)
	if err != nil {
		return false, err
	}
	if swapped {
		c.logger.Info("interrupt requested", zap.String("thread_id", threadID))
	} else {
		c.logger.Debug("interrupt request ignored, session not running",
			zap.String("thread_id", threadID))
	}
	return swapped, nil
}

// CheckFresh reads persisted state directly and refreshes the cache. Used
// before every model call and every tool call.
func (c *Coordinator) CheckFresh(ctx context.Context, threadID string) (bool, error) {
	status, ok, err := c.store.Get(ctx, threadID)
	if err != nil {
		return false, err
	}
	interrupted := ok && (status == StatusCompleting || status == StatusInterrupted)

	c.mu.Lock()
	c.cache[threadID] = cacheEntry{interrupted: interrupted, at: c.now()}
	c.mu.Unlock()

	c.collector.RecordInterruptCheck("fresh", interrupted)
	return interrupted, nil
}

// CheckCached answers from the cache when the entry is within the refresh
// window, falling through to a fresh check otherwise. Used between streamed
// tokens where per-token store reads would dominate throughput.
func (c *Coordinator) CheckCached(ctx context.Context, threadID string) (bool, error) {
	c.mu.Lock()
	entry, ok := c.cache[threadID]
	fresh := ok && c.now().Sub(entry.at) < c.window
	c.mu.Unlock()

	if fresh {
		c.collector.RecordInterruptCheck("cached", entry.interrupted)
		return entry.interrupted, nil
	}
	return c.CheckFresh(ctx, threadID)
}

// Guard is the checkpoint helper: a fresh check that converts a pending
// interrupt into an INTERRUPT_REQUESTED error for the caller to unwind on.
func (c *Coordinator) Guard(ctx context.Context, threadID string) error {
	interrupted, err := c.CheckFresh(ctx, threadID)
	if err != nil {
		return err
	}
	if interrupted {
		return types.Errorf(types.ErrInterruptRequested,
			"session %s interrupt requested", threadID)
	}
	return nil
}

// Acknowledge records that the session observed the interrupt and unwound,
// moving completing -> interrupted.
func (c *Coordinator) Acknowledge(ctx context.Context, threadID string) error {
	swapped, err := c.store.Transition(ctx, threadID, StatusCompleting, StatusInterrupted)
	if err != nil {
		return err
	}
	if swapped {
		c.logger.Info("interrupt acknowledged", zap.String("thread_id", threadID))
	}
	c.dropCache(threadID)
	return nil
}

// Finish marks a session completed on normal termination, from any state.
func (c *Coordinator) Finish(ctx context.Context, threadID string) error {
	if err := c.store.Put(ctx, threadID, StatusCompleted); err != nil {
		return err
	}
	c.dropCache(threadID)
	return nil
}

// Reset removes the session record entirely so the thread id can run again.
func (c *Coordinator) Reset(ctx context.Context, threadID string) error {
	if err := c.store.Delete(ctx, threadID); err != nil {
		return err
	}
	c.dropCache(threadID)
	return nil
}

func (c *Coordinator) dropCache(threadID string) {
	c.mu.Lock()
	delete(c.cache, threadID)
	c.mu.Unlock()
}
