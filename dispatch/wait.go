package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/studioflow/canvasflow/canvas"
	"github.com/studioflow/canvasflow/types"
)

// WaitResult reports where an asset's lifecycle stood when waiting ended.
type WaitResult struct {
	AssetID string
	Status  types.AssetStatus
	// OutputRef is the materialized output location, empty until completed.
	OutputRef string
	// TimedOut is true when the wait budget expired with the asset still in
	// flight. Not an error: the generation keeps running and the caller can
	// wait again.
	TimedOut bool
	Elapsed  time.Duration
}

// Waiter polls an asset node until its status turns terminal or a time
// budget runs out.
type Waiter struct {
	store   *canvas.Store
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

// NewWaiter creates a waiter polling at most once per interval with the
// given default budget.
func NewWaiter(store *canvas.Store, interval, timeout time.Duration, logger *zap.Logger) *Waiter {
	if interval <= 0 {
		interval = time.Second
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Waiter{
		store:   store,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		timeout: timeout,
		logger:  logger.With(zap.String("component", "generation_waiter")),
	}
}

// Wait blocks until the asset reaches completed or failed, the budget
// expires, or ctx is cancelled. Budget expiry is reported in the result,
// not as an error; only unreadable assets and cancellation fail the call.
func (w *Waiter) Wait(ctx context.Context, projectID, assetID string) (*WaitResult, error) {
	return w.WaitFor(ctx, projectID, assetID, w.timeout)
}

// WaitFor is Wait with an explicit budget.
func (w *Waiter) WaitFor(ctx context.Context, projectID, assetID string, budget time.Duration) (*WaitResult, error) {
	start := time.Now()
	deadline := start.Add(budget)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	result := &WaitResult{AssetID: assetID}
	for {
		if err := w.limiter.Wait(ctx); err != nil {
			if ctx.Err() == context.Canceled {
				return nil, err
			}
			// The budget deadline was hit, either inside the pacing wait or
			// because the limiter saw the next token land past it. Report the
			// last observed state rather than failing.
			result.TimedOut = true
			result.Elapsed = time.Since(start)
			w.logger.Info("wait budget expired",
				zap.String("asset_id", assetID),
				zap.String("status", string(result.Status)),
				zap.Duration("elapsed", result.Elapsed),
			)
			return result, nil
		}

		node, err := w.store.GetNode(ctx, projectID, assetID)
		if err != nil {
			return nil, err
		}
		result.Status = node.Data.Status
		if node.Data.Status.Terminal() {
			result.OutputRef = node.Data.OutputRef()
			result.Elapsed = time.Since(start)
			w.logger.Info("asset reached terminal status",
				zap.String("asset_id", assetID),
				zap.String("status", string(node.Data.Status)),
				zap.Duration("elapsed", result.Elapsed),
			)
			return result, nil
		}
	}
}
