package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/canvas"
	"github.com/studioflow/canvasflow/internal/metrics"
	"github.com/studioflow/canvasflow/providers"
	"github.com/studioflow/canvasflow/types"
)

// Executor drives the provider round trip for a dispatched asset: submit,
// poll until terminal, then advance the asset node to completed or failed.
// Dispatch and execution are separate steps so a crash between them leaves
// a generating asset the repair sweep or a re-execution can pick up.
type Executor struct {
	store     *canvas.Store
	image     providers.Generator
	video     providers.Generator
	interval  time.Duration
	timeout   time.Duration
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewExecutor creates an executor. Either generator may be nil; executing
// an asset kind with no generator fails that asset.
func NewExecutor(store *canvas.Store, image, video providers.Generator, interval, timeout time.Duration, collector *metrics.Collector, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		store:     store,
		image:     image,
		video:     video,
		interval:  interval,
		timeout:   timeout,
		collector: collector,
		logger:    logger.With(zap.String("component", "executor")),
	}
}

// Execute generates the asset's content. On success the asset node ends
// completed with its output reference; on provider failure it ends
// failed. A poll budget running out leaves the asset generating and
// returns a retryable GENERATION_TIMEOUT.
func (e *Executor) Execute(ctx context.Context, projectID, assetID string) error {
	asset, err := e.store.GetNode(ctx, projectID, assetID)
	if err != nil {
		return err
	}
	if asset.Data.Status.Terminal() {
		e.logger.Debug("asset already terminal, skipping",
			zap.String("asset_id", assetID),
			zap.String("status", string(asset.Data.Status)))
		return nil
	}

	gen := e.generatorFor(asset.Type)
	if gen == nil {
		return e.fail(ctx, asset, fmt.Sprintf("no generation provider configured for %s assets", asset.Type))
	}

	taskID, err := gen.Submit(ctx, &providers.SubmitRequest{
		Prompt:          asset.Data.Prompt,
		ReferenceImages: asset.Data.ReferenceImages,
		Duration:        asset.Data.Duration,
		Model:           asset.Data.Model,
	})
	if err != nil {
		e.logger.Warn("provider submit failed",
			zap.String("provider", gen.Name()),
			zap.String("asset_id", assetID),
			zap.Error(err))
		return e.fail(ctx, asset, "generation submit failed: "+err.Error())
	}

	start := time.Now()
	status, err := providers.PollUntilDone(ctx, gen, taskID, e.interval, e.timeout)
	e.collector.RecordProviderPoll(gen.Name(), stateLabel(status), time.Since(start))
	if err != nil {
		return e.fail(ctx, asset, "generation polling failed: "+err.Error())
	}

	switch status.State {
	case providers.TaskSucceeded:
		return e.complete(ctx, asset, status)
	case providers.TaskFailed:
		reason := status.Reason
		if reason == "" {
			reason = "generation failed"
		}
		return e.fail(ctx, asset, reason)
	default:
		// Still in flight; the provider keeps working and the asset stays
		// generating so a later Execute or wait can observe the outcome.
		e.logger.Info("generation still running after poll budget",
			zap.String("provider", gen.Name()),
			zap.String("asset_id", assetID),
			zap.String("task_id", taskID))
		return types.Errorf(types.ErrGenerationTimeout,
			"generation still running after %s", e.timeout).
			WithRetryable(true).WithNodeID(assetID)
	}
}

func (e *Executor) generatorFor(kind types.NodeType) providers.Generator {
	switch kind {
	case types.NodeTypeImage:
		return e.image
	case types.NodeTypeVideo:
		return e.video
	}
	return nil
}

func (e *Executor) complete(ctx context.Context, asset *types.Node, status *providers.TaskStatus) error {
	asset.Data.Status = types.StatusCompleted
	asset.Data.URL = status.URL
	if status.URL == "" && status.Base64 != "" {
		asset.Data.Src = "data:image/png;base64," + status.Base64
	}
	asset.Data.Label = ""
	if err := e.store.UpdateNode(ctx, asset); err != nil {
		return fmt.Errorf("completed asset write failed: %w", err)
	}
	e.logger.Info("generation completed",
		zap.String("asset_id", asset.ID),
		zap.String("output", asset.Data.OutputRef()))
	return nil
}

// fail marks the asset failed and keeps the reason on the label so the
// canvas shows why. Returns nil: the failure reached its terminal state.
func (e *Executor) fail(ctx context.Context, asset *types.Node, reason string) error {
	asset.Data.Status = types.StatusFailed
	asset.Data.Label = reason
	if err := e.store.UpdateNode(ctx, asset); err != nil {
		return fmt.Errorf("failed asset write failed: %w", err)
	}
	return nil
}

func stateLabel(status *providers.TaskStatus) string {
	if status == nil {
		return "error"
	}
	return string(status.State)
}
