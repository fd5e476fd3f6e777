// Package canvasflow provides a top-level convenience entry point for
// embedding the canvas platform in another process without running the
// server binary.
//
// Usage:
//
//	import "github.com/studioflow/canvasflow"
//
//	p, err := canvasflow.Open(config.DefaultConfig(), logger)
//	defer p.Close()
//	result, err := p.Dispatcher.Run(ctx, projectID, nodeID)
//
// The platform opened here is single-process: interrupt sessions live in
// memory and reads always go to the database. Use cmd/canvasflow for the
// full deployment with redis sessions and document sync.
package canvasflow

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/canvas"
	"github.com/studioflow/canvasflow/canvas/backendstore"
	"github.com/studioflow/canvasflow/config"
	"github.com/studioflow/canvasflow/dispatch"
	"github.com/studioflow/canvasflow/identity"
	"github.com/studioflow/canvasflow/internal/database"
	"github.com/studioflow/canvasflow/interrupt"
)

// Platform bundles the wired domain components.
type Platform struct {
	Store      *canvas.Store
	Dispatcher *dispatch.Dispatcher
	Waiter     *dispatch.Waiter
	Repairer   *dispatch.Repairer
	Interrupts *interrupt.Coordinator

	pool *database.Pool
}

// Open connects to the configured database and wires the platform.
func Open(cfg *config.Config, logger *zap.Logger) (*Platform, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool, err := database.NewPool(db, 0, logger)
	if err != nil {
		return nil, fmt.Errorf("init database pool: %w", err)
	}

	backend, err := backendstore.New(db, logger)
	if err != nil {
		return nil, fmt.Errorf("init backend store: %w", err)
	}

	alloc := identity.NewAllocator(backend, logger)
	store := canvas.NewStore(backend, nil, alloc, logger)

	return &Platform{
		Store: store,
		Dispatcher: dispatch.NewDispatcher(store, dispatch.Config{
			DefaultVideoDuration: cfg.Dispatch.DefaultVideoDuration,
			DefaultVideoModel:    cfg.Dispatch.DefaultVideoModel,
		}, nil, logger),
		Waiter:   dispatch.NewWaiter(store, cfg.Dispatch.WaitInterval, cfg.Dispatch.WaitTimeout, logger),
		Repairer: dispatch.NewRepairer(store, cfg.Dispatch.RepairConcurrency, logger),
		Interrupts: interrupt.NewCoordinator(interrupt.NewMemoryStore(), nil, logger,
			interrupt.WithCacheWindow(cfg.Interrupt.CacheWindow)),
		pool: pool,
	}, nil
}

// Close releases the database connections.
func (p *Platform) Close() error {
	return p.pool.Close()
}
