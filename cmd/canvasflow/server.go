package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/studioflow/canvasflow/api/handlers"
	"github.com/studioflow/canvasflow/canvas"
	"github.com/studioflow/canvasflow/canvas/backendstore"
	"github.com/studioflow/canvasflow/canvas/crdt"
	"github.com/studioflow/canvasflow/config"
	"github.com/studioflow/canvasflow/dispatch"
	"github.com/studioflow/canvasflow/identity"
	"github.com/studioflow/canvasflow/internal/database"
	"github.com/studioflow/canvasflow/internal/metrics"
	"github.com/studioflow/canvasflow/internal/server"
	"github.com/studioflow/canvasflow/interrupt"
	"github.com/studioflow/canvasflow/providers"
	"github.com/studioflow/canvasflow/providers/gemini"
	"github.com/studioflow/canvasflow/providers/kie"
	"github.com/studioflow/canvasflow/providers/kling"
)

// Server assembles and runs the platform: database, optional redis and
// document sync, the canvas store, dispatch, interrupts, and the two HTTP
// listeners.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	pool        *database.Pool
	redisClient *redis.Client
	syncConn    *crdt.Conn
	syncCancel  context.CancelFunc

	httpManager    *server.Manager
	metricsManager *server.Manager
}

// NewServer creates an unstarted server.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Start wires every component and begins serving. Redis and document sync
// are optional: without redis, sessions and id reservations stay
// process-local; without sync, every read goes to the backend.
func (s *Server) Start() error {
	var collector *metrics.Collector
	if s.cfg.Metrics.Enabled {
		collector = metrics.NewCollector(s.cfg.Metrics.Namespace, s.logger)
	}

	db, err := database.Open(s.cfg.Database, s.logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	s.pool, err = database.NewPool(db, 30*time.Second, s.logger)
	if err != nil {
		return fmt.Errorf("init database pool: %w", err)
	}

	backend, err := backendstore.New(db, s.logger)
	if err != nil {
		return fmt.Errorf("init backend store: %w", err)
	}

	if s.cfg.Redis.Addr != "" {
		s.redisClient = redis.NewClient(&redis.Options{
			Addr:         s.cfg.Redis.Addr,
			Password:     s.cfg.Redis.Password,
			DB:           s.cfg.Redis.DB,
			PoolSize:     s.cfg.Redis.PoolSize,
			MinIdleConns: s.cfg.Redis.MinIdleConns,
		})
	}

	var checker identity.Checker = backend
	if s.redisClient != nil {
		checker = identity.NewRedisChecker(s.redisClient, s.logger)
	}
	alloc := identity.NewAllocator(checker, s.logger, identity.WithCollector(collector))

	var doc *crdt.Doc
	if s.cfg.Sync.URL != "" {
		doc = crdt.NewDoc()
		s.syncConn = crdt.NewConn(doc, crdt.ConnConfig{
			URL:               s.cfg.Sync.URL,
			ReconnectAttempts: s.cfg.Sync.ReconnectAttempts,
			ReconnectDelay:    s.cfg.Sync.ReconnectDelay,
			SendBuffer:        s.cfg.Sync.SendBuffer,
		}, collector, s.logger)

		syncCtx, cancel := context.WithCancel(context.Background())
		s.syncCancel = cancel
		if err := s.syncConn.Start(syncCtx); err != nil {
			// Degraded but serviceable: the store reads fall back to the
			// backend until a later reconnect succeeds.
			s.logger.Warn("document sync unavailable at startup", zap.Error(err))
		}
	}

	var store *canvas.Store
	if doc != nil {
		store = canvas.NewStore(backend, doc, alloc, s.logger)
	} else {
		store = canvas.NewStore(backend, nil, alloc, s.logger)
	}

	dispatcher := dispatch.NewDispatcher(store, dispatch.Config{
		DefaultVideoDuration: s.cfg.Dispatch.DefaultVideoDuration,
		DefaultVideoModel:    s.cfg.Dispatch.DefaultVideoModel,
	}, collector, s.logger)
	waiter := dispatch.NewWaiter(store, s.cfg.Dispatch.WaitInterval, s.cfg.Dispatch.WaitTimeout, s.logger)
	repairer := dispatch.NewRepairer(store, s.cfg.Dispatch.RepairConcurrency, s.logger)
	executor := s.buildExecutor(store, collector)

	var sessions interrupt.SessionStore = interrupt.NewMemoryStore()
	if s.redisClient != nil {
		sessions = interrupt.NewRedisStore(s.redisClient, s.logger)
	}
	coordinator := interrupt.NewCoordinator(sessions, collector, s.logger,
		interrupt.WithCacheWindow(s.cfg.Interrupt.CacheWindow))

	health := handlers.NewHealthHandler(s.logger)
	health.RegisterCheck(handlers.HealthCheck{Name: "database", Check: s.pool.Ping})
	if s.redisClient != nil {
		health.RegisterCheck(handlers.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return s.redisClient.Ping(ctx).Err()
		}})
	}

	graph := handlers.NewGraphHandler(store, s.logger)
	disp := handlers.NewDispatchHandler(dispatcher, waiter, repairer, executor, s.logger)
	intr := handlers.NewInterruptHandler(coordinator, s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.HandleHealth)
	mux.HandleFunc("GET /ready", health.HandleReady)
	mux.HandleFunc("GET /version", health.HandleVersion(Version, BuildTime, GitCommit))
	mux.HandleFunc("POST /api/v1/projects/{project}/nodes", graph.HandleCreateNode)
	mux.HandleFunc("GET /api/v1/projects/{project}/nodes", graph.HandleListNodes)
	mux.HandleFunc("GET /api/v1/projects/{project}/nodes/{node}", graph.HandleGetNode)
	mux.HandleFunc("POST /api/v1/projects/{project}/edges", graph.HandleCreateEdge)
	mux.HandleFunc("GET /api/v1/projects/{project}/edges", graph.HandleListEdges)
	mux.HandleFunc("POST /api/v1/projects/{project}/nodes/{node}/dispatch", disp.HandleDispatch)
	mux.HandleFunc("POST /api/v1/projects/{project}/assets/{asset}/wait", disp.HandleWait)
	mux.HandleFunc("POST /api/v1/projects/{project}/repair", disp.HandleRepair)
	mux.HandleFunc("POST /api/v1/threads/{thread}/interrupt", intr.HandleInterrupt)
	mux.HandleFunc("GET /api/v1/threads/{thread}", intr.HandleThreadStatus)

	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
	)

	s.httpManager = server.NewManager(handler, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	if s.cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		s.metricsManager = server.NewManager(metricsMux, server.Config{
			Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
			ReadTimeout:     s.cfg.Server.ReadTimeout,
			WriteTimeout:    s.cfg.Server.WriteTimeout,
			ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
		}, s.logger)
		if err := s.metricsManager.Start(); err != nil {
			return err
		}
	}

	s.logger.Info("all servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("redis", s.redisClient != nil),
		zap.Bool("sync", s.syncConn != nil),
	)
	return nil
}

// buildExecutor selects generation providers from the configured
// credentials. Missing credentials disable that asset kind; with no
// providers at all the executor is nil and dispatch only stages assets.
func (s *Server) buildExecutor(store *canvas.Store, collector *metrics.Collector) *dispatch.Executor {
	var image, video providers.Generator

	if s.cfg.Providers.Gemini.APIKey != "" {
		image = gemini.New(gemini.Config{
			APIKey:  s.cfg.Providers.Gemini.APIKey,
			BaseURL: s.cfg.Providers.Gemini.BaseURL,
			Model:   s.cfg.Providers.Gemini.Model,
			Timeout: s.cfg.Providers.Gemini.Timeout,
		})
	}

	switch {
	case s.cfg.Providers.Kling.AccessKey != "":
		video = kling.New(kling.Config{
			AccessKey: s.cfg.Providers.Kling.AccessKey,
			SecretKey: s.cfg.Providers.Kling.SecretKey,
			BaseURL:   s.cfg.Providers.Kling.BaseURL,
			Model:     s.cfg.Providers.Kling.Model,
			Timeout:   s.cfg.Providers.Kling.Timeout,
		})
	case s.cfg.Providers.KIE.APIKey != "":
		video = kie.New(kie.Config{
			APIKey:  s.cfg.Providers.KIE.APIKey,
			BaseURL: s.cfg.Providers.KIE.BaseURL,
			Model:   s.cfg.Providers.KIE.Model,
			Timeout: s.cfg.Providers.KIE.Timeout,
		})
	}

	if image == nil && video == nil {
		s.logger.Info("no generation providers configured, dispatch will only stage assets")
		return nil
	}
	return dispatch.NewExecutor(store, image, video,
		s.cfg.Dispatch.WaitInterval, s.cfg.Dispatch.WaitTimeout, collector, s.logger)
}

// WaitForShutdown blocks until a shutdown signal, then closes everything.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown stops listeners and closes shared resources.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown")
	ctx := context.Background()

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}
	if s.syncConn != nil {
		s.syncConn.Stop()
	}
	if s.syncCancel != nil {
		s.syncCancel()
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("redis close error", zap.Error(err))
		}
	}
	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			s.logger.Error("database pool close error", zap.Error(err))
		}
	}
	s.logger.Info("graceful shutdown completed")
}
