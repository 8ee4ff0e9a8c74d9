package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/richbai90/mvcapture/internal/bus"
	"github.com/richbai90/mvcapture/internal/capture"
	"github.com/richbai90/mvcapture/internal/config"
	"github.com/richbai90/mvcapture/internal/connectors"
	"github.com/richbai90/mvcapture/internal/domain"
	"github.com/richbai90/mvcapture/internal/logging"
	"github.com/richbai90/mvcapture/internal/metrics"
	"github.com/richbai90/mvcapture/internal/notifications"
	"github.com/richbai90/mvcapture/internal/persistence"
	"github.com/richbai90/mvcapture/internal/platform"
	"github.com/richbai90/mvcapture/internal/rpc"
)

const shutdownTimeout = 2 * time.Second

// Options adjusts runtime construction for a particular entry point.
type Options struct {
	// RootDir replaces the user config directory.
	RootDir string
	// ConfigFile replaces the default config path; a .toml file is read as TOML.
	ConfigFile string
	// Configure applies command line overrides after the config is loaded.
	Configure func(*config.AppConfig)
	// Processor turns a burst into an image; nil saves raw frames.
	Processor capture.Processor
	// Notifications receives user-facing notifications when set.
	Notifications notifications.Sender
}

type Runtime struct {
	mu sync.RWMutex

	Ctx    context.Context
	cancel context.CancelFunc

	Paths  Paths
	Config config.AppConfig

	LogManager *logging.Manager
	Bus        *bus.PubSubBus
	DB         *sql.DB

	SessionRepo *persistence.SessionRepo
	CaptureRepo *persistence.CaptureRepo
	WriterQueue *persistence.WriterQueue

	Transport *SwitchableTransport
	Link      *rpc.Client
	Capture   *capture.Service

	stopWriter     context.CancelFunc
	projectionDone <-chan struct{}
	linkLock       platform.LinkLock
	metricsServer  *http.Server

	connStatusMu    sync.RWMutex
	connStatus      connectors.ConnectionStatus
	connStatusKnown bool
}

func Initialize(parent context.Context, opts Options) (*Runtime, error) {
	paths, err := resolveRuntimePaths(opts)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return nil, err
	}
	if opts.Configure != nil {
		opts.Configure(&cfg)
		cfg.FillMissingDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(parent)
	rt := &Runtime{
		Ctx:    ctx,
		cancel: cancel,
		Paths:  paths,
		Config: cfg,
	}
	rt.setConnStatus(ConnectionStatusFromConfig(cfg.Connection))

	logMgr := logging.NewManager()
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		_ = logMgr.Close()
		cancel()

		return nil, fmt.Errorf("configure logging: %w", err)
	}
	rt.LogManager = logMgr
	slog.Info("starting mvcapture runtime", "version", BuildVersion(), "build_date", BuildDateYMD())

	if err := rt.acquireLinkLock(cfg.Connection); err != nil {
		_ = rt.Close()

		return nil, err
	}

	db, err := persistence.Open(ctx, paths.DBFile)
	if err != nil {
		_ = rt.Close()

		return nil, err
	}
	rt.DB = db
	rt.SessionRepo = persistence.NewSessionRepo(db)
	rt.CaptureRepo = persistence.NewCaptureRepo(db)

	b := bus.New(logMgr.Logger("bus"))
	rt.Bus = b
	connSub := b.Subscribe(connectors.TopicConnStatus)
	go rt.captureConnStatus(ctx, connSub)
	startCaptureMetrics(ctx, b)

	// The writer outlives ctx so events queued during shutdown still land.
	writerCtx, stopWriter := context.WithCancel(context.WithoutCancel(parent))
	rt.stopWriter = stopWriter
	writerQueue := persistence.NewWriterQueue(logMgr.Logger("persistence"), writerQueueCapacity)
	writerQueue.Start(writerCtx)
	rt.WriterQueue = writerQueue
	rt.projectionDone = domain.StartPersistenceProjection(writerCtx, b, writerQueue, rt.SessionRepo, rt.CaptureRepo)

	if opts.Notifications != nil {
		NewNotificationService(b, rt.CurrentConfig, opts.Notifications, logMgr.Logger("notifications")).Start(ctx)
	}

	connTransport, err := NewConnectionTransport(cfg.Connection)
	if err != nil {
		_ = rt.Close()

		return nil, fmt.Errorf("initialize transport: %w", err)
	}
	rt.Transport = connTransport
	rt.Link = rpc.NewClient(connTransport, logMgr.Logger("rpc"), cfg.Transfer.CallTimeout())
	NewLinkMonitor(logMgr.Logger("link"), b, connTransport).Start(ctx)

	rt.Capture = capture.NewService(capture.Dependencies{
		Logger:    logMgr.Logger("capture"),
		Bus:       b,
		Link:      rt.Link,
		Fetcher:   NewFetcher(cfg.Transfer, logMgr.Logger("snapshot"), b),
		Processor: opts.Processor,
	}, capture.Settings{
		Request:   cfg.SnapshotRequest(),
		Strategy:  StrategyFromConfig(cfg.Transfer),
		BurstSize: cfg.Session.BurstSize,
	})
	rt.Capture.Start(ctx)

	rt.startMetricsServer(cfg.Metrics.ListenAddr)

	return rt, nil
}

func resolveRuntimePaths(opts Options) (Paths, error) {
	var (
		paths Paths
		err   error
	)
	if opts.RootDir != "" {
		paths, err = PathsIn(opts.RootDir)
	} else {
		paths, err = ResolvePaths()
	}
	if err != nil {
		return Paths{}, err
	}

	return paths.WithConfigFile(opts.ConfigFile), nil
}

func (r *Runtime) acquireLinkLock(cfg config.ConnectionConfig) error {
	if cfg.Connector == config.ConnectorSim {
		return nil
	}
	target := ConnectionTarget(cfg)
	if target == "" {
		return nil
	}
	lock, err := platform.AcquireLinkLock(target)
	if errors.Is(err, platform.ErrLinkLockUnsupported) {
		slog.Warn("link lock unavailable", "error", err)

		return nil
	}
	if err != nil {
		return fmt.Errorf("lock %s: %w", target, err)
	}
	r.linkLock = lock

	return nil
}

func (r *Runtime) startMetricsServer(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	r.metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	logger := r.LogManager.Logger("metrics")
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := r.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
}

func (r *Runtime) captureConnStatus(ctx context.Context, sub bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-sub:
			if !ok {
				return
			}
			status, ok := raw.(connectors.ConnectionStatus)
			if !ok {
				continue
			}
			r.setConnStatus(status)
		}
	}
}

func (r *Runtime) setConnStatus(status connectors.ConnectionStatus) {
	r.connStatusMu.Lock()
	r.connStatus = status
	r.connStatusKnown = true
	r.connStatusMu.Unlock()
}

func (r *Runtime) CurrentConnStatus() (connectors.ConnectionStatus, bool) {
	r.connStatusMu.RLock()
	status := r.connStatus
	known := r.connStatusKnown
	r.connStatusMu.RUnlock()

	return status, known
}

func (r *Runtime) CurrentConfig() config.AppConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.Config
}

// SaveAndApplyConfig persists cfg and applies logging and connection
// changes. Transfer settings take effect on the next start.
func (r *Runtime) SaveAndApplyConfig(cfg config.AppConfig) error {
	cfg.FillMissingDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if err := config.Save(r.Paths.ConfigFile, cfg); err != nil {
		r.mu.Unlock()

		return err
	}
	previous := r.Config.Connection
	r.Config = cfg
	r.mu.Unlock()

	if err := r.LogManager.Configure(cfg.Logging, r.Paths.LogFile); err != nil {
		return err
	}
	if r.Transport == nil || previous == cfg.Connection {
		return nil
	}

	if r.linkLock != nil {
		_ = r.linkLock.Release()
		r.linkLock = nil
	}
	if err := r.acquireLinkLock(cfg.Connection); err != nil {
		return err
	}

	return r.Transport.Apply(cfg.Connection)
}

func (r *Runtime) RecentSessions(ctx context.Context) ([]domain.Session, error) {
	if r.SessionRepo == nil {
		return nil, fmt.Errorf("database is not initialized")
	}

	return r.SessionRepo.ListRecent(ctx, recentSessionsLoad)
}

func (r *Runtime) ClearDatabase() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := persistence.ClearDatabase(ctx, r.DB); err != nil {
		return err
	}
	slog.Info("database cleared")

	return nil
}

// Close stops the services, flushes pending database writes and releases
// the link.
func (r *Runtime) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.Bus != nil {
		r.Bus.Close()
	}
	if r.projectionDone != nil {
		select {
		case <-r.projectionDone:
		case <-time.After(shutdownTimeout):
			slog.Warn("persistence projection did not stop in time")
		}
	}
	if r.stopWriter != nil {
		r.stopWriter()
		r.WriterQueue.Wait()
	}
	if r.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		_ = r.metricsServer.Shutdown(ctx)
		cancel()
	}
	if r.Link != nil {
		_ = r.Link.Close()
	}
	if r.linkLock != nil {
		_ = r.linkLock.Release()
	}
	if r.DB != nil {
		_ = r.DB.Close()
	}
	if r.LogManager != nil {
		_ = r.LogManager.Close()
	}

	return nil
}
