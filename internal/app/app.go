// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Serve mode: refresh scheduler plus the dashboard API, health and metrics
//   - Rebuild mode: a single snapshot rebuild that reports what it built
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lueurxax/research-dashboard/internal/aggregate"
	"github.com/lueurxax/research-dashboard/internal/dashboard"
	"github.com/lueurxax/research-dashboard/internal/platform/config"
	"github.com/lueurxax/research-dashboard/internal/platform/observability"
	"github.com/lueurxax/research-dashboard/internal/query"
	"github.com/lueurxax/research-dashboard/internal/refresh"
	"github.com/lueurxax/research-dashboard/internal/snapshot"
	db "github.com/lueurxax/research-dashboard/internal/storage"
	"github.com/lueurxax/research-dashboard/internal/transform"
)

const (
	logFieldDriver     = "driver"
	logFieldRows       = "rows"
	logFieldEngagement = "engagement_days"
	logFieldSnapshotID = "snapshot_id"
)

// SourceStore is an opened relational store the snapshot is rebuilt from.
type SourceStore interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Source() *db.Source
	Close() error
}

// postgresStore adapts *db.DB, whose Close cannot fail, to SourceStore.
type postgresStore struct {
	*db.DB
}

func (p postgresStore) Close() error {
	p.DB.Close()

	return nil
}

// OpenStore connects to the configured source store and applies migrations
// when enabled.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (SourceStore, error) {
	var (
		store SourceStore
		err   error
	)

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		store, err = db.OpenSQLite(ctx, cfg.Database.SQLitePath, logger)
	default:
		var pg *db.DB

		pg, err = db.NewWithOptions(ctx, cfg.Database.PostgresDSN, db.PoolOptions{
			MaxConns:          cfg.Database.MaxConnections,
			MinConns:          cfg.Database.MinConnections,
			MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
			MaxConnLifetime:   cfg.Database.MaxConnLifetime,
			HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
		}, logger)
		if err == nil {
			store = postgresStore{DB: pg}
		}
	}

	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}

	logger.Info().Str(logFieldDriver, cfg.Database.Driver).Msg("source store connected")

	if cfg.Database.RunMigrations {
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()

			return nil, fmt.Errorf("migrate %s store: %w", cfg.Database.Driver, err)
		}
	}

	return store, nil
}

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg    *config.Config
	store  SourceStore
	logger *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, store SourceStore, logger *zerolog.Logger) *App {
	return &App{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

func (a *App) newScheduler(snapshots *snapshot.Store) *refresh.Scheduler {
	engine := aggregate.New(a.store.Source(), a.logger)

	return refresh.New(engine, snapshots, refresh.Options{
		Interval: a.cfg.Refresh.Interval,
		Timeout:  a.cfg.Refresh.RebuildTimeout,
	}, a.logger)
}

// RunServe keeps the snapshot fresh and serves the dashboard API until ctx is
// canceled. Reads are served from the last good snapshot while the source store
// is down.
func (a *App) RunServe(ctx context.Context) error {
	a.logger.Info().Msg("Starting serve mode")

	observability.BuildInfo.WithLabelValues(Version, a.cfg.Database.Driver).Set(1)

	snapshots := snapshot.NewStore()
	scheduler := a.newScheduler(snapshots)

	api := dashboard.NewHandler(dashboard.Options{
		Queries:   query.NewService(snapshots, a.logger),
		Charts:    transform.NewService(transform.NewPalette(a.cfg.CollegeColors), a.cfg.TopN),
		Rebuilder: scheduler,
		RateLimit: rate.Limit(a.cfg.HTTP.RateLimitRPS),
		Burst:     a.cfg.HTTP.RateLimitBurst,

		MaxClients:        a.cfg.HTTP.RateLimitClients,
		TrustProxyHeaders: a.cfg.HTTP.TrustProxyHeaders,
	}, a.logger)

	ready := func() bool { return snapshots.Load() != nil }
	srv := observability.NewServer(a.store, ready, api, a.cfg.HTTP.Port, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := scheduler.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("refresh scheduler: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		if err := srv.Start(gctx); err != nil {
			return fmt.Errorf("http server start: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	return ctx.Err()
}

// RunRebuild performs one rebuild and reports the resulting snapshot. It is
// useful to verify a source store before pointing the dashboard at it.
func (a *App) RunRebuild(ctx context.Context) error {
	a.logger.Info().Msg("Starting single rebuild")

	start := time.Now()

	snap, err := a.newScheduler(snapshot.NewStore()).RebuildNow(ctx)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}

	a.logger.Info().
		Str(logFieldSnapshotID, snap.ID()).
		Int(logFieldRows, snap.Len()).
		Int(logFieldEngagement, len(snap.Engagement())).
		Dur("duration", time.Since(start)).
		Msg("rebuild complete")

	return nil
}
