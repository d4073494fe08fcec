// Package refresh keeps the published snapshot current by rebuilding it on a
// fixed interval. A failed rebuild leaves the previous snapshot serving reads.
package refresh

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/lueurxax/research-dashboard/internal/core/errors"
	"github.com/lueurxax/research-dashboard/internal/platform/worker"
	"github.com/lueurxax/research-dashboard/internal/snapshot"
)

const (
	workerName = "snapshot-refresh"

	logFieldTrigger    = "trigger"
	logFieldSnapshotID = "snapshot_id"
	logFieldGeneration = "generation"
	logFieldRows       = "rows"
	logFieldDuration   = "duration"

	triggerTick   = "tick"
	triggerManual = "manual"
)

// Rebuilder builds a complete snapshot from the source store.
type Rebuilder interface {
	Rebuild(ctx context.Context) (*snapshot.Snapshot, error)
}

// Options configures a Scheduler.
type Options struct {
	// Interval between scheduled rebuilds.
	Interval time.Duration
	// Timeout bounds a single rebuild; zero means no bound.
	Timeout time.Duration
}

// Scheduler is the single writer of a snapshot.Store.
type Scheduler struct {
	rebuilder Rebuilder
	store     *snapshot.Store
	opts      Options
	logger    *zerolog.Logger

	inFlight atomic.Bool
}

// New creates a Scheduler that publishes rebuilt snapshots to store. It is the
// store's only writer.
func New(rebuilder Rebuilder, store *snapshot.Store, opts Options, logger *zerolog.Logger) *Scheduler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Scheduler{
		rebuilder: rebuilder,
		store:     store,
		opts:      opts,
		logger:    logger,
	}
}

// Run rebuilds immediately and then on every interval until ctx is canceled.
// Rebuild failures are logged and never stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	return worker.TickerLoop(ctx, worker.TickerConfig{
		Name:       workerName,
		Interval:   s.opts.Interval,
		RunOnStart: true,
		OnTick: func(ctx context.Context) {
			_, _ = s.rebuild(ctx, triggerTick) //nolint:errcheck // logged in rebuild
		},
		Logger: s.logger,
	})
}

// RebuildNow runs one rebuild outside the schedule. It fails with
// errors.ErrRebuildInFlight when another rebuild is running, and with a
// *errors.DataSourceError when the source store fails.
func (s *Scheduler) RebuildNow(ctx context.Context) (*snapshot.Snapshot, error) {
	return s.rebuild(ctx, triggerManual)
}

// InFlight reports whether a rebuild is running.
func (s *Scheduler) InFlight() bool {
	return s.inFlight.Load()
}

func (s *Scheduler) rebuild(ctx context.Context, trigger string) (*snapshot.Snapshot, error) {
	logger := s.logger.With().Str(logFieldTrigger, trigger).Logger()

	if !s.inFlight.CompareAndSwap(false, true) {
		rebuildsTotal.WithLabelValues(outcomeSkipped).Inc()
		logger.Debug().Msg("rebuild already in flight, skipping")

		return nil, apperrors.ErrRebuildInFlight
	}
	defer s.inFlight.Store(false)

	start := time.Now()

	var snap *snapshot.Snapshot

	err := worker.RunWithTimeout(ctx, s.opts.Timeout, func(ctx context.Context) error {
		var err error

		snap, err = s.rebuilder.Rebuild(ctx)

		return err
	})

	elapsed := time.Since(start)
	rebuildDuration.Observe(elapsed.Seconds())

	if err != nil {
		rebuildsTotal.WithLabelValues(outcomeFailure).Inc()

		ev := logger.Error().Err(err).Dur(logFieldDuration, elapsed)
		if prev := s.store.Load(); prev != nil {
			ev = ev.Str(logFieldSnapshotID, prev.ID()).Uint64(logFieldGeneration, prev.Generation())
		}

		ev.Msg("rebuild failed, keeping previous snapshot")

		return nil, err
	}

	s.store.Publish(snap)

	rebuildsTotal.WithLabelValues(outcomeSuccess).Inc()
	snapshotRows.Set(float64(snap.Len()))
	snapshotGeneration.Set(float64(snap.Generation()))
	lastSuccess.Set(float64(snap.BuiltAt().Unix()))

	logger.Info().
		Str(logFieldSnapshotID, snap.ID()).
		Uint64(logFieldGeneration, snap.Generation()).
		Int(logFieldRows, snap.Len()).
		Dur(logFieldDuration, elapsed).
		Msg("snapshot published")

	return snap, nil
}
