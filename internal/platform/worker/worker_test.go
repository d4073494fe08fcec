package worker

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testInterval = 10 * time.Millisecond

func TestTickerLoop_RunsUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var ticks atomic.Int32

	stopped := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- TickerLoop(ctx, TickerConfig{
			Name:       "test",
			Interval:   testInterval,
			RunOnStart: true,
			OnTick: func(context.Context) {
				if ticks.Add(1) == 3 {
					cancel()
				}
			},
			OnStop: func() { close(stopped) },
		})
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}

	<-stopped
	require.GreaterOrEqual(t, ticks.Load(), int32(3))
}

func TestTickerLoop_SlowTickDoesNotOverlapOrBurst(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 25*testInterval)
	defer cancel()

	var running, overlaps, ticks atomic.Int32

	err := TickerLoop(ctx, TickerConfig{
		Name:     "slow",
		Interval: testInterval,
		OnTick: func(ctx context.Context) {
			if running.Add(1) > 1 {
				overlaps.Add(1)
			}
			defer running.Add(-1)

			ticks.Add(1)
			_ = Wait(ctx, 5*testInterval)
		},
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Zero(t, overlaps.Load())
	// Each tick takes 5 intervals plus one interval of spacing; replaying missed
	// ticks would give many more than 25/6.
	require.LessOrEqual(t, ticks.Load(), int32(5))
}

func TestTickerLoop_RecoversFromPanickingTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var ticks atomic.Int32

	err := TickerLoop(ctx, TickerConfig{
		Name:       "panicky",
		Interval:   testInterval,
		RunOnStart: true,
		Logger:     &logger,
		OnTick: func(context.Context) {
			if ticks.Add(1) == 1 {
				panic("boom")
			}

			cancel()
		},
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Contains(t, buf.String(), "recovered from panic")
}

func TestTickerLoop_RejectsNonPositiveInterval(t *testing.T) {
	err := TickerLoop(context.Background(), TickerConfig{Name: "bad"})
	require.Error(t, err)
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), 0))
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}

func TestRunWithTimeout(t *testing.T) {
	err := RunWithTimeout(context.Background(), testInterval, func(ctx context.Context) error {
		<-ctx.Done()

		return ctx.Err()
	})
	require.True(t, errors.Is(err, context.DeadlineExceeded))

	err = RunWithTimeout(context.Background(), 0, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		require.False(t, ok)

		return nil
	})
	require.NoError(t, err)
}
