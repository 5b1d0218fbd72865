package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptt_crawler/internal/domain"
)

type runnerFunc func(ctx context.Context) (*domain.CrawlResult, error)

func (f runnerFunc) Run(ctx context.Context) (*domain.CrawlResult, error) {
	return f(ctx)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunsUntilCancelled(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := runnerFunc(func(context.Context) (*domain.CrawlResult, error) {
		if runs.Add(1) == 3 {
			cancel()
		}
		return &domain.CrawlResult{}, nil
	})

	err := NewScheduler(runner, 5*time.Millisecond, time.Second, discardLogger()).Start(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestScheduler_ContinuesAfterFailure(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := runnerFunc(func(context.Context) (*domain.CrawlResult, error) {
		if runs.Add(1) >= 2 {
			cancel()
		}
		return nil, errors.New("listing unavailable")
	})

	err := NewScheduler(runner, 5*time.Millisecond, 0, discardLogger()).Start(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, runs.Load(), int32(2))
}

func TestScheduler_AppliesRunTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var deadline time.Time
	var hasDeadline bool
	runner := runnerFunc(func(runCtx context.Context) (*domain.CrawlResult, error) {
		deadline, hasDeadline = runCtx.Deadline()
		cancel()
		return &domain.CrawlResult{}, nil
	})

	start := time.Now()
	_ = NewScheduler(runner, time.Hour, time.Minute, discardLogger()).Start(ctx)

	require.True(t, hasDeadline)
	assert.WithinDuration(t, start.Add(time.Minute), deadline, 5*time.Second)
}
