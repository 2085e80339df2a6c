package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingSweeper struct {
	calls   atomic.Int32
	idleFor atomic.Int64
	err     error
}

func (c *countingSweeper) AbandonIdle(_ context.Context, idleFor time.Duration) (int, error) {
	c.calls.Add(1)
	c.idleFor.Store(int64(idleFor))
	return 1, c.err
}

func TestAbandonerSweepsUntilCancelled(t *testing.T) {
	sweeper := &countingSweeper{}
	a := NewAbandoner(sweeper, time.Hour, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.Run(ctx)
	}()

	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	wg.Wait()

	assert.Equal(t, int64(time.Hour), sweeper.idleFor.Load())
}

func TestAbandonerDisabled(t *testing.T) {
	sweeper := &countingSweeper{}
	NewAbandoner(sweeper, 0, time.Millisecond, nil).Run(context.Background())
	assert.Zero(t, sweeper.calls.Load())
}

func TestAbandonerLogsErrors(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sweeper := &countingSweeper{err: errors.New("db down")}
	a := NewAbandoner(sweeper, time.Hour, time.Millisecond, zap.New(core))

	a.sweep(context.Background())

	require.Equal(t, 1, logs.FilterLevelExact(zap.ErrorLevel).Len())
}
