// Package worker runs background maintenance loops.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type idleCartSweeper interface {
	AbandonIdle(ctx context.Context, idleFor time.Duration) (int, error)
}

// Abandoner periodically moves idle ACTIVE carts to ABANDONED.
type Abandoner struct {
	carts    idleCartSweeper
	idleFor  time.Duration
	interval time.Duration
	logger   *zap.Logger
}

func NewAbandoner(carts idleCartSweeper, idleFor, interval time.Duration, logger *zap.Logger) *Abandoner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Abandoner{carts: carts, idleFor: idleFor, interval: interval, logger: logger}
}

// Run sweeps once per interval until ctx is done. It returns immediately
// when idleFor or interval is not positive.
func (a *Abandoner) Run(ctx context.Context) {
	if a.idleFor <= 0 || a.interval <= 0 {
		a.logger.Info("cart abandonment disabled")
		return
	}
	a.logger.Info("cart abandonment started", zap.Duration("idle_for", a.idleFor), zap.Duration("interval", a.interval))

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("cart abandonment stopped")
			return
		case <-ticker.C:
			a.sweep(ctx)
		}
	}
}

func (a *Abandoner) sweep(ctx context.Context) {
	n, err := a.carts.AbandonIdle(ctx, a.idleFor)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Error("abandon idle carts", zap.Error(err))
		}
		return
	}
	a.logger.Debug("idle cart sweep", zap.Int("abandoned", n))
}
