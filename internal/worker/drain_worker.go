package worker

import (
	"context"
	"sync"
	"time"

	"github.com/Neyfan/zama-dca-bot-batching/internal/domain"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/logger"
)

const defaultDrainInterval = 5 * time.Second

// DrainWorker settles at most one queued order per tick. The next tick is
// armed only after the current cycle has finished, and Drain refuses to
// start while another cycle is running, so at most one ledger submission is
// ever outstanding. Callers manage lifecycle through the context passed to Start.
type DrainWorker struct {
	orderUC  domain.OrderUsecase
	interval time.Duration
	busy     sync.Mutex
}

// DrainWorkerConfig defines runtime options for the worker.
type DrainWorkerConfig struct {
	Interval time.Duration
}

// NewDrainWorker builds a new drain worker instance.
func NewDrainWorker(orderUC domain.OrderUsecase, cfg DrainWorkerConfig) *DrainWorker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultDrainInterval
	}

	return &DrainWorker{
		orderUC:  orderUC,
		interval: interval,
	}
}

// Interval returns the configured tick period.
func (w *DrainWorker) Interval() time.Duration {
	return w.interval
}

// Start launches the worker loop. It blocks until context cancellation and
// always returns nil, which keeps it usable as an errgroup member.
func (w *DrainWorker) Start(ctx context.Context) error {
	logger.Info("Drain worker started", logger.Duration("interval", w.interval))
	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Drain worker stopping", logger.ErrorField(ctx.Err()))
			return nil
		case <-timer.C:
			w.Drain(ctx)
			timer.Reset(w.interval)
		}
	}
}

// Drain runs one cycle. It reports false when the queue was empty or when
// another cycle was still in progress.
func (w *DrainWorker) Drain(ctx context.Context) (domain.Outcome, bool) {
	if w.orderUC == nil {
		logger.Warn("Drain worker missing dependencies")
		return domain.Outcome{}, false
	}

	if !w.busy.TryLock() {
		logger.Warn("Drain cycle skipped, previous submission still outstanding")
		return domain.Outcome{}, false
	}
	defer w.busy.Unlock()

	start := time.Now()
	outcome, ok := w.orderUC.ExecuteNext(ctx)
	if !ok {
		// No items available
		return domain.Outcome{}, false
	}

	logger.Debug("Drain cycle finished",
		logger.String("order_id", outcome.OrderID),
		logger.String("state", outcome.State),
		logger.Duration("duration", time.Since(start)),
	)
	return outcome, true
}
