package usecase

import (
	"context"
	"time"

	"github.com/Neyfan/zama-dca-bot-batching/internal/domain"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/logger"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/metrics"
)

const (
	defaultLedgerTimeout  = 60 * time.Second
	defaultJournalTimeout = 5 * time.Second

	// DropPolicy is the only failure policy: a failed order is logged,
	// journaled and discarded. It is never retried or requeued.
	DropPolicy = "drop_no_retry"
)

// OrderUsecaseConfig defines runtime options for order execution.
type OrderUsecaseConfig struct {
	// LedgerTimeout bounds submission and finalization together.
	LedgerTimeout time.Duration
}

type orderUsecase struct {
	queue         domain.OrderQueue
	ledger        domain.LedgerClient
	journal       domain.OutcomeJournal
	ledgerTimeout time.Duration
}

// NewOrderUsecase creates a new order use case. journal may be nil.
func NewOrderUsecase(
	queue domain.OrderQueue,
	ledger domain.LedgerClient,
	journal domain.OutcomeJournal,
	cfg OrderUsecaseConfig,
) domain.OrderUsecase {
	timeout := cfg.LedgerTimeout
	if timeout <= 0 {
		timeout = defaultLedgerTimeout
	}

	return &orderUsecase{
		queue:         queue,
		ledger:        ledger,
		journal:       journal,
		ledgerTimeout: timeout,
	}
}

// SubmitOrder validates the raw request and appends the order to the queue.
func (uc *orderUsecase) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	order, err := domain.NewOrder(req)
	if err != nil {
		return domain.Order{}, err
	}

	if err := uc.queue.Enqueue(order); err != nil {
		logger.Error("Failed to enqueue order",
			logger.String("order_id", order.ID),
			logger.ErrorField(err),
		)
		return domain.Order{}, err
	}
	metrics.RecordEnqueue()

	logger.Info("Enqueue order",
		logger.String("order_id", order.ID),
		logger.String("asset", order.Asset),
		logger.String("recipient", order.Recipient),
		logger.String("amount", order.Amount),
		logger.Int64("interval", order.Interval),
	)
	return order, nil
}

// PendingOrders returns a point-in-time copy of the queue.
func (uc *orderUsecase) PendingOrders() []domain.Order {
	return uc.queue.Snapshot()
}

// RecentOutcomes lists the most recent journaled outcomes, newest first.
func (uc *orderUsecase) RecentOutcomes(ctx context.Context, limit int) ([]domain.Outcome, error) {
	if uc.journal == nil {
		return nil, domain.ErrJournalDisabled
	}
	return uc.journal.Recent(ctx, limit)
}

// ExecuteNext takes the head of the queue and settles it with a single
// ledger attempt. The ledger deadline is detached from ctx cancellation so
// that shutdown does not abandon a transaction halfway.
func (uc *orderUsecase) ExecuteNext(ctx context.Context) (domain.Outcome, bool) {
	order, ok := uc.queue.DequeueNext()
	if !ok {
		return domain.Outcome{}, false
	}

	startedAt := time.Now().UTC()
	metrics.SetInFlight(1)
	defer metrics.SetInFlight(0)

	logger.Info("Processing order",
		logger.String("order_id", order.ID),
		logger.String("recipient", order.Recipient),
		logger.String("amount", order.Amount),
	)

	ledgerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.ledgerTimeout)
	txHash, err := uc.settle(ledgerCtx, order)
	cancel()

	var outcome domain.Outcome
	if err != nil {
		outcome = domain.NewOutcome(order, domain.OrderStateDropped, startedAt)
		outcome.TxHash = txHash
		outcome.FailureKind = domain.FailureKind(err)
		outcome.Reason = err.Error()

		logger.Error("Order dropped",
			logger.String("order_id", order.ID),
			logger.String("asset", order.Asset),
			logger.String("recipient", order.Recipient),
			logger.String("amount", order.Amount),
			logger.Int64("interval", order.Interval),
			logger.Time("enqueued_at", order.CreatedAt),
			logger.String("tx_hash", txHash),
			logger.String("failure_kind", outcome.FailureKind),
			logger.String("policy", DropPolicy),
			logger.ErrorField(err),
		)
	} else {
		outcome = domain.NewOutcome(order, domain.OrderStateCommitted, startedAt)
		outcome.TxHash = txHash

		logger.Info("Order processed",
			logger.String("order_id", order.ID),
			logger.String("recipient", order.Recipient),
			logger.String("tx_hash", txHash),
		)
	}

	duration := outcome.FinishedAt.Sub(startedAt)
	metrics.RecordOrderProcessed(outcome.State, outcome.FailureKind, duration.Seconds())
	uc.record(ctx, outcome)

	return outcome, true
}

// settle converts the amount, submits and waits for finalization. The
// returned hash is set whenever the submission itself was accepted.
func (uc *orderUsecase) settle(ctx context.Context, order domain.Order) (string, error) {
	amount, err := domain.ToFixedPoint(order.Amount)
	if err != nil {
		return "", err
	}

	txHash, err := uc.ledger.Submit(ctx, order.Recipient, amount)
	if err != nil {
		return "", err
	}

	if err := uc.ledger.Finalize(ctx, txHash); err != nil {
		return txHash, err
	}
	return txHash, nil
}

func (uc *orderUsecase) record(ctx context.Context, outcome domain.Outcome) {
	if uc.journal == nil {
		return
	}

	journalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultJournalTimeout)
	defer cancel()

	if err := uc.journal.Record(journalCtx, outcome); err != nil {
		metrics.RecordSystemError("journal_write", "order_usecase")
		logger.Error("Failed to journal order outcome",
			logger.String("order_id", outcome.OrderID),
			logger.String("state", outcome.State),
			logger.ErrorField(err),
		)
	}
}
