package domain

import (
	"context"
	"time"
)

// Outcome is the terminal record of one drain cycle for one order.
type Outcome struct {
	OrderID     string    `json:"order_id" db:"order_id"`
	Asset       string    `json:"asset" db:"asset"`
	Recipient   string    `json:"recipient" db:"recipient"`
	Amount      string    `json:"amount" db:"amount"`
	Interval    int64     `json:"interval" db:"interval_seconds"`
	State       string    `json:"state" db:"state"`
	TxHash      string    `json:"tx_hash,omitempty" db:"tx_hash"`
	FailureKind string    `json:"failure_kind,omitempty" db:"failure_kind"`
	Reason      string    `json:"reason,omitempty" db:"reason"`
	EnqueuedAt  time.Time `json:"enqueued_at" db:"enqueued_at"`
	StartedAt   time.Time `json:"started_at" db:"started_at"`
	FinishedAt  time.Time `json:"finished_at" db:"finished_at"`
}

// NewOutcome copies the order fields into an outcome record.
func NewOutcome(order Order, state string, startedAt time.Time) Outcome {
	return Outcome{
		OrderID:    order.ID,
		Asset:      order.Asset,
		Recipient:  order.Recipient,
		Amount:     order.Amount,
		Interval:   order.Interval,
		State:      state,
		EnqueuedAt: order.CreatedAt,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}
}

// OutcomeJournal records terminal outcomes for audit. It is write-mostly and
// is never read back into the queue.
type OutcomeJournal interface {
	Record(ctx context.Context, outcome Outcome) error
	Recent(ctx context.Context, limit int) ([]Outcome, error)
}

// OrderUsecase is the business layer between HTTP intake, the queue and the ledger.
type OrderUsecase interface {
	OrderIntake
	// ExecuteNext dequeues and settles at most one order. It returns false when
	// the queue was empty.
	ExecuteNext(ctx context.Context) (Outcome, bool)
}

// OrderIntake is the narrow surface exposed to the submission interface.
// It deliberately has no way to dequeue.
type OrderIntake interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (Order, error)
	PendingOrders() []Order
	RecentOutcomes(ctx context.Context, limit int) ([]Outcome, error)
}
