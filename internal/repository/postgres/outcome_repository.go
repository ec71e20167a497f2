package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Neyfan/zama-dca-bot-batching/internal/domain"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/logger"
)

const defaultRecentLimit = 100

type outcomeRepository struct {
	db *sqlx.DB
}

var _ domain.OutcomeJournal = (*outcomeRepository)(nil)

// NewOutcomeRepository creates an append-only outcome journal backed by Postgres.
func NewOutcomeRepository(db *sqlx.DB) *outcomeRepository {
	return &outcomeRepository{db: db}
}

// EnsureSchema creates the journal table when it does not exist yet.
func (r *outcomeRepository) EnsureSchema(ctx context.Context) error {
	query := `
        CREATE TABLE IF NOT EXISTS order_outcomes (
            id               BIGSERIAL   PRIMARY KEY,
            order_id         TEXT        NOT NULL,
            asset            TEXT        NOT NULL,
            recipient        TEXT        NOT NULL,
            amount           TEXT        NOT NULL,
            interval_seconds BIGINT      NOT NULL,
            state            TEXT        NOT NULL,
            tx_hash          TEXT        NOT NULL DEFAULT '',
            failure_kind     TEXT        NOT NULL DEFAULT '',
            reason           TEXT        NOT NULL DEFAULT '',
            enqueued_at      TIMESTAMPTZ NOT NULL,
            started_at       TIMESTAMPTZ NOT NULL,
            finished_at      TIMESTAMPTZ NOT NULL
        )`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create order_outcomes table: %w", err)
	}
	return nil
}

func (r *outcomeRepository) Record(ctx context.Context, outcome domain.Outcome) error {
	query := `
        INSERT INTO order_outcomes (
            order_id, asset, recipient, amount, interval_seconds, state,
            tx_hash, failure_kind, reason, enqueued_at, started_at, finished_at
        ) VALUES (
            :order_id, :asset, :recipient, :amount, :interval_seconds, :state,
            :tx_hash, :failure_kind, :reason, :enqueued_at, :started_at, :finished_at
        )`

	_, err := r.db.NamedExecContext(ctx, query, outcome)
	if err != nil {
		logger.Error("Failed to record outcome",
			logger.String("order_id", outcome.OrderID),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	return nil
}

func (r *outcomeRepository) Recent(ctx context.Context, limit int) ([]domain.Outcome, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	query := `
        SELECT order_id, asset, recipient, amount, interval_seconds, state,
               tx_hash, failure_kind, reason, enqueued_at, started_at, finished_at
        FROM order_outcomes
        ORDER BY finished_at DESC, id DESC
        LIMIT $1`

	outcomes := []domain.Outcome{}
	if err := r.db.SelectContext(ctx, &outcomes, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get outcomes: %w", err)
	}
	return outcomes, nil
}
