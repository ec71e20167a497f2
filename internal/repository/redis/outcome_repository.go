package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/Neyfan/zama-dca-bot-batching/internal/domain"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/logger"
)

const (
	// DefaultOutcomeKey is the list holding recent outcomes, newest first.
	DefaultOutcomeKey = "dca:outcomes"
	// DefaultOutcomeLimit caps the list length.
	DefaultOutcomeLimit = 1000
)

type outcomeRepository struct {
	client *redis.Client
	key    string
	limit  int64
}

var _ domain.OutcomeJournal = (*outcomeRepository)(nil)

// NewOutcomeRepository creates a capped Redis list journal.
func NewOutcomeRepository(client *redis.Client, key string, limit int64) *outcomeRepository {
	if key == "" {
		key = DefaultOutcomeKey
	}
	if limit <= 0 {
		limit = DefaultOutcomeLimit
	}
	return &outcomeRepository{client: client, key: key, limit: limit}
}

func (r *outcomeRepository) Record(ctx context.Context, outcome domain.Outcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key, data)
	pipe.LTrim(ctx, r.key, 0, r.limit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("Failed to record outcome",
			logger.String("order_id", outcome.OrderID),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	logger.Debug("Outcome recorded",
		logger.String("order_id", outcome.OrderID),
		logger.String("state", outcome.State),
	)
	return nil
}

func (r *outcomeRepository) Recent(ctx context.Context, limit int) ([]domain.Outcome, error) {
	if limit <= 0 || int64(limit) > r.limit {
		limit = int(r.limit)
	}

	raw, err := r.client.LRange(ctx, r.key, 0, int64(limit)-1).Result()
	if err != nil {
		if err == redis.Nil {
			return []domain.Outcome{}, nil
		}
		return nil, fmt.Errorf("failed to read outcomes: %w", err)
	}

	outcomes := make([]domain.Outcome, 0, len(raw))
	for _, item := range raw {
		var outcome domain.Outcome
		if err := json.Unmarshal([]byte(item), &outcome); err != nil {
			logger.Warn("Skipping malformed outcome entry", logger.ErrorField(err))
			continue
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// Ping checks the Redis connection.
func (r *outcomeRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
