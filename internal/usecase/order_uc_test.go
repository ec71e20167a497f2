package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Neyfan/zama-dca-bot-batching/internal/domain"
	"github.com/Neyfan/zama-dca-bot-batching/internal/repository/memory"
	"github.com/Neyfan/zama-dca-bot-batching/internal/usecase"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/logger"
)

type submission struct {
	Recipient string
	Amount    *big.Int
}

// stubLedger records every call and fails according to its hooks.
type stubLedger struct {
	mu          sync.Mutex
	submissions []submission
	finalized   []string

	submitErr   error
	finalizeErr error
	finalize    func(ctx context.Context) error
	onSubmit    func(ctx context.Context)
}

func (l *stubLedger) Submit(ctx context.Context, recipient string, amount *big.Int) (string, error) {
	if l.onSubmit != nil {
		l.onSubmit(ctx)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.submitErr != nil {
		return "", &domain.SubmissionError{Err: l.submitErr}
	}
	l.submissions = append(l.submissions, submission{Recipient: recipient, Amount: new(big.Int).Set(amount)})
	return fmt.Sprintf("0x%064x", len(l.submissions)), nil
}

func (l *stubLedger) Finalize(ctx context.Context, txHash string) error {
	if l.finalize != nil {
		if err := l.finalize(ctx); err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.finalizeErr != nil {
		return l.finalizeErr
	}
	l.finalized = append(l.finalized, txHash)
	return nil
}

func (l *stubLedger) Submissions() []submission {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]submission(nil), l.submissions...)
}

type memJournal struct {
	mu       sync.Mutex
	outcomes []domain.Outcome
	err      error
}

func (j *memJournal) Record(ctx context.Context, outcome domain.Outcome) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.outcomes = append(j.outcomes, outcome)
	return nil
}

func (j *memJournal) Recent(ctx context.Context, limit int) ([]domain.Outcome, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var recent []domain.Outcome
	for i := len(j.outcomes) - 1; i >= 0 && len(recent) < limit; i-- {
		recent = append(recent, j.outcomes[i])
	}
	return recent, nil
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger.SetLogger(zap.New(core))
	return logs
}

func request(recipient, amount string) domain.OrderRequest {
	interval := int64(86400)
	return domain.OrderRequest{Asset: "ETH", Recipient: recipient, Amount: amount, Interval: &interval}
}

func wei(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	return v
}

func TestExecuteNextCommitsInOrder(t *testing.T) {
	logs := observeLogs(t)
	ctx := context.Background()

	ledger := &stubLedger{}
	journal := &memJournal{}
	uc := usecase.NewOrderUsecase(memory.NewOrderQueue(), ledger, journal, usecase.OrderUsecaseConfig{})

	a, err := uc.SubmitOrder(ctx, request("0xAAAA", "1"))
	require.NoError(t, err)
	b, err := uc.SubmitOrder(ctx, request("0xBBBB", "2.5"))
	require.NoError(t, err)
	require.Len(t, uc.PendingOrders(), 2)

	first, ok := uc.ExecuteNext(ctx)
	require.True(t, ok)
	require.Equal(t, a.ID, first.OrderID)
	require.Equal(t, domain.OrderStateCommitted, first.State)
	require.NotEmpty(t, first.TxHash)
	require.Empty(t, first.FailureKind)

	second, ok := uc.ExecuteNext(ctx)
	require.True(t, ok)
	require.Equal(t, b.ID, second.OrderID)
	require.Equal(t, domain.OrderStateCommitted, second.State)

	_, ok = uc.ExecuteNext(ctx)
	require.False(t, ok)

	require.Equal(t, []submission{
		{Recipient: "0xAAAA", Amount: wei(t, "1000000000000000000")},
		{Recipient: "0xBBBB", Amount: wei(t, "2500000000000000000")},
	}, ledger.Submissions())
	require.Equal(t, []string{first.TxHash, second.TxHash}, ledger.finalized)

	require.Len(t, journal.outcomes, 2)
	require.Equal(t, 2, logs.FilterMessage("Order processed").Len())
	require.Zero(t, logs.FilterMessage("Order dropped").Len())
	require.Equal(t, 2, logs.FilterMessage("Enqueue order").Len())
}

func TestExecuteNextDropsOnSubmissionFailure(t *testing.T) {
	logs := observeLogs(t)
	ctx := context.Background()

	ledger := &stubLedger{submitErr: errors.New("nonce too low")}
	journal := &memJournal{}
	queue := memory.NewOrderQueue()
	uc := usecase.NewOrderUsecase(queue, ledger, journal, usecase.OrderUsecaseConfig{})

	order, err := uc.SubmitOrder(ctx, request("0xCCCC", "3"))
	require.NoError(t, err)

	outcome, ok := uc.ExecuteNext(ctx)
	require.True(t, ok)
	require.Equal(t, domain.OrderStateDropped, outcome.State)
	require.Equal(t, domain.FailureSubmission, outcome.FailureKind)
	require.Contains(t, outcome.Reason, "nonce too low")
	require.Empty(t, outcome.TxHash)

	// dropped, not requeued
	require.Zero(t, queue.Len())
	_, ok = uc.ExecuteNext(ctx)
	require.False(t, ok)

	dropped := logs.FilterMessage("Order dropped").All()
	require.Len(t, dropped, 1)
	fields := dropped[0].ContextMap()
	require.Equal(t, order.ID, fields["order_id"])
	require.Equal(t, "ETH", fields["asset"])
	require.Equal(t, "0xCCCC", fields["recipient"])
	require.Equal(t, "3", fields["amount"])
	require.EqualValues(t, 86400, fields["interval"])
	require.Equal(t, domain.FailureSubmission, fields["failure_kind"])
	require.Equal(t, usecase.DropPolicy, fields["policy"])
	require.Contains(t, fields["error"], "nonce too low")

	require.Len(t, journal.outcomes, 1)
	require.Equal(t, domain.OrderStateDropped, journal.outcomes[0].State)
}

func TestExecuteNextAlwaysFailingLedger(t *testing.T) {
	observeLogs(t)
	ctx := context.Background()

	ledger := &stubLedger{finalizeErr: &domain.FinalizationError{TxHash: "0x1", Err: errors.New("reverted")}}
	queue := memory.NewOrderQueue()
	uc := usecase.NewOrderUsecase(queue, ledger, nil, usecase.OrderUsecaseConfig{})

	for i := 0; i < 3; i++ {
		_, err := uc.SubmitOrder(ctx, request(fmt.Sprintf("0x%d", i), "1"))
		require.NoError(t, err)
	}

	for i := 0; i < 3; i++ {
		outcome, ok := uc.ExecuteNext(ctx)
		require.True(t, ok)
		require.Equal(t, domain.OrderStateDropped, outcome.State)
		require.Equal(t, domain.FailureFinalization, outcome.FailureKind)
		require.NotEmpty(t, outcome.TxHash)
		require.Equal(t, 3-i-1, queue.Len())
	}

	// one attempt per order, no retries
	require.Len(t, ledger.Submissions(), 3)
}

func TestExecuteNextDropsUnconvertibleAmount(t *testing.T) {
	observeLogs(t)
	ctx := context.Background()

	ledger := &stubLedger{}
	uc := usecase.NewOrderUsecase(memory.NewOrderQueue(), ledger, nil, usecase.OrderUsecaseConfig{})

	_, err := uc.SubmitOrder(ctx, request("0xA", "1e18"))
	require.NoError(t, err)

	outcome, ok := uc.ExecuteNext(ctx)
	require.True(t, ok)
	require.Equal(t, domain.OrderStateDropped, outcome.State)
	require.Equal(t, domain.FailureAmountConversion, outcome.FailureKind)
	require.Empty(t, ledger.Submissions())
}

func TestExecuteNextLedgerTimeout(t *testing.T) {
	observeLogs(t)

	ledger := &stubLedger{
		finalize: func(ctx context.Context) error {
			<-ctx.Done()
			return &domain.FinalizationTimeout{TxHash: "0x1", Err: ctx.Err()}
		},
	}
	uc := usecase.NewOrderUsecase(memory.NewOrderQueue(), ledger, nil, usecase.OrderUsecaseConfig{
		LedgerTimeout: 50 * time.Millisecond,
	})

	_, err := uc.SubmitOrder(context.Background(), request("0xA", "1"))
	require.NoError(t, err)

	start := time.Now()
	outcome, ok := uc.ExecuteNext(context.Background())
	require.True(t, ok)
	require.Equal(t, domain.OrderStateDropped, outcome.State)
	require.Equal(t, domain.FailureFinalizationTimeout, outcome.FailureKind)
	require.NotEmpty(t, outcome.TxHash)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestExecuteNextSurvivesCallerCancellation(t *testing.T) {
	observeLogs(t)

	var ledgerCtxErr error
	ledger := &stubLedger{
		onSubmit: func(ctx context.Context) {
			ledgerCtxErr = ctx.Err()
		},
	}
	uc := usecase.NewOrderUsecase(memory.NewOrderQueue(), ledger, nil, usecase.OrderUsecaseConfig{})

	_, err := uc.SubmitOrder(context.Background(), request("0xA", "1"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, ok := uc.ExecuteNext(ctx)
	require.True(t, ok)
	require.NoError(t, ledgerCtxErr)
	require.Equal(t, domain.OrderStateCommitted, outcome.State)
}

func TestSubmitOrderValidationGate(t *testing.T) {
	observeLogs(t)
	ctx := context.Background()

	queue := memory.NewOrderQueue()
	uc := usecase.NewOrderUsecase(queue, &stubLedger{}, nil, usecase.OrderUsecaseConfig{})

	req := request("0xA", "")
	_, err := uc.SubmitOrder(ctx, req)

	var validationErr *domain.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, "amount", validationErr.Field)
	require.Zero(t, queue.Len())
	require.Empty(t, uc.PendingOrders())
}

func TestRecentOutcomes(t *testing.T) {
	observeLogs(t)
	ctx := context.Background()

	t.Run("journal disabled", func(t *testing.T) {
		uc := usecase.NewOrderUsecase(memory.NewOrderQueue(), &stubLedger{}, nil, usecase.OrderUsecaseConfig{})
		_, err := uc.RecentOutcomes(ctx, 10)
		require.ErrorIs(t, err, domain.ErrJournalDisabled)
	})

	t.Run("newest first", func(t *testing.T) {
		uc := usecase.NewOrderUsecase(memory.NewOrderQueue(), &stubLedger{}, &memJournal{}, usecase.OrderUsecaseConfig{})
		a, err := uc.SubmitOrder(ctx, request("0xA", "1"))
		require.NoError(t, err)
		b, err := uc.SubmitOrder(ctx, request("0xB", "1"))
		require.NoError(t, err)
		uc.ExecuteNext(ctx)
		uc.ExecuteNext(ctx)

		outcomes, err := uc.RecentOutcomes(ctx, 10)
		require.NoError(t, err)
		require.Len(t, outcomes, 2)
		require.Equal(t, b.ID, outcomes[0].OrderID)
		require.Equal(t, a.ID, outcomes[1].OrderID)
	})

	t.Run("journal failure does not change outcome", func(t *testing.T) {
		logs := observeLogs(t)
		uc := usecase.NewOrderUsecase(memory.NewOrderQueue(), &stubLedger{}, &memJournal{err: errors.New("redis down")}, usecase.OrderUsecaseConfig{})
		_, err := uc.SubmitOrder(ctx, request("0xA", "1"))
		require.NoError(t, err)

		outcome, ok := uc.ExecuteNext(ctx)
		require.True(t, ok)
		require.Equal(t, domain.OrderStateCommitted, outcome.State)
		require.Equal(t, 1, logs.FilterMessage("Failed to journal order outcome").Len())
	})
}
