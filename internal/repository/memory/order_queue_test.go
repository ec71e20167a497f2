package memory_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Neyfan/zama-dca-bot-batching/internal/domain"
	"github.com/Neyfan/zama-dca-bot-batching/internal/repository/memory"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/logger"
)

func newOrder(id string) domain.Order {
	return domain.Order{ID: id, Asset: "ETH", Recipient: "0xA", Amount: "1", Interval: 60}
}

func TestOrderQueue(t *testing.T) {
	logger.SetLogger(zaptest.NewLogger(t))

	t.Run("empty queue", func(t *testing.T) {
		q := memory.NewOrderQueue()
		_, ok := q.DequeueNext()
		require.False(t, ok)
		require.Empty(t, q.Snapshot())
		require.Zero(t, q.Len())
	})

	t.Run("fifo", func(t *testing.T) {
		q := memory.NewOrderQueue()
		for i := 0; i < 5; i++ {
			require.NoError(t, q.Enqueue(newOrder(fmt.Sprint(i))))
		}
		require.Equal(t, 5, q.Len())

		for i := 0; i < 5; i++ {
			order, ok := q.DequeueNext()
			require.True(t, ok)
			require.Equal(t, fmt.Sprint(i), order.ID)
		}
		_, ok := q.DequeueNext()
		require.False(t, ok)
	})

	t.Run("snapshot is a copy in processing order", func(t *testing.T) {
		q := memory.NewOrderQueue()
		require.NoError(t, q.Enqueue(newOrder("a")))
		require.NoError(t, q.Enqueue(newOrder("b")))

		snapshot := q.Snapshot()
		require.Equal(t, []string{"a", "b"}, []string{snapshot[0].ID, snapshot[1].ID})

		snapshot[0].ID = "mutated"
		head, ok := q.DequeueNext()
		require.True(t, ok)
		require.Equal(t, "a", head.ID)
		require.Len(t, snapshot, 2)
		require.Equal(t, 1, q.Len())
	})

	t.Run("reuse after drain", func(t *testing.T) {
		q := memory.NewOrderQueue()
		require.NoError(t, q.Enqueue(newOrder("a")))
		_, _ = q.DequeueNext()
		require.NoError(t, q.Enqueue(newOrder("b")))

		order, ok := q.DequeueNext()
		require.True(t, ok)
		require.Equal(t, "b", order.ID)
	})
}

func TestOrderQueueConcurrent(t *testing.T) {
	logger.SetLogger(zaptest.NewLogger(t))

	const (
		producers   = 8
		perProducer = 100
	)

	q := memory.NewOrderQueue()
	var (
		mu         sync.Mutex
		delivered  []domain.Order
		producing  sync.WaitGroup
		consuming  sync.WaitGroup
		doneQueued = make(chan struct{})
	)

	for p := 0; p < producers; p++ {
		producing.Add(1)
		go func(p int) {
			defer producing.Done()
			for i := 0; i < perProducer; i++ {
				_ = q.Enqueue(newOrder(fmt.Sprintf("%d-%03d", p, i)))
			}
		}(p)
	}

	for c := 0; c < 2; c++ {
		consuming.Add(1)
		go func() {
			defer consuming.Done()
			for {
				if order, ok := q.DequeueNext(); ok {
					mu.Lock()
					delivered = append(delivered, order)
					mu.Unlock()
					continue
				}
				select {
				case <-doneQueued:
					if q.Len() == 0 {
						return
					}
				default:
				}
			}
		}()
	}

	producing.Wait()
	close(doneQueued)
	consuming.Wait()

	require.Zero(t, q.Len())
	require.Len(t, delivered, producers*perProducer)

	seen := make(map[string]bool, len(delivered))
	for _, order := range delivered {
		require.False(t, seen[order.ID], "order %s delivered twice", order.ID)
		seen[order.ID] = true
	}
}
