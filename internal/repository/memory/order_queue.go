package memory

import (
	"sync"

	"github.com/Neyfan/zama-dca-bot-batching/internal/domain"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/logger"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/metrics"
)

// OrderQueue is an unbounded in-process FIFO guarded by a single mutex.
// It lives for the whole process and is not persisted.
type OrderQueue struct {
	mu     sync.Mutex
	orders []domain.Order
}

var _ domain.OrderQueue = (*OrderQueue)(nil)

// NewOrderQueue creates an empty queue.
func NewOrderQueue() *OrderQueue {
	return &OrderQueue{}
}

func (q *OrderQueue) Enqueue(order domain.Order) error {
	q.mu.Lock()
	q.orders = append(q.orders, order)
	size := len(q.orders)
	q.mu.Unlock()

	metrics.SetQueueSize(float64(size))
	logger.Debug("Order enqueued",
		logger.String("order_id", order.ID),
		logger.Int("queue_size", size),
	)
	return nil
}

func (q *OrderQueue) DequeueNext() (domain.Order, bool) {
	q.mu.Lock()
	if len(q.orders) == 0 {
		q.mu.Unlock()
		return domain.Order{}, false
	}
	head := q.orders[0]
	// release the reference so the backing array does not pin dequeued orders
	q.orders[0] = domain.Order{}
	q.orders = q.orders[1:]
	if len(q.orders) == 0 {
		q.orders = nil
	}
	size := len(q.orders)
	q.mu.Unlock()

	metrics.SetQueueSize(float64(size))
	logger.Debug("Order dequeued",
		logger.String("order_id", head.ID),
		logger.Int("queue_size", size),
	)
	return head, true
}

func (q *OrderQueue) Snapshot() []domain.Order {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := make([]domain.Order, len(q.orders))
	copy(snapshot, q.orders)
	return snapshot
}

func (q *OrderQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.orders)
}
