package domain

// OrderQueue is the FIFO of pending orders shared by the intake path and the
// drain worker. Implementations must serialize all operations.
type OrderQueue interface {
	// Enqueue appends an order to the tail. A constructed Order is never rejected.
	Enqueue(order Order) error
	// DequeueNext removes and returns the head, or false when the queue is empty.
	DequeueNext() (Order, bool)
	// Snapshot returns a point-in-time copy of the pending orders in processing order.
	Snapshot() []Order
	// Len returns the number of pending orders.
	Len() int
}
