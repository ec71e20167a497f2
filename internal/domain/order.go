package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order states. An order never moves back to OrderStatePending once dequeued.
const (
	OrderStatePending   = "PENDING"
	OrderStateInFlight  = "IN_FLIGHT"
	OrderStateCommitted = "COMMITTED"
	OrderStateDropped   = "DROPPED"
)

// Order is one unit of DCA work. Orders are passed by value, so a holder
// can never mutate the copy sitting in the queue.
//
// Interval is recorded but inert: nothing reschedules an order after it has
// been processed once.
type Order struct {
	ID        string    `json:"id"`
	Asset     string    `json:"asset"`
	Recipient string    `json:"recipient"`
	Amount    string    `json:"amount"`
	Interval  int64     `json:"interval"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderRequest carries the raw intake fields before validation.
// Interval is a pointer so that an absent field can be told apart from zero.
type OrderRequest struct {
	Asset     string `json:"asset"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Interval  *int64 `json:"interval"`
}

// NewOrder validates structural completeness and builds an Order.
// Numeric validity of Amount is checked at drain time, not here.
func NewOrder(req OrderRequest) (Order, error) {
	asset := strings.TrimSpace(req.Asset)
	recipient := strings.TrimSpace(req.Recipient)
	amount := strings.TrimSpace(req.Amount)

	switch {
	case asset == "":
		return Order{}, &ValidationError{Field: "asset", Msg: "is required"}
	case recipient == "":
		return Order{}, &ValidationError{Field: "recipient", Msg: "is required"}
	case amount == "":
		return Order{}, &ValidationError{Field: "amount", Msg: "is required"}
	case req.Interval == nil:
		return Order{}, &ValidationError{Field: "interval", Msg: "is required"}
	case *req.Interval <= 0:
		return Order{}, &ValidationError{Field: "interval", Msg: "must be a positive number of seconds"}
	}

	return Order{
		ID:        uuid.New().String(),
		Asset:     asset,
		Recipient: recipient,
		Amount:    amount,
		Interval:  *req.Interval,
		CreatedAt: time.Now().UTC(),
	}, nil
}
