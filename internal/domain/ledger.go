package domain

import (
	"context"
	"math/big"
)

// LedgerClient submits orders to the external ledger contract.
type LedgerClient interface {
	// Submit sends storeOrder(recipient, amount) and returns the transaction hash.
	// Failures are reported as *SubmissionError.
	Submit(ctx context.Context, recipient string, amount *big.Int) (string, error)
	// Finalize blocks until the transaction is mined successfully.
	// Failures are reported as *FinalizationTimeout or *FinalizationError.
	Finalize(ctx context.Context, txHash string) error
}
