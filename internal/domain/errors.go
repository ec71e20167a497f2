package domain

import (
	"errors"
	"fmt"
)

// Failure kinds used in logs, metrics and the outcome journal.
const (
	FailureAmountConversion    = "amount_conversion"
	FailureSubmission          = "submission"
	FailureFinalizationTimeout = "finalization_timeout"
	FailureFinalization        = "finalization"
	FailureUnknown             = "unknown"
)

type (
	// ValidationError rejects an order at intake. The order never reaches the queue.
	ValidationError struct {
		Field string
		Msg   string
	}
	// AmountConversionError means the amount string has no 18-decimal fixed-point form.
	AmountConversionError struct {
		Amount string
		Err    error
	}
	// SubmissionError means the ledger rejected or never accepted the call.
	SubmissionError struct {
		Err error
	}
	// FinalizationTimeout means the receipt did not arrive before the deadline.
	FinalizationTimeout struct {
		TxHash string
		Err    error
	}
	// FinalizationError means the transaction was mined but reverted, or the
	// receipt lookup failed outright.
	FinalizationError struct {
		TxHash string
		Err    error
	}
)

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Msg)
}

func (e *AmountConversionError) Error() string {
	return fmt.Sprintf("amount %q: %v", e.Amount, e.Err)
}

func (e *AmountConversionError) Unwrap() error {
	return e.Err
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("ledger submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

func (e *FinalizationTimeout) Error() string {
	return fmt.Sprintf("tx %s: finalization timed out: %v", e.TxHash, e.Err)
}

func (e *FinalizationTimeout) Unwrap() error {
	return e.Err
}

func (e *FinalizationError) Error() string {
	return fmt.Sprintf("tx %s: finalization failed: %v", e.TxHash, e.Err)
}

func (e *FinalizationError) Unwrap() error {
	return e.Err
}

// FailureKind classifies a drain-time error for logs and metrics.
func FailureKind(err error) string {
	var (
		conversionErr   *AmountConversionError
		submissionErr   *SubmissionError
		timeoutErr      *FinalizationTimeout
		finalizationErr *FinalizationError
	)
	switch {
	case errors.As(err, &conversionErr):
		return FailureAmountConversion
	case errors.As(err, &submissionErr):
		return FailureSubmission
	case errors.As(err, &timeoutErr):
		return FailureFinalizationTimeout
	case errors.As(err, &finalizationErr):
		return FailureFinalization
	default:
		return FailureUnknown
	}
}

// ErrJournalDisabled is returned when outcomes are requested but no journal is configured.
var ErrJournalDisabled = errors.New("outcome journal is disabled")
