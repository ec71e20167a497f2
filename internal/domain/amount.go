package domain

import (
	"errors"
	"math/big"
	"regexp"

	"github.com/shopspring/decimal"
)

// LedgerDecimals is the number of decimal places of the ledger's fixed-point amounts.
const LedgerDecimals = 18

var (
	errAmountFormat    = errors.New("not a plain non-negative decimal number")
	errAmountPrecision = errors.New("more than 18 fractional digits")
	errAmountOverflow  = errors.New("does not fit in uint256")

	plainDecimal = regexp.MustCompile(`^([0-9]+\.?[0-9]*|\.[0-9]+)$`)
)

// ToFixedPoint converts a decimal amount string such as "1.5" into the ledger's
// integer representation scaled by 10^18. Exponent notation, signs and
// sub-wei precision are rejected rather than rounded.
func ToFixedPoint(amount string) (*big.Int, error) {
	if !plainDecimal.MatchString(amount) {
		return nil, &AmountConversionError{Amount: amount, Err: errAmountFormat}
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, &AmountConversionError{Amount: amount, Err: err}
	}
	if d.Exponent() < -LedgerDecimals {
		// trailing zeros beyond 18 places are harmless
		trimmed := d.Truncate(LedgerDecimals)
		if !trimmed.Equal(d) {
			return nil, &AmountConversionError{Amount: amount, Err: errAmountPrecision}
		}
		d = trimmed
	}

	scaled := d.Shift(LedgerDecimals).BigInt()
	if scaled.BitLen() > 256 {
		return nil, &AmountConversionError{Amount: amount, Err: errAmountOverflow}
	}
	return scaled, nil
}
