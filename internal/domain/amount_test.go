package domain_test

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Neyfan/zama-dca-bot-batching/internal/domain"
)

func TestToFixedPoint(t *testing.T) {
	for _, tt := range []struct {
		amount string
		want   string
	}{
		{"1", "1000000000000000000"},
		{"1.5", "1500000000000000000"},
		{"0.000000000000000001", "1"},
		{".25", "250000000000000000"},
		{"2.", "2000000000000000000"},
		{"0", "0"},
		{"007.10", "7100000000000000000"},
		{"1.0000000000000000000000", "1000000000000000000"},
	} {
		t.Run(tt.amount, func(t *testing.T) {
			got, err := domain.ToFixedPoint(tt.amount)
			require.NoError(t, err)

			want, ok := new(big.Int).SetString(tt.want, 10)
			require.True(t, ok)
			require.Zero(t, want.Cmp(got), "got %s", got)
		})
	}
}

func TestToFixedPointRejects(t *testing.T) {
	for _, amount := range []string{
		"",
		"abc",
		"-1",
		"+1",
		"1e18",
		"1.2.3",
		".",
		"1,5",
		" 1",
		"0.0000000000000000001",
		"1" + strings.Repeat("0", 80),
	} {
		t.Run(amount, func(t *testing.T) {
			_, err := domain.ToFixedPoint(amount)
			require.Error(t, err)

			var conversionErr *domain.AmountConversionError
			require.True(t, errors.As(err, &conversionErr))
			require.Equal(t, amount, conversionErr.Amount)
			require.Equal(t, domain.FailureAmountConversion, domain.FailureKind(err))
		})
	}
}
