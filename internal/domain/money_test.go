package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_Arithmetic(t *testing.T) {
	a := NewMoney(decimal.RequireFromString("10.50"), CurrencyUSD)
	b := NewMoney(decimal.RequireFromString("0.75"), CurrencyUSD)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Amount.Equal(decimal.RequireFromString("11.25")))

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.True(t, diff.Amount.Equal(decimal.RequireFromString("9.75")))

	_, err = a.Add(NewMoney(decimal.NewFromInt(1), CurrencyEUR))
	require.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestRoundMoney_HalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1"},
		{"2.675", "2.68"},
		{"850", "850"},
	}
	for _, tc := range tests {
		got := RoundMoney(decimal.RequireFromString(tc.in))
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "%s: got %s want %s", tc.in, got, tc.want)
	}
}

func TestTransferStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to TransferStatus
		want     bool
	}{
		{TransferStatusPending, TransferStatusProcessing, true},
		{TransferStatusPending, TransferStatusCompleted, false},
		{TransferStatusProcessing, TransferStatusCompleted, true},
		{TransferStatusProcessing, TransferStatusFailed, true},
		{TransferStatusProcessing, TransferStatusPending, false},
		{TransferStatusCompleted, TransferStatusFailed, false},
		{TransferStatusFailed, TransferStatusProcessing, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCurrency_IsValid(t *testing.T) {
	for _, c := range SupportedCurrencies() {
		assert.True(t, c.IsValid(), c)
	}
	assert.False(t, Currency("XYZ").IsValid())
	assert.False(t, Currency("usd").IsValid())
}
