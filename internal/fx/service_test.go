package fx

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
)

func TestGetQuote(t *testing.T) {
	svc := NewRateService(nil, decimal.RequireFromString("0.005"), time.Minute)
	ctx := context.Background()

	tests := []struct {
		name     string
		from     domain.Currency
		to       domain.Currency
		wantRate string
		wantErr  error
	}{
		{name: "USD to EUR", from: domain.CurrencyUSD, to: domain.CurrencyEUR, wantRate: "0.85"},
		{name: "EUR to USD crosses inverse", from: domain.CurrencyEUR, to: domain.CurrencyUSD, wantRate: "1.176471"},
		{name: "GBP to EUR crosses through USD", from: domain.CurrencyGBP, to: domain.CurrencyEUR, wantRate: "1.164384"},
		{name: "JPY to USD", from: domain.CurrencyJPY, to: domain.CurrencyUSD, wantRate: "0.00907"},
		{name: "same currency", from: domain.CurrencyUSD, to: domain.CurrencyUSD, wantErr: domain.ErrIdenticalCurrencyPair},
		{name: "invalid currency", from: domain.CurrencyUSD, to: domain.Currency("XYZ"), wantErr: domain.ErrInvalidCurrency},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			quote, err := svc.GetQuote(ctx, tc.from, tc.to)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.from, quote.FromCurrency)
			assert.Equal(t, tc.to, quote.ToCurrency)
			assert.True(t, quote.Rate.Equal(decimal.RequireFromString(tc.wantRate)),
				"rate: got %s, want %s", quote.Rate, tc.wantRate)
			assert.True(t, quote.BaseFeeRate.Equal(decimal.RequireFromString("0.005")))
			assert.Equal(t, time.Minute, quote.ExpiresAt.Sub(quote.Timestamp))
		})
	}
}

func TestGetQuote_UnsupportedPair(t *testing.T) {
	svc := NewRateService(map[domain.Currency]decimal.Decimal{
		domain.CurrencyUSD: decimal.NewFromInt(1),
		domain.CurrencyEUR: decimal.RequireFromString("0.85"),
	}, decimal.Zero, time.Minute)

	_, err := svc.GetQuote(context.Background(), domain.CurrencyUSD, domain.CurrencyCNY)
	require.ErrorIs(t, err, domain.ErrRateUnavailable)
}

func TestUpdateRate(t *testing.T) {
	svc := NewRateService(nil, decimal.Zero, time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.UpdateRate(domain.CurrencyEUR, decimal.RequireFromString("0.9")))

	q, err := svc.GetQuote(ctx, domain.CurrencyUSD, domain.CurrencyEUR)
	require.NoError(t, err)
	assert.True(t, q.Rate.Equal(decimal.RequireFromString("0.9")))

	require.ErrorIs(t, svc.UpdateRate(domain.Currency("XYZ"), decimal.NewFromInt(1)), domain.ErrInvalidCurrency)
	require.ErrorIs(t, svc.UpdateRate(domain.CurrencyEUR, decimal.Zero), domain.ErrInvalidRequest)
}
