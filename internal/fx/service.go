package fx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
)

// RateProvider supplies a point-in-time rate and base fee for a currency pair.
type RateProvider interface {
	GetQuote(ctx context.Context, from, to domain.Currency) (*Quote, error)
}

type Quote struct {
	FromCurrency domain.Currency `json:"from_currency"`
	ToCurrency   domain.Currency `json:"to_currency"`
	Rate         decimal.Decimal `json:"rate"`
	BaseFeeRate  decimal.Decimal `json:"base_fee_rate"`
	Timestamp    time.Time       `json:"timestamp"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

func (q *Quote) Expired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

const rateScale int32 = 6

// DefaultUSDRates holds units of each currency per one USD.
func DefaultUSDRates() map[domain.Currency]decimal.Decimal {
	return map[domain.Currency]decimal.Decimal{
		domain.CurrencyUSD: decimal.NewFromInt(1),
		domain.CurrencyEUR: decimal.RequireFromString("0.85"),
		domain.CurrencyGBP: decimal.RequireFromString("0.73"),
		domain.CurrencyJPY: decimal.RequireFromString("110.25"),
		domain.CurrencyCAD: decimal.RequireFromString("1.25"),
		domain.CurrencyAUD: decimal.RequireFromString("1.35"),
		domain.CurrencyCHF: decimal.RequireFromString("0.92"),
		domain.CurrencyCNY: decimal.RequireFromString("6.45"),
	}
}

// RateService quotes from an in-process table, crossing every pair through USD.
type RateService struct {
	mu      sync.RWMutex
	rates   map[domain.Currency]decimal.Decimal
	feeRate decimal.Decimal
	ttl     time.Duration
	now     func() time.Time
}

func NewRateService(rates map[domain.Currency]decimal.Decimal, feeRate decimal.Decimal, ttl time.Duration) *RateService {
	if rates == nil {
		rates = DefaultUSDRates()
	}
	return &RateService{
		rates:   rates,
		feeRate: feeRate,
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *RateService) GetQuote(_ context.Context, from, to domain.Currency) (*Quote, error) {
	if err := checkPair(from, to); err != nil {
		return nil, fmt.Errorf("GetQuote: %w", err)
	}

	s.mu.RLock()
	fromPerUSD, okFrom := s.rates[from]
	toPerUSD, okTo := s.rates[to]
	s.mu.RUnlock()

	if !okFrom || !okTo || !fromPerUSD.IsPositive() {
		return nil, fmt.Errorf("GetQuote: unsupported pair %s/%s: %w", from, to, domain.ErrRateUnavailable)
	}

	now := s.now()
	return &Quote{
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         toPerUSD.DivRound(fromPerUSD, rateScale),
		BaseFeeRate:  s.feeRate,
		Timestamp:    now,
		ExpiresAt:    now.Add(s.ttl),
	}, nil
}

// UpdateRate overrides the units-per-USD rate for one currency.
func (s *RateService) UpdateRate(currency domain.Currency, perUSD decimal.Decimal) error {
	if !currency.IsValid() {
		return fmt.Errorf("UpdateRate: %w", domain.ErrInvalidCurrency)
	}
	if !perUSD.IsPositive() {
		return fmt.Errorf("UpdateRate: rate must be positive: %w", domain.ErrInvalidRequest)
	}

	s.mu.Lock()
	s.rates[currency] = perUSD
	s.mu.Unlock()
	return nil
}

func checkPair(from, to domain.Currency) error {
	if !from.IsValid() || !to.IsValid() {
		return fmt.Errorf("currency pair %s/%s: %w", from, to, domain.ErrInvalidCurrency)
	}
	if from == to {
		return fmt.Errorf("currency pair %s/%s: %w", from, to, domain.ErrIdenticalCurrencyPair)
	}
	return nil
}
