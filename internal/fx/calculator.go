package fx

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
)

type Breakdown struct {
	SendAmount    decimal.Decimal
	ReceiveAmount decimal.Decimal
	Fee           decimal.Decimal
	TotalAmount   decimal.Decimal
	Rate          decimal.Decimal
}

// Calculator prices a transfer from a quote. It performs no I/O.
type Calculator struct {
	cardSurcharge decimal.Decimal
}

func NewCalculator(cardSurcharge decimal.Decimal) *Calculator {
	return &Calculator{cardSurcharge: cardSurcharge}
}

func (c *Calculator) Surcharge(method domain.DeliveryMethod) decimal.Decimal {
	if method == domain.DeliveryMethodCard {
		return c.cardSurcharge
	}
	return decimal.Zero
}

// Calculate rounds each derived amount exactly once, half-up to two places:
// receive = send*rate, fee = send*baseFeeRate + surcharge, total = send + fee.
func (c *Calculator) Calculate(send domain.Money, q Quote, method domain.DeliveryMethod) (*Breakdown, error) {
	if !send.IsPositive() {
		return nil, fmt.Errorf("Calculate: %w", domain.ErrInvalidAmount)
	}
	if q.FromCurrency == q.ToCurrency {
		return nil, fmt.Errorf("Calculate: %w", domain.ErrIdenticalCurrencyPair)
	}
	if send.Currency != q.FromCurrency {
		return nil, fmt.Errorf("Calculate: send %s, quote %s: %w", send.Currency, q.FromCurrency, domain.ErrCurrencyMismatch)
	}
	if !method.IsValid() {
		return nil, fmt.Errorf("Calculate: %w", domain.ErrInvalidDeliveryMethod)
	}

	receive := domain.RoundMoney(send.Amount.Mul(q.Rate))
	fee := domain.RoundMoney(send.Amount.Mul(q.BaseFeeRate)).Add(c.Surcharge(method))

	return &Breakdown{
		SendAmount:    send.Amount,
		ReceiveAmount: receive,
		Fee:           fee,
		TotalAmount:   send.Amount.Add(fee),
		Rate:          q.Rate,
	}, nil
}
