package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/fx"
	"github.com/josh-kwaku/transferpro-backend/internal/logging"
)

type fxService interface {
	GetQuote(ctx context.Context, from, to domain.Currency) (*fx.Quote, error)
}

type FXHandler struct {
	fx   fxService
	calc *fx.Calculator
}

func NewFXHandler(fxSvc fxService, calc *fx.Calculator) *FXHandler {
	return &FXHandler{fx: fxSvc, calc: calc}
}

type rateDTO struct {
	FromCurrency string    `json:"fromCurrency"`
	ToCurrency   string    `json:"toCurrency"`
	Rate         string    `json:"rate"`
	BaseFeeRate  string    `json:"baseFeeRate"`
	Timestamp    time.Time `json:"timestamp"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type quoteDTO struct {
	FromCurrency   string    `json:"fromCurrency"`
	ToCurrency     string    `json:"toCurrency"`
	DeliveryMethod string    `json:"deliveryMethod"`
	SendAmount     string    `json:"sendAmount"`
	ReceiveAmount  string    `json:"receiveAmount"`
	ExchangeRate   string    `json:"exchangeRate"`
	Fee            string    `json:"fee"`
	TotalAmount    string    `json:"totalAmount"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

type currencyDTO struct {
	Code string `json:"code"`
}

func (h *FXHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	from := r.PathValue("from")
	to := r.PathValue("to")

	if fields := validateCurrencyPair("from", from, "to", to); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	quote, err := h.fx.GetQuote(r.Context(), domain.Currency(from), domain.Currency(to))
	if err != nil {
		logging.FromContext(r.Context()).Warn("fx rate lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, rateDTO{
		FromCurrency: string(quote.FromCurrency),
		ToCurrency:   string(quote.ToCurrency),
		Rate:         quote.Rate.String(),
		BaseFeeRate:  quote.BaseFeeRate.String(),
		Timestamp:    quote.Timestamp,
		ExpiresAt:    quote.ExpiresAt,
	})
}

// Quote previews the breakdown a transfer would be created with. Nothing is
// held or stored.
func (h *FXHandler) Quote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	method := q.Get("method")
	if method == "" {
		method = string(domain.DeliveryMethodBank)
	}

	fields := validateCurrencyPair("from", from, "to", to)
	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil || !amount.IsPositive() || !domain.HasMoneyScale(amount) {
		fields = append(fields, FieldError{Field: "amount", Message: "must be a positive amount with at most two decimal places"})
	}
	if !domain.DeliveryMethod(method).IsValid() {
		fields = append(fields, FieldError{Field: "method", Message: "must be bank, card, or cash"})
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	quote, err := h.fx.GetQuote(r.Context(), domain.Currency(from), domain.Currency(to))
	if err != nil {
		logging.FromContext(r.Context()).Warn("fx quote failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	b, err := h.calc.Calculate(domain.NewMoney(amount, domain.Currency(from)), *quote, domain.DeliveryMethod(method))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, quoteDTO{
		FromCurrency:   from,
		ToCurrency:     to,
		DeliveryMethod: method,
		SendAmount:     formatMoney(b.SendAmount),
		ReceiveAmount:  formatMoney(b.ReceiveAmount),
		ExchangeRate:   b.Rate.String(),
		Fee:            formatMoney(b.Fee),
		TotalAmount:    formatMoney(b.TotalAmount),
		ExpiresAt:      quote.ExpiresAt,
	})
}

func (h *FXHandler) Currencies(w http.ResponseWriter, r *http.Request) {
	supported := domain.SupportedCurrencies()
	out := make([]currencyDTO, len(supported))
	for i, c := range supported {
		out[i] = currencyDTO{Code: string(c)}
	}
	RespondSuccess(w, http.StatusOK, out)
}

func validateCurrencyPair(fromField, from, toField, to string) []FieldError {
	var errs []FieldError
	errs = append(errs, validateCurrency(fromField, from)...)
	errs = append(errs, validateCurrency(toField, to)...)
	if len(errs) == 0 && from == to {
		errs = append(errs, FieldError{Field: toField, Message: "must differ from " + fromField})
	}
	return errs
}

func validateCurrency(field, code string) []FieldError {
	if code == "" {
		return []FieldError{{Field: field, Message: "required"}}
	}
	if !domain.Currency(code).IsValid() {
		return []FieldError{{Field: field, Message: "unsupported currency"}}
	}
	return nil
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyScale)
}
