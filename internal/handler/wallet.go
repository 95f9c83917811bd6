package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/logging"
)

type walletService interface {
	Summary(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.WalletSummary, error)
	Summaries(ctx context.Context, userID uuid.UUID) ([]domain.WalletSummary, error)
	Credit(ctx context.Context, userID uuid.UUID, amount domain.Money, description string) (*domain.LedgerEntry, error)
	Entries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error)
	Entry(ctx context.Context, userID, id uuid.UUID) (*domain.LedgerEntry, error)
}

type WalletHandler struct {
	wallets         walletService
	defaultCurrency domain.Currency
}

func NewWalletHandler(wallets walletService, defaultCurrency domain.Currency) *WalletHandler {
	return &WalletHandler{wallets: wallets, defaultCurrency: defaultCurrency}
}

type walletDTO struct {
	Currency      string    `json:"currency"`
	Balance       string    `json:"balance"`
	Pending       string    `json:"pending"`
	LedgerBalance string    `json:"ledgerBalance"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

func toWalletDTO(s *domain.WalletSummary) walletDTO {
	return walletDTO{
		Currency:      string(s.Currency),
		Balance:       formatMoney(s.Balance),
		Pending:       formatMoney(s.Pending),
		LedgerBalance: formatMoney(s.LedgerBalance),
		LastUpdated:   s.LastUpdated,
	}
}

type ledgerEntryDTO struct {
	ID           uuid.UUID  `json:"id"`
	Type         string     `json:"type"`
	Amount       string     `json:"amount"`
	Currency     string     `json:"currency"`
	Description  string     `json:"description"`
	Reference    string     `json:"reference"`
	TransferID   *uuid.UUID `json:"transferId,omitempty"`
	BalanceAfter string     `json:"balanceAfter"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func toLedgerEntryDTO(e *domain.LedgerEntry) ledgerEntryDTO {
	return ledgerEntryDTO{
		ID:           e.ID,
		Type:         string(e.EntryType),
		Amount:       formatMoney(e.Amount),
		Currency:     string(e.Currency),
		Description:  e.Description,
		Reference:    e.Reference,
		TransferID:   e.TransferID,
		BalanceAfter: formatMoney(e.BalanceAfter),
		CreatedAt:    e.CreatedAt,
	}
}

type ledgerPageDTO struct {
	Entries []ledgerEntryDTO `json:"entries"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

type creditRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

func (r creditRequest) Validate() []FieldError {
	errs := validateCurrency("currency", r.Currency)
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	} else if !domain.HasMoneyScale(r.Amount) {
		errs = append(errs, FieldError{Field: "amount", Message: "must have at most two decimal places"})
	}
	if len(r.Description) > 140 {
		errs = append(errs, FieldError{Field: "description", Message: "must be at most 140 characters"})
	}
	return errs
}

// Get returns one wallet; ?currency=all lists every wallet the user holds.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, appErr := currentUser(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	currency := strings.ToUpper(r.URL.Query().Get("currency"))
	if currency == "ALL" {
		sums, err := h.wallets.Summaries(r.Context(), userID)
		if err != nil {
			RespondDomainError(w, err)
			return
		}
		dtos := make([]walletDTO, len(sums))
		for i := range sums {
			dtos[i] = toWalletDTO(&sums[i])
		}
		RespondSuccess(w, http.StatusOK, dtos)
		return
	}

	if currency == "" {
		currency = string(h.defaultCurrency)
	}
	if fields := validateCurrency("currency", currency); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	s, err := h.wallets.Summary(r.Context(), userID, domain.Currency(currency))
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to read wallet", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toWalletDTO(s))
}

func (h *WalletHandler) Credit(w http.ResponseWriter, r *http.Request) {
	userID, appErr := currentUser(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	entry, err := h.wallets.Credit(r.Context(), userID, domain.NewMoney(req.Amount, domain.Currency(req.Currency)), strings.TrimSpace(req.Description))
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to credit wallet", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toLedgerEntryDTO(entry))
}

func (h *WalletHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	userID, appErr := currentUser(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	limit, offset, fields := parsePage(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	entries, total, err := h.wallets.Entries(r.Context(), userID, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list ledger entries", "error", err)
		RespondDomainError(w, err)
		return
	}

	page := ledgerPageDTO{
		Entries: make([]ledgerEntryDTO, len(entries)),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
	for i := range entries {
		page.Entries[i] = toLedgerEntryDTO(&entries[i])
	}
	RespondSuccess(w, http.StatusOK, page)
}

func (h *WalletHandler) LedgerEntry(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedPathID(r, ErrResourceNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	entry, err := h.wallets.Entry(r.Context(), userID, id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toLedgerEntryDTO(entry))
}
