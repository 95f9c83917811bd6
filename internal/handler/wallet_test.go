package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletHandler_Get(t *testing.T) {
	api := newTestAPI(t)
	userID := api.newUser(t, "250.50")

	tests := []struct {
		name        string
		query       string
		wantStatus  int
		wantBalance string
		wantCode    string
	}{
		{"default currency", "", http.StatusOK, "250.50", ""},
		{"explicit lower case", "?currency=usd", http.StatusOK, "250.50", ""},
		{"never credited", "?currency=GBP", http.StatusOK, "0.00", ""},
		{"unsupported", "?currency=XYZ", http.StatusBadRequest, "", "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := api.do(t, userID, http.MethodGet, "/wallet"+tt.query, nil)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, env.Error.Code)
				return
			}
			assert.Equal(t, tt.wantBalance, decodeData[walletDTO](t, env).Balance)
		})
	}

	_, env := api.do(t, userID, http.MethodGet, "/wallet?currency=all", nil)
	all := decodeData[[]walletDTO](t, env)
	require.Len(t, all, 1)
	assert.Equal(t, "USD", all[0].Currency)
}

func TestWalletHandler_Credit(t *testing.T) {
	api := newTestAPI(t)
	userID := api.newUser(t, "")

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantFields []string
	}{
		{"valid", map[string]any{"amount": "40.25", "currency": "EUR", "description": "Salary"}, http.StatusCreated, nil},
		{"zero amount", map[string]any{"amount": "0", "currency": "EUR"}, http.StatusBadRequest, []string{"amount"}},
		{"too precise", map[string]any{"amount": "1.001", "currency": "EUR"}, http.StatusBadRequest, []string{"amount"}},
		{"missing currency", map[string]any{"amount": "1"}, http.StatusBadRequest, []string{"currency"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := api.do(t, userID, http.MethodPost, "/wallet/credit", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, fieldNames(t, env))
				return
			}
			entry := decodeData[ledgerEntryDTO](t, env)
			assert.Equal(t, "credit", entry.Type)
			assert.Equal(t, "40.25", entry.Amount)
			assert.Equal(t, "40.25", entry.BalanceAfter)
			assert.Equal(t, "Salary", entry.Description)
		})
	}
}

func TestWalletHandler_Ledger(t *testing.T) {
	api := newTestAPI(t)
	userID := api.newUser(t, "1000.00")

	rec, _ := api.do(t, userID, http.MethodPost, "/transfers", bankTransferBody("100.00"))
	require.Equal(t, http.StatusCreated, rec.Code)
	_, env := api.do(t, userID, http.MethodGet, "/transfers", nil)
	id := decodeData[[]transferDTO](t, env)[0].ID
	api.do(t, userID, http.MethodPost, "/transfers/"+id.String()+"/advance", nil)

	_, env = api.do(t, userID, http.MethodGet, "/ledger?limit=1", nil)
	page := decodeData[ledgerPageDTO](t, env)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Limit)
	require.Len(t, page.Entries, 1)

	debit := page.Entries[0]
	assert.Equal(t, "debit", debit.Type)
	assert.Equal(t, "100.50", debit.Amount)
	assert.Equal(t, "899.50", debit.BalanceAfter)
	require.NotNil(t, debit.TransferID)
	assert.Equal(t, id, *debit.TransferID)

	rec, env = api.do(t, userID, http.MethodGet, "/ledger/"+debit.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, debit.ID, decodeData[ledgerEntryDTO](t, env).ID)

	rec, _ = api.do(t, api.newUser(t, ""), http.MethodGet, "/ledger/"+debit.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
