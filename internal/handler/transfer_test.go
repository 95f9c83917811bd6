package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bankTransferBody(amount string) map[string]any {
	return map[string]any{
		"fromCurrency":   "USD",
		"toCurrency":     "EUR",
		"sendAmount":     amount,
		"deliveryMethod": "bank",
		"recipientDetails": map[string]any{
			"name":          "Jane Doe",
			"email":         "jane@example.com",
			"country":       "DE",
			"accountNumber": "DE89370400440532013000",
			"bankName":      "Deutsche Bank",
		},
	}
}

func TestTransferHandler_Create(t *testing.T) {
	api := newTestAPI(t)
	userID := api.newUser(t, "2000.00")

	rec, env := api.do(t, userID, http.MethodPost, "/transfers", bankTransferBody("1000.00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.Success)

	dto := decodeData[transferDTO](t, env)
	assert.Equal(t, "pending", dto.Status)
	assert.Equal(t, "1000.00", dto.SendAmount)
	assert.Equal(t, "850.00", dto.ReceiveAmount)
	assert.Equal(t, "5.00", dto.Fee)
	assert.Equal(t, "1005.00", dto.TotalAmount)
	assert.Equal(t, fmt.Sprintf("/api/v1/transfers/%s", dto.ID), rec.Header().Get("Location"))

	_, env = api.do(t, userID, http.MethodGet, "/wallet", nil)
	w := decodeData[walletDTO](t, env)
	assert.Equal(t, "995.00", w.Balance)
	assert.Equal(t, "1005.00", w.Pending)
	assert.Equal(t, "2000.00", w.LedgerBalance)
}

func TestTransferHandler_CreateValidation(t *testing.T) {
	api := newTestAPI(t)
	userID := api.newUser(t, "100.00")

	cash := bankTransferBody("10.00")
	cash["deliveryMethod"] = "cash"
	cash["recipientDetails"] = map[string]any{
		"name":           "Jane Doe",
		"email":          "jane@example.com",
		"country":        "MX",
		"pickupLocation": "Centro",
	}

	same := bankTransferBody("10.00")
	same["toCurrency"] = "USD"

	precise := bankTransferBody("10.005")

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
		wantFields []string
	}{
		{
			name:       "malformed json",
			body:       `{"fromCurrency":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "every field missing",
			body:       map[string]any{},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
			wantFields: []string{"fromCurrency", "toCurrency", "sendAmount", "deliveryMethod", "recipientDetails"},
		},
		{
			name:       "cash without id number",
			body:       cash,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
			wantFields: []string{"recipientDetails.idNumber"},
		},
		{
			name:       "identical currencies",
			body:       same,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
			wantFields: []string{"toCurrency"},
		},
		{
			name:       "three decimal places",
			body:       precise,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
			wantFields: []string{"sendAmount"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := api.do(t, userID, http.MethodPost, "/transfers", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, fieldNames(t, env))
			}
		})
	}
}

func TestTransferHandler_CreateDomainErrors(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name       string
		balance    string
		amount     string
		wantStatus int
		wantCode   string
	}{
		{"insufficient funds", "100.00", "100.00", http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
		{"no wallet", "", "10.00", http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
		{"above maximum", "500000.00", "100000.01", http.StatusUnprocessableEntity, "TRANSFER_LIMIT_EXCEEDED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID := api.newUser(t, tt.balance)
			rec, env := api.do(t, userID, http.MethodPost, "/transfers", bankTransferBody(tt.amount))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}
}

func TestTransferHandler_CardDetailsMasked(t *testing.T) {
	api := newTestAPI(t)
	userID := api.newUser(t, "500.00")

	body := bankTransferBody("100.00")
	body["deliveryMethod"] = "card"
	body["recipientDetails"] = map[string]any{
		"name":       "Jane Doe",
		"email":      "jane@example.com",
		"country":    "DE",
		"cardNumber": "4111111111111111",
		"expiryDate": "12/29",
		"cvv":        "123",
	}

	rec, _ := api.do(t, userID, http.MethodPost, "/transfers", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"cardNumber":"************1111"`)
	assert.NotContains(t, rec.Body.String(), "4111111111111111")
	assert.NotContains(t, rec.Body.String(), `"cvv":"123"`)
}

func TestTransferHandler_AdvanceAndEvents(t *testing.T) {
	api := newTestAPI(t)
	userID := api.newUser(t, "2000.00")

	_, env := api.do(t, userID, http.MethodPost, "/transfers", bankTransferBody("1000.00"))
	created := decodeData[transferDTO](t, env)

	rec, env := api.do(t, userID, http.MethodPost, "/transfers/"+created.ID.String()+"/advance", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "processing", decodeData[transferDTO](t, env).Status)

	_, env = api.do(t, userID, http.MethodGet, "/transfers/"+created.ID.String(), nil)
	got := decodeData[transferDTO](t, env)
	assert.Equal(t, "completed", got.Status)
	assert.NotEmpty(t, got.NetworkReference)
	require.NotNil(t, got.CompletedAt)

	rec, env = api.do(t, userID, http.MethodPost, "/transfers/"+created.ID.String()+"/advance", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)

	_, env = api.do(t, userID, http.MethodGet, "/transfers/"+created.ID.String()+"/events", nil)
	evts := decodeData[[]transferEventDTO](t, env)
	require.NotEmpty(t, evts)
	assert.Equal(t, "created", evts[0].Type)
	assert.Equal(t, "completed", evts[len(evts)-1].Type)

	_, env = api.do(t, userID, http.MethodGet, "/wallet", nil)
	w := decodeData[walletDTO](t, env)
	assert.Equal(t, "995.00", w.Balance)
	assert.Equal(t, "0.00", w.Pending)
	assert.Equal(t, "995.00", w.LedgerBalance)
}

func TestTransferHandler_Ownership(t *testing.T) {
	api := newTestAPI(t)
	owner := api.newUser(t, "100.00")
	other := api.newUser(t, "100.00")

	_, env := api.do(t, owner, http.MethodPost, "/transfers", bankTransferBody("10.00"))
	created := decodeData[transferDTO](t, env)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"get", http.MethodGet, "/transfers/" + created.ID.String()},
		{"advance", http.MethodPost, "/transfers/" + created.ID.String() + "/advance"},
		{"events", http.MethodGet, "/transfers/" + created.ID.String() + "/events"},
		{"malformed id", http.MethodGet, "/transfers/not-a-uuid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := api.do(t, other, tt.method, tt.path, nil)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "TRANSFER_NOT_FOUND", env.Error.Code)
		})
	}
}

func TestTransferHandler_List(t *testing.T) {
	api := newTestAPI(t)
	userID := api.newUser(t, "1000.00")
	for i := 0; i < 3; i++ {
		rec, _ := api.do(t, userID, http.MethodPost, "/transfers", bankTransferBody("10.00"))
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	api.do(t, api.newUser(t, "100.00"), http.MethodPost, "/transfers", bankTransferBody("10.00"))

	_, env := api.do(t, userID, http.MethodGet, "/transfers?limit=2", nil)
	assert.Len(t, decodeData[[]transferDTO](t, env), 2)

	_, env = api.do(t, userID, http.MethodGet, "/transfers?status=pending", nil)
	assert.Len(t, decodeData[[]transferDTO](t, env), 3)

	_, env = api.do(t, userID, http.MethodGet, "/transfers?status=completed", nil)
	assert.Empty(t, decodeData[[]transferDTO](t, env))

	rec, env := api.do(t, userID, http.MethodGet, "/transfers?limit=0&offset=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"limit", "offset"}, fieldNames(t, env))
}

func TestTransferHandler_Unauthenticated(t *testing.T) {
	api := newTestAPI(t)

	rec, env := api.do(t, uuid.Nil, http.MethodGet, "/transfers", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "MISSING_TOKEN", env.Error.Code)
}
