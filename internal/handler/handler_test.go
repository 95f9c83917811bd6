package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/transferpro-backend/internal/auth"
	"github.com/josh-kwaku/transferpro-backend/internal/config"
	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/fx"
	"github.com/josh-kwaku/transferpro-backend/internal/network"
	"github.com/josh-kwaku/transferpro-backend/internal/repository/memory"
	"github.com/josh-kwaku/transferpro-backend/internal/service"
	"github.com/josh-kwaku/transferpro-backend/internal/service/transfer"
	"github.com/josh-kwaku/transferpro-backend/internal/wallet"
)

type inlineRunner struct{}

func (inlineRunner) Go(fn func()) error {
	fn()
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

type testAPI struct {
	mux    *http.ServeMux
	ledger *wallet.Ledger
	users  *memory.UserStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	cfg := &config.Config{
		DefaultCurrency:   "USD",
		FeeRate:           decimal.RequireFromString("0.005"),
		CardSurcharge:     decimal.RequireFromString("2.00"),
		QuoteTTL:          time.Minute,
		TransferMinAmount: decimal.NewFromInt(1),
		TransferMaxAmount: decimal.NewFromInt(100000),
		StepTimeout:       time.Second,
		StepMaxAttempts:   2,
		StepBackoff:       time.Millisecond,
	}

	rates := fx.NewRateService(nil, cfg.FeeRate, cfg.QuoteTTL)
	calc := fx.NewCalculator(cfg.CardSurcharge)
	ledger := wallet.NewLedger(memory.NewWalletStore())
	users := memory.NewUserStore()
	recipients := memory.NewRecipientStore()

	transfers := transfer.NewService(transfer.Deps{
		Transfers:  memory.NewTransferStore(),
		Events:     memory.NewTransferEventStore(),
		Wallet:     ledger,
		Rates:      rates,
		Calculator: calc,
		Network:    network.NewSimulated(0),
		Recipients: recipients,
		Runner:     inlineRunner{},
	}, cfg)

	th := NewTransferHandler(transfers)
	wh := NewWalletHandler(ledger, domain.CurrencyUSD)
	rh := NewRecipientHandler(service.NewRecipientService(recipients, users))
	fh := NewFXHandler(rates, calc)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /transfers", th.Create)
	mux.HandleFunc("GET /transfers", th.List)
	mux.HandleFunc("GET /transfers/{id}", th.Get)
	mux.HandleFunc("POST /transfers/{id}/advance", th.Advance)
	mux.HandleFunc("GET /transfers/{id}/events", th.Events)
	mux.HandleFunc("GET /wallet", wh.Get)
	mux.HandleFunc("POST /wallet/credit", wh.Credit)
	mux.HandleFunc("GET /ledger", wh.Ledger)
	mux.HandleFunc("GET /ledger/{id}", wh.LedgerEntry)
	mux.HandleFunc("POST /recipients", rh.Create)
	mux.HandleFunc("GET /recipients", rh.List)
	mux.HandleFunc("GET /recipients/{id}", rh.Get)
	mux.HandleFunc("DELETE /recipients/{id}", rh.Delete)
	mux.HandleFunc("GET /rates/{from}/{to}", fh.GetRate)
	mux.HandleFunc("GET /quote", fh.Quote)
	mux.HandleFunc("GET /currencies", fh.Currencies)

	return &testAPI{mux: mux, ledger: ledger, users: users}
}

// newUser registers a user and funds their USD wallet when balance is set.
func (a *testAPI) newUser(t *testing.T, balance string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	a.users.Add(domain.User{ID: id, Email: id.String() + "@example.com", Name: "Test User", Status: domain.UserStatusActive})
	if balance != "" {
		_, err := a.ledger.Credit(context.Background(), id, domain.NewMoney(decimal.RequireFromString(balance), domain.CurrencyUSD), "")
		require.NoError(t, err)
	}
	return id
}

// do sends a request as userID; uuid.Nil sends it unauthenticated.
func (a *testAPI) do(t *testing.T, userID uuid.UUID, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req = req.WithContext(auth.ContextWithClaims(req.Context(), &auth.Claims{UserID: userID}))
	}

	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func fieldNames(t *testing.T, env envelope) []string {
	t.Helper()
	require.NotNil(t, env.Error)
	raw, err := json.Marshal(env.Error.Details)
	require.NoError(t, err)
	var fields []FieldError
	require.NoError(t, json.Unmarshal(raw, &fields))
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Field
	}
	return out
}
