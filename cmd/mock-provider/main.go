package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/fx"
	"github.com/josh-kwaku/transferpro-backend/internal/logging"
)

type mockConfig struct {
	Port          int             `env:"MOCK_PORT" envDefault:"8081"`
	AppEnv        string          `env:"APP_ENV" envDefault:"development"`
	FeeRate       decimal.Decimal `env:"FEE_RATE" envDefault:"0.005"`
	Latency       time.Duration   `env:"MOCK_LATENCY" envDefault:"100ms"`
	PayoutCeiling decimal.Decimal `env:"MOCK_PAYOUT_CEILING" envDefault:"50000"`
}

func main() {
	cfg, err := env.ParseAs[mockConfig]()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Init("mock-provider", "info", cfg.AppEnv)

	p := &provider{
		cfg:        cfg,
		rates:      fx.DefaultUSDRates(),
		dispatched: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /rates/{from}/{to}", p.rate)
	mux.HandleFunc("POST /dispatch", p.dispatch)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("mock provider started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// provider imitates the forex service and the partner payout network.
type provider struct {
	cfg   mockConfig
	rates map[domain.Currency]decimal.Decimal

	mu         sync.Mutex
	dispatched map[string]string
}

func (p *provider) rate(w http.ResponseWriter, r *http.Request) {
	from := domain.Currency(strings.ToUpper(r.PathValue("from")))
	to := domain.Currency(strings.ToUpper(r.PathValue("to")))

	fromPerUSD, ok1 := p.rates[from]
	toPerUSD, ok2 := p.rates[to]
	if !ok1 || !ok2 || from == to {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported pair"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rate":      toPerUSD.DivRound(fromPerUSD, 6),
		"fee":       p.cfg.FeeRate,
		"timestamp": time.Now().UTC(),
	})
}

type dispatchRequest struct {
	TransferID     string `json:"transfer_id"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	DeliveryMethod string `json:"delivery_method"`
}

// dispatch accepts a payout and returns a reference. A repeated
// Idempotency-Key gets the original reference back.
func (p *provider) dispatch(w http.ResponseWriter, r *http.Request) {
	time.Sleep(p.cfg.Latency)

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		key = req.TransferID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if ref, ok := p.dispatched[key]; ok {
		writeJSON(w, http.StatusOK, map[string]string{"status": "accepted", "reference": ref})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "rejected", "reason": "invalid amount"})
		return
	}
	if amount.GreaterThan(p.cfg.PayoutCeiling) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "rejected", "reason": "payout above partner ceiling"})
		return
	}

	ref := fmt.Sprintf("NET-%d", time.Now().UnixNano()%1_000_000_000)
	p.dispatched[key] = ref
	slog.Info("payout accepted", "transfer_id", req.TransferID, "reference", ref, "amount", req.Amount, "currency", req.Currency)
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted", "reference": ref})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
