package main

import (
	"net/http"

	"github.com/josh-kwaku/transferpro-backend/api"
	"github.com/josh-kwaku/transferpro-backend/internal/handler"
	"github.com/josh-kwaku/transferpro-backend/internal/middleware"
)

type handlers struct {
	health    *handler.HealthHandler
	auth      *handler.AuthHandler
	user      *handler.UserHandler
	fx        *handler.FXHandler
	transfer  *handler.TransferHandler
	wallet    *handler.WalletHandler
	recipient *handler.RecipientHandler
}

type middlewares struct {
	auth        func(http.Handler) http.Handler
	idempotency func(http.Handler) http.Handler
}

func newRouter(h handlers, m middlewares) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health.Liveness)
	mux.HandleFunc("GET /health/ready", h.health.Readiness)
	mux.HandleFunc("GET /docs", handler.ServeDocs())
	mux.HandleFunc("GET /docs/openapi.yaml", handler.ServeSpec(api.OpenAPISpec))

	mux.Handle("POST /api/v1/auth/login", middleware.Logging(http.HandlerFunc(h.auth.Login)))

	protected := func(fn http.HandlerFunc) http.Handler {
		return m.auth(middleware.Logging(m.idempotency(fn)))
	}

	mux.Handle("GET /api/v1/profile", protected(h.user.Profile))

	mux.Handle("GET /api/v1/currencies", protected(h.fx.Currencies))
	mux.Handle("GET /api/v1/rates/{from}/{to}", protected(h.fx.GetRate))
	mux.Handle("GET /api/v1/quote", protected(h.fx.Quote))

	mux.Handle("POST /api/v1/transfers", protected(h.transfer.Create))
	mux.Handle("GET /api/v1/transfers", protected(h.transfer.List))
	mux.Handle("GET /api/v1/transfers/{id}", protected(h.transfer.Get))
	mux.Handle("POST /api/v1/transfers/{id}/advance", protected(h.transfer.Advance))
	mux.Handle("GET /api/v1/transfers/{id}/events", protected(h.transfer.Events))

	mux.Handle("GET /api/v1/wallet", protected(h.wallet.Get))
	mux.Handle("POST /api/v1/wallet/credit", protected(h.wallet.Credit))
	mux.Handle("GET /api/v1/ledger", protected(h.wallet.Ledger))
	mux.Handle("GET /api/v1/ledger/{id}", protected(h.wallet.LedgerEntry))

	mux.Handle("POST /api/v1/recipients", protected(h.recipient.Create))
	mux.Handle("GET /api/v1/recipients", protected(h.recipient.List))
	mux.Handle("GET /api/v1/recipients/{id}", protected(h.recipient.Get))
	mux.Handle("DELETE /api/v1/recipients/{id}", protected(h.recipient.Delete))

	return middleware.Tracing(middleware.Recovery(mux))
}
