package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/transferpro-backend/internal/config"
	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/events"
	"github.com/josh-kwaku/transferpro-backend/internal/fx"
	"github.com/josh-kwaku/transferpro-backend/internal/handler"
	"github.com/josh-kwaku/transferpro-backend/internal/logging"
	"github.com/josh-kwaku/transferpro-backend/internal/middleware"
	"github.com/josh-kwaku/transferpro-backend/internal/network"
	"github.com/josh-kwaku/transferpro-backend/internal/scheduler"
	"github.com/josh-kwaku/transferpro-backend/internal/service"
	"github.com/josh-kwaku/transferpro-backend/internal/service/transfer"
	"github.com/josh-kwaku/transferpro-backend/internal/wallet"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("transferpro-api", cfg.LogLevel, cfg.AppEnv)
	if err := run(cfg, logger); err != nil {
		logger.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()
	logger.Info("storage ready", "driver", cfg.StorageDriver)

	rates, rdb, err := newRateProvider(cfg, logger)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		store.checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	runner, err := transfer.NewRunner(cfg.WorkerPoolSize, logger)
	if err != nil {
		return err
	}

	ledger := wallet.NewLedger(store.wallets)
	calc := fx.NewCalculator(cfg.CardSurcharge)

	transfers := transfer.NewService(transfer.Deps{
		Transfers:  store.transfers,
		Events:     store.events,
		Wallet:     ledger,
		Rates:      rates,
		Calculator: calc,
		Network:    newDispatcher(cfg),
		Publisher:  publisher,
		Recipients: store.recipients,
		Runner:     runner,
	}, cfg)

	if err := seedDemoUser(ctx, cfg, store, ledger); err != nil {
		return err
	}

	jobs := scheduler.NewJobs(transfers, store.idempotency, cfg.ReconcileStaleAfter, logger)
	sched := scheduler.New(jobs, scheduler.Schedules{
		Reconcile:        cfg.ReconcileSchedule,
		IdempotencyClean: cfg.IdempotencyCleanupSchedule,
	}, logger)
	if err := sched.Start(); err != nil {
		return err
	}

	router := newRouter(handlers{
		health:    handler.NewHealthHandler(store.checks, version),
		auth:      handler.NewAuthHandler(store.users, cfg.JWTSecret, cfg.JWTExpiry),
		user:      handler.NewUserHandler(store.users),
		fx:        handler.NewFXHandler(rates, calc),
		transfer:  handler.NewTransferHandler(transfers),
		wallet:    handler.NewWalletHandler(ledger, domain.Currency(cfg.DefaultCurrency)),
		recipient: handler.NewRecipientHandler(service.NewRecipientService(store.recipients, store.users)),
	}, middlewares{
		auth:        middleware.Auth(cfg.JWTSecret, store.users),
		idempotency: middleware.Idempotency(store.idempotency, cfg.IdempotencyTTL),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	<-sched.Stop().Done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.Warn("transfer workers still running at shutdown", "running", runner.Running(), "error", err)
	}
	logger.Info("server stopped")
	return nil
}

// newRateProvider quotes from the forex service when FOREX_SERVICE_URL is
// set, cached in Redis when REDIS_URL is set too, and from the built-in
// table otherwise.
func newRateProvider(cfg *config.Config, logger *slog.Logger) (fx.RateProvider, *redis.Client, error) {
	if cfg.ForexServiceURL == "" {
		logger.Info("using built-in exchange rates")
		return fx.NewRateService(nil, cfg.FeeRate, cfg.QuoteTTL), nil, nil
	}

	client := fx.NewClient(cfg.ForexServiceURL, cfg.QuoteTTL)
	if cfg.RedisURL == "" {
		return client, nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("newRateProvider: redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	return fx.NewCachedProvider(client, rdb, cfg.RateStaleFallback, logger), rdb, nil
}

func newDispatcher(cfg *config.Config) interface {
	Send(ctx context.Context, d network.Dispatch) (*network.Receipt, error)
} {
	if cfg.PaymentNetworkURL == "" {
		return network.NewSimulated(50 * time.Millisecond)
	}
	return network.NewClient(cfg.PaymentNetworkURL)
}

type closingPublisher interface {
	Publish(ctx context.Context, msg events.TransferMessage) error
	Close() error
}

func newPublisher(cfg *config.Config, logger *slog.Logger) closingPublisher {
	if cfg.KafkaBrokers == "" {
		return events.NewLogPublisher(logger)
	}
	brokers := strings.Split(cfg.KafkaBrokers, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}
	return events.NewKafkaPublisher(brokers, cfg.KafkaTransferTopic, cfg.KafkaWriteTimeout, logger)
}

// seedDemoUser creates the local login and funds its default wallet the
// first time the service starts against a store.
func seedDemoUser(ctx context.Context, cfg *config.Config, store *storage, ledger *wallet.Ledger) error {
	if cfg.DemoUserEmail == "" {
		return nil
	}
	if _, err := store.users.GetByEmail(ctx, cfg.DemoUserEmail); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("seedDemoUser: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DemoUserPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seedDemoUser: hash: %w", err)
	}

	u := &domain.User{
		ID:           uuid.New(),
		Email:        cfg.DemoUserEmail,
		Name:         "Demo User",
		PasswordHash: string(hash),
		Status:       domain.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.addUser(ctx, u); err != nil {
		return fmt.Errorf("seedDemoUser: %w", err)
	}

	if cfg.DemoUserBalance.IsPositive() {
		amount := domain.NewMoney(cfg.DemoUserBalance, domain.Currency(cfg.DefaultCurrency))
		if _, err := ledger.Credit(ctx, u.ID, amount, "Opening balance"); err != nil {
			return fmt.Errorf("seedDemoUser: %w", err)
		}
	}

	logging.FromContext(ctx).Info("demo user created", "email", u.Email, "user_id", u.ID)
	return nil
}
