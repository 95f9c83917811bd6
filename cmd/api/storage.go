package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transferpro-backend/internal/config"
	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/handler"
	"github.com/josh-kwaku/transferpro-backend/internal/repository"
	"github.com/josh-kwaku/transferpro-backend/internal/repository/memory"
	"github.com/josh-kwaku/transferpro-backend/internal/wallet"
)

type userStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type transferStore interface {
	Insert(ctx context.Context, t *domain.Transfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error)
	GetByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*domain.Transfer, error)
	List(ctx context.Context, f domain.TransferFilter) ([]domain.Transfer, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, upd domain.StatusUpdate) (*domain.Transfer, error)
	UpdateStep(ctx context.Context, id uuid.UUID, step domain.TransferStep, networkRef string) error
}

type eventStore interface {
	Append(ctx context.Context, e *domain.TransferEvent) error
	ListByTransfer(ctx context.Context, transferID uuid.UUID) ([]domain.TransferEvent, error)
}

type recipientStore interface {
	Create(ctx context.Context, r *domain.SavedRecipient) error
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*domain.SavedRecipient, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.SavedRecipient, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type idempotencyStore interface {
	Get(ctx context.Context, key string, userID uuid.UUID) (*domain.IdempotencyRecord, error)
	Set(ctx context.Context, r *domain.IdempotencyRecord) error
	CleanExpired(ctx context.Context) (int64, error)
}

// storage is one backend's set of stores.
type storage struct {
	users       userStore
	wallets     wallet.Store
	transfers   transferStore
	events      eventStore
	recipients  recipientStore
	idempotency idempotencyStore
	addUser     func(ctx context.Context, u *domain.User) error
	checks      map[string]handler.Pinger
	close       func() error
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		return memoryStorage(), nil
	}
	return postgresStorage(ctx, cfg)
}

func memoryStorage() *storage {
	users := memory.NewUserStore()
	return &storage{
		users:       users,
		wallets:     memory.NewWalletStore(),
		transfers:   memory.NewTransferStore(),
		events:      memory.NewTransferEventStore(),
		recipients:  memory.NewRecipientStore(),
		idempotency: memory.NewIdempotencyStore(),
		addUser: func(_ context.Context, u *domain.User) error {
			users.Add(*u)
			return nil
		},
		checks: map[string]handler.Pinger{},
		close:  func() error { return nil },
	}
}

func postgresStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	pool, err := repository.Connect(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		ConnectTimeout:  cfg.DBConnectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("postgresStorage: %w", err)
	}

	if err := repository.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgresStorage: %w", err)
	}

	users := repository.NewUserRepository(pool)
	return &storage{
		users:       users,
		wallets:     repository.NewWalletRepository(repository.NewDB(pool)),
		transfers:   repository.NewTransferRepository(pool),
		events:      repository.NewTransferEventRepository(pool),
		recipients:  repository.NewRecipientRepository(pool),
		idempotency: repository.NewIdempotencyRepository(pool),
		addUser:     users.Create,
		checks:      map[string]handler.Pinger{"postgres": pool},
		close:       pool.Close,
	}, nil
}
