package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/josh-kwaku/transferpro-backend/internal/config"
	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/events"
	"github.com/josh-kwaku/transferpro-backend/internal/fx"
	"github.com/josh-kwaku/transferpro-backend/internal/logging"
	"github.com/josh-kwaku/transferpro-backend/internal/network"
)

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

type walletLedger interface {
	Hold(ctx context.Context, t *domain.Transfer) error
	Debit(ctx context.Context, t *domain.Transfer) (*domain.LedgerEntry, error)
	Release(ctx context.Context, t *domain.Transfer) error
	HoldFor(ctx context.Context, transferID uuid.UUID) (*domain.Hold, error)
}

type rateProvider interface {
	GetQuote(ctx context.Context, from, to domain.Currency) (*fx.Quote, error)
}

type dispatcher interface {
	Send(ctx context.Context, d network.Dispatch) (*network.Receipt, error)
}

type publisher interface {
	Publish(ctx context.Context, msg events.TransferMessage) error
}

type recipientStore interface {
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*domain.SavedRecipient, error)
}

type taskRunner interface {
	Go(fn func()) error
}

type Deps struct {
	Transfers  transferStore
	Events     eventStore
	Wallet     walletLedger
	Rates      rateProvider
	Calculator *fx.Calculator
	Network    dispatcher
	Publisher  publisher
	Recipients recipientStore
	Runner     taskRunner
}

// Service owns transfers from quote to settlement. Only Start moves a
// transfer out of pending, so at most one lifecycle drives a transfer.
type Service struct {
	transfers  transferStore
	events     eventStore
	wallet     walletLedger
	rates      rateProvider
	calc       *fx.Calculator
	network    dispatcher
	publisher  publisher
	recipients recipientStore
	runner     taskRunner
	config     *config.Config
	now        func() time.Time

	// inflight coalesces concurrent creates for one (user, idempotency key).
	inflight singleflight.Group
}

func NewService(deps Deps, cfg *config.Config) *Service {
	return &Service{
		transfers:  deps.Transfers,
		events:     deps.Events,
		wallet:     deps.Wallet,
		rates:      deps.Rates,
		calc:       deps.Calculator,
		network:    deps.Network,
		publisher:  deps.Publisher,
		recipients: deps.Recipients,
		runner:     deps.Runner,
		config:     cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a transfer owned by userID. Another user's transfer reads as
// not found.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Transfer, error) {
	t, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	if t.UserID != userID {
		return nil, fmt.Errorf("Get: %w", domain.ErrTransferNotFound)
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, f domain.TransferFilter) ([]domain.Transfer, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return nil, fmt.Errorf("List: status %q: %w", f.Status, domain.ErrInvalidRequest)
	}
	f.UserID = userID
	f.UpdatedBefore = time.Time{}

	transfers, err := s.transfers.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return transfers, nil
}

func (s *Service) Events(ctx context.Context, userID, id uuid.UUID) ([]domain.TransferEvent, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, fmt.Errorf("Events: %w", err)
	}
	evts, err := s.events.ListByTransfer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Events: %w", err)
	}
	return evts, nil
}

// record appends a lifecycle event and publishes it. Neither failure is
// allowed to change the transfer's outcome.
func (s *Service) record(ctx context.Context, t *domain.Transfer, typ domain.TransferEventType, step domain.TransferStep, attempt int, msg string) {
	log := logging.FromContext(ctx)

	e := &domain.TransferEvent{
		ID:         uuid.New(),
		TransferID: t.ID,
		EventType:  typ,
		Step:       step,
		Attempt:    attempt,
		Message:    msg,
		CreatedAt:  s.now(),
	}
	if err := s.events.Append(ctx, e); err != nil {
		log.Error("failed to record transfer event", "transfer_id", t.ID, "event_type", typ, "error", err)
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewTransferMessage(t, e)); err != nil {
		log.Warn("failed to publish transfer event", "transfer_id", t.ID, "event_type", typ, "error", err)
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrInsufficientFunds) ||
		errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrMissingFields) ||
		errors.Is(err, domain.ErrDispatchRejected) ||
		errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrInvalidDeliveryMethod)
}
