package repository_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/repository"
	"github.com/josh-kwaku/transferpro-backend/internal/testutil"
	"github.com/josh-kwaku/transferpro-backend/internal/wallet"
)

func newTransfer(userID uuid.UUID, key string) *domain.Transfer {
	now := time.Now().UTC()
	return &domain.Transfer{
		ID:             uuid.New(),
		UserID:         userID,
		IdempotencyKey: key,
		FromCurrency:   domain.CurrencyUSD,
		ToCurrency:     domain.CurrencyEUR,
		SendAmount:     decimal.RequireFromString("100.00"),
		ReceiveAmount:  decimal.RequireFromString("85.00"),
		ExchangeRate:   decimal.RequireFromString("0.85"),
		Fee:            decimal.RequireFromString("0.50"),
		TotalAmount:    decimal.RequireFromString("100.50"),
		DeliveryMethod: domain.DeliveryMethodBank,
		Recipient: domain.RecipientDetails{
			Name:        "Jane Doe",
			Email:       "jane@example.com",
			Country:     "DE",
			Destination: domain.BankDestination{AccountNumber: "DE89370400440532013000", BankName: "Commerzbank"},
		},
		Status:    domain.TransferStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestTransferRepository_InsertAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransferRepository(db)
	ctx := context.Background()
	user := testutil.SeedTestUser(t, db, "sender@test.com", "Sender")

	tr := newTransfer(user.ID, "key-1")
	require.NoError(t, repo.Insert(ctx, tr))

	got, err := repo.GetByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.UserID, got.UserID)
	assert.True(t, got.TotalAmount.Equal(tr.TotalAmount))
	assert.True(t, got.ExchangeRate.Equal(tr.ExchangeRate))
	assert.Equal(t, tr.Recipient, got.Recipient)

	byKey, err := repo.GetByIdempotencyKey(ctx, user.ID, "key-1")
	require.NoError(t, err)
	assert.Equal(t, tr.ID, byKey.ID)

	err = repo.Insert(ctx, newTransfer(user.ID, "key-1"))
	assert.ErrorIs(t, err, domain.ErrDuplicateIdempotencyKey)

	require.NoError(t, repo.Insert(ctx, newTransfer(user.ID, "")))
	require.NoError(t, repo.Insert(ctx, newTransfer(user.ID, "")), "missing keys never collide")

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrTransferNotFound)
}

func TestTransferRepository_UpdateStatusIsCompareAndSwap(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransferRepository(db)
	ctx := context.Background()
	user := testutil.SeedTestUser(t, db, "cas@test.com", "Cas")

	tr := newTransfer(user.ID, "")
	require.NoError(t, repo.Insert(ctx, tr))

	var wg sync.WaitGroup
	results := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = repo.UpdateStatus(ctx, tr.ID, domain.StatusUpdate{
				From: domain.TransferStatusPending,
				To:   domain.TransferStatusProcessing,
				Step: domain.StepValidatingDetails,
			})
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range results {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrStorageConflict)
	}
	assert.Equal(t, 1, won)

	require.NoError(t, repo.UpdateStep(ctx, tr.ID, domain.StepSendingToNetwork, "NET-1"))

	done, err := repo.UpdateStatus(ctx, tr.ID, domain.StatusUpdate{
		From: domain.TransferStatusProcessing,
		To:   domain.TransferStatusCompleted,
		Step: domain.StepCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCompleted, done.Status)
	assert.Equal(t, "NET-1", done.NetworkReference)
	assert.NotNil(t, done.CompletedAt)

	assert.ErrorIs(t, repo.UpdateStep(ctx, tr.ID, domain.StepLockingRate, ""), domain.ErrStorageConflict)

	_, err = repo.UpdateStatus(ctx, uuid.New(), domain.StatusUpdate{From: domain.TransferStatusPending, To: domain.TransferStatusProcessing})
	assert.ErrorIs(t, err, domain.ErrTransferNotFound)
}

func TestTransferRepository_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransferRepository(db)
	ctx := context.Background()
	a := testutil.SeedTestUser(t, db, "a@test.com", "A")
	b := testutil.SeedTestUser(t, db, "b@test.com", "B")

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		tr := newTransfer(a.ID, "")
		tr.CreatedAt = tr.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Insert(ctx, tr))
		ids = append(ids, tr.ID)
	}
	require.NoError(t, repo.Insert(ctx, newTransfer(b.ID, "")))

	list, err := repo.List(ctx, domain.TransferFilter{UserID: a.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[1], list[1].ID)

	list, err = repo.List(ctx, domain.TransferFilter{UserID: a.ID, Offset: 2})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ids[0], list[0].ID)

	list, err = repo.List(ctx, domain.TransferFilter{Status: domain.TransferStatusProcessing})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTransferEventRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	transfers := repository.NewTransferRepository(db)
	events := repository.NewTransferEventRepository(db)
	ctx := context.Background()
	user := testutil.SeedTestUser(t, db, "events@test.com", "Events")

	tr := newTransfer(user.ID, "")
	require.NoError(t, transfers.Insert(ctx, tr))

	base := time.Now().UTC()
	for i, typ := range []domain.TransferEventType{domain.TransferEventCreated, domain.TransferEventProcessing} {
		require.NoError(t, events.Append(ctx, &domain.TransferEvent{
			ID:         uuid.New(),
			TransferID: tr.ID,
			EventType:  typ,
			CreatedAt:  base.Add(time.Duration(i) * time.Millisecond),
		}))
	}

	got, err := events.ListByTransfer(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.TransferEventCreated, got[0].EventType)
	assert.Equal(t, domain.TransferEventProcessing, got[1].EventType)
}

func newPostgresLedger(db *sql.DB) *wallet.Ledger {
	return wallet.NewLedger(repository.NewWalletRepository(repository.NewDB(db)))
}

func TestWalletRepository_HoldAndCapture(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ledger := newPostgresLedger(db)
	ctx := context.Background()
	user := testutil.SeedTestUser(t, db, "wallet@test.com", "Wallet")

	_, err := ledger.Credit(ctx, user.ID, domain.NewMoney(decimal.RequireFromString("1000.00"), domain.CurrencyUSD), "")
	require.NoError(t, err)

	tr := newTransfer(user.ID, "")
	require.NoError(t, ledger.Hold(ctx, tr))
	require.NoError(t, ledger.Hold(ctx, tr))

	bal, pending := testutil.WalletBalances(t, db, user.ID, domain.CurrencyUSD)
	assert.True(t, bal.Equal(decimal.RequireFromString("1000.00")))
	assert.True(t, pending.Equal(decimal.RequireFromString("100.50")))

	first, err := ledger.Debit(ctx, tr)
	require.NoError(t, err)
	second, err := ledger.Debit(ctx, tr)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, testutil.CountLedgerEntries(t, db, tr.ID))

	bal, pending = testutil.WalletBalances(t, db, user.ID, domain.CurrencyUSD)
	assert.True(t, bal.Equal(decimal.RequireFromString("899.50")), "balance %s", bal)
	assert.True(t, pending.IsZero())

	entries, total, err := ledger.Entries(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, domain.EntryTypeDebit, entries[0].EntryType)
}

func TestWalletRepository_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ledger := newPostgresLedger(db)
	ctx := context.Background()
	user := testutil.SeedTestUser(t, db, "race@test.com", "Race")
	testutil.SeedWallet(t, db, user.ID, domain.CurrencyUSD, "1000.00")

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr := newTransfer(user.ID, "")
			tr.SendAmount = decimal.RequireFromString("300.00")
			tr.Fee = decimal.RequireFromString("1.50")
			tr.TotalAmount = decimal.RequireFromString("301.50")
			if err := ledger.Hold(ctx, tr); err != nil {
				errs[i] = err
				return
			}
			_, errs[i] = ledger.Debit(ctx, tr)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	}
	assert.Equal(t, 3, ok)

	bal, pending := testutil.WalletBalances(t, db, user.ID, domain.CurrencyUSD)
	assert.True(t, bal.Equal(decimal.RequireFromString("95.50")), "balance %s", bal)
	assert.True(t, pending.IsZero())
}

func TestWalletRepository_ReleaseRestoresBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ledger := newPostgresLedger(db)
	ctx := context.Background()
	user := testutil.SeedTestUser(t, db, "release@test.com", "Release")
	testutil.SeedWallet(t, db, user.ID, domain.CurrencyUSD, "150.00")

	tr := newTransfer(user.ID, "")
	require.NoError(t, ledger.Hold(ctx, tr))
	assert.ErrorIs(t, ledger.Hold(ctx, newTransfer(user.ID, "")), domain.ErrInsufficientFunds)

	require.NoError(t, ledger.Release(ctx, tr))
	require.NoError(t, ledger.Release(ctx, tr))

	s, err := ledger.Summary(ctx, user.ID, domain.CurrencyUSD)
	require.NoError(t, err)
	assert.True(t, s.Balance.Equal(decimal.RequireFromString("150.00")))

	hold, err := ledger.HoldFor(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldStatusReleased, hold.Status)
}

func TestRecipientRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewRecipientRepository(db)
	ctx := context.Background()
	owner := testutil.SeedTestUser(t, db, "owner@test.com", "Owner")
	other := testutil.SeedTestUser(t, db, "other@test.com", "Other")

	rec := &domain.SavedRecipient{
		ID:             uuid.New(),
		UserID:         owner.ID,
		Nickname:       "Mum",
		DeliveryMethod: domain.DeliveryMethodCash,
		Details: domain.RecipientDetails{
			Name:        "Ada Obi",
			Email:       "ada@example.com",
			Country:     "NG",
			Destination: domain.CashDestination{PickupLocation: "Lagos Island", IDNumber: "A1234567"},
		},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.GetForUser(ctx, owner.ID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Details, got.Details)

	_, err = repo.GetForUser(ctx, other.ID, rec.ID)
	assert.ErrorIs(t, err, domain.ErrRecipientNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, other.ID, rec.ID), domain.ErrRecipientNotFound)

	list, err := repo.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, owner.ID, rec.ID))
	list, err = repo.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestIdempotencyRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewIdempotencyRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now().UTC()

	rec := &domain.IdempotencyRecord{
		Key:          "abc",
		UserID:       userID,
		RequestHash:  "hash",
		StatusCode:   201,
		ResponseBody: []byte(`{"success":true}`),
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Hour),
	}
	require.NoError(t, repo.Set(ctx, rec))

	got, err := repo.Get(ctx, "abc", userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 201, got.StatusCode)

	missing, err := repo.Get(ctx, "abc", uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	expired := *rec
	expired.Key = "old"
	expired.ExpiresAt = now.Add(-time.Minute)
	require.NoError(t, repo.Set(ctx, &expired))

	n, err := repo.CleanExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUserRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()
	u := testutil.SeedTestUser(t, db, "Demo@Test.com", "Demo")

	got, err := repo.GetByEmail(ctx, "demo@test.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
