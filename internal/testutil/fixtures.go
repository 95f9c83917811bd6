package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
)

const TestPassword = "password123"

func SeedTestUser(t *testing.T, db *sql.DB, email, name string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Status:       domain.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, name, password_hash, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Status, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test user %s: %v", email, err)
	}
	return u
}

func SeedWallet(t *testing.T, db *sql.DB, userID uuid.UUID, currency domain.Currency, balance string) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO wallets (user_id, currency, ledger_balance) VALUES ($1, $2, $3)`,
		userID, currency, decimal.RequireFromString(balance),
	)
	if err != nil {
		t.Fatalf("seed wallet %s/%s: %v", userID, currency, err)
	}
}

func WalletBalances(t *testing.T, db *sql.DB, userID uuid.UUID, currency domain.Currency) (ledger, pending decimal.Decimal) {
	t.Helper()

	err := db.QueryRow(
		`SELECT ledger_balance, pending FROM wallets WHERE user_id = $1 AND currency = $2`,
		userID, currency,
	).Scan(&ledger, &pending)
	if err != nil {
		t.Fatalf("wallet balances %s/%s: %v", userID, currency, err)
	}
	return ledger, pending
}

func CountLedgerEntries(t *testing.T, db *sql.DB, transferID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM ledger_entries WHERE transfer_id = $1`, transferID).Scan(&count)
	if err != nil {
		t.Fatalf("count ledger entries for transfer %s: %v", transferID, err)
	}
	return count
}
