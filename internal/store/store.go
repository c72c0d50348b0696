// Package store persists accounts, tokens, settings and the append-only
// ledger. Balances are never stored; they are folded from ledger entries on
// every read.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ruralpay/supplycredit/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable is returned when the backing store cannot be reached
	// or a statement fails for reasons unrelated to the data.
	ErrUnavailable = errors.New("store unavailable")

	// ErrIntegrity is returned when a write violates a referential or
	// uniqueness constraint, e.g. appending to an unknown account.
	ErrIntegrity = errors.New("integrity violation")
)

// LedgerTx is the view of the store available inside an account-scoped
// atomic unit. Everything done through it commits or rolls back together.
type LedgerTx interface {
	// Account returns the account row as read under the lock.
	Account() *models.Account
	GetSetting(ctx context.Context, key string) (string, bool, error)
	Append(ctx context.Context, accountID, delta int64, description string) (*models.LedgerEntry, error)
	BalanceOf(ctx context.Context, accountID int64) (int64, error)
}

// Ledger is the append-only entry log.
type Ledger interface {
	// Append records a signed delta. It is the only ledger write.
	Append(ctx context.Context, accountID, delta int64, description string) (*models.LedgerEntry, error)

	// BalanceOf sums every entry of the account; 0 when there are none.
	BalanceOf(ctx context.Context, accountID int64) (int64, error)

	// Entries lists the newest entries of an account first.
	Entries(ctx context.Context, accountID int64, limit int) ([]models.LedgerEntry, error)

	// AggregateBalances returns the balance of every account with entries.
	AggregateBalances(ctx context.Context) (map[int64]int64, error)

	// WithAccount runs fn in one atomic unit holding an exclusive lock on
	// the account, so a balance read, an append and the confirming read
	// cannot interleave with another writer on the same account.
	WithAccount(ctx context.Context, accountID int64, fn func(tx LedgerTx) error) error
}

// Store is the full persistence contract used by the services.
type Store interface {
	Ledger

	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	FindAccountByCode(ctx context.Context, code string) (*models.Account, error)
	FindAccountByToken(ctx context.Context, payload []byte) (*models.Account, *models.Token, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	SetLocked(ctx context.Context, id int64, locked bool) error
	SetOperatorThreshold(ctx context.Context, id int64, threshold *int64) error

	SetTokenLastUsed(ctx context.Context, tokenID int64, at time.Time) error
	FindCredential(ctx context.Context, id string) (*models.APICredential, error)

	GetSetting(ctx context.Context, key string) (string, bool, error)
	GetPreference(ctx context.Context, accountID int64, event models.EventType) (bool, error)

	Ping(ctx context.Context) error
}
