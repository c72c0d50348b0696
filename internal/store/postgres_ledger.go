package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ruralpay/supplycredit/internal/models"
)

func (p *Postgres) Append(ctx context.Context, accountID, delta int64, description string) (*models.LedgerEntry, error) {
	return p.createLedgerEntry(ctx, p.db, accountID, delta, description)
}

func (p *Postgres) BalanceOf(ctx context.Context, accountID int64) (int64, error) {
	return balanceOf(ctx, p.db, accountID)
}

func (p *Postgres) Entries(ctx context.Context, accountID int64, limit int) ([]models.LedgerEntry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, account_id, delta, description, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Delta, &e.Description, &e.CreatedAt); err != nil {
			return nil, classify(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return entries, nil
}

func (p *Postgres) AggregateBalances(ctx context.Context) (map[int64]int64, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT account_id, SUM(delta)
		FROM ledger_entries
		GROUP BY account_id`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	balances := make(map[int64]int64)
	for rows.Next() {
		var id, sum int64
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, classify(err)
		}
		balances[id] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return balances, nil
}

// WithAccount locks the account row for the lifetime of the transaction.
// The deferred Rollback returns the connection to the pool on every path;
// after a successful Commit it is a no-op.
func (p *Postgres) WithAccount(ctx context.Context, accountID int64, fn func(tx LedgerTx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	account, err := p.lockAccount(ctx, tx, accountID)
	if err != nil {
		return err
	}

	if err := fn(&pgLedgerTx{store: p, tx: tx, account: account}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

func (p *Postgres) lockAccount(ctx context.Context, tx *sql.Tx, accountID int64) (*models.Account, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, accountID)
	return scanAccount(row)
}

func (p *Postgres) createLedgerEntry(ctx context.Context, q queryer, accountID, delta int64, description string) (*models.LedgerEntry, error) {
	entry := models.LedgerEntry{
		AccountID:   accountID,
		Delta:       delta,
		Description: description,
		CreatedAt:   p.now().UTC(),
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO ledger_entries (account_id, delta, description, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		accountID, delta, description, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return nil, fmt.Errorf("append entry for account %d: %w", accountID, classify(err))
	}
	return &entry, nil
}

func balanceOf(ctx context.Context, q queryer, accountID int64) (int64, error) {
	var balance int64
	err := q.QueryRowContext(ctx, `SELECT COALESCE(SUM(delta), 0) FROM ledger_entries WHERE account_id = $1`, accountID).
		Scan(&balance)
	if err != nil {
		return 0, classify(err)
	}
	return balance, nil
}

type pgLedgerTx struct {
	store   *Postgres
	tx      *sql.Tx
	account *models.Account
}

func (t *pgLedgerTx) Account() *models.Account { return t.account }

func (t *pgLedgerTx) GetSetting(ctx context.Context, key string) (string, bool, error) {
	return getSetting(ctx, t.tx, key)
}

func (t *pgLedgerTx) Append(ctx context.Context, accountID, delta int64, description string) (*models.LedgerEntry, error) {
	return t.store.createLedgerEntry(ctx, t.tx, accountID, delta, description)
}

func (t *pgLedgerTx) BalanceOf(ctx context.Context, accountID int64) (int64, error) {
	return balanceOf(ctx, t.tx, accountID)
}
