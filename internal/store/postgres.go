package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/ruralpay/supplycredit/internal/models"
)

// Postgres implements Store over a shared connection pool. The pool is
// owned by the caller; Postgres never closes it.
type Postgres struct {
	db  *sql.DB
	now func() time.Time
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const accountColumns = `id, name, code, locked, email, operator_threshold, created_at`

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return classify(err)
	}
	return nil
}

func (p *Postgres) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (p *Postgres) FindAccountByCode(ctx context.Context, code string) (*models.Account, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code = $1`, code)
	return scanAccount(row)
}

func (p *Postgres) FindAccountByToken(ctx context.Context, payload []byte) (*models.Account, *models.Token, error) {
	var (
		account  models.Account
		token    models.Token
		email    sql.NullString
		limit    sql.NullInt64
		lastUsed sql.NullTime
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT a.id, a.name, a.code, a.locked, a.email, a.operator_threshold, a.created_at,
		       t.id, t.last_used_at
		FROM tokens t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.payload = $1`, payload).Scan(
		&account.ID, &account.Name, &account.Code, &account.Locked, &email, &limit, &account.CreatedAt,
		&token.ID, &lastUsed)
	if err != nil {
		return nil, nil, classify(err)
	}

	fillOptional(&account, email, limit)
	token.AccountID = account.ID
	token.Payload = payload
	if lastUsed.Valid {
		token.LastUsedAt = &lastUsed.Time
	}
	return &account, &token, nil
}

func (p *Postgres) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY name, id`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return accounts, nil
}

func (p *Postgres) SetLocked(ctx context.Context, id int64, locked bool) error {
	result, err := p.db.ExecContext(ctx, `UPDATE accounts SET locked = $1 WHERE id = $2`, locked, id)
	return expectOneRow(result, err)
}

func (p *Postgres) SetOperatorThreshold(ctx context.Context, id int64, threshold *int64) error {
	var value sql.NullInt64
	if threshold != nil {
		value = sql.NullInt64{Int64: *threshold, Valid: true}
	}
	result, err := p.db.ExecContext(ctx, `UPDATE accounts SET operator_threshold = $1 WHERE id = $2`, value, id)
	return expectOneRow(result, err)
}

func (p *Postgres) SetTokenLastUsed(ctx context.Context, tokenID int64, at time.Time) error {
	result, err := p.db.ExecContext(ctx, `UPDATE tokens SET last_used_at = $1 WHERE id = $2`, at, tokenID)
	return expectOneRow(result, err)
}

func (p *Postgres) FindCredential(ctx context.Context, id string) (*models.APICredential, error) {
	var cred models.APICredential
	err := p.db.QueryRowContext(ctx, `SELECT id, name, key_hash FROM api_credentials WHERE id = $1`, id).
		Scan(&cred.ID, &cred.Name, &cred.KeyHash)
	if err != nil {
		return nil, classify(err)
	}
	return &cred, nil
}

func (p *Postgres) GetSetting(ctx context.Context, key string) (string, bool, error) {
	return getSetting(ctx, p.db, key)
}

func (p *Postgres) GetPreference(ctx context.Context, accountID int64, event models.EventType) (bool, error) {
	var enabled bool
	err := p.db.QueryRowContext(ctx, `
		SELECT enabled FROM notification_preferences
		WHERE account_id = $1 AND event_key = $2`, accountID, string(event)).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify(err)
	}
	return enabled, nil
}

func getSetting(ctx context.Context, q queryer, key string) (string, bool, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify(err)
	}
	return value, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*models.Account, error) {
	var (
		account models.Account
		email   sql.NullString
		limit   sql.NullInt64
	)
	err := row.Scan(&account.ID, &account.Name, &account.Code, &account.Locked, &email, &limit, &account.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	fillOptional(&account, email, limit)
	return &account, nil
}

func fillOptional(account *models.Account, email sql.NullString, limit sql.NullInt64) {
	if email.Valid {
		account.Email = &email.String
	}
	if limit.Valid {
		account.OperatorThreshold = &limit.Int64
	}
}

func expectOneRow(result sql.Result, err error) error {
	if err != nil {
		return classify(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// classify maps driver errors onto the store taxonomy so callers can tell
// "no such row" apart from "could not ask".
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "23": // integrity_constraint_violation
			return fmt.Errorf("%w: %s", ErrIntegrity, pqErr.Message)
		}
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
