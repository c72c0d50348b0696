package store

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ruralpay/supplycredit/internal/models"
)

// Memory is an in-process Store for tests and local development. Writes
// made inside WithAccount are staged and only become visible on commit.
type Memory struct {
	mu          sync.RWMutex
	accounts    map[int64]*models.Account
	tokens      map[int64]*models.Token
	credentials map[string]models.APICredential
	settings    map[string]string
	preferences map[prefKey]bool
	entries     []models.LedgerEntry
	nextID      int64
	appendErr   error

	lockMu       sync.Mutex
	accountLocks map[int64]*sync.Mutex

	now func() time.Time
}

type prefKey struct {
	AccountID int64
	Event     models.EventType
}

func NewMemory() *Memory {
	return &Memory{
		accounts:     make(map[int64]*models.Account),
		tokens:       make(map[int64]*models.Token),
		credentials:  make(map[string]models.APICredential),
		settings:     make(map[string]string),
		preferences:  make(map[prefKey]bool),
		accountLocks: make(map[int64]*sync.Mutex),
		now:          time.Now,
	}
}

// AddAccount stores a copy of account under a fresh id and returns it.
func (m *Memory) AddAccount(account models.Account) *models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	account.ID = m.nextID
	if account.CreatedAt.IsZero() {
		account.CreatedAt = m.now().UTC()
	}
	m.accounts[account.ID] = &account
	stored := account
	return &stored
}

// AddToken binds payload to an account.
func (m *Memory) AddToken(accountID int64, payload []byte) *models.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	token := &models.Token{ID: m.nextID, AccountID: accountID, Payload: append([]byte(nil), payload...)}
	m.tokens[token.ID] = token
	stored := *token
	return &stored
}

func (m *Memory) AddCredential(cred models.APICredential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[cred.ID] = cred
}

func (m *Memory) PutSetting(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
}

func (m *Memory) DeleteSetting(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, key)
}

func (m *Memory) PutPreference(accountID int64, event models.EventType, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preferences[prefKey{accountID, event}] = enabled
}

// FailAppends makes every subsequent Append fail with err; nil restores
// normal behaviour.
func (m *Memory) FailAppends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendErr = err
}

// EntryCount returns the number of committed entries of an account.
func (m *Memory) EntryCount(accountID int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.entries {
		if e.AccountID == accountID {
			n++
		}
	}
	return n
}

// Token returns a copy of the stored token.
func (m *Memory) Token(id int64) (*models.Token, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tokens[id]
	if !ok {
		return nil, false
	}
	c := *t
	return &c, true
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) GetAccount(_ context.Context, id int64) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *a
	return &c, nil
}

func (m *Memory) FindAccountByCode(_ context.Context, code string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.Code == code {
			c := *a
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindAccountByToken(_ context.Context, payload []byte) (*models.Account, *models.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tokens {
		if bytes.Equal(t.Payload, payload) {
			a, ok := m.accounts[t.AccountID]
			if !ok {
				return nil, nil, ErrNotFound
			}
			ac, tc := *a, *t
			return &ac, &tc, nil
		}
	}
	return nil, nil, ErrNotFound
}

func (m *Memory) ListAccounts(context.Context) ([]models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	accounts := make([]models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		accounts = append(accounts, *a)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Name == accounts[j].Name {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].Name < accounts[j].Name
	})
	return accounts, nil
}

func (m *Memory) SetLocked(_ context.Context, id int64, locked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.Locked = locked
	return nil
}

func (m *Memory) SetOperatorThreshold(_ context.Context, id int64, threshold *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	if threshold == nil {
		a.OperatorThreshold = nil
		return nil
	}
	v := *threshold
	a.OperatorThreshold = &v
	return nil
}

func (m *Memory) SetTokenLastUsed(_ context.Context, tokenID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenID]
	if !ok {
		return ErrNotFound
	}
	t.LastUsedAt = &at
	return nil
}

func (m *Memory) FindCredential(_ context.Context, id string) (*models.APICredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.credentials[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) GetSetting(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.settings[key]
	return v, ok, nil
}

func (m *Memory) GetPreference(_ context.Context, accountID int64, event models.EventType) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.preferences[prefKey{accountID, event}], nil
}

func (m *Memory) Append(_ context.Context, accountID, delta int64, description string) (*models.LedgerEntry, error) {
	lock := m.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	entry, err := m.newEntryLocked(accountID, delta, description)
	if err != nil {
		return nil, err
	}
	m.entries = append(m.entries, *entry)
	return entry, nil
}

func (m *Memory) BalanceOf(_ context.Context, accountID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sumDeltas(m.entries, accountID), nil
}

func (m *Memory) Entries(_ context.Context, accountID int64, limit int) ([]models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := []models.LedgerEntry{}
	for i := len(m.entries) - 1; i >= 0 && len(entries) < limit; i-- {
		if m.entries[i].AccountID == accountID {
			entries = append(entries, m.entries[i])
		}
	}
	return entries, nil
}

func (m *Memory) AggregateBalances(context.Context) (map[int64]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	balances := make(map[int64]int64)
	for _, e := range m.entries {
		balances[e.AccountID] += e.Delta
	}
	return balances, nil
}

func (m *Memory) WithAccount(ctx context.Context, accountID int64, fn func(tx LedgerTx) error) error {
	lock := m.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	account, err := m.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	tx := &memLedgerTx{store: m, account: account}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	m.entries = append(m.entries, tx.staged...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) accountLock(accountID int64) *sync.Mutex {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	l, ok := m.accountLocks[accountID]
	if !ok {
		l = &sync.Mutex{}
		m.accountLocks[accountID] = l
	}
	return l
}

func (m *Memory) newEntryLocked(accountID, delta int64, description string) (*models.LedgerEntry, error) {
	if m.appendErr != nil {
		return nil, m.appendErr
	}
	if _, ok := m.accounts[accountID]; !ok {
		return nil, ErrIntegrity
	}
	m.nextID++
	return &models.LedgerEntry{
		ID:          m.nextID,
		AccountID:   accountID,
		Delta:       delta,
		Description: description,
		CreatedAt:   m.now().UTC(),
	}, nil
}

func sumDeltas(entries []models.LedgerEntry, accountID int64) int64 {
	var sum int64
	for _, e := range entries {
		if e.AccountID == accountID {
			sum += e.Delta
		}
	}
	return sum
}

type memLedgerTx struct {
	store   *Memory
	account *models.Account
	staged  []models.LedgerEntry
}

func (t *memLedgerTx) Account() *models.Account { return t.account }

func (t *memLedgerTx) GetSetting(ctx context.Context, key string) (string, bool, error) {
	return t.store.GetSetting(ctx, key)
}

func (t *memLedgerTx) Append(_ context.Context, accountID, delta int64, description string) (*models.LedgerEntry, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	entry, err := t.store.newEntryLocked(accountID, delta, description)
	if err != nil {
		return nil, err
	}
	t.staged = append(t.staged, *entry)
	return entry, nil
}

func (t *memLedgerTx) BalanceOf(_ context.Context, accountID int64) (int64, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return sumDeltas(t.store.entries, accountID) + sumDeltas(t.staged, accountID), nil
}
