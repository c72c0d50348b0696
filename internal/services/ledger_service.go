package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/supplycredit/internal/audit"
	"github.com/ruralpay/supplycredit/internal/models"
	"github.com/ruralpay/supplycredit/internal/store"
	"go.uber.org/zap"
)

const (
	DefaultEntriesLimit = 50
	MaxEntriesLimit     = 500

	defaultCreditDescription = "Top-up"
)

// ErrInvalidAmount is returned for a credit that is not strictly positive.
var ErrInvalidAmount = errors.New("amount must be positive")

// LedgerService backs the operator API: reading balances and entries,
// topping up accounts and editing the lock flag and alert threshold.
type LedgerService struct {
	store    store.Store
	notifier *NotificationService
	audit    *audit.Logger
	log      *zap.Logger
	newRef   func() string
}

func NewLedgerService(st store.Store, notifier *NotificationService, auditLog *audit.Logger, log *zap.Logger) *LedgerService {
	return &LedgerService{
		store:    st,
		notifier: notifier,
		audit:    auditLog,
		log:      log.Named("ledger"),
		newRef:   uuid.NewString,
	}
}

// Credit appends a positive delta on behalf of an operator. Credits are not
// subject to the minimum balance check and are allowed on locked accounts.
func (s *LedgerService) Credit(ctx context.Context, caller *models.Caller, accountID, amount int64, description string) (*models.Receipt, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	ref := s.newRef()
	description = orDefault(description, defaultCreditDescription)

	var (
		account *models.Account
		entry   *models.LedgerEntry
		balance int64
	)
	err := s.store.WithAccount(ctx, accountID, func(tx store.LedgerTx) error {
		account = tx.Account()
		var err error
		if entry, err = tx.Append(ctx, accountID, amount, description); err != nil {
			return err
		}
		balance, err = tx.BalanceOf(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, lookupError("credit", err)
	}

	s.audit.LogCredit(ref, accountID, amount, balance, callerName(caller))
	s.log.Info("account credited",
		zap.String("reference", ref),
		zap.Int64("account_id", accountID),
		zap.Int64("amount", amount),
		zap.Int64("balance", balance),
		zap.String("operator", callerName(caller)))

	return &models.Receipt{
		Reference:     ref,
		AccountID:     accountID,
		Name:          account.Name,
		Entry:         *entry,
		Balance:       balance,
		Message:       fmt.Sprintf("Credited %d to %s. New balance: %d", amount, account.Name, balance),
		Notifications: s.notifyAfterCredit(ctx, ref, account, entry, balance),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// notifyAfterCredit runs the post-check for a committed credit. Without a
// usable policy there is nothing to compare against, so it only logs.
func (s *LedgerService) notifyAfterCredit(ctx context.Context, ref string, account *models.Account, entry *models.LedgerEntry, balance int64) []models.NotificationResult {
	policy, err := LoadPolicySettings(ctx, s.store)
	if err != nil {
		s.log.Warn("skipping notifications after credit",
			zap.String("reference", ref),
			zap.Int64("account_id", account.ID),
			zap.Error(err))
		return nil
	}
	nc := NotificationContext{
		Reference:   ref,
		Account:     *account,
		Balance:     balance,
		Delta:       entry.Delta,
		Limit:       policy.MinBalance,
		Description: entry.Description,
		At:          entry.CreatedAt,
	}
	return s.notifier.Dispatch(ctx, EvaluatePost(balance, policy, account), nc)
}

func (s *LedgerService) Account(ctx context.Context, accountID int64) (*models.AccountBalance, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, lookupError("get account", err)
	}
	balance, err := s.store.BalanceOf(ctx, accountID)
	if err != nil {
		return nil, asStoreError("read balance", err)
	}
	return &models.AccountBalance{Account: *account, Balance: balance}, nil
}

// Accounts lists every account with its balance, folding all entries in a
// single aggregate query.
func (s *LedgerService) Accounts(ctx context.Context) ([]models.AccountBalance, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, asStoreError("list accounts", err)
	}
	balances, err := s.store.AggregateBalances(ctx)
	if err != nil {
		return nil, asStoreError("aggregate balances", err)
	}

	out := make([]models.AccountBalance, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, models.AccountBalance{Account: a, Balance: balances[a.ID]})
	}
	return out, nil
}

// Entries returns the newest entries of an account. A non-positive limit
// selects the default; larger limits are capped.
func (s *LedgerService) Entries(ctx context.Context, accountID int64, limit int) ([]models.LedgerEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultEntriesLimit
	case limit > MaxEntriesLimit:
		limit = MaxEntriesLimit
	}
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, lookupError("get account", err)
	}
	entries, err := s.store.Entries(ctx, accountID, limit)
	if err != nil {
		return nil, asStoreError("list entries", err)
	}
	return entries, nil
}

func (s *LedgerService) Summary(ctx context.Context) (*models.LedgerSummary, error) {
	policy, err := LoadPolicySettings(ctx, s.store)
	if err != nil {
		return nil, err
	}
	accounts, err := s.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	summary := &models.LedgerSummary{Accounts: len(accounts), MinBalance: policy.MinBalance}
	for _, a := range accounts {
		summary.TotalBalance += a.Balance
		if a.Locked {
			summary.LockedAccounts++
		}
		if a.Balance <= policy.MinBalance {
			summary.AtOrBelowLimit++
		}
	}
	return summary, nil
}

func (s *LedgerService) SetLocked(ctx context.Context, caller *models.Caller, accountID int64, locked bool) error {
	if err := s.store.SetLocked(ctx, accountID, locked); err != nil {
		return lookupError("set locked", err)
	}
	op := "UNLOCK"
	if locked {
		op = "LOCK"
	}
	s.audit.LogOperation(s.newRef(), accountID, op, "by "+callerName(caller))
	return nil
}

// SetThreshold sets or, with nil, clears the operator alert threshold.
func (s *LedgerService) SetThreshold(ctx context.Context, caller *models.Caller, accountID int64, threshold *int64) error {
	if err := s.store.SetOperatorThreshold(ctx, accountID, threshold); err != nil {
		return lookupError("set threshold", err)
	}
	value := "cleared"
	if threshold != nil {
		value = strconv.FormatInt(*threshold, 10)
	}
	s.audit.LogOperation(s.newRef(), accountID, "THRESHOLD", strings.Join([]string{value, "by", callerName(caller)}, " "))
	return nil
}
