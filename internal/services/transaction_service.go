package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ruralpay/supplycredit/internal/audit"
	"github.com/ruralpay/supplycredit/internal/metrics"
	"github.com/ruralpay/supplycredit/internal/models"
	"github.com/ruralpay/supplycredit/internal/store"
	"go.uber.org/zap"
)

const (
	defaultCodeDescription  = "Manual transaction"
	defaultTokenDescription = "Token transaction"

	viaCode  = "code"
	viaToken = "token"
)

// TransactionService runs the debit flow: resolve the account, check it,
// append the configured delta and report the resulting balance. The check
// and the append happen under one account lock so concurrent debits of the
// same account are serialized.
type TransactionService struct {
	store    store.Store
	identity *IdentityService
	notifier *NotificationService
	audit    *audit.Logger
	metrics  *metrics.Collector
	log      *zap.Logger
	newRef   func() string
	now      func() time.Time
}

func NewTransactionService(
	st store.Store,
	identity *IdentityService,
	notifier *NotificationService,
	auditLog *audit.Logger,
	collector *metrics.Collector,
	log *zap.Logger,
) *TransactionService {
	return &TransactionService{
		store:    st,
		identity: identity,
		notifier: notifier,
		audit:    auditLog,
		metrics:  collector,
		log:      log.Named("transactions"),
		newRef:   uuid.NewString,
		now:      time.Now,
	}
}

// DebitByCode books one transaction against the account with the given
// presentation code.
func (s *TransactionService) DebitByCode(ctx context.Context, caller *models.Caller, code, description string) (*models.Receipt, error) {
	return s.debit(ctx, caller, viaCode, orDefault(description, defaultCodeDescription), func() (*models.Account, error) {
		return s.identity.ResolveByCode(ctx, code)
	})
}

// DebitByToken books one transaction against the account owning the
// base64 encoded token payload.
func (s *TransactionService) DebitByToken(ctx context.Context, caller *models.Caller, token, description string) (*models.Receipt, error) {
	return s.debit(ctx, caller, viaToken, orDefault(description, defaultTokenDescription), func() (*models.Account, error) {
		return s.identity.ResolveByToken(ctx, token)
	})
}

type debitResult struct {
	account *models.Account
	policy  PolicySettings
	entry   *models.LedgerEntry
	balance int64
}

func (s *TransactionService) debit(
	ctx context.Context,
	caller *models.Caller,
	via, description string,
	resolve func() (*models.Account, error),
) (*models.Receipt, error) {
	ref := s.newRef()

	account, err := resolve()
	if err != nil {
		return nil, s.fail(ref, 0, caller, via, err)
	}
	if account.Locked {
		return nil, s.fail(ref, account.ID, caller, via, ErrAccountLocked)
	}

	start := time.Now()
	res, err := s.book(ctx, account.ID, description)
	s.metrics.ObserveAppend(time.Since(start))
	if err != nil {
		return nil, s.fail(ref, account.ID, caller, via, err)
	}

	nc := NotificationContext{
		Reference:   ref,
		Account:     *res.account,
		Balance:     res.balance,
		Delta:       res.entry.Delta,
		Limit:       res.policy.MinBalance,
		Description: res.entry.Description,
		At:          res.entry.CreatedAt,
	}
	events := EvaluatePost(res.balance, res.policy, res.account)
	notifications := s.notifier.Dispatch(ctx, events, nc)

	s.metrics.RecordTransaction(OutcomeFor(nil))
	s.audit.LogDebit(ref, res.account.ID, res.entry.Delta, res.balance, via)
	s.log.Info("transaction booked",
		zap.String("reference", ref),
		zap.Int64("account_id", res.account.ID),
		zap.Int64("delta", res.entry.Delta),
		zap.Int64("balance", res.balance),
		zap.String("caller", callerName(caller)),
		zap.String("via", via))

	return &models.Receipt{
		Reference:     ref,
		AccountID:     res.account.ID,
		Name:          res.account.Name,
		Entry:         *res.entry,
		Balance:       res.balance,
		Message:       fmt.Sprintf("Booked for %s. New balance: %d", res.account.Name, res.balance),
		Notifications: notifications,
		CreatedAt:     s.now().UTC(),
	}, nil
}

// book is the locked check-and-append unit. Nothing it writes survives an
// error return.
func (s *TransactionService) book(ctx context.Context, accountID int64, description string) (*debitResult, error) {
	var res debitResult
	err := s.store.WithAccount(ctx, accountID, func(tx store.LedgerTx) error {
		account := tx.Account()
		if account.Locked {
			return ErrAccountLocked
		}

		policy, err := LoadPolicySettings(ctx, tx)
		if err != nil {
			return err
		}

		current, err := tx.BalanceOf(ctx, accountID)
		if err != nil {
			return asStoreError("read balance", err)
		}
		if decision := EvaluatePre(current, policy.MinBalance); !decision.Allow {
			return &InsufficientFundsError{AccountID: accountID, Balance: decision.Balance, Limit: decision.Limit}
		}

		entry, err := tx.Append(ctx, accountID, policy.TransactionAmount, description)
		if err != nil {
			return asStoreError("append entry", err)
		}

		balance, err := tx.BalanceOf(ctx, accountID)
		if err != nil {
			return asStoreError("confirm balance", err)
		}

		res = debitResult{account: account, policy: policy, entry: entry, balance: balance}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, asStoreError("debit", err)
	}
	return &res, nil
}

func (s *TransactionService) fail(ref string, accountID int64, caller *models.Caller, via string, err error) error {
	outcome := OutcomeFor(err)
	s.metrics.RecordTransaction(outcome)

	fields := []zap.Field{
		zap.String("reference", ref),
		zap.Int64("account_id", accountID),
		zap.String("caller", callerName(caller)),
		zap.String("via", via),
		zap.String("outcome", outcome),
	}

	if IsBusinessOutcome(err) {
		s.audit.LogRejected(ref, accountID, outcome)
		var funds *InsufficientFundsError
		if errors.As(err, &funds) {
			fields = append(fields, zap.Int64("balance", funds.Balance), zap.Int64("limit", funds.Limit))
		}
		s.log.Info("transaction rejected", fields...)
		return err
	}

	s.audit.LogError(ref, accountID, err)
	s.log.Error("transaction failed", append(fields, zap.Error(err))...)
	return err
}

// UserMessage is the caller-facing text for a debit outcome. Operational
// failures get a generic text without internal detail.
func UserMessage(err error) string {
	var funds *InsufficientFundsError
	switch {
	case errors.As(err, &funds):
		return fmt.Sprintf("Not enough credit: balance %d has reached the limit %d", funds.Balance, funds.Limit)
	case errors.Is(err, ErrAccountLocked):
		return "This account is locked"
	case errors.Is(err, ErrIdentityNotFound):
		return "Unknown code or token"
	case errors.Is(err, ErrMalformedCredential):
		return "The code or token is not valid"
	default:
		return "The transaction could not be processed, please try again later"
	}
}

func callerName(caller *models.Caller) string {
	if caller == nil {
		return ""
	}
	return caller.Name
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
