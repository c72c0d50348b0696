package services

import (
	"errors"
	"fmt"

	"github.com/ruralpay/supplycredit/internal/store"
)

// Business outcomes. They are expected results of a debit attempt and are
// surfaced to the caller with a user-facing message.
var (
	ErrIdentityNotFound    = errors.New("identity not found")
	ErrMalformedCredential = errors.New("malformed credential")
	ErrAccountLocked       = errors.New("account locked")
	ErrInsufficientFunds   = errors.New("insufficient funds")
)

// Operational failures. Logged in full, reported to the caller generically.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrStore         = errors.New("store error")
)

// Action tags returned to terminals alongside every debit response.
const (
	ActionOK     = "ok"
	ActionBlock  = "block"
	ActionLocked = "locked"
	ActionError  = "error"
)

// InsufficientFundsError carries the balance that failed the pre-check and
// the configured limit it was compared against.
type InsufficientFundsError struct {
	AccountID int64
	Balance   int64
	Limit     int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %d, minimum %d", e.Balance, e.Limit)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// ConfigurationError reports a missing or unparsable policy setting.
type ConfigurationError struct {
	Key    string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("configuration error: setting %q %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("configuration error: setting %q=%q %s", e.Key, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// StoreError wraps a failure of the backing store. Both ErrStore and the
// underlying store error match with errors.Is.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStore, e.Err}
}

// asStoreError leaves already-classified errors alone and wraps the rest.
func asStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isClassified(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func isClassified(err error) bool {
	return errors.Is(err, ErrIdentityNotFound) ||
		errors.Is(err, ErrMalformedCredential) ||
		errors.Is(err, ErrAccountLocked) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrStore)
}

// lookupError maps a store lookup failure: a missing row is an unknown
// identity, anything else is an operational failure.
func lookupError(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrIdentityNotFound
	}
	return asStoreError(op, err)
}

// ActionFor returns the machine-readable action tag for a debit result.
func ActionFor(err error) string {
	switch {
	case err == nil:
		return ActionOK
	case errors.Is(err, ErrInsufficientFunds):
		return ActionBlock
	case errors.Is(err, ErrAccountLocked):
		return ActionLocked
	default:
		return ActionError
	}
}

// OutcomeFor is the finer-grained label used for metrics and audit.
func OutcomeFor(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInsufficientFunds):
		return "block"
	case errors.Is(err, ErrAccountLocked):
		return "locked"
	case errors.Is(err, ErrIdentityNotFound):
		return "not_found"
	case errors.Is(err, ErrMalformedCredential):
		return "malformed"
	case errors.Is(err, ErrConfiguration):
		return "config_error"
	default:
		return "store_error"
	}
}

// IsBusinessOutcome reports whether err is an expected, user-addressed
// result rather than an operational failure.
func IsBusinessOutcome(err error) bool {
	return errors.Is(err, ErrIdentityNotFound) ||
		errors.Is(err, ErrMalformedCredential) ||
		errors.Is(err, ErrAccountLocked) ||
		errors.Is(err, ErrInsufficientFunds)
}
