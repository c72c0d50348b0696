package models

import (
	"time"
)

// Account is a person holding prepaid supply credit. Its balance is never
// stored; it is always the sum of its ledger entries.
type Account struct {
	ID                int64     `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Code              string    `json:"code" db:"code"` // fixed-length presentation code
	Locked            bool      `json:"locked" db:"locked"`
	Email             *string   `json:"email,omitempty" db:"email"`
	OperatorThreshold *int64    `json:"operatorThreshold,omitempty" db:"operator_threshold"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}

// HasEmail reports whether the account registered a notification address.
func (a *Account) HasEmail() bool {
	return a.Email != nil && *a.Email != ""
}

// LedgerEntry is one immutable signed credit/debit against an account.
type LedgerEntry struct {
	ID          int64     `json:"id" db:"id"`
	AccountID   int64     `json:"accountId" db:"account_id"`
	Delta       int64     `json:"delta" db:"delta"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// AccountBalance pairs an account with its derived balance.
type AccountBalance struct {
	Account
	Balance int64 `json:"balance"`
}

// LedgerSummary is the operator overview across all accounts.
type LedgerSummary struct {
	Accounts       int   `json:"accounts"`
	LockedAccounts int   `json:"lockedAccounts"`
	AtOrBelowLimit int   `json:"atOrBelowLimit"`
	TotalBalance   int64 `json:"totalBalance"`
	MinBalance     int64 `json:"minBalance"`
}
