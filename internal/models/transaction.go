package models

import (
	"time"
)

// Setting keys consumed by the policy engine.
const (
	SettingMinBalance        = "min_balance"
	SettingTransactionAmount = "transaction_amount"
)

// EventType identifies a notification raised after a ledger mutation.
type EventType string

const (
	EventZeroBalance       EventType = "zero_balance"
	EventNegativeBalance   EventType = "negative_balance"
	EventOperatorThreshold EventType = "operator_threshold"
	EventTransaction       EventType = "transaction_created"
)

// Receipt is returned to the caller once a debit has been committed.
type Receipt struct {
	Reference     string               `json:"reference"`
	AccountID     int64                `json:"accountId"`
	Name          string               `json:"name"`
	Entry         LedgerEntry          `json:"entry"`
	Balance       int64                `json:"balance"`
	Message       string               `json:"message"`
	Notifications []NotificationResult `json:"notifications,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// NotificationOutcome is the result of one dispatch attempt.
type NotificationOutcome string

const (
	NotificationSent       NotificationOutcome = "sent"
	NotificationSuppressed NotificationOutcome = "suppressed"
	NotificationFailed     NotificationOutcome = "failed"
)

// NotificationResult records what happened to a raised event.
type NotificationResult struct {
	Event   EventType           `json:"event"`
	Outcome NotificationOutcome `json:"outcome"`
	Reason  string              `json:"reason,omitempty"`
}
