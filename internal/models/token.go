package models

import "time"

// Token is the credential material read from a physical NFC card. It is
// bound to exactly one account and removed together with it.
type Token struct {
	ID         int64      `json:"id" db:"id"`
	AccountID  int64      `json:"accountId" db:"account_id"`
	Payload    []byte     `json:"-" db:"payload"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty" db:"last_used_at"`
}

// APICredential authenticates a terminal or service calling the API.
type APICredential struct {
	ID      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	KeyHash string `json:"-" db:"key_hash"`
}

// Caller is the authenticated identity behind an inbound request.
type Caller struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"` // "terminal" or "operator"
}

const (
	CallerTerminal = "terminal"
	CallerOperator = "operator"
)
