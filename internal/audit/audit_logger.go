package audit

import (
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Event is one line of the ledger audit trail.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Reference string            `json:"reference"`
	AccountID int64             `json:"account_id"`
	Amount    int64             `json:"amount"`
	Status    string            `json:"status"`
	Details   map[string]string `json:"details,omitempty"`
}

// Logger writes audit events through a dedicated named zap logger so they
// can be routed separately from operational logs.
type Logger struct {
	log *zap.Logger
	now func() time.Time
}

func NewLogger(log *zap.Logger) *Logger {
	return &Logger{log: log.Named("audit"), now: time.Now}
}

func (a *Logger) LogDebit(reference string, accountID, amount, balance int64, via string) {
	a.write(Event{
		EventType: "DEBIT",
		Reference: reference,
		AccountID: accountID,
		Amount:    amount,
		Status:    "SUCCESS",
		Details: map[string]string{
			"via":     via,
			"balance": itoa(balance),
		},
	})
}

func (a *Logger) LogCredit(reference string, accountID, amount, balance int64, operator string) {
	a.write(Event{
		EventType: "CREDIT",
		Reference: reference,
		AccountID: accountID,
		Amount:    amount,
		Status:    "SUCCESS",
		Details: map[string]string{
			"operator": operator,
			"balance":  itoa(balance),
		},
	})
}

func (a *Logger) LogRejected(reference string, accountID int64, reason string) {
	a.write(Event{
		EventType: "DEBIT",
		Reference: reference,
		AccountID: accountID,
		Status:    "REJECTED",
		Details:   map[string]string{"reason": reason},
	})
}

func (a *Logger) LogError(reference string, accountID int64, err error) {
	a.write(Event{
		EventType: "ERROR",
		Reference: reference,
		AccountID: accountID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *Logger) LogOperation(reference string, accountID int64, operation, details string) {
	a.write(Event{
		EventType: operation,
		Reference: reference,
		AccountID: accountID,
		Status:    "SUCCESS",
		Details:   map[string]string{"details": details},
	})
}

func (a *Logger) write(event Event) {
	event.Timestamp = a.now().UTC()
	fields := []zap.Field{
		zap.Time("timestamp", event.Timestamp),
		zap.String("event_type", event.EventType),
		zap.String("reference", event.Reference),
		zap.Int64("account_id", event.AccountID),
		zap.Int64("amount", event.Amount),
		zap.String("status", event.Status),
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String(k, v))
	}
	a.log.Info("AUDIT", fields...)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
