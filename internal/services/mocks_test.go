package services

import (
	"context"
	"testing"

	"github.com/ruralpay/supplycredit/internal/audit"
	"github.com/ruralpay/supplycredit/internal/config"
	"github.com/ruralpay/supplycredit/internal/metrics"
	"github.com/ruralpay/supplycredit/internal/models"
	"github.com/ruralpay/supplycredit/internal/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// sentTo returns the recipients of every Send call, in order.
func (m *MockMailer) sentTo() []string {
	var to []string
	for _, c := range m.Calls {
		if c.Method == "Send" {
			to = append(to, c.Arguments.Get(1).(Message).To)
		}
	}
	return to
}

type MockPreferences struct {
	mock.Mock
}

func (m *MockPreferences) GetPreference(ctx context.Context, accountID int64, event models.EventType) (bool, error) {
	args := m.Called(ctx, accountID, event)
	return args.Bool(0), args.Error(1)
}

var testArgon2 = config.Argon2Config{Time: 1, Memory: 1024, Threads: 1, KeyLength: 32}

type fixture struct {
	store        *store.Memory
	mailer       *MockMailer
	metrics      *metrics.Collector
	identity     *IdentityService
	notify       *NotificationService
	transactions *TransactionService
	ledger       *LedgerService
}

const operatorMailbox = "ops@example.com"

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)

	renderer, err := NewRenderer("en")
	require.NoError(t, err)

	f := &fixture{
		store:   store.NewMemory(),
		mailer:  &MockMailer{},
		metrics: metrics.New(),
	}
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(nil).Maybe()

	auditLog := audit.NewLogger(zap.NewNop())
	f.identity = NewIdentityService(f.store, NewCredentialHasher(testArgon2), 4, log)
	f.notify = NewNotificationService(f.store, renderer, f.mailer, operatorMailbox, f.metrics, log)
	f.transactions = NewTransactionService(f.store, f.identity, f.notify, auditLog, f.metrics, log)
	f.ledger = NewLedgerService(f.store, f.notify, auditLog, log)
	return f
}

// withPolicy seeds both ledger policy settings.
func (f *fixture) withPolicy(minBalance, amount string) *fixture {
	f.store.PutSetting(models.SettingMinBalance, minBalance)
	f.store.PutSetting(models.SettingTransactionAmount, amount)
	return f
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

var terminal = &models.Caller{ID: "kiosk", Name: "Kiosk 1", Kind: models.CallerTerminal}
