package services

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/ruralpay/supplycredit/internal/models"
	"github.com/ruralpay/supplycredit/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTransactionService_SwipesUntilBlocked(t *testing.T) {
	f := newFixture(t).withPolicy("-3", "-1")
	account := f.store.AddAccount(models.Account{Name: "Alice", Code: "1234"})
	ctx := context.Background()

	for i, want := range []int64{-1, -2, -3} {
		receipt, err := f.transactions.DebitByCode(ctx, terminal, "1234", "")
		require.NoError(t, err, "swipe %d", i+1)
		assert.Equal(t, want, receipt.Balance)
		assert.Equal(t, int64(-1), receipt.Entry.Delta)
		assert.Equal(t, defaultCodeDescription, receipt.Entry.Description)
		assert.NotEmpty(t, receipt.Reference)
	}

	for i := 0; i < 2; i++ {
		receipt, err := f.transactions.DebitByCode(ctx, terminal, "1234", "")
		assert.Nil(t, receipt)
		require.ErrorIs(t, err, ErrInsufficientFunds)

		var funds *InsufficientFundsError
		require.True(t, errors.As(err, &funds))
		assert.Equal(t, int64(-3), funds.Balance)
		assert.Equal(t, int64(-3), funds.Limit)
		assert.Equal(t, ActionBlock, ActionFor(err))
	}

	assert.Equal(t, 3, f.store.EntryCount(account.ID))
	balance, err := f.store.BalanceOf(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), balance)
}

func TestTransactionService_DebitByToken(t *testing.T) {
	f := newFixture(t).withPolicy("-5", "-1")
	account := f.store.AddAccount(models.Account{Name: "Bob", Code: "5678"})
	token := f.store.AddToken(account.ID, []byte{0x04, 0xa2, 0x19, 0x7f})
	ctx := context.Background()

	receipt, err := f.transactions.DebitByToken(ctx, terminal, base64.StdEncoding.EncodeToString(token.Payload), "Coffee")
	require.NoError(t, err)
	assert.Equal(t, account.ID, receipt.AccountID)
	assert.Equal(t, "Bob", receipt.Name)
	assert.Equal(t, int64(-1), receipt.Balance)
	assert.Equal(t, "Coffee", receipt.Entry.Description)

	stored, ok := f.store.Token(token.ID)
	require.True(t, ok)
	assert.NotNil(t, stored.LastUsedAt)
}

func TestTransactionService_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("locked account", func(t *testing.T) {
		f := newFixture(t).withPolicy("-5", "-1")
		account := f.store.AddAccount(models.Account{Name: "Carol", Code: "1111", Locked: true, Email: strPtr("carol@example.com")})

		_, err := f.transactions.DebitByCode(ctx, terminal, "1111", "")
		assert.ErrorIs(t, err, ErrAccountLocked)
		assert.Equal(t, ActionLocked, ActionFor(err))
		assert.Equal(t, 0, f.store.EntryCount(account.ID))
		f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("unknown code", func(t *testing.T) {
		f := newFixture(t).withPolicy("-5", "-1")
		_, err := f.transactions.DebitByCode(ctx, terminal, "9999", "")
		assert.ErrorIs(t, err, ErrIdentityNotFound)
		assert.Equal(t, ActionError, ActionFor(err))
	})

	t.Run("malformed code", func(t *testing.T) {
		f := newFixture(t).withPolicy("-5", "-1")
		_, err := f.transactions.DebitByCode(ctx, terminal, "12a4", "")
		assert.ErrorIs(t, err, ErrMalformedCredential)
	})

	t.Run("undecodable token", func(t *testing.T) {
		f := newFixture(t).withPolicy("-5", "-1")
		_, err := f.transactions.DebitByToken(ctx, terminal, "***", "")
		assert.ErrorIs(t, err, ErrMalformedCredential)
	})

	t.Run("missing setting", func(t *testing.T) {
		f := newFixture(t).withPolicy("-5", "-1")
		f.store.DeleteSetting(models.SettingTransactionAmount)
		account := f.store.AddAccount(models.Account{Name: "Dan", Code: "2222"})

		_, err := f.transactions.DebitByCode(ctx, terminal, "2222", "")
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.False(t, IsBusinessOutcome(err))
		assert.Equal(t, 0, f.store.EntryCount(account.ID))
	})

	t.Run("store failure leaves balance unchanged", func(t *testing.T) {
		f := newFixture(t).withPolicy("-5", "-1")
		account := f.store.AddAccount(models.Account{Name: "Eve", Code: "3333"})
		_, err := f.store.Append(ctx, account.ID, 10, "seed")
		require.NoError(t, err)
		f.store.FailAppends(store.ErrUnavailable)

		_, err = f.transactions.DebitByCode(ctx, terminal, "3333", "")
		assert.ErrorIs(t, err, ErrStore)
		assert.ErrorIs(t, err, store.ErrUnavailable)
		assert.Equal(t, ActionError, ActionFor(err))

		balance, err := f.store.BalanceOf(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), balance)
		assert.Equal(t, 1, f.store.EntryCount(account.ID))
	})
}

func TestTransactionService_ConcurrentDebitsRespectMinimum(t *testing.T) {
	f := newFixture(t).withPolicy("-3", "-1")
	account := f.store.AddAccount(models.Account{Name: "Frank", Code: "4444"})
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		blocked int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.transactions.DebitByCode(ctx, terminal, "4444", "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrInsufficientFunds):
				blocked++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, 17, blocked)
	balance, err := f.store.BalanceOf(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), balance)
}

func TestTransactionService_Notifications(t *testing.T) {
	ctx := context.Background()

	t.Run("transaction mail follows preference", func(t *testing.T) {
		f := newFixture(t).withPolicy("-5", "-1")
		account := f.store.AddAccount(models.Account{Name: "Gina", Code: "5555", Email: strPtr("gina@example.com")})
		f.store.PutPreference(account.ID, models.EventTransaction, true)

		receipt, err := f.transactions.DebitByCode(ctx, terminal, "5555", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"gina@example.com"}, f.mailer.sentTo())
		assert.Contains(t, receipt.Notifications, models.NotificationResult{Event: models.EventTransaction, Outcome: models.NotificationSent})
	})

	t.Run("operator alert ignores preferences", func(t *testing.T) {
		f := newFixture(t).withPolicy("-5", "-1")
		account := f.store.AddAccount(models.Account{Name: "Hank", Code: "6666", OperatorThreshold: int64Ptr(10)})
		_, err := f.store.Append(ctx, account.ID, 11, "seed")
		require.NoError(t, err)

		receipt, err := f.transactions.DebitByCode(ctx, terminal, "6666", "")
		require.NoError(t, err)
		assert.Equal(t, int64(10), receipt.Balance)
		assert.Equal(t, []string{operatorMailbox}, f.mailer.sentTo())
	})

	t.Run("failed mail does not affect the debit", func(t *testing.T) {
		f := newFixture(t).withPolicy("-5", "-1")
		failing := &MockMailer{}
		failing.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
		f.notify.mailer = failing

		account := f.store.AddAccount(models.Account{Name: "Ida", Code: "7777", Email: strPtr("ida@example.com")})
		f.store.PutPreference(account.ID, models.EventTransaction, true)

		receipt, err := f.transactions.DebitByCode(ctx, terminal, "7777", "")
		require.NoError(t, err)
		assert.Equal(t, int64(-1), receipt.Balance)
		assert.Equal(t, 1, f.store.EntryCount(account.ID))
		require.Len(t, receipt.Notifications, 1)
		assert.Equal(t, models.NotificationFailed, receipt.Notifications[0].Outcome)
	})
}

func TestUserMessage(t *testing.T) {
	assert.Contains(t, UserMessage(&InsufficientFundsError{Balance: -3, Limit: -3}), "-3")
	assert.Equal(t, "This account is locked", UserMessage(ErrAccountLocked))

	generic := UserMessage(&StoreError{Op: "append", Err: errors.New("connection refused on 10.0.0.5")})
	assert.NotContains(t, generic, "10.0.0.5")
}
