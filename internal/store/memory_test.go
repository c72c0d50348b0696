package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ruralpay/supplycredit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_BalanceIsSumOfEntries(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	a := m.AddAccount(models.Account{Name: "Alice", Code: "1234"})
	b := m.AddAccount(models.Account{Name: "Bob", Code: "5678"})

	balance, err := m.BalanceOf(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	for _, d := range []int64{10, -1, -1, 5} {
		_, err := m.Append(ctx, a.ID, d, "")
		require.NoError(t, err)
	}
	_, err = m.Append(ctx, b.ID, -2, "")
	require.NoError(t, err)

	balance, err = m.BalanceOf(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(13), balance)

	again, err := m.BalanceOf(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, balance, again, "reads must not change the balance")

	all, err := m.AggregateBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{a.ID: 13, b.ID: -2}, all)
}

func TestMemory_AppendUnknownAccount(t *testing.T) {
	m := NewMemory()
	_, err := m.Append(context.Background(), 42, -1, "")
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestMemory_WithAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("staged entries are visible inside and committed after", func(t *testing.T) {
		m := NewMemory()
		a := m.AddAccount(models.Account{Name: "Alice", Code: "1234"})

		err := m.WithAccount(ctx, a.ID, func(tx LedgerTx) error {
			if _, err := tx.Append(ctx, a.ID, -1, "swipe"); err != nil {
				return err
			}
			balance, err := tx.BalanceOf(ctx, a.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(-1), balance)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, m.EntryCount(a.ID))
	})

	t.Run("error discards staged entries", func(t *testing.T) {
		m := NewMemory()
		a := m.AddAccount(models.Account{Name: "Alice", Code: "1234"})
		boom := errors.New("boom")

		err := m.WithAccount(ctx, a.ID, func(tx LedgerTx) error {
			_, err := tx.Append(ctx, a.ID, -1, "swipe")
			require.NoError(t, err)
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, m.EntryCount(a.ID))
	})

	t.Run("unknown account", func(t *testing.T) {
		m := NewMemory()
		err := m.WithAccount(ctx, 7, func(LedgerTx) error { return nil })
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("serializes writers of one account", func(t *testing.T) {
		m := NewMemory()
		a := m.AddAccount(models.Account{Name: "Alice", Code: "1234"})

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := m.WithAccount(ctx, a.ID, func(tx LedgerTx) error {
					balance, err := tx.BalanceOf(ctx, a.ID)
					if err != nil {
						return err
					}
					if balance <= -10 {
						return nil
					}
					_, err = tx.Append(ctx, a.ID, -1, "")
					return err
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		balance, err := m.BalanceOf(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(-10), balance)
	})
}

func TestMemory_Lookups(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	a := m.AddAccount(models.Account{Name: "Alice", Code: "1234"})
	tok := m.AddToken(a.ID, []byte("uid"))

	got, err := m.FindAccountByCode(ctx, "1234")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = m.FindAccountByCode(ctx, "0000")
	assert.ErrorIs(t, err, ErrNotFound)

	acc, token, err := m.FindAccountByToken(ctx, []byte("uid"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, acc.ID)
	assert.Equal(t, tok.ID, token.ID)

	_, ok, err := m.GetSetting(ctx, models.SettingMinBalance)
	require.NoError(t, err)
	assert.False(t, ok)

	enabled, err := m.GetPreference(ctx, a.ID, models.EventZeroBalance)
	require.NoError(t, err)
	assert.False(t, enabled)

	got.Name = "mutated"
	fresh, err := m.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", fresh.Name, "returned accounts are copies")
}
