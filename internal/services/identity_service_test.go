package services

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/ruralpay/supplycredit/internal/models"
	"github.com/ruralpay/supplycredit/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type lastUseFailingStore struct {
	*store.Memory
}

func (lastUseFailingStore) SetTokenLastUsed(context.Context, int64, time.Time) error {
	return store.ErrUnavailable
}

func TestIdentityService_ResolveByCode(t *testing.T) {
	f := newFixture(t)
	account := f.store.AddAccount(models.Account{Name: "Alice", Code: "0042"})
	ctx := context.Background()

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"exact code", "0042", nil},
		{"surrounding whitespace", " 0042\n", nil},
		{"unknown code", "0043", ErrIdentityNotFound},
		{"too short", "042", ErrMalformedCredential},
		{"too long", "00420", ErrMalformedCredential},
		{"not numeric", "00a2", ErrMalformedCredential},
		{"empty", "", ErrMalformedCredential},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.identity.ResolveByCode(ctx, tt.code)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, account.ID, got.ID)
		})
	}
}

func TestIdentityService_ResolveByToken(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps last use", func(t *testing.T) {
		f := newFixture(t)
		account := f.store.AddAccount(models.Account{Name: "Bob", Code: "1000"})
		token := f.store.AddToken(account.ID, []byte("card-uid-1"))

		got, err := f.identity.ResolveByToken(ctx, base64.StdEncoding.EncodeToString([]byte("card-uid-1")))
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)

		stored, _ := f.store.Token(token.ID)
		assert.NotNil(t, stored.LastUsedAt)
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.identity.ResolveByToken(ctx, base64.StdEncoding.EncodeToString([]byte("nobody")))
		assert.ErrorIs(t, err, ErrIdentityNotFound)
	})

	t.Run("empty and undecodable tokens are malformed", func(t *testing.T) {
		f := newFixture(t)
		for _, raw := range []string{"", "   ", "not base64!", "QQ"} {
			_, err := f.identity.ResolveByToken(ctx, raw)
			assert.ErrorIs(t, err, ErrMalformedCredential, "token %q", raw)
		}
	})

	t.Run("failing to stamp last use is not fatal", func(t *testing.T) {
		mem := store.NewMemory()
		account := mem.AddAccount(models.Account{Name: "Carol", Code: "2000"})
		mem.AddToken(account.ID, []byte("card-uid-2"))

		core, logs := observer.New(zapcore.WarnLevel)
		identity := NewIdentityService(lastUseFailingStore{mem}, NewCredentialHasher(testArgon2), 4, zap.New(core))

		got, err := identity.ResolveByToken(ctx, base64.StdEncoding.EncodeToString([]byte("card-uid-2")))
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
		assert.Equal(t, 1, logs.FilterMessage("failed to update token last use").Len())
	})
}

func TestIdentityService_ResolveByCredential(t *testing.T) {
	f := newFixture(t)
	hasher := NewCredentialHasher(testArgon2)
	key, hash, err := hasher.GenerateAPIKey("kiosk1")
	require.NoError(t, err)
	f.store.AddCredential(models.APICredential{ID: "kiosk1", Name: "Kiosk 1", KeyHash: hash})
	ctx := context.Background()

	caller, err := f.identity.ResolveByCredential(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, &models.Caller{ID: "kiosk1", Name: "Kiosk 1", Kind: models.CallerTerminal}, caller)

	_, err = f.identity.ResolveByCredential(ctx, "kiosk1.wrong")
	assert.ErrorIs(t, err, ErrIdentityNotFound)

	_, err = f.identity.ResolveByCredential(ctx, "unknown.secret")
	assert.ErrorIs(t, err, ErrIdentityNotFound)

	_, err = f.identity.ResolveByCredential(ctx, "no-separator")
	assert.ErrorIs(t, err, ErrMalformedCredential)
}
