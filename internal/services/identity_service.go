package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ruralpay/supplycredit/internal/models"
	"github.com/ruralpay/supplycredit/internal/store"
	"go.uber.org/zap"
)

// IdentityService maps presented credentials to identities. Lookups never
// mutate account state; a token lookup stamps the token's last use.
type IdentityService struct {
	store       store.Store
	hasher      *CredentialHasher
	codePattern *regexp.Regexp
	log         *zap.Logger
	now         func() time.Time
}

func NewIdentityService(st store.Store, hasher *CredentialHasher, codeLength int, log *zap.Logger) *IdentityService {
	return &IdentityService{
		store:       st,
		hasher:      hasher,
		codePattern: regexp.MustCompile(fmt.Sprintf(`^[0-9]{%d}$`, codeLength)),
		log:         log,
		now:         time.Now,
	}
}

// ResolveByCredential authenticates an "<id>.<secret>" API key. An unknown
// id and a wrong secret are indistinguishable to the caller.
func (s *IdentityService) ResolveByCredential(ctx context.Context, raw string) (*models.Caller, error) {
	id, secret, ok := splitAPIKey(raw)
	if !ok {
		return nil, ErrMalformedCredential
	}

	cred, err := s.store.FindCredential(ctx, id)
	if err != nil {
		return nil, lookupError("find credential", err)
	}

	if !s.hasher.Verify(secret, cred.KeyHash) {
		return nil, ErrIdentityNotFound
	}

	return &models.Caller{ID: cred.ID, Name: cred.Name, Kind: models.CallerTerminal}, nil
}

// ResolveByCode looks up an account by its manually entered presentation
// code. Codes that cannot be valid are rejected before touching the store.
func (s *IdentityService) ResolveByCode(ctx context.Context, code string) (*models.Account, error) {
	code = strings.TrimSpace(code)
	if !s.codePattern.MatchString(code) {
		return nil, ErrMalformedCredential
	}

	account, err := s.store.FindAccountByCode(ctx, code)
	if err != nil {
		return nil, lookupError("find account by code", err)
	}
	return account, nil
}

// ResolveByToken decodes a base64 token payload read from a card and looks
// up its account. Failing to record the token's last use is logged and
// otherwise ignored.
func (s *IdentityService) ResolveByToken(ctx context.Context, encoded string) (*models.Account, error) {
	payload, err := decodeToken(encoded)
	if err != nil {
		return nil, err
	}

	account, token, err := s.store.FindAccountByToken(ctx, payload)
	if err != nil {
		return nil, lookupError("find account by token", err)
	}

	if err := s.store.SetTokenLastUsed(ctx, token.ID, s.now().UTC()); err != nil {
		s.log.Warn("failed to update token last use",
			zap.Int64("token_id", token.ID),
			zap.Int64("account_id", account.ID),
			zap.Error(err))
	}
	return account, nil
}

func decodeToken(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrMalformedCredential
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(payload) == 0 {
		return nil, fmt.Errorf("%w: token is not valid base64", ErrMalformedCredential)
	}
	return payload, nil
}
