package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ruralpay/supplycredit/internal/models"
	"github.com/ruralpay/supplycredit/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret = "operator-signing-secret"
	testIssuer = "supplycredit"
)

type fakeResolver struct {
	keys map[string]*models.Caller
	err  error
}

func (f fakeResolver) ResolveByCredential(_ context.Context, raw string) (*models.Caller, error) {
	if f.err != nil {
		return nil, f.err
	}
	caller, ok := f.keys[raw]
	if !ok {
		return nil, services.ErrIdentityNotFound
	}
	return caller, nil
}

// echoCaller writes the authenticated caller's kind and name.
var echoCaller = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.Write([]byte(caller.Kind + "/" + caller.Name))
})

func TestAPIKeyAuth(t *testing.T) {
	resolver := fakeResolver{keys: map[string]*models.Caller{
		"kiosk.secret": {ID: "kiosk", Name: "Kiosk", Kind: models.CallerTerminal},
	}}
	h := APIKeyAuth(resolver, zap.NewNop())(echoCaller)

	tests := []struct {
		name   string
		header string
		value  string
		status int
		body   string
	}{
		{"x-api-key header", "X-API-Key", "kiosk.secret", http.StatusOK, "terminal/Kiosk"},
		{"authorization scheme", "Authorization", "ApiKey kiosk.secret", http.StatusOK, "terminal/Kiosk"},
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"bearer is not an api key", "Authorization", "Bearer kiosk.secret", http.StatusUnauthorized, ""},
		{"unknown key", "X-API-Key", "other.secret", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/transactions/code", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	resolver := fakeResolver{keys: map[string]*models.Caller{
		"kiosk.secret": {ID: "kiosk", Name: "Kiosk", Kind: models.CallerTerminal},
	}}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	_, err := Authenticate(req, resolver)
	assert.ErrorIs(t, err, ErrMissingCredential)

	req.Header.Set("X-API-Key", "nope.nope")
	_, err = Authenticate(req, resolver)
	assert.ErrorIs(t, err, services.ErrIdentityNotFound)

	req.Header.Set("X-API-Key", " kiosk.secret ")
	caller, err := Authenticate(req, resolver)
	require.NoError(t, err)
	assert.Equal(t, "kiosk", caller.ID)
}

func TestAPIKeyAuth_StoreFailure(t *testing.T) {
	h := APIKeyAuth(fakeResolver{err: errors.New("connection refused")}, zap.NewNop())(echoCaller)

	req := httptest.NewRequest(http.MethodPost, "/transactions/code", nil)
	req.Header.Set("X-API-Key", "kiosk.secret")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestOperatorAuth(t *testing.T) {
	h := OperatorAuth(testSecret, testIssuer)(echoCaller)
	valid := jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    testIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	foreign := valid
	foreign.Issuer = "someone-else"
	anonymous := valid
	anonymous.Subject = ""

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), valid), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), valid), http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("another-secret-value"), valid), http.StatusUnauthorized},
		{"other hmac size", "Bearer " + signToken(t, jwt.SigningMethodHS512, []byte(testSecret), valid), http.StatusUnauthorized},
		{"unsigned", "Bearer " + signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), expired), http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), foreign), http.StatusUnauthorized},
		{"no subject", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), anonymous), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "operator/alice", w.Body.String())
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeaders(echoCaller).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
