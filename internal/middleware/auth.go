package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ruralpay/supplycredit/internal/models"
	"github.com/ruralpay/supplycredit/internal/services"
	"go.uber.org/zap"
)

type callerKey struct{}

// CredentialResolver authenticates a terminal API key.
type CredentialResolver interface {
	ResolveByCredential(ctx context.Context, raw string) (*models.Caller, error)
}

func WithCaller(ctx context.Context, caller *models.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFrom(ctx context.Context) (*models.Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(*models.Caller)
	return caller, ok && caller != nil
}

// ErrMissingCredential is returned by Authenticate when the request carries
// no API key at all.
var ErrMissingCredential = errors.New("api key required")

// Authenticate resolves the terminal behind r without writing a response.
func Authenticate(r *http.Request, resolver CredentialResolver) (*models.Caller, error) {
	raw := apiKeyFrom(r)
	if raw == "" {
		return nil, ErrMissingCredential
	}
	return resolver.ResolveByCredential(r.Context(), raw)
}

// APIKeyAuth admits terminals presenting an API key either as X-API-Key or
// as "Authorization: ApiKey <key>".
func APIKeyAuth(resolver CredentialResolver, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := Authenticate(r, resolver)
			switch {
			case errors.Is(err, ErrMissingCredential):
				services.SendErrorResponse(w, "API key required", http.StatusUnauthorized, nil)
				return
			case errors.Is(err, services.ErrIdentityNotFound), errors.Is(err, services.ErrMalformedCredential):
				services.SendErrorResponse(w, "Invalid API key", http.StatusUnauthorized, nil)
				return
			case err != nil:
				log.Error("api key lookup failed", zap.Error(err))
				services.SendErrorResponse(w, "Authentication unavailable", http.StatusInternalServerError, nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func apiKeyFrom(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	scheme, key, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "ApiKey") {
		return strings.TrimSpace(key)
	}
	return ""
}

// OperatorAuth admits operators holding an HS256 bearer token signed with
// secret. The token subject becomes the caller name.
func OperatorAuth(secret, issuer string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				services.SendErrorResponse(w, "Authorization header required", http.StatusUnauthorized, nil)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				services.SendErrorResponse(w, "Invalid authorization header format", http.StatusUnauthorized, nil)
				return
			}

			subject, err := validateToken(parts[1], secret, issuer)
			if err != nil {
				services.SendErrorResponse(w, "Invalid token", http.StatusUnauthorized, nil)
				return
			}

			caller := &models.Caller{ID: subject, Name: subject, Kind: models.CallerOperator}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func validateToken(tokenString, secret, issuer string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
