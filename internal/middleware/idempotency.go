package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ruralpay/supplycredit/internal/services"
	"go.uber.org/zap"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
)

// IdempotencyStore is implemented by services.IdempotencyStore.
type IdempotencyStore interface {
	Reserve(ctx context.Context, scope, key string) (*services.StoredResponse, error)
	Complete(ctx context.Context, scope, key string, resp services.StoredResponse) error
	Release(ctx context.Context, scope, key string) error
}

// Idempotency replays the stored response for a repeated Idempotency-Key
// from the same caller. Requests without the header pass through. A nil
// store disables the middleware.
func Idempotency(store IdempotencyStore, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			scope := "anonymous"
			if caller, ok := CallerFrom(r.Context()); ok {
				scope = caller.Kind + ":" + caller.ID
			}

			stored, err := store.Reserve(r.Context(), scope, key)
			switch {
			case errors.Is(err, services.ErrRequestInProgress):
				services.SendErrorResponse(w, "A request with this Idempotency-Key is still in progress", http.StatusConflict, nil)
				return
			case err != nil:
				log.Warn("idempotency store unavailable, processing without it", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			case stored != nil:
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(ReplayedHeader, "true")
				w.WriteHeader(stored.Status)
				w.Write(stored.Body)
				return
			}

			var body bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			ctx := context.WithoutCancel(r.Context())
			resp := services.StoredResponse{Status: status, Body: json.RawMessage(bytes.TrimSpace(body.Bytes()))}
			if !json.Valid(resp.Body) {
				resp.Body = json.RawMessage("null")
			}
			if err := store.Complete(ctx, scope, key, resp); err != nil {
				log.Warn("failed to store idempotent response", zap.String("key", key), zap.Error(err))
				if err := store.Release(ctx, scope, key); err != nil {
					log.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
				}
			}
		})
	}
}
