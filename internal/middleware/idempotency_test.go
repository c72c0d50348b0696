package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ruralpay/supplycredit/internal/models"
	"github.com/ruralpay/supplycredit/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memIdempotency struct {
	mu       sync.Mutex
	pending  map[string]bool
	done     map[string]services.StoredResponse
	failWith error
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{pending: map[string]bool{}, done: map[string]services.StoredResponse{}}
}

func (m *memIdempotency) Reserve(_ context.Context, scope, key string) (*services.StoredResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	k := scope + ":" + key
	if resp, ok := m.done[k]; ok {
		return &resp, nil
	}
	if m.pending[k] {
		return nil, services.ErrRequestInProgress
	}
	m.pending[k] = true
	return nil, nil
}

func (m *memIdempotency) Complete(_ context.Context, scope, key string, resp services.StoredResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scope + ":" + key
	delete(m.pending, k)
	m.done[k] = resp
	return nil
}

func (m *memIdempotency) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, scope+":"+key)
	return nil
}

// countingDebit answers 201 with a JSON body and counts how often it ran.
type countingDebit struct{ calls int }

func (c *countingDebit) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.calls++
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write([]byte(`{"action":"ok"}` + "\n"))
}

func asTerminal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := &models.Caller{ID: "kiosk", Name: "Kiosk", Kind: models.CallerTerminal}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

func post(h http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/transactions/code", nil)
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	store := newMemIdempotency()
	next := &countingDebit{}
	h := asTerminal(Idempotency(store, zap.NewNop())(next))

	first := post(h, "swipe-1")
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(ReplayedHeader))

	second := post(h, "swipe-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.JSONEq(t, `{"action":"ok"}`, second.Body.String())
	assert.Equal(t, 1, next.calls)

	require.Contains(t, store.done, "terminal:kiosk:swipe-1")
	assert.Equal(t, http.StatusCreated, store.done["terminal:kiosk:swipe-1"].Status)

	post(h, "swipe-2")
	assert.Equal(t, 2, next.calls)
}

func TestIdempotency_InProgress(t *testing.T) {
	store := newMemIdempotency()
	store.pending["terminal:kiosk:swipe-1"] = true
	next := &countingDebit{}
	h := asTerminal(Idempotency(store, zap.NewNop())(next))

	w := post(h, "swipe-1")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 0, next.calls)
}

func TestIdempotency_PassThrough(t *testing.T) {
	t.Run("no header", func(t *testing.T) {
		store := newMemIdempotency()
		next := &countingDebit{}
		h := asTerminal(Idempotency(store, zap.NewNop())(next))

		post(h, "")
		post(h, "")
		assert.Equal(t, 2, next.calls)
		assert.Empty(t, store.done)
	})

	t.Run("nil store", func(t *testing.T) {
		next := &countingDebit{}
		h := asTerminal(Idempotency(nil, zap.NewNop())(next))

		post(h, "swipe-1")
		post(h, "swipe-1")
		assert.Equal(t, 2, next.calls)
	})

	t.Run("store unavailable", func(t *testing.T) {
		store := newMemIdempotency()
		store.failWith = errors.New("redis down")
		next := &countingDebit{}
		h := asTerminal(Idempotency(store, zap.NewNop())(next))

		w := post(h, "swipe-1")
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 1, next.calls)
	})
}
