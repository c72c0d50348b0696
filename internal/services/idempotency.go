package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const pendingMarker = "pending"

// ErrRequestInProgress is returned when a request with the same key is
// still being processed.
var ErrRequestInProgress = errors.New("request with this idempotency key is in progress")

// StoredResponse is the response replayed for a repeated idempotency key.
type StoredResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyStore remembers the outcome of debit requests per caller and
// key so that a terminal retrying after a timeout cannot book twice.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// Reserve claims key for scope. It returns (nil, nil) when the caller now
// owns the key, the stored response when the key was already completed, or
// ErrRequestInProgress.
func (s *IdempotencyStore) Reserve(ctx context.Context, scope, key string) (*StoredResponse, error) {
	k := idempotencyKey(scope, key)
	ok, err := s.rdb.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	val, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) || val == pendingMarker {
		return nil, ErrRequestInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	var stored StoredResponse
	if err := json.Unmarshal([]byte(val), &stored); err != nil {
		return nil, fmt.Errorf("decode stored response: %w", err)
	}
	return &stored, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, scope, key string, resp StoredResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, idempotencyKey(scope, key), string(data), s.ttl).Err()
}

// Release drops a reservation so the key can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, idempotencyKey(scope, key)).Err()
}

func idempotencyKey(scope, key string) string {
	return "idempotency:" + scope + ":" + key
}
