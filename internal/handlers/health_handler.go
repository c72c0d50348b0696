package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store pinger
	redis *redis.Client
}

// NewHealthHandler reports on the store and, when configured, Redis.
func NewHealthHandler(store pinger, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{store: store, redis: rdb}
}

// Health reports dependency status
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "healthy", "database": "up", "redis": "disabled"}
	code := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		status["status"], status["database"] = "unhealthy", "down"
		code = http.StatusServiceUnavailable
	}
	if h.redis != nil {
		status["redis"] = "up"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			// idempotency degrades, debits keep working
			status["redis"] = "down"
		}
	}
	writeJSON(w, code, status)
}
