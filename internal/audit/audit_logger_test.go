package audit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a := NewLogger(zap.New(core))

	a.LogDebit("ref-1", 7, -1, 4, "token")
	a.LogRejected("ref-2", 7, "insufficient_funds")
	a.LogError("ref-3", 7, errors.New("boom"))

	entries := logs.All()
	assert.Len(t, entries, 3)

	first := entries[0].ContextMap()
	assert.Equal(t, "audit", entries[0].LoggerName)
	assert.Equal(t, "DEBIT", first["event_type"])
	assert.Equal(t, int64(7), first["account_id"])
	assert.Equal(t, int64(-1), first["amount"])
	assert.Equal(t, "token", first["via"])
	assert.Equal(t, "4", first["balance"])

	assert.Equal(t, "REJECTED", entries[1].ContextMap()["status"])
	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
}
