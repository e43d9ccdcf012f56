package zaplogger

import (
	"errors"
	"testing"
	"time"

	"github.com/Zhima-Mochi/medishop/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerBindsFixedAndScopedFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := New(zap.New(core), observability.F("service", "order-service"))

	log.With(observability.F("order_id", "ORD-1")).Info("use_case_done",
		observability.F("outcome", "success"),
		observability.F("error", errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "use_case_done", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "order-service", fields["service"])
	assert.Equal(t, "ORD-1", fields["order_id"])
	assert.Equal(t, "success", fields["outcome"])
	assert.Equal(t, "boom", fields["error"])
}

func TestNewWithNilBaseDiscards(t *testing.T) {
	log := New(nil)
	assert.NotPanics(t, func() { log.Warn("nothing") })
}

type status string

func (s status) String() string { return "status:" + string(s) }

func TestStringerAndDurationFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	New(zap.New(core)).Info("order_status_changed",
		observability.F("to", status("Shipped")),
		observability.F("took", 1500*time.Millisecond),
		observability.F("items", 3),
	)

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "status:Shipped", fields["to"])
	assert.Equal(t, 1500*time.Millisecond, fields["took"])
	assert.Equal(t, int64(3), fields["items"])
}
