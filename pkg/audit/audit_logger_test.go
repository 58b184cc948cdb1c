package audit_test

import (
	"context"
	"testing"

	"brokerage-onboarding-backend/pkg/audit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*audit.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return audit.NewLoggerWithZap(zap.New(core), "onboarding", "test"), logs
}

func TestLoggerHashesClientID(t *testing.T) {
	logger, logs := newObserved()

	logger.StepStatusChanged(context.Background(), "client-42", "bank", "in_progress", "completed")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	fields := entry.ContextMap()

	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	assert.Equal(t, "step_status_changed", entry.Message)
	assert.Equal(t, audit.HashValue("client-42"), fields["client"])
	assert.NotContains(t, fields["client"], "client-42")
	assert.Equal(t, "bank", fields["step"])
	assert.JSONEq(t, `{"from":"in_progress","to":"completed"}`, fields["details"].(string))
}

func TestLoggerLevels(t *testing.T) {
	logger, logs := newObserved()
	ctx := context.Background()

	logger.NavigationDenied(ctx, "client-42", "exchange", "bank")
	logger.RateLimitTriggered(ctx, "10.0.0.1", "/v1/onboarding/navigate")
	logger.StepsReset(ctx, "client-42", []string{"signin", "bank"})

	entries := logs.All()
	require.Len(t, entries, 4)
	for _, entry := range entries {
		assert.Equal(t, zapcore.WarnLevel, entry.Level, entry.Message)
	}
	assert.Equal(t, 2, logs.FilterMessage("step_reset").Len())
	assert.Equal(t, "10.0.0.1", entries[1].ContextMap()["ip"])
}

func TestLoggerPicksRequestIDFromContext(t *testing.T) {
	logger, logs := newObserved()

	ctx := audit.WithRequestID(context.Background(), "req-1")
	logger.Log(ctx, audit.Event{Event: audit.EventStepNavigated, Step: "bank"})
	logger.Log(ctx, audit.Event{Event: audit.EventStepNavigated, RequestID: "explicit"})
	logger.Log(context.Background(), audit.Event{Event: audit.EventStepNavigated})

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "explicit", entries[1].ContextMap()["request_id"])
	assert.NotContains(t, entries[2].ContextMap(), "request_id")
	assert.NotContains(t, entries[2].ContextMap(), "client")
}

func TestHashValue(t *testing.T) {
	assert.Len(t, audit.HashValue("client-42"), 16)
	assert.Equal(t, audit.HashValue("a"), audit.HashValue("a"))
	assert.NotEqual(t, audit.HashValue("a"), audit.HashValue("b"))
}

func TestNop(t *testing.T) {
	logger := audit.Nop()
	logger.StepStatusChanged(context.Background(), "c", "s", "a", "b")
	assert.NoError(t, logger.Sync())
}
