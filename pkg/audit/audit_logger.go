package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType represents the type of onboarding audit event
type EventType string

const (
	EventStepStatusChanged     EventType = "step_status_changed"
	EventStepNavigated         EventType = "step_navigated"
	EventNavigationDenied      EventType = "navigation_denied"
	EventStepReset             EventType = "step_reset"
	EventStepDataSaved         EventType = "step_data_saved"
	EventVerificationStarted   EventType = "verification_started"
	EventVerificationCompleted EventType = "verification_completed"
	EventVerificationFailed    EventType = "verification_failed"
	EventOnboardingReset       EventType = "onboarding_reset"
	EventRateLimitTriggered    EventType = "rate_limit_triggered"
)

// Event is one entry of the onboarding audit trail
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Event     EventType              `json:"event"`
	ClientID  string                 `json:"client,omitempty"` // hashed before logging
	Step      string                 `json:"step,omitempty"`
	IP        string                 `json:"ip,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

type requestIDKey struct{}

// WithRequestID stores the request id picked up by every event logged with ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Logger writes onboarding audit events through Zap
type Logger struct {
	zapLogger   *zap.Logger
	serviceName string
	environment string
}

// NewLogger builds a production Zap logger writing JSON to stdout
func NewLogger(serviceName, environment string) *Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "message"

	// stdout for container environments
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build(zap.AddCaller())
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return NewLoggerWithZap(logger, serviceName, environment)
}

// NewLoggerWithZap wraps an existing Zap logger
func NewLoggerWithZap(z *zap.Logger, serviceName, environment string) *Logger {
	return &Logger{
		zapLogger:   z,
		serviceName: serviceName,
		environment: environment,
	}
}

// Nop discards every event
func Nop() *Logger {
	return NewLoggerWithZap(zap.NewNop(), "", "")
}

// Log writes one audit event
func (l *Logger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" && ctx != nil {
		event.RequestID, _ = ctx.Value(requestIDKey{}).(string)
	}

	level := zapcore.InfoLevel
	switch event.Event {
	case EventNavigationDenied, EventStepReset, EventVerificationFailed, EventRateLimitTriggered:
		level = zapcore.WarnLevel
	}

	fields := []zap.Field{
		zap.String("service", l.serviceName),
		zap.String("env", l.environment),
		zap.String("event", string(event.Event)),
		zap.Time("event_time", event.Timestamp),
	}
	if event.ClientID != "" {
		fields = append(fields, zap.String("client", HashValue(event.ClientID)))
	}
	if event.Step != "" {
		fields = append(fields, zap.String("step", event.Step))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if len(event.Details) > 0 {
		detailsJSON, _ := json.Marshal(event.Details)
		fields = append(fields, zap.String("details", string(detailsJSON)))
	}

	l.zapLogger.Log(level, string(event.Event), fields...)
}

// StepStatusChanged logs a status write
func (l *Logger) StepStatusChanged(ctx context.Context, clientID, step, from, to string) {
	l.Log(ctx, Event{
		Event:    EventStepStatusChanged,
		ClientID: clientID,
		Step:     step,
		Details:  map[string]interface{}{"from": from, "to": to},
	})
}

// NavigationDenied logs an attempt to reach a locked step
func (l *Logger) NavigationDenied(ctx context.Context, clientID, step, current string) {
	l.Log(ctx, Event{
		Event:    EventNavigationDenied,
		ClientID: clientID,
		Step:     step,
		Details:  map[string]interface{}{"current_step": current},
	})
}

// StepsReset logs steps downgraded by reconciliation
func (l *Logger) StepsReset(ctx context.Context, clientID string, steps []string) {
	for _, step := range steps {
		l.Log(ctx, Event{
			Event:    EventStepReset,
			ClientID: clientID,
			Step:     step,
			Details:  map[string]interface{}{"reason": "step_data_missing"},
		})
	}
}

// RateLimitTriggered logs a rejected request
func (l *Logger) RateLimitTriggered(ctx context.Context, ip, endpoint string) {
	l.Log(ctx, Event{
		Event:   EventRateLimitTriggered,
		IP:      ip,
		Details: map[string]interface{}{"endpoint": endpoint},
	})
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.zapLogger.Sync()
}

// HashValue creates a short SHA256 hash of a value (for logging without PII)
func HashValue(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:8])
}
