package core

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// MetricsRecorder observes the outcome and latency of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation's error, if any.
type TraceSpan interface {
	End(err error)
}

// AuditStatus is the recorded outcome of an audited operation.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry records one gateway mutation attempt.
type AuditEntry struct {
	Operation string
	Entity    EntityType
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	At        time.Time
}

// AuditRecorder receives an entry for every mutation attempt.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// ZapAuditRecorder writes audit entries to a zap logger at info level, or
// warn when the operation failed.
type ZapAuditRecorder struct {
	logger *zap.Logger
}

// NewZapAuditRecorder constructs an audit recorder on top of logger.
func NewZapAuditRecorder(logger *zap.Logger) *ZapAuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapAuditRecorder{logger: logger.Named("audit")}
}

// Record implements AuditRecorder.
func (r *ZapAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("entity", string(entry.Entity)),
		zap.String("entity_id", entry.EntityID),
		zap.String("status", string(entry.Status)),
		zap.Duration("duration", entry.Duration),
		zap.Time("at", entry.At),
	}
	if entry.Status == AuditStatusError {
		r.logger.Warn("species mutation failed", append(fields, zap.String("error", entry.Error))...)
		return
	}
	r.logger.Info("species mutation", fields...)
}
