package database

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Sagar7057/pharma-backend/pkg/database"

// maxStatementLen caps the db.statement span attribute. Bulk imports build
// statements far larger than any tracing backend wants to store.
const maxStatementLen = 2048

func truncateStatement(statement string) string {
	if len(statement) <= maxStatementLen {
		return statement
	}
	return statement[:maxStatementLen] + "..."
}

// slowQueryLog holds the process-wide slow query logging settings. A zero
// threshold or nil logger disables it.
type slowQueryLog struct {
	mu        sync.RWMutex
	threshold time.Duration
	logger    *slog.Logger
}

func (s *slowQueryLog) set(threshold time.Duration, logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = threshold
	s.logger = logger
}

func (s *slowQueryLog) snapshot() (time.Duration, *slog.Logger) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold, s.logger
}

var slowQueries slowQueryLog

// SetSlowQueryLogging configures slow query detection. Queries exceeding the
// threshold are logged as warnings with operation name, SQL statement,
// duration and the trace ID of the surrounding request. A zero threshold
// disables slow query logging.
func SetSlowQueryLogging(threshold time.Duration, logger *slog.Logger) {
	slowQueries.set(threshold, logger)
}

// TraceQuery starts a client span for a database operation. The returned
// function must be called when the operation completes, typically via defer:
//
//	ctx, end := database.TraceQuery(ctx, "GetBrand", "SELECT * FROM brands WHERE id = $1")
//	defer func() { end(err) }()
func TraceQuery(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	statement = truncateStatement(statement)

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		threshold, logger := slowQueries.snapshot()
		if threshold <= 0 || logger == nil {
			return
		}
		elapsed := time.Since(start)
		if elapsed < threshold {
			return
		}

		attrs := []any{
			slog.String("operation", operation),
			slog.String("statement", statement),
			slog.Duration("duration", elapsed),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		// The trace ID lets an engineer jump from the log line to the span.
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
		}
		logger.WarnContext(ctx, "slow query detected", attrs...)
	}
}
