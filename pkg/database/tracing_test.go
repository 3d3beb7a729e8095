package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.Cleanup(func() {
		tp.Shutdown(context.Background()) //nolint:errcheck
		otel.SetTracerProvider(prev)
	})

	return exporter
}

// slowLogBuffer installs a JSON slow-query logger with the given threshold
// and restores the disabled state afterwards.
func slowLogBuffer(t *testing.T, threshold time.Duration) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetSlowQueryLogging(threshold, slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })
	return &buf
}

func spanAttrs(span tracetest.SpanStub) map[string]string {
	attrs := make(map[string]string, len(span.Attributes))
	for _, a := range span.Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	return attrs
}

func TestTraceQuery_Success(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "GetBrand", "SELECT * FROM brands WHERE id = $1")
	end(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, "db.GetBrand", span.Name)

	attrs := spanAttrs(span)
	assert.Equal(t, "postgresql", attrs["db.system"])
	assert.Equal(t, "GetBrand", attrs["db.operation"])
	assert.Equal(t, "SELECT * FROM brands WHERE id = $1", attrs["db.statement"])

	assert.Equal(t, codes.Unset, span.Status.Code, "success must not set error status")
}

func TestTraceQuery_Error(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "UpdateBrand", "UPDATE brands SET name = $1 WHERE id = $2")
	end(errors.New("connection refused"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "connection refused", spans[0].Status.Description)
	assert.NotEmpty(t, spans[0].Events, "expected a recorded error event")
}

func TestTraceQuery_ChildOfCallerSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "parent")
	_, end := TraceQuery(ctx, "ListQuotes", "SELECT * FROM quotes")
	end(nil)
	parent.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	var child tracetest.SpanStub
	for _, s := range spans {
		if s.Name == "db.ListQuotes" {
			child = s
		}
	}
	require.NotEmpty(t, child.Name, "db span not exported")
	assert.Equal(t, parent.SpanContext().SpanID(), child.Parent.SpanID())
	assert.Equal(t, parent.SpanContext().TraceID(), child.SpanContext.TraceID())
}

func TestTraceQuery_TruncatesLongStatement(t *testing.T) {
	exporter := setupTestTracer(t)

	statement := "INSERT INTO brands VALUES " + strings.Repeat("($1),", 2000)
	require.Greater(t, len(statement), maxStatementLen)

	_, end := TraceQuery(context.Background(), "BulkInsert", statement)
	end(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	got := spanAttrs(spans[0])["db.statement"]
	assert.Len(t, got, maxStatementLen+len("..."))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, statement[:maxStatementLen], strings.TrimSuffix(got, "..."))
}

func TestSlowQueryLogging_SlowQuery(t *testing.T) {
	setupTestTracer(t)
	buf := slowLogBuffer(t, time.Nanosecond)

	_, end := TraceQuery(context.Background(), "SlowSelect", "SELECT * FROM big_table")
	end(nil)

	output := buf.String()
	assert.Contains(t, output, "slow query detected")
	assert.Contains(t, output, "SlowSelect")
	assert.Contains(t, output, "SELECT * FROM big_table")
}

func TestSlowQueryLogging_IncludesTraceID(t *testing.T) {
	setupTestTracer(t)
	buf := slowLogBuffer(t, time.Nanosecond)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "parent")
	defer parent.End()

	_, end := TraceQuery(ctx, "SlowSelect", "SELECT pg_sleep(10)")
	end(nil)

	assert.Contains(t, buf.String(), parent.SpanContext().TraceID().String(),
		"slow query log must carry the trace ID")
}

func TestSlowQueryLogging_FastQuery_NoLog(t *testing.T) {
	setupTestTracer(t)
	buf := slowLogBuffer(t, time.Hour)

	_, end := TraceQuery(context.Background(), "FastSelect", "SELECT 1")
	end(nil)

	assert.Empty(t, buf.String())
}

func TestSlowQueryLogging_Disabled(t *testing.T) {
	setupTestTracer(t)
	SetSlowQueryLogging(0, nil)

	_, end := TraceQuery(context.Background(), "AnyOp", "SELECT 1")
	end(nil)
}

func TestSlowQueryLogging_WithError(t *testing.T) {
	setupTestTracer(t)
	buf := slowLogBuffer(t, time.Nanosecond)

	_, end := TraceQuery(context.Background(), "FailedQuery", "INSERT INTO t VALUES ($1)")
	end(errors.New("unique constraint violation"))

	output := buf.String()
	assert.Contains(t, output, "slow query detected")
	assert.Contains(t, output, "unique constraint violation")
}

func TestSetSlowQueryLogging_Concurrent(t *testing.T) {
	setupTestTracer(t)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			SetSlowQueryLogging(time.Duration(i)*time.Millisecond, logger)
		}
	}()

	for i := 0; i < 100; i++ {
		slowQueries.snapshot()
	}

	<-done
}
