package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Sagar7057/pharma-backend/pkg/logger"
)

// maxCorrelationIDLen bounds accepted inbound correlation IDs. Longer values
// are discarded and replaced with a generated one.
const maxCorrelationIDLen = 64

// quietPaths are hit continuously by orchestration probes and the metrics
// scraper; they are excluded from access logging.
var quietPaths = map[string]struct{}{
	"/health/live":  {},
	"/health/ready": {},
	"/metrics":      {},
}

// sanitizeCorrelationID returns id when it is short and token-safe, otherwise
// "". The value is reflected into the response header and every log line, so
// only [A-Za-z0-9._-] is accepted.
func sanitizeCorrelationID(id string) string {
	if id == "" || len(id) > maxCorrelationIDLen {
		return ""
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return ""
		}
	}
	return id
}

// statusLevel maps a response status to the level of its access log line.
func statusLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// RequestLogging assigns each request a correlation ID and emits one access
// log line with method, path, status, duration and response size. Server
// errors log at error level and client errors at warn. Probe and scrape
// endpoints pass through silently.
func RequestLogging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, quiet := quietPaths[r.URL.Path]; quiet {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			correlationID := sanitizeCorrelationID(r.Header.Get("X-Correlation-ID"))
			if correlationID == "" {
				correlationID = uuid.New().String()
			}

			ctx := logger.WithCorrelationID(r.Context(), correlationID)
			r = r.WithContext(ctx)

			w.Header().Set("X-Correlation-ID", correlationID)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			l.LogAttrs(ctx, statusLevel(wrapped.statusCode), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", wrapped.bytes),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.String("correlation_id", correlationID),
			)
		})
	}
}
