package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Sagar7057/pharma-backend/pkg/logger"
)

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// user_id, trace_id and span_id and stores it in the context for retrieval
// via logger.FromContext. It is mounted after RequestLogging, which seeds the
// correlation ID, and Tracing, which seeds the span context.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// RequestLogging normally seeds the correlation ID; the header is
			// the fallback when that middleware is not mounted.
			if logger.CorrelationIDFromContext(ctx) == "" {
				if cid := sanitizeCorrelationID(r.Header.Get("X-Correlation-ID")); cid != "" {
					ctx = logger.WithCorrelationID(ctx, cid)
				}
			}

			// The auth middleware seeds user_id on authenticated routes; the
			// X-User-ID header covers service-to-service calls.
			userID := UserIDFromContext(ctx)
			if userID == "" {
				userID = r.Header.Get("X-User-ID")
			}
			if userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
