package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/clipbridge/idgen"
	"github.com/hazyhaar/clipbridge/kit"
)

// HeaderRequestID carries the request ID in both directions. An incoming
// value is kept so a relaying client can correlate its own logs.
const HeaderRequestID = "X-Request-ID"

type loggerKey struct{}

// RequestID stamps each request with an ID, echoes it in the response and
// stores a per-request logger in the context.
func RequestID(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" || len(id) > 64 {
				id = idgen.RequestID()
			}
			w.Header().Set(HeaderRequestID, id)

			ctx := kit.WithRequestID(r.Context(), id)
			logger := kit.Logger(ctx, base).With(
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", ExtractIP(r),
			)
			ctx = context.WithValue(ctx, loggerKey{}, logger)
			logger.Debug("request")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger returns the per-request logger, or slog.Default outside a
// RequestID chain.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
