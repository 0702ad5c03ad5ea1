package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

const loggerKey contextKey = "logger"

// WithRequestLogger puts a logger scoped to the request on the
// context, pre-tagged with method, path and the request id when
// RequestID ran earlier in the chain.
func WithRequestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lc := base.With().
				Str("method", r.Method).
				Str("path", r.URL.Path)
			if id := GetRequestID(r.Context()); id != "" {
				lc = lc.Str("request_id", id)
			}

			logger := lc.Logger()
			ctx := context.WithValue(r.Context(), loggerKey, &logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger returns the request-scoped logger, or a disabled one when
// the middleware did not run, so call sites never nil-check.
func GetLogger(ctx context.Context) *zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok {
		return logger
	}
	nop := zerolog.Nop()
	return &nop
}
