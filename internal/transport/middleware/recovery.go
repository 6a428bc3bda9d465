package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/pkg/logger"
)

// RecoveryMiddleware turns a panic into a generic 500 body. The panic value
// and stack only go to the log.
func RecoveryMiddleware(fallback *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				lg := fallback
				if lg == nil {
					lg = logger.From(r.Context())
				}
				lg.Error("panic recovered",
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()))

				status, body := internal.NewInternalError("Internal server error", nil).ToHTTPResponse()
				writeJSON(w, status, body)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
