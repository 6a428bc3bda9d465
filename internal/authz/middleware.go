package authz

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/internal/auth"
	"github.com/frahmantamala/hris-auth/internal/core/events"
	"github.com/frahmantamala/hris-auth/internal/obs"
	"github.com/frahmantamala/hris-auth/internal/transport"
)

// Guard enforces registry requirements on chi routes.
type Guard struct {
	*transport.BaseHandler
	registry  *Registry
	evaluator *Evaluator
	metrics   *obs.Metrics
	events    events.Publisher
}

func NewGuard(registry *Registry, evaluator *Evaluator, metrics *obs.Metrics, publisher events.Publisher, logger *slog.Logger) *Guard {
	return &Guard{
		BaseHandler: transport.NewBaseHandler(logger),
		registry:    registry,
		evaluator:   evaluator,
		metrics:     metrics,
		events:      publisher,
	}
}

// Require returns middleware evaluating the requirement registered for
// operation. An operation missing from the registry fails closed with 500:
// a route wired without a requirement is a configuration error.
func (g *Guard) Require(operation string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, ok := g.registry.Lookup(operation)
			if !ok {
				g.Logger.Error("no requirement registered", "operation", operation)
				g.WriteAppError(w, internal.NewInternalError("authorization not configured", nil))
				return
			}

			claims, _ := auth.ClaimsFromContext(r.Context())
			err := g.evaluator.Authorize(r.Context(), req, claims, RequestFields(r))
			if err != nil {
				code := string(internal.ErrCodeInternal)
				if appErr, ok := internal.IsAppError(err); ok {
					code = string(appErr.Code)
				}
				g.metrics.ObserveDecision(operation, code)
				if g.events != nil {
					if perr := g.events.Publish(r.Context(), events.NewAccessDeniedEvent(claims.AccountID(), operation, code)); perr != nil {
						g.Logger.Warn("failed to publish denial", "operation", operation, "error", perr)
					}
				}
				g.WriteAppError(w, err)
				return
			}

			g.metrics.ObserveDecision(operation, "allow")
			next.ServeHTTP(w, r)
		})
	}
}
