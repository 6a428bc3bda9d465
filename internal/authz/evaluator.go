package authz

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/hris-auth/internal"
	"github.com/frahmantamala/hris-auth/internal/auth"
	"github.com/frahmantamala/hris-auth/internal/permission"
	"github.com/frahmantamala/hris-auth/pkg/logger"
)

type Evaluator struct {
	logger *slog.Logger
}

func NewEvaluator(lg *slog.Logger) *Evaluator {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Evaluator{logger: lg}
}

// Authorize returns nil to allow. Order: skip, empty requirement, subject,
// roles, then ALL before ANY. Denials are internal.ErrUnauthenticated,
// ErrInsufficientRole, ErrInsufficientPermission or ErrForbiddenOwnership.
func (e *Evaluator) Authorize(ctx context.Context, req Requirement, claims *auth.Claims, fields FieldSource) error {
	if req.Skip || req.IsEmpty() {
		return nil
	}

	if claims == nil || claims.Subject == "" {
		e.deny(ctx, internal.ErrUnauthenticated, claims, req, "", nil)
		return internal.ErrUnauthenticated
	}

	if len(req.Roles) > 0 && !intersects(claims.Roles, req.Roles) {
		e.deny(ctx, internal.ErrInsufficientRole, claims, req, "", nil)
		return internal.ErrInsufficientRole
	}

	if len(req.AllOf) > 0 {
		for _, required := range req.AllOf {
			if err := e.check(ctx, claims, required, fields); err != nil {
				e.deny(ctx, err, claims, req, required, fields)
				return err
			}
		}
	}

	if len(req.AnyOf) > 0 {
		// a grant that matched but failed the ownership test is the more
		// precise cause to report
		denial := internal.ErrInsufficientPermission
		for _, required := range req.AnyOf {
			err := e.check(ctx, claims, required, fields)
			if err == nil {
				return nil
			}
			if errors.Is(err, internal.ErrForbiddenOwnership) {
				denial = internal.ErrForbiddenOwnership
			}
		}
		e.deny(ctx, denial, claims, req, "", fields)
		return denial
	}

	return nil
}

// HasPermission is the single-permission check on its own.
func (e *Evaluator) HasPermission(ctx context.Context, claims *auth.Claims, required string, fields FieldSource) bool {
	if claims == nil || claims.Subject == "" {
		return false
	}
	return e.check(ctx, claims, required, fields) == nil
}

// check matches one required permission and then resolves its scope. The
// scope that matters is the required one: a held "leave:approve:*" used
// for "leave:approve:own" still gets the ownership test.
func (e *Evaluator) check(ctx context.Context, claims *auth.Claims, required string, fields FieldSource) error {
	req, ok := permission.Parse(required)
	if !ok {
		e.logger.ErrorContext(ctx, "malformed required permission", "permission", required)
		return internal.ErrInsufficientPermission
	}

	if !e.holds(ctx, claims.Permissions, required) {
		return internal.ErrInsufficientPermission
	}

	switch req.Scope {
	case permission.ScopeOwn:
		field, target, found := ownershipTarget(fields)
		if !found {
			// nothing to compare against here; the owning service re-checks
			return nil
		}
		if target == claims.Subject || (claims.EmployeeID != "" && target == claims.EmployeeID) {
			return nil
		}
		e.logger.DebugContext(ctx, "ownership mismatch", "field", field, "target", target, "account_id", claims.Subject)
		return internal.ErrForbiddenOwnership
	case permission.ScopeDepartment:
		// department membership is filtered by the downstream service layer
		return nil
	default:
		return nil
	}
}

func (e *Evaluator) holds(ctx context.Context, held []string, required string) bool {
	for _, h := range held {
		if h == required {
			return true
		}
	}
	for _, h := range held {
		if _, ok := permission.Parse(h); !ok {
			e.logger.ErrorContext(ctx, "malformed held permission", "permission", h)
			continue
		}
		if permission.Matches(required, h) {
			return true
		}
	}
	return false
}

func (e *Evaluator) deny(ctx context.Context, err error, claims *auth.Claims, req Requirement, failed string, fields FieldSource) {
	code := internal.ErrCodeInternal
	if appErr, ok := internal.IsAppError(err); ok {
		code = appErr.Code
	}

	attrs := []any{
		"code", code,
		"account_id", claims.AccountID(),
		"required_any", req.AnyOf,
		"required_all", req.AllOf,
		"required_roles", req.Roles,
	}
	if failed != "" {
		attrs = append(attrs, "failed_permission", failed)
	}
	if errors.Is(err, internal.ErrForbiddenOwnership) {
		if field, target, found := ownershipTarget(fields); found {
			attrs = append(attrs, "ownership_field", field, "ownership_target", target)
		}
	}
	if claims != nil {
		attrs = append(attrs, "held_permissions", claims.Permissions, "held_roles", claims.Roles)
	}
	e.logger.WarnContext(ctx, "authorization denied", attrs...)
}

func intersects(held, required []string) bool {
	set := make(map[string]struct{}, len(held))
	for _, h := range held {
		set[h] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}
