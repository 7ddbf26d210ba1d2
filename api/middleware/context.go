package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/internal/access"
)

type contextKey string

const (
	ctxUserID          contextKey = "user_id"
	ctxAccessID        contextKey = "access_id"
	ctxActiveCompanyID contextKey = "active_company_id"
	ctxEffective       contextKey = "effective_access"
)

// UserIDFromContext returns the authenticated user's id, uuid.Nil when
// the request is anonymous.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// AccessIDFromContext returns the session id carried in the JWT.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// ActiveCompanyIDFromContext returns the company preselected at login.
func ActiveCompanyIDFromContext(ctx context.Context) *int64 {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxActiveCompanyID).(int64); ok {
		return &v
	}
	return nil
}

// EffectiveAccessFromContext returns the resolution the gate performed
// for this request, nil on routes without a scope gate.
func EffectiveAccessFromContext(ctx context.Context) *access.EffectiveAccess {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxEffective).(*access.EffectiveAccess); ok {
		return v
	}
	return nil
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithEffectiveAccess stores the gate's resolution on the context.
func WithEffectiveAccess(ctx context.Context, effective *access.EffectiveAccess) context.Context {
	return context.WithValue(ctx, ctxEffective, effective)
}
