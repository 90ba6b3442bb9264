package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID        contextKey = "user_id"
	ctxRole          contextKey = "actor_role"
	ctxInstitutionID contextKey = "institution_id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func InstitutionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxInstitutionID).(string); ok {
		return v
	}
	return ""
}

// InstitutionScopeFromContext returns the actor's institution as a uuid,
// or nil when the actor is a platform admin with no institution binding.
func InstitutionScopeFromContext(ctx context.Context) *uuid.UUID {
	raw := InstitutionIDFromContext(ctx)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithInstitutionID injects the institution identifier for downstream handlers.
func WithInstitutionID(ctx context.Context, institutionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxInstitutionID, institutionID)
}
