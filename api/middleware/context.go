package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	"github.com/krishnaroyalclub/krc-backend/pkg/types"
)

type contextKey string

const (
	ctxAccountID contextKey = "account_id"
	ctxEmail     contextKey = "email"
	ctxRoles     contextKey = "roles"
	ctxAccessID  contextKey = "access_id"
)

// Identity is what a verified access token says about the caller.
type Identity struct {
	AccountID uuid.UUID
	Email     string
	Roles     []enums.Role
	AccessID  string
}

// WithIdentity stores id on the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxAccountID, id.AccountID)
	ctx = context.WithValue(ctx, ctxEmail, id.Email)
	ctx = context.WithValue(ctx, ctxRoles, id.Roles)
	return context.WithValue(ctx, ctxAccessID, id.AccessID)
}

func AccountIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxAccountID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func EmailFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxEmail).(string); ok {
		return v
	}
	return ""
}

func RolesFromContext(ctx context.Context) []enums.Role {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxRoles).([]enums.Role); ok {
		return v
	}
	return nil
}

// AccessIDFromContext returns the session id (jti) of the access token.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// CallerFromContext returns the session identity for guest endpoints. It is
// empty when the request carried no valid session.
func CallerFromContext(ctx context.Context) types.Caller {
	return types.Caller{
		AccountID: AccountIDFromContext(ctx),
		Email:     EmailFromContext(ctx),
	}
}

func hasRole(ctx context.Context, role enums.Role) bool {
	for _, r := range RolesFromContext(ctx) {
		if r == role {
			return true
		}
	}
	return false
}

// ActorRoleFromContext returns the most privileged role the caller holds.
func ActorRoleFromContext(ctx context.Context) enums.Role {
	switch {
	case hasRole(ctx, enums.RoleAdmin):
		return enums.RoleAdmin
	case hasRole(ctx, enums.RoleStaff):
		return enums.RoleStaff
	default:
		return enums.RoleCustomer
	}
}
