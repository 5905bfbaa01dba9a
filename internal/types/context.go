package types

import (
	"context"
)

type ContextKey string

const (
	CtxRequestID  ContextKey = "ctx_request_id"
	CtxTenantID   ContextKey = "ctx_tenant_id"
	CtxUserID     ContextKey = "ctx_user_id"
	CtxCapability ContextKey = "ctx_capability"
	CtxJWT        ContextKey = "ctx_jwt"
)

// PlatformTenantID is the sentinel tenant a platform operator resolves to.
// It is never used as a storage query value.
const PlatformTenantID = "__platform__"

// DefaultUserID is recorded as the actor when no user is attached to the context
const DefaultUserID = "00000000-0000-0000-0000-000000000000"

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

func GetTenantID(ctx context.Context) string {
	if tenantID, ok := ctx.Value(CtxTenantID).(string); ok {
		return tenantID
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

func GetCapability(ctx context.Context) Capability {
	if c, ok := ctx.Value(CtxCapability).(Capability); ok {
		return c
	}
	return CapabilityNone
}

func SetTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, CtxTenantID, tenantID)
}

func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}

func SetCapability(ctx context.Context, c Capability) context.Context {
	return context.WithValue(ctx, CtxCapability, c)
}
