package auth

import "context"

type contextKey string

const (
	contextKeyOwner  contextKey = "owner"
	contextKeyMethod contextKey = "method"
)

// Method records how a request authenticated.
type Method string

const (
	MethodOIDC        Method = "oidc"
	MethodAccessToken Method = "access_token"
)

// WithOwner stores the authenticated principal's subject in the context.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, contextKeyOwner, ownerID)
}

// OwnerFromContext returns the authenticated principal's subject, if any.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(contextKeyOwner).(string)
	return owner, ok && owner != ""
}

// WithMethod stores the authentication method in the context.
func WithMethod(ctx context.Context, method Method) context.Context {
	return context.WithValue(ctx, contextKeyMethod, method)
}

// MethodFromContext returns the authentication method, if any.
func MethodFromContext(ctx context.Context) (Method, bool) {
	method, ok := ctx.Value(contextKeyMethod).(Method)
	return method, ok
}
