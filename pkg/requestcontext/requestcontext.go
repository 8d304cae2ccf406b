// Package requestcontext carries per-request values (request ID, client
// metadata, authenticated user) through context.Context.
package requestcontext

import (
	"context"

	"nebula/internal/objects"
)

type requestIDKey struct{}
type clientIPKey struct{}
type userAgentKey struct{}
type userKey struct{}
type tokenIDKey struct{}

// WithRequestID stores the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request ID, or "" outside of a request.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithClientMetadata stores the client IP and User-Agent header.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, ip)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// ClientIP returns the client address set by the metadata middleware.
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey{}).(string)
	return v
}

// UserAgent returns the client user agent.
func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(userAgentKey{}).(string)
	return v
}

// WithUser stores the authenticated user and the ID of the token that
// authenticated it.
func WithUser(ctx context.Context, user *objects.User, tokenID string) context.Context {
	ctx = context.WithValue(ctx, userKey{}, user)
	return context.WithValue(ctx, tokenIDKey{}, tokenID)
}

// User returns the authenticated user or nil for anonymous requests.
func User(ctx context.Context) *objects.User {
	v, _ := ctx.Value(userKey{}).(*objects.User)
	return v
}

// TokenID returns the id of the token the request was authenticated with.
func TokenID(ctx context.Context) string {
	v, _ := ctx.Value(tokenIDKey{}).(string)
	return v
}
