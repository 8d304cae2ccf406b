package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"nebula/internal/objects"
	"nebula/internal/platform/metrics"
	dErrors "nebula/pkg/domain-errors"
	"nebula/pkg/platform/httputil"
	"nebula/pkg/requestcontext"
)

// Authenticator resolves a bearer token to a user and the token ID.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*objects.User, string, error)
}

// EndpointAuthorizer decides whether a user may call a named endpoint.
type EndpointAuthorizer interface {
	Authorize(user *objects.User, endpoint string) error
}

func bearerToken(r *http.Request) (string, bool) {
	return strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// RequireAuth rejects requests without a valid bearer token and stores the
// user in the request context.
func RequireAuth(auth Authenticator, m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := bearerToken(r)
			if !ok {
				m.IncAuthFailure()
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			user, jti, err := auth.Authenticate(ctx, token)
			if err != nil {
				m.IncAuthFailure()
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				if dErrors.HasCode(err, dErrors.CodeUnauthorized) || dErrors.HasCode(err, dErrors.CodeUnavailable) {
					httputil.WriteError(w, err)
				} else {
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithUser(ctx, user, jti)))
		})
	}
}

// OptionalAuth attaches the user when a valid token is present and lets
// every request through.
func OptionalAuth(auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, jti, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				logger.DebugContext(r.Context(), "ignoring invalid token on anonymous endpoint", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithUser(r.Context(), user, jti)))
		})
	}
}

// RequireEndpointAccess checks the context user against the scopes of the
// named endpoint.
func RequireEndpointAccess(authz EndpointAuthorizer, endpoint string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			user := requestcontext.User(ctx)
			if err := authz.Authorize(user, endpoint); err != nil {
				login := ""
				if user != nil {
					login = user.Login()
				}
				logger.WarnContext(ctx, "access denied",
					"endpoint", endpoint,
					"user", login,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
