// Package auth exports the login and logout endpoints.
package auth

import (
	"context"
	"strings"
	"time"

	"nebula/internal/auth/device"
	"nebula/internal/endpoint"
	"nebula/internal/objects"
	"nebula/internal/platform/privacy"
	"nebula/pkg/requestcontext"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresAt   time.Time     `json:"expires_at"`
	User        *objects.User `json:"user"`
}

type LogoutResponse struct {
	Detail string `json:"detail"`
}

type Login struct {
	endpoint.Endpoint
}

type Logout struct {
	endpoint.Endpoint
}

func New(env *endpoint.Env) []any {
	return []any{
		&Login{Endpoint: endpoint.Endpoint{
			Name:      "login",
			Title:     "Login",
			Anonymous: true,
			Doc: `
				Exchanges a login and password for a bearer token.
				The token is sent as "Authorization: Bearer <token>".
			`,
			Handle: login(env),
		}},
		&Logout{Endpoint: endpoint.Endpoint{
			Name:   "logout",
			Title:  "Logout",
			Doc:    "Revokes the token used for this request.",
			Handle: logout(env),
		}},
	}
}

func login(env *endpoint.Env) func(context.Context, *LoginRequest, *objects.User) (LoginResponse, error) {
	return func(ctx context.Context, req *LoginRequest, _ *objects.User) (LoginResponse, error) {
		session, err := env.Auth.Login(ctx, req.Username, req.Password)
		if err != nil {
			env.Logger.WarnContext(ctx, "login failed",
				"login", req.Username,
				"client_ip", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
			)
			return LoginResponse{}, err
		}
		env.Logger.InfoContext(ctx, "user logged in",
			"login", session.User.Login(),
			"client", device.DisplayName(requestcontext.UserAgent(ctx)),
			"client_ip", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
		)
		return LoginResponse{
			AccessToken: session.Token,
			TokenType:   "bearer",
			ExpiresAt:   session.ExpiresAt,
			User:        session.User,
		}, nil
	}
}

func logout(env *endpoint.Env) func(context.Context, *objects.User) (LogoutResponse, error) {
	return func(ctx context.Context, user *objects.User) (LogoutResponse, error) {
		if err := env.Auth.Revoke(ctx, requestcontext.TokenID(ctx)); err != nil {
			return LogoutResponse{}, err
		}
		env.Logger.InfoContext(ctx, "user logged out", "login", user.Login())
		return LogoutResponse{Detail: "Logged out"}, nil
	}
}
