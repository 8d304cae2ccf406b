// Package scopes exports the endpoint listing scope-restricted endpoints.
package scopes

import (
	"context"
	"net/http"

	"nebula/internal/endpoint"
	"nebula/internal/objects"
	"nebula/internal/scopes"
)

type Response struct {
	Endpoints []scopes.Entry `json:"endpoints"`
}

type List struct {
	endpoint.Endpoint
}

func New(env *endpoint.Env) []any {
	return []any{&List{Endpoint: endpoint.Endpoint{
		Name:    "scopes",
		Title:   "List scoped endpoints",
		Methods: []string{http.MethodGet},
		Scopes:  []string{"user_admin"},
		Doc:     "Lists every endpoint that requires scopes, in registration order.",
		Handle:  handler(env.Scopes),
	}}}
}

func handler(registry *scopes.Registry) func(context.Context, *objects.User) (Response, error) {
	return func(context.Context, *objects.User) (Response, error) {
		entries := registry.Entries()
		if entries == nil {
			entries = []scopes.Entry{}
		}
		return Response{Endpoints: entries}, nil
	}
}
