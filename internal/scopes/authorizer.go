package scopes

import (
	"fmt"
	"strings"

	"nebula/internal/objects"
	dErrors "nebula/pkg/domain-errors"
)

// Authorizer checks a user against the scopes an endpoint requires.
type Authorizer struct {
	registry *Registry
}

// NewAuthorizer checks users against registry.
func NewAuthorizer(registry *Registry) *Authorizer {
	return &Authorizer{registry: registry}
}

// Authorize returns nil when user may call the endpoint. Endpoints without a
// registry entry are unrestricted. Admins pass every check.
func (a *Authorizer) Authorize(user *objects.User, endpoint string) error {
	entry, ok := a.registry.Lookup(endpoint)
	if !ok {
		return nil
	}
	if user == nil {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if user.Admin() || user.HasScopes(entry.Scopes...) {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden,
		fmt.Sprintf("%s requires scopes: %s", entry.Title, strings.Join(entry.Scopes, ", ")))
}
