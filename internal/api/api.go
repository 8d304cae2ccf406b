// Package api lists the endpoint units compiled into the server. They are
// discovered from the built-in location like any other unit.
package api

import (
	"nebula/internal/api/actions"
	"nebula/internal/api/auth"
	"nebula/internal/api/get"
	"nebula/internal/api/scopes"
	"nebula/internal/api/set"
	"nebula/internal/api/settings"
	"nebula/internal/api/status"
	"nebula/internal/plugins"
)

// Builtins maps unit names to their constructors.
func Builtins() map[string]plugins.Constructor {
	return map[string]plugins.Constructor{
		"actions":  actions.New,
		"auth":     auth.New,
		"get":      get.New,
		"scopes":   scopes.New,
		"set":      set.New,
		"settings": settings.New,
		"status":   status.New,
	}
}
