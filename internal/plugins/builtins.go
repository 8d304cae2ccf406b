package plugins

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"nebula/internal/endpoint"
)

// Builtins loads the units compiled into the server.
type Builtins struct {
	env   *endpoint.Env
	units map[string]Constructor
}

// NewBuiltins creates a loader over the compiled-in units.
func NewBuiltins(env *endpoint.Env, units map[string]Constructor) *Builtins {
	return &Builtins{env: env, units: maps.Clone(units)}
}

// Names returns the unit names in lexicographic order.
func (b *Builtins) Names() []string {
	return slices.Sorted(maps.Keys(b.units))
}

// Load constructs the named unit. Each call builds fresh exports.
func (b *Builtins) Load(_ context.Context, name, path string) (*Unit, error) {
	fn, ok := b.units[name]
	if !ok || fn == nil {
		return nil, loadError(name, path, fmt.Errorf("no built-in unit named %q", name))
	}
	exports, err := construct(name, path, fn, b.env)
	if err != nil {
		return nil, err
	}
	return &Unit{Name: name, Path: path, Exports: exports}, nil
}
