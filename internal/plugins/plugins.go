// Package plugins loads endpoint-bearing units. A unit is either compiled
// into the server (Builtins), a Go plugin shared object (SharedObjectLoader)
// or a declarative YAML manifest (ManifestLoader). Every loader reports
// failures as *LoadError and never lets a unit's panic escape.
package plugins

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"nebula/internal/endpoint"
)

// ErrLoad matches every *LoadError via errors.Is.
var ErrLoad = errors.New("unit load failed")

// Constructor builds a unit's exports. Built-in units register one; shared
// objects export one under the EntrySymbol name.
type Constructor func(env *endpoint.Env) []any

// Unit is a loaded unit and the values it exports.
type Unit struct {
	Name    string
	Path    string
	Exports []any
}

// Loader loads one unit from path. Failures are returned as *LoadError.
type Loader interface {
	Load(ctx context.Context, name, path string) (*Unit, error)
}

// LoadError reports a unit that could not be loaded. It matches ErrLoad
// and the underlying cause with errors.Is.
type LoadError struct {
	Unit  string
	Path  string
	Err   error
	Stack []byte
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load unit %s (%s): %v", e.Unit, e.Path, e.Err)
}

// Unwrap returns ErrLoad and the cause.
func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}

// StackTrace returns the stack captured when the unit panicked, if it did.
func (e *LoadError) StackTrace() []byte {
	return e.Stack
}

func loadError(name, path string, err error) *LoadError {
	return &LoadError{Unit: name, Path: path, Err: err}
}

// construct runs a unit constructor, turning a panic into a LoadError.
func construct(name, path string, fn Constructor, env *endpoint.Env) (exports []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &LoadError{
				Unit:  name,
				Path:  path,
				Err:   fmt.Errorf("panic during initialisation: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()
	return fn(env), nil
}
