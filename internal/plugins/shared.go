package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/singleflight"

	"nebula/internal/endpoint"
)

// EntrySymbol is the symbol a shared object must export:
//
//	func Exports(env *endpoint.Env) []any
const EntrySymbol = "Exports"

type symbolTable interface {
	Lookup(name string) (plugin.Symbol, error)
}

// SharedObjectLoader loads Go plugins built with -buildmode=plugin. Loaded
// units are cached by absolute path, so units sharing a file name in
// different directories never collide. Concurrent loads of one path share a
// single open; loads of different paths never wait on each other.
type SharedObjectLoader struct {
	env  *endpoint.Env
	open func(path string) (symbolTable, error)

	inflight singleflight.Group
	mu       sync.Mutex
	cache    map[string]*Unit
}

// NewSharedObjectLoader creates a loader backed by plugin.Open.
func NewSharedObjectLoader(env *endpoint.Env) *SharedObjectLoader {
	return &SharedObjectLoader{
		env: env,
		open: func(path string) (symbolTable, error) {
			return plugin.Open(path)
		},
		cache: make(map[string]*Unit),
	}
}

// Load opens the shared object at path and runs its entry symbol.
func (l *SharedObjectLoader) Load(_ context.Context, name, path string) (*Unit, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, loadError(name, path, err)
	}

	if u, ok := l.cached(abs); ok {
		return u, nil
	}
	v, err, _ := l.inflight.Do(abs, func() (any, error) {
		if u, ok := l.cached(abs); ok {
			return u, nil
		}
		u, err := l.load(name, abs)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cache[abs] = u
		l.mu.Unlock()
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Unit), nil
}

func (l *SharedObjectLoader) cached(abs string) (*Unit, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.cache[abs]
	return u, ok
}

func (l *SharedObjectLoader) load(name, abs string) (*Unit, error) {
	if _, err := os.Stat(abs); err != nil {
		return nil, loadError(name, abs, err)
	}
	syms, err := l.openSafely(name, abs)
	if err != nil {
		return nil, err
	}
	sym, err := syms.Lookup(EntrySymbol)
	if err != nil {
		return nil, loadError(name, abs, err)
	}
	fn, err := constructorOf(sym)
	if err != nil {
		return nil, loadError(name, abs, err)
	}
	exports, err := construct(name, abs, fn, l.env)
	if err != nil {
		return nil, err
	}

	return &Unit{Name: name, Path: abs, Exports: exports}, nil
}

// openSafely runs the plugin's package initialisers, which may panic.
func (l *SharedObjectLoader) openSafely(name, path string) (syms symbolTable, err error) {
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
	syms, err = l.open(path)
	if err != nil {
		return nil, loadError(name, path, err)
	}
	return syms, nil
}

// constructorOf accepts the entry symbol as a function or as a pointer to a
// function variable.
func constructorOf(sym plugin.Symbol) (Constructor, error) {
	switch fn := sym.(type) {
	case func(*endpoint.Env) []any:
		return fn, nil
	case Constructor:
		return fn, nil
	case *func(*endpoint.Env) []any:
		if fn != nil && *fn != nil {
			return *fn, nil
		}
	case *Constructor:
		if fn != nil && *fn != nil {
			return *fn, nil
		}
	default:
		return nil, fmt.Errorf("symbol %s has type %T, want func(*endpoint.Env) []any", EntrySymbol, sym)
	}
	return nil, fmt.Errorf("symbol %s is nil", EntrySymbol)
}
