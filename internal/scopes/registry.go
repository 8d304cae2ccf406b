// Package scopes keeps the registry of scope-restricted endpoints and
// authorizes users against it.
//
// The registry is written once by the endpoint registrar during startup and
// sealed before the server accepts traffic. After Seal it is read-only and
// safe for concurrent readers.
package scopes

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrSealed is returned by Add once the registry has been sealed.
var ErrSealed = errors.New("scoped endpoint registry is sealed")

// Entry records which scopes gate an endpoint.
type Entry struct {
	Endpoint string   `json:"endpoint"`
	Title    string   `json:"title"`
	Scopes   []string `json:"scopes"`
}

// Registry maps endpoint names to the scopes they require. It is written
// while endpoints are installed and read by authorization afterwards.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[string]int
	sealed  bool
}

// NewRegistry creates an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Add appends an entry. Re-adding an endpoint name is an error; the
// registrar never does it because names are unique per pass.
func (r *Registry) Add(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	if _, ok := r.index[e.Endpoint]; ok {
		return fmt.Errorf("endpoint %q already has a scope entry", e.Endpoint)
	}
	e.Scopes = slices.Clone(e.Scopes)
	r.index[e.Endpoint] = len(r.entries)
	r.entries = append(r.entries, e)
	return nil
}

// Entries returns the entries in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		e.Scopes = slices.Clone(e.Scopes)
		out[i] = e
	}
	return out
}

// Lookup returns the entry for an endpoint name.
func (r *Registry) Lookup(endpoint string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[endpoint]
	if !ok {
		return Entry{}, false
	}
	e := r.entries[i]
	e.Scopes = slices.Clone(e.Scopes)
	return e, true
}

// Len returns the number of scoped endpoints.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Seal makes every later Add fail with ErrSealed.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}
