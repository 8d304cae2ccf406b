//go:build integration

// Package containers starts Postgres and Redis for integration tests. Each
// container is started once per test binary and shared by every suite in it;
// Ryuk removes them when the process exits.
package containers

import (
	"sync"
	"testing"
)

type shared[T any] struct {
	mu    sync.Mutex
	value T
	ready bool
}

func (s *shared[T]) get(t *testing.T, start func(*testing.T) T) T {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		s.value = start(t)
		s.ready = true
	}
	return s.value
}

// Manager hands out the shared containers.
type Manager struct {
	postgres shared[*PostgresContainer]
	redis    shared[*RedisContainer]
}

var manager = &Manager{}

func GetManager() *Manager { return manager }

// GetPostgres returns the Postgres container with the schema applied.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	return m.postgres.get(t, NewPostgresContainer)
}

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	return m.redis.get(t, NewRedisContainer)
}
