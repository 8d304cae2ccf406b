//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"nebula/internal/objects"
	"nebula/internal/platform/config"
	"nebula/internal/platform/database"
	"nebula/migrations"
)

// PostgresContainer wraps a testcontainers Postgres instance and an open pool.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *database.Pool
}

// NewPostgresContainer starts a new Postgres container with migrations applied.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("nebula_test"),
		postgres.WithUsername("nebula"),
		postgres.WithPassword("nebula_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := database.New(ctx, config.DatabaseConfig{URL: dsn, MaxConns: 8})
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	pc := &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
	if err := pc.ApplyMigrations(ctx); err != nil {
		db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}
	return pc
}

// ApplyMigrations runs the embedded schema against the container.
func (p *PostgresContainer) ApplyMigrations(ctx context.Context) error {
	return migrations.Apply(ctx, p.DB)
}

// TruncateTables clears all data from the specified tables and resets their
// sequences.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.DB.Execute(ctx, "TRUNCATE TABLE "+table+" RESTART IDENTITY CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// TruncateAll truncates every table of the schema.
func (p *PostgresContainer) TruncateAll(ctx context.Context) error {
	return p.TruncateTables(ctx,
		"settings",
		"views",
		"folders",
		"storages",
		"meta_types",
		"cs",
		"services",
		"actions",
		"channels",
		"assets",
		"items",
		"bins",
		"events",
		"users",
	)
}

// CreateTestAsset inserts an asset and returns it with its assigned id.
func (p *PostgresContainer) CreateTestAsset(ctx context.Context, t testing.TB, meta objects.Meta) *objects.Object {
	t.Helper()
	asset := objects.New(objects.TypeAsset, meta)
	if err := objects.Save(ctx, p.DB, asset); err != nil {
		t.Fatalf("CreateTestAsset: %v", err)
	}
	return asset
}

// CreateTestUser inserts a user and returns it with its assigned id.
func (p *PostgresContainer) CreateTestUser(ctx context.Context, t testing.TB, user *objects.User) *objects.User {
	t.Helper()
	if err := objects.Save(ctx, p.DB, &user.Object); err != nil {
		t.Fatalf("CreateTestUser: %v", err)
	}
	return user
}
