// Package seeder applies site settings to a fresh or existing database: the
// default template, overrides from the settings directory, classification
// schemes and the admin account.
package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"strconv"

	"nebula/internal/auth"
	"nebula/internal/objects"
	"nebula/internal/platform/database"
	"nebula/internal/platform/logger"
	dErrors "nebula/pkg/domain-errors"
)

// Options carries the configuration the seeder writes.
type Options struct {
	SiteName           string
	RedisURL           string
	ClassificationsURL string
	AdminPassword      string
}

// Seeder applies a settings template to the database.
type Seeder struct {
	db     database.DB
	logger *slog.Logger
	client *http.Client
	opts   Options
}

// Option configures a Seeder.
type Option func(*Seeder)

// WithHTTPClient sets the client used to fetch classifications.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Seeder) { s.client = c }
}

// New creates a seeder.
func New(db database.DB, log *slog.Logger, opts Options, options ...Option) *Seeder {
	s := &Seeder{db: db, logger: log, client: http.DefaultClient, opts: opts}
	for _, o := range options {
		o(s)
	}
	return s
}

// Seed writes t in a single transaction. Classifications are downloaded
// before the transaction starts.
func (s *Seeder) Seed(ctx context.Context, t *Template) error {
	schemes, err := s.fetchClassifications(ctx)
	if err != nil {
		return err
	}

	err = s.db.Transaction(ctx, func(tx database.DB) error {
		steps := []struct {
			name string
			run  func(context.Context, database.DB) (int, error)
		}{
			{"system settings", s.systemSettings},
			{"views", func(ctx context.Context, tx database.DB) (int, error) { return replaceDocuments(ctx, tx, "views", t.Views) }},
			{"folders", func(ctx context.Context, tx database.DB) (int, error) { return replaceDocuments(ctx, tx, "folders", t.Folders) }},
			{"meta types", func(ctx context.Context, tx database.DB) (int, error) { return upsertMetaTypes(ctx, tx, t.MetaTypes) }},
			{"classifications", func(ctx context.Context, tx database.DB) (int, error) { return replaceClassifications(ctx, tx, schemes) }},
			{"services", func(ctx context.Context, tx database.DB) (int, error) { return upsertServices(ctx, tx, t.Services) }},
			{"actions", func(ctx context.Context, tx database.DB) (int, error) { return upsertActions(ctx, tx, t.Actions) }},
			{"channels", func(ctx context.Context, tx database.DB) (int, error) { return upsertChannels(ctx, tx, t.Channels) }},
			{"storages", func(ctx context.Context, tx database.DB) (int, error) { return upsertDocuments(ctx, tx, "storages", t.Storages) }},
			{"admin user", s.adminUser},
		}
		for _, step := range steps {
			n, err := step.run(ctx, tx)
			if err != nil {
				return fmt.Errorf("seed %s: %w", step.name, err)
			}
			logger.Trace(ctx, s.logger, fmt.Sprintf("Saved %d %s", n, step.name))
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "settings applied")
	return nil
}

func (s *Seeder) systemSettings(ctx context.Context, tx database.DB) (int, error) {
	settings := map[string]any{"site_name": s.opts.SiteName}
	if s.opts.RedisURL != "" {
		host, port, err := redisAddress(s.opts.RedisURL)
		if err != nil {
			return 0, err
		}
		settings["redis_host"] = host
		settings["redis_port"] = port
	}
	for key, value := range settings {
		raw, err := json.Marshal(value)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Execute(ctx, `
			INSERT INTO settings (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = $2`, key, string(raw)); err != nil {
			return 0, err
		}
	}
	return len(settings), nil
}

// redisAddress extracts host and port, defaulting the port to 6379.
func redisAddress(raw string) (string, int, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid redis url")
	}
	port := 6379
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return "", 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid redis port")
		}
	}
	return u.Hostname(), port, nil
}

func resetSequence(ctx context.Context, tx database.DB, table string) error {
	_, err := tx.Execute(ctx, "SELECT setval(pg_get_serial_sequence('"+table+"', 'id'), coalesce(max(id), 0) + 1, false) FROM "+table)
	return err
}

// split separates a document's id from the rest of its settings.
func split(doc Document) (int64, map[string]any, error) {
	id, ok := toInt64(doc["id"])
	if !ok {
		return 0, nil, fmt.Errorf("document without numeric id: %v", doc)
	}
	rest := maps.Clone(map[string]any(doc))
	delete(rest, "id")
	return id, rest, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), n == float64(int64(n))
	default:
		return 0, false
	}
}

func replaceDocuments(ctx context.Context, tx database.DB, table string, docs []Document) (int, error) {
	if _, err := tx.Execute(ctx, "DELETE FROM "+table); err != nil {
		return 0, err
	}
	for _, doc := range docs {
		id, settings, err := split(doc)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Execute(ctx, "INSERT INTO "+table+" (id, settings) VALUES ($1, $2)", id, settings); err != nil {
			return 0, err
		}
	}
	return len(docs), resetSequence(ctx, tx, table)
}

func upsertDocuments(ctx context.Context, tx database.DB, table string, docs []Document) (int, error) {
	for _, doc := range docs {
		id, settings, err := split(doc)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Execute(ctx, "INSERT INTO "+table+" (id, settings) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET settings = $2", id, settings); err != nil {
			return 0, err
		}
	}
	return len(docs), resetSequence(ctx, tx, table)
}

func upsertMetaTypes(ctx context.Context, tx database.DB, types map[string]Document) (int, error) {
	for key, settings := range types {
		if _, err := tx.Execute(ctx, `
			INSERT INTO meta_types (key, settings) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET settings = $2`, key, map[string]any(settings)); err != nil {
			return 0, err
		}
	}
	return len(types), nil
}

func upsertServices(ctx context.Context, tx database.DB, services []Service) (int, error) {
	for _, svc := range services {
		if _, err := tx.Execute(ctx, `
			INSERT INTO services (id, service_type, host, title, settings, autostart, loop_delay)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
			service_type = $2, host = $3, title = $4, settings = $5, autostart = $6, loop_delay = $7`,
			svc.ID, svc.Type, svc.Host, svc.Name, svc.Settings, svc.Autostart, svc.LoopDelay); err != nil {
			return 0, err
		}
	}
	return len(services), resetSequence(ctx, tx, "services")
}

func upsertActions(ctx context.Context, tx database.DB, actions []Action) (int, error) {
	for _, a := range actions {
		if _, err := tx.Execute(ctx, `
			INSERT INTO actions (id, service_type, title, settings)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET service_type = $2, title = $3, settings = $4`,
			a.ID, a.Type, a.Name, a.Settings); err != nil {
			return 0, err
		}
	}
	return len(actions), resetSequence(ctx, tx, "actions")
}

func upsertChannels(ctx context.Context, tx database.DB, channels []Document) (int, error) {
	for _, ch := range channels {
		id, settings, err := split(ch)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Execute(ctx, `
			INSERT INTO channels (id, channel_type, settings) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET channel_type = $2, settings = $3`, id, 0, settings); err != nil {
			return 0, err
		}
	}
	return len(channels), resetSequence(ctx, tx, "channels")
}

// adminUser creates the admin account, or resets its password, when an
// admin password is configured.
func (s *Seeder) adminUser(ctx context.Context, tx database.DB) (int, error) {
	if s.opts.AdminPassword == "" {
		return 0, nil
	}
	hash, err := auth.HashPassword(s.opts.AdminPassword)
	if err != nil {
		return 0, err
	}
	user, err := objects.FindUserByLogin(ctx, tx, "admin")
	switch {
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		user = objects.NewUser("admin", objects.Meta{"is_admin": true, "password": hash})
	case err != nil:
		return 0, err
	default:
		user.Meta = objects.Meta{"is_admin": true, "password": hash}
	}
	if err := objects.Save(ctx, tx, &user.Object); err != nil {
		return 0, err
	}
	return 1, nil
}
