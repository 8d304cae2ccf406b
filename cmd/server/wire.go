package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"nebula/internal/api"
	"nebula/internal/auth"
	"nebula/internal/endpoint"
	"nebula/internal/endpoints"
	"nebula/internal/platform/config"
	"nebula/internal/platform/database"
	"nebula/internal/platform/health"
	"nebula/internal/platform/messaging"
	"nebula/internal/platform/metrics"
	"nebula/internal/platform/redis"
	"nebula/internal/plugins"
	"nebula/internal/scopes"
	httptransport "nebula/internal/transport/http"
)

type app struct {
	env       *endpoint.Env
	router    *httptransport.Router
	registrar *endpoints.Registrar
}

// wire builds the server's object graph. rdb may be nil, in which case token
// revocation is kept in memory and change notifications are dropped.
func wire(cfg config.Server, log *slog.Logger, reg prometheus.Registerer, db database.DB, rdb *redis.Client) *app {
	m := metrics.New(reg)
	registry := scopes.NewRegistry()

	var (
		revocations auth.RevocationList
		publisher   messaging.Publisher = messaging.Nop{}
	)
	if rdb != nil {
		revocations = auth.NewRedisRevocations(rdb.Client)
		publisher = messaging.NewGuarded(messaging.NewRedisPublisher(rdb.Client, cfg.SiteName), log)
	}

	env := &endpoint.Env{
		DB:        db,
		Logger:    log,
		Auth:      auth.NewService(db, auth.NewTokenService(cfg.JWTSigningKey, cfg.TokenTTL), revocations),
		Scopes:    registry,
		Publisher: publisher,
		Config:    cfg,
		Version:   health.Version,
		Started:   time.Now(),
	}

	discoverer := endpoints.NewDiscoverer(log, sources(cfg, env),
		endpoints.WithLoadTimeout(cfg.PluginLoadTimeout),
		endpoints.WithMetrics(m),
	)
	router := httptransport.NewRouter(log, env.Auth, scopes.NewAuthorizer(registry), httptransport.WithMetrics(m))

	return &app{
		env:       env,
		router:    router,
		registrar: endpoints.NewRegistrar(discoverer, registry, log, m),
	}
}

// sources lists the built-in location first, then the plugin directory.
func sources(cfg config.Server, env *endpoint.Env) []endpoints.Source {
	out := []endpoints.Source{
		endpoints.NewBuiltinSource(plugins.NewBuiltins(env, api.Builtins())),
	}
	if cfg.PluginDir == "" {
		return out
	}
	manifests := plugins.NewManifestLoader(env)
	loaders := map[string]plugins.Loader{
		".so":   plugins.NewSharedObjectLoader(env),
		".yaml": manifests,
		".yml":  manifests,
	}
	dir := filepath.Join(cfg.PluginDir, endpoints.BuiltinLocation)
	return append(out, endpoints.NewDirSource("plugins", dir, loaders))
}

func (a *app) install(ctx context.Context) endpoints.Report {
	return a.registrar.Install(ctx, a.router)
}
