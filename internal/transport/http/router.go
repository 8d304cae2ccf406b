// Package httptransport serves discovered endpoints over HTTP. The Router
// receives routes from the registrar and turns each into a chi handler that
// authenticates, authorizes, decodes, validates and invokes the endpoint.
package httptransport

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"nebula/internal/endpoint"
	"nebula/internal/platform/health"
	"nebula/internal/platform/metrics"
	"nebula/internal/platform/middleware"
	dErrors "nebula/pkg/domain-errors"
	"nebula/pkg/platform/httputil"
)

const defaultRequestTimeout = 30 * time.Second

var allowedMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// Router implements endpoint.Router and endpoint.ResponseShaper on top of chi.
type Router struct {
	mux     chi.Router
	logger  *slog.Logger
	auth    middleware.Authenticator
	authz   middleware.EndpointAuthorizer
	metrics *metrics.Metrics
	tracer  trace.Tracer
	timeout time.Duration

	mu     sync.Mutex
	taken  map[string]string
	routes []endpoint.Route
}

// Option configures a Router.
type Option func(*Router)

// WithMetrics records endpoint latency and errors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithTracer replaces the global tracer provider's "nebula/endpoints" tracer.
func WithTracer(t trace.Tracer) Option {
	return func(r *Router) { r.tracer = t }
}

// WithRequestTimeout bounds each request served by the router.
func WithRequestTimeout(d time.Duration) Option {
	return func(r *Router) { r.timeout = d }
}

// NewRouter builds a router with the shared middleware stack installed.
func NewRouter(logger *slog.Logger, auth middleware.Authenticator, authz middleware.EndpointAuthorizer, opts ...Option) *Router {
	r := &Router{
		mux:     chi.NewRouter(),
		logger:  logger,
		auth:    auth,
		authz:   authz,
		timeout: defaultRequestTimeout,
		taken:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer("nebula/endpoints")
	}

	r.mux.Use(middleware.Recovery(logger))
	r.mux.Use(middleware.RequestID)
	r.mux.Use(middleware.ClientMetadata)
	r.mux.Use(middleware.Logger(logger))
	if r.timeout > 0 {
		r.mux.Use(middleware.Timeout(r.timeout))
	}
	r.mux.Use(middleware.BodyLimit(httputil.MaxBodyBytes))
	r.mux.Use(middleware.ContentTypeJSON)

	r.mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no such endpoint"))
	})
	r.mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
	})
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// SupportsExcludeNone reports that responses can be stripped of null fields.
func (r *Router) SupportsExcludeNone() bool { return true }

// MountHealth serves the health probes. Their paths are reserved so that a
// discovered endpoint cannot shadow them.
func (r *Router) MountHealth(h *health.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range h.Paths() {
		r.taken[routeKey(http.MethodGet, p)] = "health"
	}
	h.Register(r.mux)
}

// MountMetrics serves the Prometheus exposition of g on /metrics.
func (r *Router) MountMetrics(g prometheus.Gatherer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.taken[routeKey(http.MethodGet, "/metrics")] = "metrics"
	r.mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// AddRoute installs rt for each of its methods. Nothing is installed when
// any method is invalid or any method and path pair is already taken.
func (r *Router) AddRoute(rt endpoint.Route) error {
	if rt.Binding == nil {
		return fmt.Errorf("route %s has no handler", rt.Name)
	}
	if !strings.HasPrefix(rt.Path, "/") {
		return fmt.Errorf("route %s: path %q must start with /", rt.Name, rt.Path)
	}
	if len(rt.Methods) == 0 {
		return fmt.Errorf("route %s declares no methods", rt.Name)
	}
	for _, m := range rt.Methods {
		if !slices.Contains(allowedMethods, m) {
			return fmt.Errorf("route %s: unsupported method %q", rt.Name, m)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range rt.Methods {
		if owner, ok := r.taken[routeKey(m, rt.Path)]; ok {
			return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("%s %s is already served by %s", m, rt.Path, owner))
		}
	}

	handler := r.chain(rt)
	if err := r.mount(rt, handler); err != nil {
		return err
	}
	for _, m := range rt.Methods {
		r.taken[routeKey(m, rt.Path)] = rt.Name
	}
	r.routes = append(r.routes, rt)
	return nil
}

// mount converts chi's pattern panics into errors.
func (r *Router) mount(rt endpoint.Route, h http.Handler) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("route %s: %v", rt.Name, p)
		}
	}()
	for _, m := range rt.Methods {
		r.mux.Method(m, rt.Path, h)
	}
	return nil
}

func (r *Router) chain(rt endpoint.Route) http.Handler {
	var h http.Handler = r.endpointHandler(rt)
	h = middleware.RequireEndpointAccess(r.authz, rt.Name, r.logger)(h)
	if rt.Anonymous {
		return middleware.OptionalAuth(r.auth, r.logger)(h)
	}
	return middleware.RequireAuth(r.auth, r.metrics, r.logger)(h)
}

// Routes returns the installed endpoint routes sorted by path.
func (r *Router) Routes() []endpoint.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := slices.Clone(r.routes)
	slices.SortStableFunc(out, func(a, b endpoint.Route) int {
		return strings.Compare(a.Path, b.Path)
	})
	return out
}

func routeKey(method, path string) string {
	return method + " " + path
}
