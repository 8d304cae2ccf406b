package endpoints

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync/atomic"

	"nebula/internal/endpoint"
	"nebula/internal/platform/logger"
	"nebula/internal/platform/metrics"
	"nebula/internal/scopes"
	"nebula/pkg/slug"
)

// Discovery produces the descriptors the registrar installs.
type Discovery interface {
	Discover(ctx context.Context) iter.Seq[endpoint.APIRequest]
}

// Skipped is a descriptor the registrar did not install.
type Skipped struct {
	Name   string
	Reason string
	Err    error
}

// Report summarises one Install run.
type Report struct {
	Registered []string
	Skipped    []Skipped
}

// Registrar installs discovered endpoints on a router and records their
// scopes.
type Registrar struct {
	discovery Discovery
	scopes    *scopes.Registry
	logger    *slog.Logger
	metrics   *metrics.Metrics
	installed atomic.Bool
}

// NewRegistrar creates a registrar writing scoped endpoints to registry.
func NewRegistrar(discovery Discovery, registry *scopes.Registry, logger *slog.Logger, m *metrics.Metrics) *Registrar {
	return &Registrar{discovery: discovery, scopes: registry, logger: logger, metrics: m}
}

// Install drains discovery and adds every valid descriptor to router. It
// runs once; later calls log a warning and return an empty report. The
// scope registry is sealed when Install returns.
//
// Per-descriptor problems never fail Install. Duplicate names keep the first
// descriptor seen. Descriptors whose handle cannot be bound, or whose route
// the router rejects, are skipped.
func (r *Registrar) Install(ctx context.Context, router endpoint.Router) Report {
	var report Report
	if !r.installed.CompareAndSwap(false, true) {
		r.logger.WarnContext(ctx, "endpoints already installed")
		return report
	}
	defer r.scopes.Seal()

	shaper, _ := router.(endpoint.ResponseShaper)
	canShape := shaper != nil && shaper.SupportsExcludeNone()
	registered := make(map[string]struct{})

	skip := func(name, reason string, err error) {
		report.Skipped = append(report.Skipped, Skipped{Name: name, Reason: reason, Err: err})
		r.metrics.IncEndpointSkipped(reason)
	}

	for req := range r.discovery.Discover(ctx) {
		e := req.Describe()
		if e == nil || e.Name == "" {
			r.logger.WarnContext(ctx, "Endpoint "+typeName(req)+" doesn't have a name")
			skip("", metrics.ReasonNoName, nil)
			continue
		}
		if _, dup := registered[e.Name]; dup {
			r.logger.WarnContext(ctx, "Duplicate endpoint name "+e.Name, "endpoint", e.Name)
			skip(e.Name, metrics.ReasonDuplicate, nil)
			continue
		}

		binding, err := endpoint.Bind(e.Handle)
		if err != nil {
			reason := metrics.ReasonNotCallable
			if errors.Is(err, endpoint.ErrNoHandle) {
				reason = metrics.ReasonNoHandle
			}
			r.logger.WarnContext(ctx, "Endpoint "+e.Name+" doesn't have a usable handle", "endpoint", e.Name, "error", err)
			skip(e.Name, reason, err)
			continue
		}

		responseModel := e.ResponseModel
		if responseModel == nil {
			responseModel = binding.ResponseType()
		}

		route := endpoint.Route{
			Path:          e.RoutePath(),
			Name:          e.Name,
			OperationID:   slug.Make(e.Name, "_"),
			Methods:       e.RouteMethods(),
			Description:   e.Documentation(),
			Title:         e.DisplayTitle(),
			Scopes:        append([]string(nil), e.Scopes...),
			Anonymous:     e.Anonymous,
			ResponseModel: responseModel,
			Binding:       binding,
		}
		if responseModel != nil && canShape {
			route.ExcludeNone = e.ExcludeNone
		}

		if len(e.Scopes) > 0 && r.scopes.Sealed() {
			r.logger.ErrorContext(ctx, "cannot protect endpoint "+e.Name+": scope registry is sealed", "endpoint", e.Name)
			skip(e.Name, metrics.ReasonScope, scopes.ErrSealed)
			continue
		}

		logger.Trace(ctx, r.logger, "Adding endpoint "+route.Path, "endpoint", e.Name, "methods", route.Methods)
		if err := router.AddRoute(route); err != nil {
			r.logger.WarnContext(ctx, "Router rejected endpoint "+e.Name, "endpoint", e.Name, "path", route.Path, "error", err)
			skip(e.Name, metrics.ReasonRejected, err)
			continue
		}

		if len(e.Scopes) > 0 {
			entry := scopes.Entry{Endpoint: e.Name, Title: e.DisplayTitle(), Scopes: e.Scopes}
			if err := r.scopes.Add(entry); err != nil {
				r.logger.ErrorContext(ctx, "failed to record endpoint scopes", "endpoint", e.Name, "error", err)
			}
		}

		registered[e.Name] = struct{}{}
		report.Registered = append(report.Registered, e.Name)
	}

	r.metrics.SetEndpointsRegistered(len(report.Registered))
	r.logger.InfoContext(ctx, "endpoints installed",
		"registered", len(report.Registered),
		"skipped", len(report.Skipped),
		"scoped", r.scopes.Len(),
	)
	return report
}
