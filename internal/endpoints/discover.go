package endpoints

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"nebula/internal/endpoint"
	"nebula/internal/platform/logger"
	"nebula/internal/platform/metrics"
	"nebula/internal/plugins"
)

// Discoverer yields the endpoint descriptors found in its sources.
type Discoverer struct {
	sources     []Source
	logger      *slog.Logger
	metrics     *metrics.Metrics
	loadTimeout time.Duration
	used        atomic.Bool
}

// DiscovererOption configures a Discoverer.
type DiscovererOption func(*Discoverer)

// WithLoadTimeout bounds how long discovery waits for a single unit. A unit
// exceeding it is reported as a load failure; its loader keeps running in
// the background.
func WithLoadTimeout(d time.Duration) DiscovererOption {
	return func(dd *Discoverer) { dd.loadTimeout = d }
}

// WithMetrics records unit load outcomes per location.
func WithMetrics(m *metrics.Metrics) DiscovererOption {
	return func(dd *Discoverer) { dd.metrics = m }
}

// NewDiscoverer searches sources in the given order.
func NewDiscoverer(logger *slog.Logger, sources []Source, opts ...DiscovererOption) *Discoverer {
	d := &Discoverer{sources: sources, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover returns a lazy, single-use sequence of descriptors. Locations are
// listed when iteration starts; a second iteration yields nothing.
func (d *Discoverer) Discover(ctx context.Context) iter.Seq[endpoint.APIRequest] {
	return func(yield func(endpoint.APIRequest) bool) {
		if !d.used.CompareAndSwap(false, true) {
			d.logger.WarnContext(ctx, "endpoint discovery already ran")
			return
		}

		type location struct {
			source     Source
			candidates []Candidate
		}
		var locations []location
		for _, src := range d.sources {
			candidates, err := src.Candidates()
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				d.logger.ErrorContext(ctx, "failed to list endpoint location", "location", src.Name(), "error", err)
				continue
			}
			locations = append(locations, location{source: src, candidates: candidates})
		}

		for _, loc := range locations {
			for _, c := range loc.candidates {
				if ctx.Err() != nil {
					d.logger.WarnContext(ctx, "endpoint discovery interrupted", "error", ctx.Err())
					return
				}
				unit, err := d.load(ctx, c)
				if err != nil {
					d.metrics.IncUnitLoadFailure(loc.source.Name())
					logger.Traceback(ctx, d.logger, "failed to load unit", err,
						"unit", c.Name, "path", c.Path, "location", loc.source.Name())
					continue
				}
				d.metrics.IncUnitLoaded(loc.source.Name())
				for _, req := range Scan(unit, d.logger) {
					if !yield(req) {
						return
					}
				}
			}
		}
	}
}

func (d *Discoverer) load(ctx context.Context, c Candidate) (*plugins.Unit, error) {
	if d.loadTimeout <= 0 {
		return c.Loader.Load(ctx, c.Name, c.Path)
	}

	ctx, cancel := context.WithTimeout(ctx, d.loadTimeout)
	defer cancel()

	type result struct {
		unit *plugins.Unit
		err  error
	}
	done := make(chan result, 1)
	go func() {
		u, err := c.Loader.Load(ctx, c.Name, c.Path)
		done <- result{u, err}
	}()

	select {
	case r := <-done:
		if r.err == nil || ctx.Err() == nil {
			return r.unit, r.err
		}
	case <-ctx.Done():
	}
	return nil, &plugins.LoadError{
		Unit: c.Name,
		Path: c.Path,
		Err:  fmt.Errorf("not loaded within %s: %w", d.loadTimeout, ctx.Err()),
	}
}
