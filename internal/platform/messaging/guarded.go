package messaging

import (
	"context"
	"log/slog"
	"sync"
)

// Guarded wraps a Publisher so an unavailable message bus is reported once
// instead of on every change. After failThreshold consecutive failures the
// bus is considered down: errors are swallowed and logged at debug level.
// Every call still reaches the wrapped publisher, and recoverThreshold
// consecutive successes mark the bus up again.
type Guarded struct {
	next             Publisher
	logger           *slog.Logger
	failThreshold    int
	recoverThreshold int

	mu     sync.Mutex
	down   bool
	streak int
}

// GuardOption configures a Guarded publisher.
type GuardOption func(*Guarded)

// WithThresholds overrides the default of 5 failures and 3 successes.
func WithThresholds(fail, recover int) GuardOption {
	return func(g *Guarded) {
		if fail > 0 {
			g.failThreshold = fail
		}
		if recover > 0 {
			g.recoverThreshold = recover
		}
	}
}

// NewGuarded wraps next.
func NewGuarded(next Publisher, logger *slog.Logger, opts ...GuardOption) *Guarded {
	g := &Guarded{next: next, logger: logger, failThreshold: 5, recoverThreshold: 3}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Publish forwards to the wrapped publisher. While the bus is down errors
// are logged at debug level and dropped.
func (g *Guarded) Publish(ctx context.Context, topic string, payload any) error {
	err := g.next.Publish(ctx, topic, payload)
	down, changed := g.record(err == nil)
	switch {
	case changed && down:
		g.logger.ErrorContext(ctx, "message bus unavailable, dropping notifications", "error", err)
	case changed:
		g.logger.InfoContext(ctx, "message bus recovered")
	}
	if err != nil && down {
		g.logger.DebugContext(ctx, "notification dropped", "topic", topic, "error", err)
		return nil
	}
	return err
}

// Down reports whether notifications are currently being dropped.
func (g *Guarded) Down() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.down
}

// record counts an outcome and reports the state after it and whether it
// flipped. streak counts failures while up and successes while down.
func (g *Guarded) record(ok bool) (down, changed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if ok == g.down {
		g.streak++
	} else {
		g.streak = 0
	}
	threshold := g.failThreshold
	if g.down {
		threshold = g.recoverThreshold
	}
	if g.streak >= threshold {
		g.down = !g.down
		g.streak = 0
		changed = true
	}
	return g.down, changed
}
