package transport

import (
	"reliudp/internal/clock"
	"reliudp/internal/telemetry/events"
	"reliudp/internal/telemetry/log"
	"reliudp/internal/telemetry/metrics"
)

// Option configures optional Endpoint collaborators. The zero value of
// each collaborator is a safe no-op, so Option is the only supported
// way to opt into logging, metrics, or event hooks.
type Option func(*Endpoint)

// WithLogger attaches lg to the Endpoint, tagged with the Endpoint's
// correlation id. A nil lg is ignored.
func WithLogger(lg *log.Logger) Option {
	return func(e *Endpoint) {
		if lg != nil {
			e.log = lg.WithField("conn", e.id.String())
		}
	}
}

// WithMetrics attaches m to the Endpoint. Callers are responsible for
// registering m's collectors with a prometheus.Registerer; the
// Endpoint only updates the values. A nil m is ignored.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Endpoint) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithEvents attaches an events.Manager so callers can observe
// retransmissions, duplicate drops, and malformed frames without
// depending on the Logger or Metrics collaborators. A nil mgr is
// ignored.
func WithEvents(mgr *events.Manager) Option {
	return func(e *Endpoint) {
		if mgr != nil {
			e.events = mgr
		}
	}
}

// WithClock overrides the Endpoint's time source, primarily for tests
// that need deterministic timeout/retransmit behavior. A nil c is
// ignored.
func WithClock(c clock.Clock) Option {
	return func(e *Endpoint) {
		if c != nil {
			e.clock = c
		}
	}
}
