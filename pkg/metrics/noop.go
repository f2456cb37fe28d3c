package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Noop is a Collector that ignores every event. Callers that do not
// care about metrics can pass it anywhere a Collector is expected
// instead of guarding with nil checks.
type Noop struct {
	registry *prometheus.Registry
}

// NewNoop creates a no-op collector with an empty registry.
func NewNoop() *Noop {
	return &Noop{registry: prometheus.NewRegistry()}
}

func (*Noop) RecordRequest(string, string, time.Duration) {}

func (*Noop) RecordError(string, string) {}

func (*Noop) RecordActiveRequests(string, int) {}

func (*Noop) RecordResponseSize(string, int) {}

// GetRegistry returns the collector's empty registry.
func (n *Noop) GetRegistry() *prometheus.Registry {
	return n.registry
}

var _ Collector = (*Noop)(nil)
