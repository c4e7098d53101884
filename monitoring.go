package structwire

import "github.com/hengadev/structwire/internal/monitoring"

// ObservabilityHook receives encode/decode lifecycle events and one
// OnFieldSkipped call for every field absorbed by decode-time tolerance.
type ObservabilityHook = monitoring.ObservabilityHook

// SkipEvent describes a field that was consumed from a stream but not
// assigned.
type SkipEvent = monitoring.SkipEvent

// SkipReason explains a SkipEvent.
type SkipReason = monitoring.SkipReason

const (
	SkipUnknownOrdinal = monitoring.SkipUnknownOrdinal
	SkipTypeMismatch   = monitoring.SkipTypeMismatch
)

// MetricsCollector receives engine counters and timings.
type MetricsCollector = monitoring.MetricsCollector

// InMemoryMetricsCollector keeps metrics in memory.
type InMemoryMetricsCollector = monitoring.InMemoryMetricsCollector

// NoOpObservabilityHook ignores every event.
type NoOpObservabilityHook = monitoring.NoOpObservabilityHook

// NewInMemoryMetricsCollector creates an empty in-memory collector.
func NewInMemoryMetricsCollector() *InMemoryMetricsCollector {
	return monitoring.NewInMemoryMetricsCollector()
}
