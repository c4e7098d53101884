package structwire

import (
	"fmt"
	"log/slog"

	"github.com/hengadev/structwire/internal/monitoring"
)

// EngineOption configures an Engine.
type EngineOption func(e *Engine) error

// WithMaxDepth bounds the nesting of structs and containers accepted by
// the engine. Streams nesting deeper fail with ErrMalformedStream.
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) error {
		if depth <= 0 {
			return fmt.Errorf("max depth must be positive, got %d", depth)
		}
		e.maxDepth = depth
		return nil
	}
}

// WithObservabilityHook adds a hook receiving engine events.
func WithObservabilityHook(hook ObservabilityHook) EngineOption {
	return func(e *Engine) error {
		if hook == nil {
			return fmt.Errorf("observability hook cannot be nil")
		}
		e.hooks = append(e.hooks, hook)
		return nil
	}
}

// WithMetricsCollector reports counters and timings to collector.
func WithMetricsCollector(collector MetricsCollector) EngineOption {
	return func(e *Engine) error {
		if collector == nil {
			return fmt.Errorf("metrics collector cannot be nil")
		}
		e.hooks = append(e.hooks, monitoring.NewMetricsObservabilityHook(collector))
		return nil
	}
}

// WithLogger logs engine events, including absorbed schema drift, at
// debug level.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		e.hooks = append(e.hooks, monitoring.NewSlogObservabilityHook(logger))
		return nil
	}
}
