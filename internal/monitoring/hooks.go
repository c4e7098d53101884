package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SkipEvent describes a field the decoder consumed without assigning it.
type SkipEvent struct {
	Struct   string
	Field    string // empty for unknown ordinals
	Ordinal  int16
	WireType string
	Reason   SkipReason
}

// SkipReason explains why a field was skipped.
type SkipReason string

const (
	SkipUnknownOrdinal SkipReason = "unknown_ordinal"
	SkipTypeMismatch   SkipReason = "type_mismatch"
)

// ObservabilityHook receives engine events. Implementations must be safe
// for concurrent use; the engine calls them synchronously.
type ObservabilityHook interface {
	// Called before an encode or decode starts
	OnProcessStart(ctx context.Context, operation string, metadata map[string]any)

	// Called after it completes (success or failure)
	OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any)

	// Called when an encode or decode fails
	OnError(ctx context.Context, operation string, err error, metadata map[string]any)

	// Called for every field absorbed by schema-evolution tolerance
	OnFieldSkipped(ctx context.Context, event SkipEvent)
}

// NoOpObservabilityHook is a no-op implementation of ObservabilityHook
type NoOpObservabilityHook struct{}

func (n *NoOpObservabilityHook) OnProcessStart(ctx context.Context, operation string, metadata map[string]any) {
}
func (n *NoOpObservabilityHook) OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
}
func (n *NoOpObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
}
func (n *NoOpObservabilityHook) OnFieldSkipped(ctx context.Context, event SkipEvent) {}

// SlogObservabilityHook logs engine events through log/slog.
type SlogObservabilityHook struct {
	logger *slog.Logger
}

// NewSlogObservabilityHook creates a logging hook. A nil logger falls back
// to slog.Default().
func NewSlogObservabilityHook(logger *slog.Logger) *SlogObservabilityHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObservabilityHook{logger: logger}
}

func (l *SlogObservabilityHook) OnProcessStart(ctx context.Context, operation string, metadata map[string]any) {
	l.logger.DebugContext(ctx, "operation started", "operation", operation, "metadata", metadata)
}

func (l *SlogObservabilityHook) OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	if err != nil {
		l.logger.ErrorContext(ctx, "operation failed", "operation", operation, "duration", duration, "error", err, "metadata", metadata)
		return
	}
	l.logger.DebugContext(ctx, "operation completed", "operation", operation, "duration", duration, "metadata", metadata)
}

func (l *SlogObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	l.logger.WarnContext(ctx, "operation error", "operation", operation, "error", err, "metadata", metadata)
}

func (l *SlogObservabilityHook) OnFieldSkipped(ctx context.Context, event SkipEvent) {
	l.logger.DebugContext(ctx, "field skipped",
		"struct", event.Struct,
		"field", event.Field,
		"ordinal", event.Ordinal,
		"wire_type", event.WireType,
		"reason", string(event.Reason),
	)
}

// MetricsObservabilityHook collects metrics for operations
type MetricsObservabilityHook struct {
	collector MetricsCollector
}

// NewMetricsObservabilityHook creates a new metrics observability hook
func NewMetricsObservabilityHook(collector MetricsCollector) *MetricsObservabilityHook {
	if collector == nil {
		collector = &NoOpMetricsCollector{}
	}
	return &MetricsObservabilityHook{
		collector: collector,
	}
}

func (m *MetricsObservabilityHook) OnProcessStart(ctx context.Context, operation string, metadata map[string]any) {
	m.collector.IncrementCounter("structwire.process.started", operationTags(operation, metadata))
}

func (m *MetricsObservabilityHook) OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	tags := operationTags(operation, metadata)
	if err != nil {
		tags["status"] = "error"
		m.collector.IncrementCounter("structwire.process.failed", tags)
	} else {
		tags["status"] = "success"
		m.collector.IncrementCounter("structwire.process.succeeded", tags)
	}

	m.collector.RecordTiming("structwire.process.duration", duration, tags)
}

func (m *MetricsObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	tags := map[string]string{
		"operation": operation,
		"error":     fmt.Sprintf("%T", err),
	}
	m.collector.IncrementCounter("structwire.errors", tags)
}

func (m *MetricsObservabilityHook) OnFieldSkipped(ctx context.Context, event SkipEvent) {
	m.collector.IncrementCounter("structwire.fields.skipped", map[string]string{
		"struct": event.Struct,
		"reason": string(event.Reason),
	})
}

func operationTags(operation string, metadata map[string]any) map[string]string {
	tags := map[string]string{"operation": operation}
	if name, ok := metadata["struct"].(string); ok {
		tags["struct"] = name
	}
	return tags
}

// CompositeObservabilityHook combines multiple hooks
type CompositeObservabilityHook struct {
	hooks []ObservabilityHook
}

// NewCompositeObservabilityHook creates a new composite hook
func NewCompositeObservabilityHook(hooks ...ObservabilityHook) *CompositeObservabilityHook {
	return &CompositeObservabilityHook{
		hooks: hooks,
	}
}

func (c *CompositeObservabilityHook) OnProcessStart(ctx context.Context, operation string, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnProcessStart(ctx, operation, metadata)
	}
}

func (c *CompositeObservabilityHook) OnProcessComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnProcessComplete(ctx, operation, duration, err, metadata)
	}
}

func (c *CompositeObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnError(ctx, operation, err, metadata)
	}
}

func (c *CompositeObservabilityHook) OnFieldSkipped(ctx context.Context, event SkipEvent) {
	for _, hook := range c.hooks {
		hook.OnFieldSkipped(ctx, event)
	}
}
