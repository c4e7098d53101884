package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsObservabilityHook(t *testing.T) {
	collector := NewInMemoryMetricsCollector()
	hook := NewMetricsObservabilityHook(collector)
	ctx := context.Background()
	metadata := map[string]any{"struct": "Foo"}

	hook.OnProcessStart(ctx, "encode", metadata)
	assert.Equal(t, int64(1), collector.GetCounter("structwire.process.started", map[string]string{
		"operation": "encode",
		"struct":    "Foo",
	}))

	hook.OnProcessComplete(ctx, "encode", 5*time.Millisecond, nil, metadata)
	success := map[string]string{"operation": "encode", "struct": "Foo", "status": "success"}
	assert.Equal(t, int64(1), collector.GetCounter("structwire.process.succeeded", success))
	assert.Equal(t, []time.Duration{5 * time.Millisecond}, collector.GetTimings("structwire.process.duration", success))

	testErr := errors.New("boom")
	hook.OnError(ctx, "decode", testErr, metadata)
	hook.OnProcessComplete(ctx, "decode", time.Millisecond, testErr, metadata)
	assert.Equal(t, int64(1), collector.GetCounter("structwire.errors", map[string]string{
		"operation": "decode",
		"error":     "*errors.errorString",
	}))
	assert.Equal(t, int64(1), collector.GetCounter("structwire.process.failed", map[string]string{
		"operation": "decode", "struct": "Foo", "status": "error",
	}))

	hook.OnFieldSkipped(ctx, SkipEvent{Struct: "Foo", Ordinal: 9, Reason: SkipUnknownOrdinal})
	hook.OnFieldSkipped(ctx, SkipEvent{Struct: "Foo", Ordinal: 9, Reason: SkipUnknownOrdinal})
	assert.Equal(t, int64(2), collector.GetCounter("structwire.fields.skipped", map[string]string{
		"struct": "Foo", "reason": "unknown_ordinal",
	}))
}

func TestSlogObservabilityHook(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hook := NewSlogObservabilityHook(logger)

	hook.OnFieldSkipped(context.Background(), SkipEvent{
		Struct:   "Foo",
		Field:    "c",
		Ordinal:  3,
		WireType: "string",
		Reason:   SkipTypeMismatch,
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "field skipped", entry["msg"])
	assert.Equal(t, "Foo", entry["struct"])
	assert.Equal(t, "c", entry["field"])
	assert.Equal(t, float64(3), entry["ordinal"])
	assert.Equal(t, "type_mismatch", entry["reason"])
}

func TestSlogObservabilityHook_NilLogger(t *testing.T) {
	hook := NewSlogObservabilityHook(nil)
	assert.NotPanics(t, func() {
		hook.OnProcessStart(context.Background(), "encode", nil)
	})
}

type countingHook struct {
	NoOpObservabilityHook
	starts, skips int
}

func (c *countingHook) OnProcessStart(context.Context, string, map[string]any) { c.starts++ }
func (c *countingHook) OnFieldSkipped(context.Context, SkipEvent)              { c.skips++ }

func TestCompositeObservabilityHook(t *testing.T) {
	first, second := &countingHook{}, &countingHook{}
	composite := NewCompositeObservabilityHook(first, second)
	ctx := context.Background()

	composite.OnProcessStart(ctx, "decode", nil)
	composite.OnFieldSkipped(ctx, SkipEvent{})
	composite.OnError(ctx, "decode", errors.New("x"), nil)
	composite.OnProcessComplete(ctx, "decode", time.Second, nil, nil)

	for _, h := range []*countingHook{first, second} {
		assert.Equal(t, 1, h.starts)
		assert.Equal(t, 1, h.skips)
	}
}
