package structwire

import (
	"context"
	"fmt"
	"time"

	"github.com/hengadev/structwire/internal/monitoring"
	"github.com/hengadev/structwire/internal/wireerr"
)

// DefaultMaxDepth is the nesting ceiling used when none is configured.
const DefaultMaxDepth = 64

// Engine walks a StructSpec to encode records into a ProtocolWriter or
// decode them from a ProtocolReader. It keeps no per-call state, so one
// Engine may serve any number of concurrent calls as long as each call
// owns its writer or reader.
type Engine struct {
	maxDepth int
	hooks    []ObservabilityHook
	hook     ObservabilityHook
}

// NewEngine builds an engine from options.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	e := &Engine{maxDepth: DefaultMaxDepth}
	for i, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("invalid engine option %d: %w", i+1, err)
		}
	}
	switch len(e.hooks) {
	case 0:
		e.hook = &monitoring.NoOpObservabilityHook{}
	case 1:
		e.hook = e.hooks[0]
	default:
		e.hook = monitoring.NewCompositeObservabilityHook(e.hooks...)
	}
	return e, nil
}

var defaultEngine = &Engine{
	maxDepth: DefaultMaxDepth,
	hook:     &monitoring.NoOpObservabilityHook{},
}

// MaxDepth returns the configured nesting ceiling.
func (e *Engine) MaxDepth() int { return e.maxDepth }

// Encode writes rec through w using the default engine. See Engine.Encode.
func Encode(spec *StructSpec, rec *Record, w ProtocolWriter) error {
	return defaultEngine.Encode(context.Background(), spec, rec, w)
}

// Decode reads one record of type spec from r using the default engine.
// See Engine.Decode.
func Decode(spec *StructSpec, r ProtocolReader) (*Record, error) {
	return defaultEngine.Decode(context.Background(), spec, r)
}

// Skip consumes and discards one value of type tag from r.
func Skip(r ProtocolReader, tag TypeTag) error {
	d := &decoder{engine: defaultEngine, ctx: context.Background(), r: r}
	return d.skip(tag, 1)
}

// Encode writes rec, which must have been built for spec (or a spec of
// identical shape), through w. Fields are written in ascending ordinal
// order; absent optional fields are omitted. A required field holding
// nothing fails the call with ErrMissingRequiredField. After a failure the
// writer may hold a partial record. The context only flows to hooks.
func (e *Engine) Encode(ctx context.Context, spec *StructSpec, rec *Record, w ProtocolWriter) error {
	metadata := map[string]any{"struct": specName(spec)}
	return e.observe(ctx, "encode", metadata, func() error {
		if spec == nil {
			return fmt.Errorf("%w: encode: specification cannot be nil", wireerr.ErrInvalidSpec)
		}
		if rec == nil {
			return wireerr.NewInvalidValueError(spec.name, spec.name+" record", "nil", wireerr.Encode)
		}
		if rec.spec == nil {
			return wireerr.NewInvalidValueError(spec.name, spec.name+" record", "record without specification", wireerr.Encode)
		}
		if !spec.SameShape(rec.spec) {
			return wireerr.NewSpecMismatchError(spec.name, rec.spec.name, wireerr.Encode)
		}
		enc := &encoder{engine: e, w: w}
		return enc.encodeStruct(spec, rec, 0)
	})
}

// Decode reads one record of type spec from r into a fresh Record. Fields
// with unknown ordinals, or whose wire type disagrees with the spec, are
// consumed and dropped; the rest of the record is kept. A required field
// left empty after the stop marker fails with ErrMissingRequiredField and
// any structural inconsistency fails with ErrMalformedStream. Nothing is
// returned on failure.
func (e *Engine) Decode(ctx context.Context, spec *StructSpec, r ProtocolReader) (*Record, error) {
	var rec *Record
	metadata := map[string]any{"struct": specName(spec)}
	err := e.observe(ctx, "decode", metadata, func() error {
		if spec == nil {
			return fmt.Errorf("%w: decode: specification cannot be nil", wireerr.ErrInvalidSpec)
		}
		d := &decoder{engine: e, ctx: ctx, r: r}
		var err error
		rec, err = d.decodeStruct(spec, 0)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (e *Engine) observe(ctx context.Context, operation string, metadata map[string]any, fn func() error) error {
	start := time.Now()
	e.hook.OnProcessStart(ctx, operation, metadata)
	err := fn()
	if err != nil {
		e.hook.OnError(ctx, operation, err, metadata)
	}
	e.hook.OnProcessComplete(ctx, operation, time.Since(start), err, metadata)
	return err
}

func specName(spec *StructSpec) string {
	if spec == nil {
		return ""
	}
	return spec.name
}
