package structwire

import (
	"context"
	"sync"
)

// fooSpec and bazSpec mirror the two-level fixture used throughout the
// tests: a struct mixing nested containers with defaulted scalars, and an
// exception carrying a message.
var (
	fooSpec = MustStructSpec("Foo", []*FieldDescriptor{
		Field(1, "a", ListOf(TypeOf(STRING))),
		Field(2, "b", MapOf(TypeOf(STRING), ListOf(SetOf(TypeOf(I32))))),
		Field(3, "c", TypeOf(I64), Default(IntValue(7))),
		Field(4, "d", TypeOf(BOOL), Default(BoolValue(false))),
	})

	bazSpec = MustStructSpec("Baz", []*FieldDescriptor{
		Field(1, "message", TypeOf(STRING), Default(StringValue(""))),
	}, AsException("message"))

	citySpec = MustEnumSpec("City", map[string]int32{
		"NYC": 0,
		"MPK": 1,
		"SEA": 2,
		"LON": 3,
	})

	pointSpec = MustStructSpec("Point", []*FieldDescriptor{
		Field(1, "x", TypeOf(I32), Required()),
		Field(2, "y", TypeOf(I32), Required()),
	})

	shapeSpec = MustStructSpec("Shape", []*FieldDescriptor{
		Field(1, "name", TypeOf(STRING), Required()),
		Field(2, "points", ListOf(StructOf(pointSpec))),
		Field(3, "origin", StructOf(pointSpec)),
		Field(4, "city", EnumOf(citySpec)),
		Field(5, "weight", TypeOf(DOUBLE)),
		Field(6, "flags", TypeOf(BYTE)),
		Field(7, "rank", TypeOf(I16)),
		Field(8, "tags", SetOf(TypeOf(STRING))),
		Field(9, "blob", TypeOf(STRING)),
	})
)

func ints(vs ...int64) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = IntValue(v)
	}
	return out
}

func strs(vs ...string) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = StringValue(v)
	}
	return out
}

// recordingHook keeps every skip event.
type recordingHook struct {
	NoOpObservabilityHook
	mu     sync.Mutex
	skips  []SkipEvent
	errors []error
}

func (h *recordingHook) OnFieldSkipped(_ context.Context, e SkipEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.skips = append(h.skips, e)
}

func (h *recordingHook) OnError(_ context.Context, _ string, err error, _ map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, err)
}
