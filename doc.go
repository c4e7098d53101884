// Package structwire serializes records described by runtime schemas.
//
// A StructSpec lists the fields of one record type: an ordinal, a name, a
// type tree and optional required/default markers. The Engine walks a spec
// to write a Record through any ProtocolWriter, or to rebuild one from a
// ProtocolReader. Readers tolerate schema evolution: fields with unknown
// ordinals, or whose wire type disagrees with the spec, are consumed and
// dropped instead of failing the record.
//
// # Key Features
//
//   - One engine for every wire protocol (see protocol/binary and
//     protocol/compact)
//   - Forward and backward compatible decoding with skip support
//   - Required fields, defaults and presence tracking per field
//   - Exception records usable as Go errors
//   - Structural ids that change only when the wire shape changes
//   - Observability hooks, metrics and slog integration
//
// # Quick Start
//
// Describe a record type:
//
//	var fooSpec = structwire.MustStructSpec("Foo", []*structwire.FieldDescriptor{
//	    structwire.Field(1, "a", structwire.ListOf(structwire.TypeOf(structwire.STRING))),
//	    structwire.Field(3, "c", structwire.TypeOf(structwire.I64), structwire.Default(structwire.IntValue(7))),
//	})
//
// Build, encode and decode a record:
//
//	rec, err := structwire.NewRecord(fooSpec, map[string]structwire.Value{
//	    "a": structwire.ListValue(structwire.StringValue("x")),
//	})
//	data, err := structwire.Marshal(compact.Protocol, rec)
//	back, err := structwire.Unmarshal(compact.Protocol, fooSpec, data)
//
// # Error Handling
//
// Failures wrap one of the sentinel errors so callers can branch with
// errors.Is:
//
//	if errors.Is(err, structwire.ErrMissingRequiredField) {
//	    // the record is incomplete
//	}
//
// IsContractError, IsStreamError and IsSchemaError group them by cause.
//
// # Concurrency
//
// Specs and engines are immutable once built and may be shared freely.
// Records, writers and readers belong to one goroutine at a time.
package structwire
