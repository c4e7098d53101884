package structwire

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/hengadev/errsx"

	"github.com/hengadev/structwire/internal/wireerr"
)

// FieldState records how a field got its current value.
type FieldState uint8

const (
	// FieldAbsent means the field holds nothing.
	FieldAbsent FieldState = iota
	// FieldDefaulted means the declared default was applied because the
	// caller (or the stream) supplied nothing.
	FieldDefaulted
	// FieldSet means the value was supplied explicitly or read from a stream.
	FieldSet
)

func (s FieldState) String() string {
	switch s {
	case FieldAbsent:
		return "absent"
	case FieldDefaulted:
		return "defaulted"
	case FieldSet:
		return "set"
	default:
		return "unknown"
	}
}

// Record is one instance of a record type, always interpreted through its
// StructSpec. Slots are laid out in the spec's ordinal order.
type Record struct {
	spec   *StructSpec
	values []Value
	states []FieldState
}

// NewRecord builds a record from optional per-field inputs keyed by field
// name. Omitted (or absent) inputs resolve to the field's default, or stay
// absent when there is none. Every invalid input is reported at once.
func NewRecord(spec *StructSpec, inputs map[string]Value) (*Record, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: record specification cannot be nil", wireerr.ErrInvalidSpec)
	}
	r := newBlankRecord(spec)

	var errs errsx.Map
	var cause error
	for _, name := range slices.Sorted(maps.Keys(inputs)) {
		v := inputs[name]
		if err := r.Set(name, v); err != nil {
			if cause == nil {
				cause = contractCause(err)
			}
			errs.Set(fmt.Sprintf("field '%s'", name), err)
		}
	}
	if !errs.IsEmpty() {
		return nil, fmt.Errorf("%w: construct '%s': %w", cause, spec.name, errs.AsError())
	}
	return r, nil
}

// contractCause picks the sentinel a construction failure is reported as.
func contractCause(err error) error {
	for _, sentinel := range []error{wireerr.ErrUnknownField, wireerr.ErrSpecMismatch, wireerr.ErrMissingRequiredField} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return wireerr.ErrInvalidValue
}

// MustRecord is NewRecord that panics on invalid input. Intended for
// tests and static fixtures.
func MustRecord(spec *StructSpec, inputs map[string]Value) *Record {
	r, err := NewRecord(spec, inputs)
	if err != nil {
		panic("structwire: " + err.Error())
	}
	return r
}

// newBlankRecord applies defaults only.
func newBlankRecord(spec *StructSpec) *Record {
	r := &Record{
		spec:   spec,
		values: make([]Value, len(spec.fields)),
		states: make([]FieldState, len(spec.fields)),
	}
	r.applyDefaults()
	return r
}

func (r *Record) applyDefaults() {
	for i, fd := range r.spec.fields {
		if fd.Default.IsPresent() {
			r.values[i] = fd.Default.clone()
			r.states[i] = FieldDefaulted
		} else {
			r.values[i] = Value{}
			r.states[i] = FieldAbsent
		}
	}
}

func (r *Record) Spec() *StructSpec { return r.spec }

func (r *Record) slot(name string) (int, error) {
	ordinal, ok := r.spec.byName[name]
	if !ok {
		return 0, wireerr.NewUnknownFieldError(r.spec.name, name)
	}
	idx, _ := r.spec.position(ordinal)
	return idx, nil
}

// Get returns the field's value; unknown names and absent fields both
// yield the absent Value.
func (r *Record) Get(name string) Value {
	idx, err := r.slot(name)
	if err != nil {
		return Value{}
	}
	return r.values[idx]
}

// GetOrdinal returns the value stored under ordinal.
func (r *Record) GetOrdinal(ordinal int16) Value {
	idx, ok := r.spec.position(ordinal)
	if !ok {
		return Value{}
	}
	return r.values[idx]
}

// State reports how the named field got its value.
func (r *Record) State(name string) FieldState {
	idx, err := r.slot(name)
	if err != nil {
		return FieldAbsent
	}
	return r.states[idx]
}

// IsSet reports whether the named field holds a value, explicit or default.
func (r *Record) IsSet(name string) bool {
	return r.Get(name).IsPresent()
}

// Set assigns a field. Setting the absent Value clears it.
func (r *Record) Set(name string, v Value) error {
	idx, err := r.slot(name)
	if err != nil {
		return err
	}
	if !v.IsPresent() {
		r.values[idx] = Value{}
		r.states[idx] = FieldAbsent
		return nil
	}
	fd := r.spec.fields[idx]
	if err := fd.checkValue(name, v, wireerr.Construct); err != nil {
		return err
	}
	r.values[idx] = v
	r.states[idx] = FieldSet
	return nil
}

// Unset clears a field without falling back to its default.
func (r *Record) Unset(name string) error {
	return r.Set(name, Value{})
}

// Reset returns every field to its construction state: default when one
// is declared, absent otherwise.
func (r *Record) Reset() {
	r.applyDefaults()
}

// Validate reports the first required field, in ordinal order, that holds
// nothing.
func (r *Record) Validate() error {
	return r.checkRequired(wireerr.Validate)
}

func (r *Record) checkRequired(action wireerr.Action) error {
	for i, fd := range r.spec.fields {
		if fd.Required && !r.values[i].IsPresent() {
			return wireerr.NewMissingRequiredFieldError(r.spec.name, fd.Name, action)
		}
	}
	return nil
}

// Equal compares presence and values field by field. How a value got
// there (default or explicit) does not matter.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	if !r.spec.SameShape(other.spec) || len(r.values) != len(other.values) {
		return false
	}
	for i := range r.values {
		if !Equal(r.values[i], other.values[i]) {
			return false
		}
	}
	return true
}

// Clone deep copies the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{
		spec:   r.spec,
		values: make([]Value, len(r.values)),
		states: slices.Clone(r.states),
	}
	for i, v := range r.values {
		c.values[i] = v.clone()
	}
	return c
}

// Fields returns the present fields keyed by name.
func (r *Record) Fields() map[string]Value {
	out := make(map[string]Value, len(r.values))
	for i, fd := range r.spec.fields {
		if r.values[i].IsPresent() {
			out[fd.Name] = r.values[i]
		}
	}
	return out
}

func (r *Record) String() string {
	if r == nil {
		return "<nil>"
	}
	var sb strings.Builder
	sb.WriteString(r.spec.name)
	sb.WriteString("{")
	first := true
	for i, fd := range r.spec.fields {
		if !r.values[i].IsPresent() {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(fd.Name)
		sb.WriteString(": ")
		r.values[i].format(&sb)
	}
	sb.WriteString("}")
	return sb.String()
}
