package structwire

import (
	"fmt"
	"maps"
	"slices"

	"github.com/hengadev/structwire/internal/wireerr"
)

// EnumSpec maps the names of an enumeration to their i32 wire values.
// Enums are open: a field may hold a value the spec does not name, and
// decoding keeps such values as raw integers.
type EnumSpec struct {
	name    string
	byName  map[string]int32
	byValue map[int32]string
}

// NewEnumSpec builds an enumeration. Names and values must both be unique.
func NewEnumSpec(name string, values map[string]int32) (*EnumSpec, error) {
	if name == "" {
		return nil, wireerr.NewInvalidSpecError("<enum>", "enum name cannot be empty")
	}
	e := &EnumSpec{
		name:    name,
		byName:  make(map[string]int32, len(values)),
		byValue: make(map[int32]string, len(values)),
	}
	for _, n := range slices.Sorted(maps.Keys(values)) {
		v := values[n]
		if n == "" {
			return nil, wireerr.NewInvalidSpecError(name, "enum member name cannot be empty")
		}
		if other, dup := e.byValue[v]; dup {
			return nil, wireerr.NewInvalidSpecError(name, fmt.Sprintf("members '%s' and '%s' share value %d", other, n, v))
		}
		e.byName[n] = v
		e.byValue[v] = n
	}
	return e, nil
}

// MustEnumSpec is NewEnumSpec for package-level tables; it panics on error.
func MustEnumSpec(name string, values map[string]int32) *EnumSpec {
	e, err := NewEnumSpec(name, values)
	if err != nil {
		panic("structwire: " + err.Error())
	}
	return e
}

func (e *EnumSpec) Name() string { return e.name }

func (e *EnumSpec) Len() int { return len(e.byName) }

// NameOf returns the member name for a wire value.
func (e *EnumSpec) NameOf(v int32) (string, bool) {
	n, ok := e.byValue[v]
	return n, ok
}

// ValueOf returns the wire value for a member name.
func (e *EnumSpec) ValueOf(name string) (int32, bool) {
	v, ok := e.byName[name]
	return v, ok
}

// Values returns every declared value in ascending order.
func (e *EnumSpec) Values() []int32 {
	return slices.Sorted(maps.Keys(e.byValue))
}

// EnumValue returns the Value for a member name.
func (e *EnumSpec) EnumValue(name string) (Value, error) {
	v, ok := e.byName[name]
	if !ok {
		return Value{}, wireerr.NewInvalidValueError(e.name, "a member of "+e.name, fmt.Sprintf("'%s'", name), wireerr.Construct)
	}
	return IntValue(int64(v)), nil
}
