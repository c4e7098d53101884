package structwire

import (
	"fmt"
	"math"

	"github.com/hengadev/structwire/internal/wireerr"
)

// FieldDescriptor describes one field of a struct, or the element, key or
// value type of a container when used as a nested descriptor (Ordinal and
// Name are then unused).
//
// Descriptors handed to NewStructSpec are copied; the copies owned by a
// StructSpec are never mutated afterwards and must be treated as
// read-only by anything that reaches them through the spec.
type FieldDescriptor struct {
	Ordinal int16
	Name    string
	Type    TypeTag

	// Elem is set for LIST and SET.
	Elem *FieldDescriptor
	// Key and Val are set for MAP.
	Key *FieldDescriptor
	Val *FieldDescriptor
	// Struct is set for STRUCT.
	Struct *StructSpec
	// Enum optionally names the values of an I32 field.
	Enum *EnumSpec

	Required bool
	// Default is applied at construction when the caller supplies nothing.
	Default Value
}

// FieldOption adjusts a descriptor built by Field.
type FieldOption func(*FieldDescriptor)

// Required marks the field as required.
func Required() FieldOption {
	return func(fd *FieldDescriptor) { fd.Required = true }
}

// Default sets the construction-time default of the field.
func Default(v Value) FieldOption {
	return func(fd *FieldDescriptor) { fd.Default = v }
}

// Field names a type descriptor with an ordinal and a name.
//
//	structwire.Field(2, "b", structwire.MapOf(
//	    structwire.TypeOf(structwire.STRING),
//	    structwire.ListOf(structwire.SetOf(structwire.TypeOf(structwire.I32))),
//	))
func Field(ordinal int16, name string, typ *FieldDescriptor, opts ...FieldOption) *FieldDescriptor {
	fd := &FieldDescriptor{}
	if typ != nil {
		*fd = *typ
	}
	fd.Ordinal = ordinal
	fd.Name = name
	for _, opt := range opts {
		opt(fd)
	}
	return fd
}

// TypeOf returns a bare descriptor for a primitive tag.
func TypeOf(tag TypeTag) *FieldDescriptor {
	return &FieldDescriptor{Type: tag}
}

func ListOf(elem *FieldDescriptor) *FieldDescriptor {
	return &FieldDescriptor{Type: LIST, Elem: elem}
}

func SetOf(elem *FieldDescriptor) *FieldDescriptor {
	return &FieldDescriptor{Type: SET, Elem: elem}
}

func MapOf(key, val *FieldDescriptor) *FieldDescriptor {
	return &FieldDescriptor{Type: MAP, Key: key, Val: val}
}

func StructOf(spec *StructSpec) *FieldDescriptor {
	return &FieldDescriptor{Type: STRUCT, Struct: spec}
}

// EnumOf returns an I32 descriptor carrying enum names.
func EnumOf(enum *EnumSpec) *FieldDescriptor {
	return &FieldDescriptor{Type: I32, Enum: enum}
}

// TypeName renders the descriptor's shape in IDL notation, for example
// "map<string, list<set<i32>>>".
func (fd *FieldDescriptor) TypeName() string {
	if fd == nil {
		return "<nil>"
	}
	switch fd.Type {
	case LIST:
		return fmt.Sprintf("list<%s>", fd.Elem.TypeName())
	case SET:
		return fmt.Sprintf("set<%s>", fd.Elem.TypeName())
	case MAP:
		return fmt.Sprintf("map<%s, %s>", fd.Key.TypeName(), fd.Val.TypeName())
	case STRUCT:
		if fd.Struct != nil {
			return fd.Struct.Name()
		}
		return "struct"
	case I32:
		if fd.Enum != nil {
			return fd.Enum.Name()
		}
		return "i32"
	default:
		return fd.Type.String()
	}
}

// clone deep copies the descriptor tree. Struct and Enum references are
// shared: they are immutable specifications in their own right.
func (fd *FieldDescriptor) clone() *FieldDescriptor {
	if fd == nil {
		return nil
	}
	c := *fd
	c.Elem = fd.Elem.clone()
	c.Key = fd.Key.clone()
	c.Val = fd.Val.clone()
	c.Default = fd.Default.clone()
	return &c
}

// validateShape checks that nested descriptors are present exactly where
// the tag calls for them.
func (fd *FieldDescriptor) validateShape(path string) error {
	if fd == nil {
		return fmt.Errorf("%s: missing type descriptor", path)
	}
	if !fd.Type.IsValid() || fd.Type == STOP {
		return fmt.Errorf("%s: invalid type tag %s", path, fd.Type)
	}

	switch fd.Type {
	case LIST, SET:
		if fd.Key != nil || fd.Val != nil {
			return fmt.Errorf("%s: %s must not carry key or value descriptors", path, fd.Type)
		}
		if fd.Elem == nil {
			return fmt.Errorf("%s: %s requires an element descriptor", path, fd.Type)
		}
		if err := fd.Elem.validateShape(path + ".elem"); err != nil {
			return err
		}
	case MAP:
		if fd.Elem != nil {
			return fmt.Errorf("%s: map must not carry an element descriptor", path)
		}
		if fd.Key == nil || fd.Val == nil {
			return fmt.Errorf("%s: map requires key and value descriptors", path)
		}
		if err := fd.Key.validateShape(path + ".key"); err != nil {
			return err
		}
		if err := fd.Val.validateShape(path + ".val"); err != nil {
			return err
		}
	default:
		if fd.Elem != nil || fd.Key != nil || fd.Val != nil {
			return fmt.Errorf("%s: %s must not carry nested descriptors", path, fd.Type)
		}
	}

	if fd.Type == STRUCT && fd.Struct == nil {
		return fmt.Errorf("%s: struct requires a nested specification", path)
	}
	if fd.Type != STRUCT && fd.Struct != nil {
		return fmt.Errorf("%s: %s must not reference a struct specification", path, fd.Type)
	}
	if fd.Enum != nil && fd.Type != I32 {
		return fmt.Errorf("%s: enum %s must be carried as i32, not %s", path, fd.Enum.Name(), fd.Type)
	}
	return nil
}

// checkValue verifies that v can be written with descriptor fd. Container
// elements must be present.
func (fd *FieldDescriptor) checkValue(name string, v Value, action wireerr.Action) error {
	mismatch := func() error {
		return wireerr.NewInvalidValueError(name, fd.TypeName(), v.Kind().String(), action)
	}

	switch fd.Type {
	case BOOL:
		if v.kind != KindBool {
			return mismatch()
		}
	case BYTE, I16, I32, I64:
		if v.kind != KindInt {
			return mismatch()
		}
		if !intFits(fd.Type, v.i) {
			return wireerr.NewInvalidValueError(name, fd.Type.String(), fmt.Sprintf("out of range value %d", v.i), action)
		}
	case DOUBLE:
		if v.kind != KindFloat {
			return mismatch()
		}
	case STRING:
		if v.kind != KindString {
			return mismatch()
		}
	case LIST, SET:
		want := KindList
		if fd.Type == SET {
			want = KindSet
		}
		if v.kind != want {
			return mismatch()
		}
		for i, e := range v.elems {
			if err := fd.Elem.checkValue(fmt.Sprintf("%s[%d]", name, i), e, action); err != nil {
				return err
			}
		}
	case MAP:
		if v.kind != KindMap {
			return mismatch()
		}
		for i, e := range v.entries {
			if err := fd.Key.checkValue(fmt.Sprintf("%s.key[%d]", name, i), e.Key, action); err != nil {
				return err
			}
			if err := fd.Val.checkValue(fmt.Sprintf("%s.val[%d]", name, i), e.Value, action); err != nil {
				return err
			}
		}
	case STRUCT:
		if v.kind != KindRecord {
			return mismatch()
		}
		if !v.rec.spec.SameShape(fd.Struct) {
			return wireerr.NewSpecMismatchError(fd.Struct.Name(), specName(v.rec.spec), action)
		}
	default:
		return mismatch()
	}
	return nil
}

func intFits(tag TypeTag, i int64) bool {
	switch tag {
	case BYTE:
		return i >= math.MinInt8 && i <= math.MaxInt8
	case I16:
		return i >= math.MinInt16 && i <= math.MaxInt16
	case I32:
		return i >= math.MinInt32 && i <= math.MaxInt32
	default:
		return true
	}
}
