package structwire

import (
	"fmt"
	"strings"
)

// TypeTag identifies the wire-level kind of a value. The numeric values
// are the ones written by the binary protocol and must not change.
type TypeTag int8

const (
	STOP   TypeTag = 0
	BOOL   TypeTag = 2
	BYTE   TypeTag = 3
	DOUBLE TypeTag = 4
	I16    TypeTag = 6
	I32    TypeTag = 8
	I64    TypeTag = 10
	STRING TypeTag = 11
	STRUCT TypeTag = 12
	MAP    TypeTag = 13
	SET    TypeTag = 14
	LIST   TypeTag = 15
)

// String returns the lowercase IDL spelling of the tag.
func (t TypeTag) String() string {
	switch t {
	case STOP:
		return "stop"
	case BOOL:
		return "bool"
	case BYTE:
		return "byte"
	case DOUBLE:
		return "double"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case STRING:
		return "string"
	case STRUCT:
		return "struct"
	case MAP:
		return "map"
	case SET:
		return "set"
	case LIST:
		return "list"
	default:
		return fmt.Sprintf("unknown(%d)", int8(t))
	}
}

// IsValid reports whether t is one of the declared tags.
func (t TypeTag) IsValid() bool {
	switch t {
	case STOP, BOOL, BYTE, DOUBLE, I16, I32, I64, STRING, STRUCT, MAP, SET, LIST:
		return true
	default:
		return false
	}
}

// IsContainer reports whether t is LIST, SET or MAP.
func (t TypeTag) IsContainer() bool {
	return t == LIST || t == SET || t == MAP
}

// IsScalar reports whether t is a primitive value tag.
func (t TypeTag) IsScalar() bool {
	switch t {
	case BOOL, BYTE, DOUBLE, I16, I32, I64, STRING:
		return true
	default:
		return false
	}
}

// ParseTypeTag parses the IDL spelling of a tag. "binary" is accepted as
// an alias of STRING.
func ParseTypeTag(s string) (TypeTag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool":
		return BOOL, nil
	case "byte", "i8":
		return BYTE, nil
	case "double":
		return DOUBLE, nil
	case "i16":
		return I16, nil
	case "i32":
		return I32, nil
	case "i64":
		return I64, nil
	case "string", "binary":
		return STRING, nil
	case "struct":
		return STRUCT, nil
	case "map":
		return MAP, nil
	case "set":
		return SET, nil
	case "list":
		return LIST, nil
	default:
		return STOP, fmt.Errorf("invalid type tag '%s'", s)
	}
}
