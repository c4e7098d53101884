package structwire

import (
	"fmt"

	"github.com/hengadev/structwire/internal/wireerr"
)

type encoder struct {
	engine *Engine
	w      ProtocolWriter
}

func (enc *encoder) encodeStruct(spec *StructSpec, rec *Record, depth int) error {
	if depth > enc.engine.maxDepth {
		return wireerr.NewDepthExceededError(spec.name, enc.engine.maxDepth, wireerr.Encode)
	}
	if err := enc.w.WriteStructBegin(spec.name); err != nil {
		return writeError(spec.name, "", err)
	}

	for i, fd := range spec.fields {
		v := rec.values[i]
		if !v.IsPresent() {
			if fd.Required {
				return wireerr.NewMissingRequiredFieldError(spec.name, fd.Name, wireerr.Encode)
			}
			continue
		}
		if err := enc.w.WriteFieldBegin(fd.Name, fd.Type, fd.Ordinal); err != nil {
			return writeError(spec.name, fd.Name, err)
		}
		if err := enc.encodeValue(fd, fd.Name, v, depth); err != nil {
			return err
		}
		if err := enc.w.WriteFieldEnd(); err != nil {
			return writeError(spec.name, fd.Name, err)
		}
	}

	if err := enc.w.WriteFieldStop(); err != nil {
		return writeError(spec.name, "", err)
	}
	if err := enc.w.WriteStructEnd(); err != nil {
		return writeError(spec.name, "", err)
	}
	return nil
}

// encodeValue writes v according to fd. Every TypeTag a descriptor can
// carry has a case here and in decoder.readValue.
func (enc *encoder) encodeValue(fd *FieldDescriptor, name string, v Value, depth int) error {
	if fd.Type.IsContainer() && depth+1 > enc.engine.maxDepth {
		return wireerr.NewDepthExceededError(name, enc.engine.maxDepth, wireerr.Encode)
	}
	invalid := func() error {
		return wireerr.NewInvalidValueError(name, fd.TypeName(), v.Kind().String(), wireerr.Encode)
	}

	var err error
	switch fd.Type {
	case BOOL:
		if v.kind != KindBool {
			return invalid()
		}
		err = enc.w.WriteBool(v.b)
	case BYTE, I16, I32, I64:
		if v.kind != KindInt {
			return invalid()
		}
		if !intFits(fd.Type, v.i) {
			return wireerr.NewInvalidValueError(name, fd.Type.String(), fmt.Sprintf("out of range value %d", v.i), wireerr.Encode)
		}
		switch fd.Type {
		case BYTE:
			err = enc.w.WriteI8(int8(v.i))
		case I16:
			err = enc.w.WriteI16(int16(v.i))
		case I32:
			err = enc.w.WriteI32(int32(v.i))
		default:
			err = enc.w.WriteI64(v.i)
		}
	case DOUBLE:
		if v.kind != KindFloat {
			return invalid()
		}
		err = enc.w.WriteDouble(v.f)
	case STRING:
		if v.kind != KindString {
			return invalid()
		}
		err = enc.w.WriteString(v.s)
	case LIST:
		if v.kind != KindList {
			return invalid()
		}
		if err := enc.w.WriteListBegin(fd.Elem.Type, len(v.elems)); err != nil {
			return writeError("", name, err)
		}
		if err := enc.encodeElements(fd.Elem, name, v.elems, depth+1); err != nil {
			return err
		}
		err = enc.w.WriteListEnd()
	case SET:
		if v.kind != KindSet {
			return invalid()
		}
		if err := enc.w.WriteSetBegin(fd.Elem.Type, len(v.elems)); err != nil {
			return writeError("", name, err)
		}
		if err := enc.encodeElements(fd.Elem, name, v.elems, depth+1); err != nil {
			return err
		}
		err = enc.w.WriteSetEnd()
	case MAP:
		if v.kind != KindMap {
			return invalid()
		}
		if err := enc.w.WriteMapBegin(fd.Key.Type, fd.Val.Type, len(v.entries)); err != nil {
			return writeError("", name, err)
		}
		for i, entry := range v.entries {
			if !entry.Key.IsPresent() || !entry.Value.IsPresent() {
				return wireerr.NewInvalidValueError(fmt.Sprintf("%s[%d]", name, i), "a present key and value", "absent", wireerr.Encode)
			}
			if err := enc.encodeValue(fd.Key, fmt.Sprintf("%s.key[%d]", name, i), entry.Key, depth+1); err != nil {
				return err
			}
			if err := enc.encodeValue(fd.Val, fmt.Sprintf("%s.val[%d]", name, i), entry.Value, depth+1); err != nil {
				return err
			}
		}
		err = enc.w.WriteMapEnd()
	case STRUCT:
		if v.kind != KindRecord {
			return invalid()
		}
		if !fd.Struct.SameShape(v.rec.spec) {
			return wireerr.NewSpecMismatchError(fd.Struct.name, specName(v.rec.spec), wireerr.Encode)
		}
		return enc.encodeStruct(fd.Struct, v.rec, depth+1)
	default:
		return wireerr.NewInvalidSpecError(name, fmt.Sprintf("cannot encode type tag %s", fd.Type))
	}
	if err != nil {
		return writeError("", name, err)
	}
	return nil
}

func (enc *encoder) encodeElements(elem *FieldDescriptor, name string, elems []Value, depth int) error {
	for i, e := range elems {
		if !e.IsPresent() {
			return wireerr.NewInvalidValueError(fmt.Sprintf("%s[%d]", name, i), elem.TypeName(), "absent", wireerr.Encode)
		}
		if err := enc.encodeValue(elem, fmt.Sprintf("%s[%d]", name, i), e, depth); err != nil {
			return err
		}
	}
	return nil
}

func writeError(structName, fieldName string, err error) error {
	switch {
	case fieldName == "":
		return fmt.Errorf("encode '%s': %w", structName, err)
	case structName == "":
		return fmt.Errorf("encode field '%s': %w", fieldName, err)
	default:
		return fmt.Errorf("encode '%s.%s': %w", structName, fieldName, err)
	}
}
