package structwire

import (
	"context"
	"fmt"

	"github.com/hengadev/structwire/internal/monitoring"
	"github.com/hengadev/structwire/internal/wireerr"
)

// preallocLimit caps the capacity reserved from a container header, so a
// forged count cannot force a large allocation before any element is read.
const preallocLimit = 1024

type decoder struct {
	engine *Engine
	ctx    context.Context
	r      ProtocolReader
}

func (d *decoder) decodeStruct(spec *StructSpec, depth int) (*Record, error) {
	if depth > d.engine.maxDepth {
		return nil, wireerr.NewDepthExceededError(spec.name, d.engine.maxDepth, wireerr.Decode)
	}
	if _, err := d.r.ReadStructBegin(); err != nil {
		return nil, wireerr.NewReadError(spec.name, wireerr.Decode, err)
	}

	rec := newBlankRecord(spec)
	for {
		_, tag, ordinal, err := d.r.ReadFieldBegin()
		if err != nil {
			return nil, wireerr.NewReadError(spec.name, wireerr.Decode, err)
		}
		if tag == STOP {
			break
		}
		if !tag.IsValid() {
			return nil, wireerr.NewMalformedStreamError(spec.name, wireerr.Decode,
				fmt.Sprintf("field %d carries invalid type tag %d", ordinal, int8(tag)))
		}

		idx, known := spec.position(ordinal)
		switch {
		case !known:
			if err := d.skip(tag, depth+1); err != nil {
				return nil, err
			}
			d.skipped(spec, "", ordinal, tag, monitoring.SkipUnknownOrdinal)
		case spec.fields[idx].Type != tag:
			if err := d.skip(tag, depth+1); err != nil {
				return nil, err
			}
			d.skipped(spec, spec.fields[idx].Name, ordinal, tag, monitoring.SkipTypeMismatch)
		default:
			fd := spec.fields[idx]
			v, drift, err := d.readValue(fd, spec.name, depth)
			if err != nil {
				return nil, err
			}
			if drift {
				d.skipped(spec, fd.Name, ordinal, tag, monitoring.SkipTypeMismatch)
			} else {
				rec.values[idx] = v
				rec.states[idx] = FieldSet
			}
		}

		if err := d.r.ReadFieldEnd(); err != nil {
			return nil, wireerr.NewReadError(spec.name, wireerr.Decode, err)
		}
	}

	if err := rec.checkRequired(wireerr.Decode); err != nil {
		return nil, err
	}
	if err := d.r.ReadStructEnd(); err != nil {
		return nil, wireerr.NewReadError(spec.name, wireerr.Decode, err)
	}
	return rec, nil
}

// readValue decodes one value described by fd. drift reports that a
// container header disagreed with the descriptor somewhere below fd; the
// value has then been consumed in full and must be dropped.
func (d *decoder) readValue(fd *FieldDescriptor, structName string, depth int) (Value, bool, error) {
	fail := func(err error) (Value, bool, error) {
		return Value{}, false, wireerr.NewReadError(structName, wireerr.Decode, err)
	}

	switch fd.Type {
	case BOOL:
		b, err := d.r.ReadBool()
		if err != nil {
			return fail(err)
		}
		return BoolValue(b), false, nil
	case BYTE:
		i, err := d.r.ReadI8()
		if err != nil {
			return fail(err)
		}
		return IntValue(int64(i)), false, nil
	case I16:
		i, err := d.r.ReadI16()
		if err != nil {
			return fail(err)
		}
		return IntValue(int64(i)), false, nil
	case I32:
		i, err := d.r.ReadI32()
		if err != nil {
			return fail(err)
		}
		return IntValue(int64(i)), false, nil
	case I64:
		i, err := d.r.ReadI64()
		if err != nil {
			return fail(err)
		}
		return IntValue(i), false, nil
	case DOUBLE:
		f, err := d.r.ReadDouble()
		if err != nil {
			return fail(err)
		}
		return FloatValue(f), false, nil
	case STRING:
		s, err := d.r.ReadString()
		if err != nil {
			return fail(err)
		}
		return StringValue(s), false, nil
	case LIST:
		elem, size, err := d.r.ReadListBegin()
		if err != nil {
			return fail(err)
		}
		elems, drift, err := d.readElements(fd.Elem, elem, size, structName, depth+1)
		if err != nil {
			return Value{}, false, err
		}
		if err := d.r.ReadListEnd(); err != nil {
			return fail(err)
		}
		if drift {
			return Value{}, true, nil
		}
		return Value{kind: KindList, elems: elems}, false, nil
	case SET:
		elem, size, err := d.r.ReadSetBegin()
		if err != nil {
			return fail(err)
		}
		elems, drift, err := d.readElements(fd.Elem, elem, size, structName, depth+1)
		if err != nil {
			return Value{}, false, err
		}
		if err := d.r.ReadSetEnd(); err != nil {
			return fail(err)
		}
		if drift {
			return Value{}, true, nil
		}
		// Duplicates are kept as they appear on the wire.
		return rawSet(elems), false, nil
	case MAP:
		keyTag, valTag, size, err := d.r.ReadMapBegin()
		if err != nil {
			return fail(err)
		}
		entries, drift, err := d.readEntries(fd, keyTag, valTag, size, structName, depth+1)
		if err != nil {
			return Value{}, false, err
		}
		if err := d.r.ReadMapEnd(); err != nil {
			return fail(err)
		}
		if drift {
			return Value{}, true, nil
		}
		return rawMap(entries), false, nil
	case STRUCT:
		rec, err := d.decodeStruct(fd.Struct, depth+1)
		if err != nil {
			return Value{}, false, err
		}
		return RecordValue(rec), false, nil
	default:
		return Value{}, false, wireerr.NewInvalidSpecError(structName, fmt.Sprintf("cannot decode type tag %s", fd.Type))
	}
}

func (d *decoder) readElements(elem *FieldDescriptor, wireTag TypeTag, size int, structName string, depth int) ([]Value, bool, error) {
	if err := d.checkContainer(structName, size, depth, wireTag); err != nil {
		return nil, false, err
	}
	if size > 0 && wireTag != elem.Type {
		for range size {
			if err := d.skip(wireTag, depth); err != nil {
				return nil, false, err
			}
		}
		return nil, true, nil
	}

	elems := make([]Value, 0, min(size, preallocLimit))
	drifted := false
	for range size {
		v, drift, err := d.readValue(elem, structName, depth)
		if err != nil {
			return nil, false, err
		}
		drifted = drifted || drift
		elems = append(elems, v)
	}
	return elems, drifted, nil
}

func (d *decoder) readEntries(fd *FieldDescriptor, keyTag, valTag TypeTag, size int, structName string, depth int) ([]MapEntry, bool, error) {
	if err := d.checkContainer(structName, size, depth, keyTag, valTag); err != nil {
		return nil, false, err
	}
	if size > 0 && (keyTag != fd.Key.Type || valTag != fd.Val.Type) {
		for range size {
			if err := d.skip(keyTag, depth); err != nil {
				return nil, false, err
			}
			if err := d.skip(valTag, depth); err != nil {
				return nil, false, err
			}
		}
		return nil, true, nil
	}

	entries := make([]MapEntry, 0, min(size, preallocLimit))
	drifted := false
	for range size {
		k, kDrift, err := d.readValue(fd.Key, structName, depth)
		if err != nil {
			return nil, false, err
		}
		v, vDrift, err := d.readValue(fd.Val, structName, depth)
		if err != nil {
			return nil, false, err
		}
		drifted = drifted || kDrift || vDrift
		entries = append(entries, MapEntry{Key: k, Value: v})
	}
	return entries, drifted, nil
}

// checkContainer rejects negative counts, invalid element tags on
// non-empty containers, and nesting beyond the configured ceiling.
func (d *decoder) checkContainer(structName string, size, depth int, tags ...TypeTag) error {
	if depth > d.engine.maxDepth {
		return wireerr.NewDepthExceededError(structName, d.engine.maxDepth, wireerr.Decode)
	}
	if size < 0 {
		return wireerr.NewMalformedStreamError(structName, wireerr.Decode, fmt.Sprintf("negative container size %d", size))
	}
	if size == 0 {
		return nil
	}
	for _, tag := range tags {
		if !tag.IsValid() || tag == STOP {
			return wireerr.NewMalformedStreamError(structName, wireerr.Decode, fmt.Sprintf("invalid container element tag %d", int8(tag)))
		}
	}
	return nil
}

func (d *decoder) skipped(spec *StructSpec, field string, ordinal int16, tag TypeTag, reason monitoring.SkipReason) {
	d.engine.hook.OnFieldSkipped(d.ctx, monitoring.SkipEvent{
		Struct:   spec.name,
		Field:    field,
		Ordinal:  ordinal,
		WireType: tag.String(),
		Reason:   reason,
	})
}
