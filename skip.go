package structwire

import (
	"fmt"

	"github.com/hengadev/structwire/internal/wireerr"
)

// skip consumes one value of the given wire type without a
// specification. It is what lets older readers accept newer writers.
func (d *decoder) skip(tag TypeTag, depth int) error {
	if depth > d.engine.maxDepth {
		return wireerr.NewDepthExceededError(tag.String(), d.engine.maxDepth, wireerr.Skip)
	}
	fail := func(err error) error {
		return wireerr.NewReadError(tag.String(), wireerr.Skip, err)
	}

	switch tag {
	case BOOL:
		if _, err := d.r.ReadBool(); err != nil {
			return fail(err)
		}
	case BYTE:
		if _, err := d.r.ReadI8(); err != nil {
			return fail(err)
		}
	case I16:
		if _, err := d.r.ReadI16(); err != nil {
			return fail(err)
		}
	case I32:
		if _, err := d.r.ReadI32(); err != nil {
			return fail(err)
		}
	case I64:
		if _, err := d.r.ReadI64(); err != nil {
			return fail(err)
		}
	case DOUBLE:
		if _, err := d.r.ReadDouble(); err != nil {
			return fail(err)
		}
	case STRING:
		if _, err := d.r.ReadBinary(); err != nil {
			return fail(err)
		}
	case STRUCT:
		if _, err := d.r.ReadStructBegin(); err != nil {
			return fail(err)
		}
		for {
			_, fieldTag, ordinal, err := d.r.ReadFieldBegin()
			if err != nil {
				return fail(err)
			}
			if fieldTag == STOP {
				break
			}
			if !fieldTag.IsValid() {
				return wireerr.NewMalformedStreamError("", wireerr.Skip,
					fmt.Sprintf("field %d carries invalid type tag %d", ordinal, int8(fieldTag)))
			}
			if err := d.skip(fieldTag, depth+1); err != nil {
				return err
			}
			if err := d.r.ReadFieldEnd(); err != nil {
				return fail(err)
			}
		}
		if err := d.r.ReadStructEnd(); err != nil {
			return fail(err)
		}
	case LIST:
		elem, size, err := d.r.ReadListBegin()
		if err != nil {
			return fail(err)
		}
		if err := d.skipElements(size, depth+1, elem); err != nil {
			return err
		}
		if err := d.r.ReadListEnd(); err != nil {
			return fail(err)
		}
	case SET:
		elem, size, err := d.r.ReadSetBegin()
		if err != nil {
			return fail(err)
		}
		if err := d.skipElements(size, depth+1, elem); err != nil {
			return err
		}
		if err := d.r.ReadSetEnd(); err != nil {
			return fail(err)
		}
	case MAP:
		keyTag, valTag, size, err := d.r.ReadMapBegin()
		if err != nil {
			return fail(err)
		}
		if err := d.skipElements(size, depth+1, keyTag, valTag); err != nil {
			return err
		}
		if err := d.r.ReadMapEnd(); err != nil {
			return fail(err)
		}
	default:
		return wireerr.NewMalformedStreamError("", wireerr.Skip, fmt.Sprintf("cannot skip type tag %d", int8(tag)))
	}
	return nil
}

// skipElements consumes size groups of values; each group holds one value
// per tag (one for lists and sets, key then value for maps).
func (d *decoder) skipElements(size, depth int, tags ...TypeTag) error {
	if err := d.checkContainer("", size, depth, tags...); err != nil {
		return err
	}
	for range size {
		for _, tag := range tags {
			if err := d.skip(tag, depth); err != nil {
				return err
			}
		}
	}
	return nil
}
