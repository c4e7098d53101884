package structwire

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// computeStructuralID folds each field's ordinal and type shape, in
// ordinal order, into a BLAKE2b-256 digest and keeps the first 8 bytes.
// Names, required flags and defaults do not take part: they never reach
// the wire. A nested struct contributes its own structural id.
func computeStructuralID(fields []*FieldDescriptor) uint64 {
	buf := make([]byte, 0, 16*len(fields))
	for _, fd := range fields {
		buf = binary.BigEndian.AppendUint16(buf, uint16(fd.Ordinal))
		buf = appendShape(buf, fd)
	}
	sum := blake2b.Sum256(buf)
	return binary.BigEndian.Uint64(sum[:8])
}

func appendShape(buf []byte, fd *FieldDescriptor) []byte {
	buf = append(buf, byte(fd.Type))
	switch fd.Type {
	case LIST, SET:
		buf = appendShape(buf, fd.Elem)
	case MAP:
		buf = appendShape(buf, fd.Key)
		buf = appendShape(buf, fd.Val)
	case STRUCT:
		buf = binary.BigEndian.AppendUint64(buf, fd.Struct.structuralID)
	}
	return buf
}
