package structwire

// ProtocolWriter emits wire tokens. The engine decides what to write at
// each node; implementations decide the bytes. A writer is owned by one
// call at a time.
//
// Implementations:
//   - github.com/hengadev/structwire/protocol/binary
//   - github.com/hengadev/structwire/protocol/compact
type ProtocolWriter interface {
	WriteStructBegin(name string) error
	WriteStructEnd() error
	WriteFieldBegin(name string, tag TypeTag, ordinal int16) error
	WriteFieldEnd() error
	WriteFieldStop() error

	WriteListBegin(elem TypeTag, size int) error
	WriteListEnd() error
	WriteSetBegin(elem TypeTag, size int) error
	WriteSetEnd() error
	WriteMapBegin(key, val TypeTag, size int) error
	WriteMapEnd() error

	WriteBool(v bool) error
	WriteI8(v int8) error
	WriteI16(v int16) error
	WriteI32(v int32) error
	WriteI64(v int64) error
	WriteDouble(v float64) error
	WriteString(v string) error
	WriteBinary(v []byte) error

	// Flush pushes buffered bytes to the underlying sink.
	Flush() error
}

// ProtocolReader consumes wire tokens. ReadFieldBegin returns STOP as the
// tag once the current struct has no more fields. Readers report
// exhaustion of the underlying stream as an error; the engine turns that
// into ErrMalformedStream.
type ProtocolReader interface {
	ReadStructBegin() (name string, err error)
	ReadStructEnd() error
	ReadFieldBegin() (name string, tag TypeTag, ordinal int16, err error)
	ReadFieldEnd() error

	ReadListBegin() (elem TypeTag, size int, err error)
	ReadListEnd() error
	ReadSetBegin() (elem TypeTag, size int, err error)
	ReadSetEnd() error
	ReadMapBegin() (key, val TypeTag, size int, err error)
	ReadMapEnd() error

	ReadBool() (bool, error)
	ReadI8() (int8, error)
	ReadI16() (int16, error)
	ReadI32() (int32, error)
	ReadI64() (int64, error)
	ReadDouble() (float64, error)
	ReadString() (string, error)
	ReadBinary() ([]byte, error)
}
