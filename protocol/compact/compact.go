// Package compact implements the variable-length wire format: integers are
// zigzag varints, field ordinals are sent as deltas from the previous field
// when they fit in four bits, and boolean fields carry their value in the
// field header itself.
package compact

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hengadev/structwire"
	"github.com/hengadev/structwire/protocol"
)

// Type nibbles as they appear on the wire.
const (
	ctStop        byte = 0x00
	ctBoolTrue    byte = 0x01
	ctBoolFalse   byte = 0x02
	ctByte        byte = 0x03
	ctI16         byte = 0x04
	ctI32         byte = 0x05
	ctI64         byte = 0x06
	ctDouble      byte = 0x07
	ctBinary      byte = 0x08
	ctList        byte = 0x09
	ctSet         byte = 0x0A
	ctMap         byte = 0x0B
	ctStruct      byte = 0x0C
	maxShortDelta      = 15
	maxShortSize       = 14
)

var toCompact = map[structwire.TypeTag]byte{
	structwire.STOP:   ctStop,
	structwire.BOOL:   ctBoolTrue,
	structwire.BYTE:   ctByte,
	structwire.I16:    ctI16,
	structwire.I32:    ctI32,
	structwire.I64:    ctI64,
	structwire.DOUBLE: ctDouble,
	structwire.STRING: ctBinary,
	structwire.LIST:   ctList,
	structwire.SET:    ctSet,
	structwire.MAP:    ctMap,
	structwire.STRUCT: ctStruct,
}

func fromCompact(ct byte) (structwire.TypeTag, error) {
	switch ct {
	case ctStop:
		return structwire.STOP, nil
	case ctBoolTrue, ctBoolFalse:
		return structwire.BOOL, nil
	case ctByte:
		return structwire.BYTE, nil
	case ctI16:
		return structwire.I16, nil
	case ctI32:
		return structwire.I32, nil
	case ctI64:
		return structwire.I64, nil
	case ctDouble:
		return structwire.DOUBLE, nil
	case ctBinary:
		return structwire.STRING, nil
	case ctList:
		return structwire.LIST, nil
	case ctSet:
		return structwire.SET, nil
	case ctMap:
		return structwire.MAP, nil
	case ctStruct:
		return structwire.STRUCT, nil
	}
	return 0, fmt.Errorf("%w: unknown compact type 0x%02x", structwire.ErrMalformedStream, ct)
}

// Protocol is the compact format with default read limits.
var Protocol = New()

type compactProtocol struct {
	limits protocol.Limits
}

// New returns the compact format with adjusted read limits.
func New(opts ...protocol.Option) structwire.Protocol {
	return &compactProtocol{limits: protocol.Apply(opts...)}
}

func (p *compactProtocol) Name() string { return "compact" }

func (p *compactProtocol) NewWriter(w io.Writer) structwire.ProtocolWriter {
	return NewWriter(w)
}

func (p *compactProtocol) NewReader(r io.Reader) structwire.ProtocolReader {
	return NewReader(r, p.limits)
}

// Marshal encodes rec in the compact format.
func Marshal(rec *structwire.Record) ([]byte, error) {
	return structwire.Marshal(Protocol, rec)
}

// Unmarshal decodes one record of type spec from data.
func Unmarshal(spec *structwire.StructSpec, data []byte) (*structwire.Record, error) {
	return structwire.Unmarshal(Protocol, spec, data)
}

// SerializedSize returns the encoded length of rec.
func SerializedSize(rec *structwire.Record) (int, error) {
	return structwire.SerializedSize(Protocol, rec)
}

// Writer emits the compact format. Output is buffered until Flush.
type Writer struct {
	w         *bufio.Writer
	buf       []byte
	lastField int16
	stack     []int16

	// A bool field header waits for its value.
	boolPending bool
	boolOrdinal int16
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w), buf: make([]byte, 0, binary.MaxVarintLen64)}
}

func (w *Writer) WriteStructBegin(string) error {
	w.stack = append(w.stack, w.lastField)
	w.lastField = 0
	return nil
}

func (w *Writer) WriteStructEnd() error {
	if len(w.stack) == 0 {
		return fmt.Errorf("compact: struct end without begin")
	}
	w.lastField = w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	return nil
}

func (w *Writer) WriteFieldBegin(_ string, tag structwire.TypeTag, ordinal int16) error {
	if tag == structwire.BOOL {
		w.boolPending = true
		w.boolOrdinal = ordinal
		return nil
	}
	ct, ok := toCompact[tag]
	if !ok {
		return fmt.Errorf("%w: cannot write type tag %d", structwire.ErrInvalidValue, int8(tag))
	}
	return w.writeFieldHeader(ct, ordinal)
}

func (w *Writer) writeFieldHeader(ct byte, ordinal int16) error {
	delta := int(ordinal) - int(w.lastField)
	if delta > 0 && delta <= maxShortDelta {
		if err := w.w.WriteByte(byte(delta)<<4 | ct); err != nil {
			return err
		}
	} else {
		if err := w.w.WriteByte(ct); err != nil {
			return err
		}
		if err := w.WriteI16(ordinal); err != nil {
			return err
		}
	}
	w.lastField = ordinal
	return nil
}

func (w *Writer) WriteFieldEnd() error { return nil }

func (w *Writer) WriteFieldStop() error {
	return w.w.WriteByte(ctStop)
}

func (w *Writer) WriteListBegin(elem structwire.TypeTag, size int) error {
	return w.writeCollectionBegin(elem, size)
}

func (w *Writer) WriteListEnd() error { return nil }

func (w *Writer) WriteSetBegin(elem structwire.TypeTag, size int) error {
	return w.writeCollectionBegin(elem, size)
}

func (w *Writer) WriteSetEnd() error { return nil }

func (w *Writer) writeCollectionBegin(elem structwire.TypeTag, size int) error {
	ct, ok := toCompact[elem]
	if !ok {
		return fmt.Errorf("%w: cannot write element tag %d", structwire.ErrInvalidValue, int8(elem))
	}
	if size < 0 || size > math.MaxInt32 {
		return fmt.Errorf("%w: container size %d does not fit the compact format", structwire.ErrInvalidValue, size)
	}
	if size <= maxShortSize {
		return w.w.WriteByte(byte(size)<<4 | ct)
	}
	if err := w.w.WriteByte(0xF0 | ct); err != nil {
		return err
	}
	return w.writeUvarint(uint64(size))
}

func (w *Writer) WriteMapBegin(key, val structwire.TypeTag, size int) error {
	if size < 0 || size > math.MaxInt32 {
		return fmt.Errorf("%w: map size %d does not fit the compact format", structwire.ErrInvalidValue, size)
	}
	if size == 0 {
		return w.w.WriteByte(0)
	}
	kt, kok := toCompact[key]
	vt, vok := toCompact[val]
	if !kok || !vok {
		return fmt.Errorf("%w: cannot write map tags %d/%d", structwire.ErrInvalidValue, int8(key), int8(val))
	}
	if err := w.writeUvarint(uint64(size)); err != nil {
		return err
	}
	return w.w.WriteByte(kt<<4 | vt)
}

func (w *Writer) WriteMapEnd() error { return nil }

func (w *Writer) WriteBool(b bool) error {
	ct := ctBoolFalse
	if b {
		ct = ctBoolTrue
	}
	if w.boolPending {
		w.boolPending = false
		return w.writeFieldHeader(ct, w.boolOrdinal)
	}
	return w.w.WriteByte(ct)
}

func (w *Writer) WriteI8(i int8) error {
	return w.w.WriteByte(byte(i))
}

func (w *Writer) WriteI16(i int16) error {
	return w.writeUvarint(zigzag(int64(i)))
}

func (w *Writer) WriteI32(i int32) error {
	return w.writeUvarint(zigzag(int64(i)))
}

func (w *Writer) WriteI64(i int64) error {
	return w.writeUvarint(zigzag(i))
}

func (w *Writer) WriteDouble(f float64) error {
	w.buf = binary.LittleEndian.AppendUint64(w.buf[:0], math.Float64bits(f))
	_, err := w.w.Write(w.buf)
	return err
}

func (w *Writer) WriteString(s string) error {
	if err := w.writeUvarint(uint64(len(s))); err != nil {
		return err
	}
	_, err := w.w.WriteString(s)
	return err
}

func (w *Writer) WriteBinary(b []byte) error {
	if err := w.writeUvarint(uint64(len(b))); err != nil {
		return err
	}
	_, err := w.w.Write(b)
	return err
}

func (w *Writer) Flush() error { return w.w.Flush() }

func (w *Writer) writeUvarint(u uint64) error {
	w.buf = binary.AppendUvarint(w.buf[:0], u)
	_, err := w.w.Write(w.buf)
	return err
}

// Reader parses the compact format.
type Reader struct {
	r         *bufio.Reader
	limits    protocol.Limits
	buf       [8]byte
	lastField int16
	stack     []int16

	// Value of a bool field already read from its header.
	boolPending bool
	boolValue   bool
}

// NewReader wraps r. A zero Limits disables every bound.
func NewReader(r io.Reader, limits protocol.Limits) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{r: br, limits: limits}
}

func (r *Reader) ReadStructBegin() (string, error) {
	r.stack = append(r.stack, r.lastField)
	r.lastField = 0
	return "", nil
}

func (r *Reader) ReadStructEnd() error {
	if len(r.stack) == 0 {
		return fmt.Errorf("%w: struct end without begin", structwire.ErrMalformedStream)
	}
	r.lastField = r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	return nil
}

func (r *Reader) ReadFieldBegin() (string, structwire.TypeTag, int16, error) {
	header, err := r.r.ReadByte()
	if err != nil {
		return "", 0, 0, eof(err)
	}
	ct := header & 0x0F
	if ct == ctStop {
		return "", structwire.STOP, 0, nil
	}
	tag, err := fromCompact(ct)
	if err != nil {
		return "", 0, 0, err
	}

	var ordinal int16
	if delta := header >> 4; delta != 0 {
		ordinal = r.lastField + int16(delta)
	} else if ordinal, err = r.ReadI16(); err != nil {
		return "", 0, 0, err
	}
	r.lastField = ordinal

	if tag == structwire.BOOL {
		r.boolPending = true
		r.boolValue = ct == ctBoolTrue
	}
	return "", tag, ordinal, nil
}

func (r *Reader) ReadFieldEnd() error { return nil }

func (r *Reader) ReadListBegin() (structwire.TypeTag, int, error) {
	return r.readCollectionBegin()
}

func (r *Reader) ReadListEnd() error { return nil }

func (r *Reader) ReadSetBegin() (structwire.TypeTag, int, error) {
	return r.readCollectionBegin()
}

func (r *Reader) ReadSetEnd() error { return nil }

func (r *Reader) readCollectionBegin() (structwire.TypeTag, int, error) {
	header, err := r.r.ReadByte()
	if err != nil {
		return 0, 0, eof(err)
	}
	size := int(header >> 4)
	if size == 0x0F {
		if size, err = r.readCount(); err != nil {
			return 0, 0, err
		}
	}
	elem, err := fromCompact(header & 0x0F)
	if err != nil && size > 0 {
		return 0, 0, err
	}
	return elem, size, nil
}

func (r *Reader) ReadMapBegin() (structwire.TypeTag, structwire.TypeTag, int, error) {
	size, err := r.readCount()
	if err != nil {
		return 0, 0, 0, err
	}
	if size == 0 {
		return structwire.STOP, structwire.STOP, 0, nil
	}
	kv, err := r.r.ReadByte()
	if err != nil {
		return 0, 0, 0, eof(err)
	}
	key, err := fromCompact(kv >> 4)
	if err != nil {
		return 0, 0, 0, err
	}
	val, err := fromCompact(kv & 0x0F)
	if err != nil {
		return 0, 0, 0, err
	}
	return key, val, size, nil
}

func (r *Reader) ReadMapEnd() error { return nil }

func (r *Reader) ReadBool() (bool, error) {
	if r.boolPending {
		r.boolPending = false
		return r.boolValue, nil
	}
	b, err := r.r.ReadByte()
	if err != nil {
		return false, eof(err)
	}
	return b == ctBoolTrue, nil
}

func (r *Reader) ReadI8() (int8, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, eof(err)
	}
	return int8(b), nil
}

func (r *Reader) ReadI16() (int16, error) {
	i, err := r.readZigzag(math.MinInt16, math.MaxInt16)
	return int16(i), err
}

func (r *Reader) ReadI32() (int32, error) {
	i, err := r.readZigzag(math.MinInt32, math.MaxInt32)
	return int32(i), err
}

func (r *Reader) ReadI64() (int64, error) {
	return r.readZigzag(math.MinInt64, math.MaxInt64)
}

func (r *Reader) ReadDouble() (float64, error) {
	if _, err := io.ReadFull(r.r, r.buf[:8]); err != nil {
		return 0, eof(err)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(r.buf[:8])), nil
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBinary()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) ReadBinary() ([]byte, error) {
	u, err := binary.ReadUvarint(r.r)
	if err != nil {
		return nil, varintError(err)
	}
	n := int(u)
	if u > math.MaxInt32 {
		n = -1
	}
	if err := r.limits.CheckString(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return nil, eof(err)
	}
	return b, nil
}

// readCount reads an unsigned varint count. Values past the int32 range
// come back negative, as they would from the fixed-width format.
func (r *Reader) readCount() (int, error) {
	u, err := binary.ReadUvarint(r.r)
	if err != nil {
		return 0, varintError(err)
	}
	if u > math.MaxUint32 {
		return 0, fmt.Errorf("%w: container size varint overflows", structwire.ErrMalformedStream)
	}
	n := int(int32(uint32(u)))
	if err := r.limits.CheckContainer(n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Reader) readZigzag(lo, hi int64) (int64, error) {
	u, err := binary.ReadUvarint(r.r)
	if err != nil {
		return 0, varintError(err)
	}
	i := unzigzag(u)
	if i < lo || i > hi {
		return 0, fmt.Errorf("%w: varint %d out of range", structwire.ErrMalformedStream, i)
	}
	return i, nil
}

func zigzag(i int64) uint64 {
	return uint64(i<<1) ^ uint64(i>>63)
}

func unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

func varintError(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return eof(err)
	}
	return fmt.Errorf("%w: %v", structwire.ErrMalformedStream, err)
}

func eof(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: unexpected end of stream", structwire.ErrMalformedStream)
	}
	return err
}
