// Package binary implements the fixed-width big-endian wire format: every
// field header is a one-byte type tag followed by a two-byte ordinal, and
// every length or count is a four-byte signed integer.
package binary

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hengadev/structwire"
	"github.com/hengadev/structwire/protocol"
)

// Protocol is the binary format with default read limits.
var Protocol = New()

type binaryProtocol struct {
	limits protocol.Limits
}

// New returns the binary format with adjusted read limits.
func New(opts ...protocol.Option) structwire.Protocol {
	return &binaryProtocol{limits: protocol.Apply(opts...)}
}

func (p *binaryProtocol) Name() string { return "binary" }

func (p *binaryProtocol) NewWriter(w io.Writer) structwire.ProtocolWriter {
	return NewWriter(w)
}

func (p *binaryProtocol) NewReader(r io.Reader) structwire.ProtocolReader {
	return NewReader(r, p.limits)
}

// Marshal encodes rec in the binary format.
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

// Writer emits the binary format. Output is buffered until Flush.
type Writer struct {
	w   *bufio.Writer
	buf [8]byte
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) WriteStructBegin(string) error { return nil }
func (w *Writer) WriteStructEnd() error         { return nil }

func (w *Writer) WriteFieldBegin(_ string, tag structwire.TypeTag, ordinal int16) error {
	if err := w.w.WriteByte(byte(tag)); err != nil {
		return err
	}
	return w.WriteI16(ordinal)
}

func (w *Writer) WriteFieldEnd() error { return nil }

func (w *Writer) WriteFieldStop() error {
	return w.w.WriteByte(byte(structwire.STOP))
}

func (w *Writer) WriteListBegin(elem structwire.TypeTag, size int) error {
	if err := w.w.WriteByte(byte(elem)); err != nil {
		return err
	}
	return w.writeSize(size)
}

func (w *Writer) WriteListEnd() error { return nil }

func (w *Writer) WriteSetBegin(elem structwire.TypeTag, size int) error {
	return w.WriteListBegin(elem, size)
}

func (w *Writer) WriteSetEnd() error { return nil }

func (w *Writer) WriteMapBegin(key, val structwire.TypeTag, size int) error {
	if err := w.w.WriteByte(byte(key)); err != nil {
		return err
	}
	if err := w.w.WriteByte(byte(val)); err != nil {
		return err
	}
	return w.writeSize(size)
}

func (w *Writer) WriteMapEnd() error { return nil }

func (w *Writer) WriteBool(b bool) error {
	if b {
		return w.w.WriteByte(1)
	}
	return w.w.WriteByte(0)
}

func (w *Writer) WriteI8(i int8) error {
	return w.w.WriteByte(byte(i))
}

func (w *Writer) WriteI16(i int16) error {
	binary.BigEndian.PutUint16(w.buf[:2], uint16(i))
	_, err := w.w.Write(w.buf[:2])
	return err
}

func (w *Writer) WriteI32(i int32) error {
	binary.BigEndian.PutUint32(w.buf[:4], uint32(i))
	_, err := w.w.Write(w.buf[:4])
	return err
}

func (w *Writer) WriteI64(i int64) error {
	binary.BigEndian.PutUint64(w.buf[:8], uint64(i))
	_, err := w.w.Write(w.buf[:8])
	return err
}

func (w *Writer) WriteDouble(f float64) error {
	return w.WriteI64(int64(math.Float64bits(f)))
}

func (w *Writer) WriteString(s string) error {
	if err := w.writeSize(len(s)); err != nil {
		return err
	}
	_, err := w.w.WriteString(s)
	return err
}

func (w *Writer) WriteBinary(b []byte) error {
	if err := w.writeSize(len(b)); err != nil {
		return err
	}
	_, err := w.w.Write(b)
	return err
}

func (w *Writer) Flush() error { return w.w.Flush() }

func (w *Writer) writeSize(n int) error {
	if n > math.MaxInt32 {
		return fmt.Errorf("%w: length %d does not fit the binary format", structwire.ErrInvalidValue, n)
	}
	return w.WriteI32(int32(n))
}

// Reader parses the binary format.
type Reader struct {
	r      *bufio.Reader
	limits protocol.Limits
	buf    [8]byte
}

// NewReader wraps r. A zero Limits disables every bound.
func NewReader(r io.Reader, limits protocol.Limits) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{r: br, limits: limits}
}

func (r *Reader) ReadStructBegin() (string, error) { return "", nil }
func (r *Reader) ReadStructEnd() error             { return nil }

func (r *Reader) ReadFieldBegin() (string, structwire.TypeTag, int16, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return "", 0, 0, eof(err)
	}
	tag := structwire.TypeTag(b)
	if tag == structwire.STOP {
		return "", tag, 0, nil
	}
	ordinal, err := r.ReadI16()
	if err != nil {
		return "", 0, 0, err
	}
	return "", tag, ordinal, nil
}

func (r *Reader) ReadFieldEnd() error { return nil }

func (r *Reader) ReadListBegin() (structwire.TypeTag, int, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, 0, eof(err)
	}
	size, err := r.readCount()
	if err != nil {
		return 0, 0, err
	}
	return structwire.TypeTag(b), size, nil
}

func (r *Reader) ReadListEnd() error { return nil }

func (r *Reader) ReadSetBegin() (structwire.TypeTag, int, error) {
	return r.ReadListBegin()
}

func (r *Reader) ReadSetEnd() error { return nil }

func (r *Reader) ReadMapBegin() (structwire.TypeTag, structwire.TypeTag, int, error) {
	if _, err := io.ReadFull(r.r, r.buf[:2]); err != nil {
		return 0, 0, 0, eof(err)
	}
	key, val := structwire.TypeTag(r.buf[0]), structwire.TypeTag(r.buf[1])
	size, err := r.readCount()
	if err != nil {
		return 0, 0, 0, err
	}
	return key, val, size, nil
}

func (r *Reader) ReadMapEnd() error { return nil }

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return false, eof(err)
	}
	return b != 0, nil
}

func (r *Reader) ReadI8() (int8, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, eof(err)
	}
	return int8(b), nil
}

func (r *Reader) ReadI16() (int16, error) {
	if _, err := io.ReadFull(r.r, r.buf[:2]); err != nil {
		return 0, eof(err)
	}
	return int16(binary.BigEndian.Uint16(r.buf[:2])), nil
}

func (r *Reader) ReadI32() (int32, error) {
	if _, err := io.ReadFull(r.r, r.buf[:4]); err != nil {
		return 0, eof(err)
	}
	return int32(binary.BigEndian.Uint32(r.buf[:4])), nil
}

func (r *Reader) ReadI64() (int64, error) {
	if _, err := io.ReadFull(r.r, r.buf[:8]); err != nil {
		return 0, eof(err)
	}
	return int64(binary.BigEndian.Uint64(r.buf[:8])), nil
}

func (r *Reader) ReadDouble() (float64, error) {
	i, err := r.ReadI64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(uint64(i)), nil
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBinary()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) ReadBinary() ([]byte, error) {
	n, err := r.ReadI32()
	if err != nil {
		return nil, err
	}
	if err := r.limits.CheckString(int(n)); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return nil, eof(err)
	}
	return b, nil
}

func (r *Reader) readCount() (int, error) {
	n, err := r.ReadI32()
	if err != nil {
		return 0, err
	}
	if err := r.limits.CheckContainer(int(n)); err != nil {
		return 0, err
	}
	return int(n), nil
}

// eof reports a stream cut short as malformed input.
func eof(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: unexpected end of stream", structwire.ErrMalformedStream)
	}
	return err
}
