package structwire

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// Protocol pairs a writer and a reader for one wire format.
type Protocol interface {
	Name() string
	NewWriter(w io.Writer) ProtocolWriter
	NewReader(r io.Reader) ProtocolReader
}

// Marshal encodes rec with protocol p and returns the bytes.
func (e *Engine) Marshal(ctx context.Context, p Protocol, rec *Record) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: cannot marshal a nil record", ErrInvalidValue)
	}
	var buf bytes.Buffer
	if err := e.EncodeTo(ctx, p, rec, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeTo encodes rec with protocol p into dst and flushes the writer.
func (e *Engine) EncodeTo(ctx context.Context, p Protocol, rec *Record, dst io.Writer) error {
	if rec == nil || rec.spec == nil {
		return fmt.Errorf("%w: cannot encode a nil record", ErrInvalidValue)
	}
	w := p.NewWriter(dst)
	if err := e.Encode(ctx, rec.spec, rec, w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s writer: %w", p.Name(), err)
	}
	return nil
}

// Unmarshal decodes one record of type spec from data with protocol p.
// Bytes after the record are ignored.
func (e *Engine) Unmarshal(ctx context.Context, p Protocol, spec *StructSpec, data []byte) (*Record, error) {
	return e.Decode(ctx, spec, p.NewReader(bytes.NewReader(data)))
}

// SerializedSize returns the number of bytes rec occupies under p.
func (e *Engine) SerializedSize(ctx context.Context, p Protocol, rec *Record) (int, error) {
	var counter countingWriter
	if err := e.EncodeTo(ctx, p, rec, &counter); err != nil {
		return 0, err
	}
	return counter.n, nil
}

// Marshal encodes rec with the default engine.
func Marshal(p Protocol, rec *Record) ([]byte, error) {
	return defaultEngine.Marshal(context.Background(), p, rec)
}

// Unmarshal decodes data with the default engine.
func Unmarshal(p Protocol, spec *StructSpec, data []byte) (*Record, error) {
	return defaultEngine.Unmarshal(context.Background(), p, spec, data)
}

// SerializedSize measures rec under p with the default engine.
func SerializedSize(p Protocol, rec *Record) (int, error) {
	return defaultEngine.SerializedSize(context.Background(), p, rec)
}

type countingWriter struct{ n int }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += len(p)
	return len(p), nil
}
