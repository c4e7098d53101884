package structwire

import (
	"fmt"
	"io"
)

// token is one protocol call captured by tapeWriter or replayed by
// tapeReader. Names are not recorded: ordinals identify fields.
type token struct {
	kind    string
	tag     TypeTag // field tag, or element / key tag of a container
	val     TypeTag // map value tag
	ordinal int16
	size    int
	v       any
}

func tStructBegin() token                 { return token{kind: "struct"} }
func tStructEnd() token                   { return token{kind: "/struct"} }
func tField(tag TypeTag, ord int16) token { return token{kind: "field", tag: tag, ordinal: ord} }
func tFieldEnd() token                    { return token{kind: "/field"} }
func tStop() token                        { return token{kind: "stop"} }
func tList(elem TypeTag, n int) token     { return token{kind: "list", tag: elem, size: n} }
func tListEnd() token                     { return token{kind: "/list"} }
func tSet(elem TypeTag, n int) token      { return token{kind: "set", tag: elem, size: n} }
func tSetEnd() token                      { return token{kind: "/set"} }
func tMap(k, v TypeTag, n int) token      { return token{kind: "map", tag: k, val: v, size: n} }
func tMapEnd() token                      { return token{kind: "/map"} }
func tBool(b bool) token                  { return token{kind: "bool", v: b} }
func tI8(i int8) token                    { return token{kind: "i8", v: i} }
func tI16(i int16) token                  { return token{kind: "i16", v: i} }
func tI32(i int32) token                  { return token{kind: "i32", v: i} }
func tI64(i int64) token                  { return token{kind: "i64", v: i} }
func tDouble(f float64) token             { return token{kind: "double", v: f} }
func tString(s string) token              { return token{kind: "string", v: s} }

// field wraps a value's tokens in a field header and trailer.
func field(tag TypeTag, ord int16, body ...token) []token {
	out := append([]token{tField(tag, ord)}, body...)
	return append(out, tFieldEnd())
}

// stream concatenates token groups.
func stream(groups ...[]token) []token {
	var out []token
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func toks(t ...token) []token { return t }

type tapeWriter struct {
	tokens  []token
	flushed bool
	failAt  int // fail the n-th call when > 0
}

func (w *tapeWriter) add(t token) error {
	if w.failAt > 0 && len(w.tokens)+1 == w.failAt {
		return fmt.Errorf("tape full")
	}
	w.tokens = append(w.tokens, t)
	return nil
}

func (w *tapeWriter) WriteStructBegin(string) error { return w.add(tStructBegin()) }
func (w *tapeWriter) WriteStructEnd() error         { return w.add(tStructEnd()) }
func (w *tapeWriter) WriteFieldBegin(_ string, tag TypeTag, ordinal int16) error {
	return w.add(tField(tag, ordinal))
}
func (w *tapeWriter) WriteFieldEnd() error                  { return w.add(tFieldEnd()) }
func (w *tapeWriter) WriteFieldStop() error                 { return w.add(tStop()) }
func (w *tapeWriter) WriteListBegin(e TypeTag, n int) error { return w.add(tList(e, n)) }
func (w *tapeWriter) WriteListEnd() error                   { return w.add(tListEnd()) }
func (w *tapeWriter) WriteSetBegin(e TypeTag, n int) error  { return w.add(tSet(e, n)) }
func (w *tapeWriter) WriteSetEnd() error                    { return w.add(tSetEnd()) }
func (w *tapeWriter) WriteMapBegin(k, v TypeTag, n int) error {
	return w.add(tMap(k, v, n))
}
func (w *tapeWriter) WriteMapEnd() error          { return w.add(tMapEnd()) }
func (w *tapeWriter) WriteBool(v bool) error      { return w.add(tBool(v)) }
func (w *tapeWriter) WriteI8(v int8) error        { return w.add(tI8(v)) }
func (w *tapeWriter) WriteI16(v int16) error      { return w.add(tI16(v)) }
func (w *tapeWriter) WriteI32(v int32) error      { return w.add(tI32(v)) }
func (w *tapeWriter) WriteI64(v int64) error      { return w.add(tI64(v)) }
func (w *tapeWriter) WriteDouble(v float64) error { return w.add(tDouble(v)) }
func (w *tapeWriter) WriteString(v string) error  { return w.add(tString(v)) }
func (w *tapeWriter) WriteBinary(v []byte) error  { return w.add(tString(string(v))) }
func (w *tapeWriter) Flush() error                { w.flushed = true; return nil }

type tapeReader struct {
	tokens []token
	pos    int
}

func newTapeReader(tokens []token) *tapeReader { return &tapeReader{tokens: tokens} }

func (r *tapeReader) next(kind string) (token, error) {
	if r.pos >= len(r.tokens) {
		return token{}, io.ErrUnexpectedEOF
	}
	t := r.tokens[r.pos]
	if t.kind != kind {
		return token{}, fmt.Errorf("token %d: expected %s, got %s", r.pos, kind, t.kind)
	}
	r.pos++
	return t, nil
}

func (r *tapeReader) remaining() int { return len(r.tokens) - r.pos }

func (r *tapeReader) ReadStructBegin() (string, error) {
	_, err := r.next("struct")
	return "", err
}

func (r *tapeReader) ReadStructEnd() error {
	_, err := r.next("/struct")
	return err
}

func (r *tapeReader) ReadFieldBegin() (string, TypeTag, int16, error) {
	if r.pos < len(r.tokens) && r.tokens[r.pos].kind == "stop" {
		r.pos++
		return "", STOP, 0, nil
	}
	t, err := r.next("field")
	return "", t.tag, t.ordinal, err
}

func (r *tapeReader) ReadFieldEnd() error {
	_, err := r.next("/field")
	return err
}

func (r *tapeReader) ReadListBegin() (TypeTag, int, error) {
	t, err := r.next("list")
	return t.tag, t.size, err
}

func (r *tapeReader) ReadListEnd() error {
	_, err := r.next("/list")
	return err
}

func (r *tapeReader) ReadSetBegin() (TypeTag, int, error) {
	t, err := r.next("set")
	return t.tag, t.size, err
}

func (r *tapeReader) ReadSetEnd() error {
	_, err := r.next("/set")
	return err
}

func (r *tapeReader) ReadMapBegin() (TypeTag, TypeTag, int, error) {
	t, err := r.next("map")
	return t.tag, t.val, t.size, err
}

func (r *tapeReader) ReadMapEnd() error {
	_, err := r.next("/map")
	return err
}

func (r *tapeReader) ReadBool() (bool, error) {
	t, err := r.next("bool")
	b, _ := t.v.(bool)
	return b, err
}

func (r *tapeReader) ReadI8() (int8, error) {
	t, err := r.next("i8")
	i, _ := t.v.(int8)
	return i, err
}

func (r *tapeReader) ReadI16() (int16, error) {
	t, err := r.next("i16")
	i, _ := t.v.(int16)
	return i, err
}

func (r *tapeReader) ReadI32() (int32, error) {
	t, err := r.next("i32")
	i, _ := t.v.(int32)
	return i, err
}

func (r *tapeReader) ReadI64() (int64, error) {
	t, err := r.next("i64")
	i, _ := t.v.(int64)
	return i, err
}

func (r *tapeReader) ReadDouble() (float64, error) {
	t, err := r.next("double")
	f, _ := t.v.(float64)
	return f, err
}

func (r *tapeReader) ReadString() (string, error) {
	t, err := r.next("string")
	s, _ := t.v.(string)
	return s, err
}

func (r *tapeReader) ReadBinary() ([]byte, error) {
	s, err := r.ReadString()
	return []byte(s), err
}
