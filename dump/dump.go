// Package dump renders records as CBOR keyed by field name, for debugging
// and for handing records to tools that do not know the wire protocols.
package dump

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"

	"github.com/hengadev/structwire"
)

// encMode uses Core Deterministic Encoding: the same record always
// produces the same bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("dump: CBOR encoder initialization failed: " + err.Error())
	}
}

// Marshal encodes rec as a CBOR map from field name to value. Absent
// fields are left out; nested records become nested maps; maps keep
// their keys as CBOR keys, so integer keys stay integers.
func Marshal(rec *structwire.Record) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: cannot dump a nil record", structwire.ErrInvalidValue)
	}
	return encMode.Marshal(recordTree(rec))
}

// Diagnose renders rec in CBOR diagnostic notation.
func Diagnose(rec *structwire.Record) (string, error) {
	data, err := Marshal(rec)
	if err != nil {
		return "", err
	}
	return cbor.Diagnose(data)
}

// Tree converts rec into plain Go values: map[string]any for records,
// []any for lists and sets, map[any]any for maps.
func Tree(rec *structwire.Record) map[string]any {
	return recordTree(rec)
}

func recordTree(rec *structwire.Record) map[string]any {
	out := make(map[string]any)
	for name, v := range rec.Fields() {
		if v.IsPresent() {
			out[name] = valueTree(v)
		}
	}
	return out
}

func valueTree(v structwire.Value) any {
	switch v.Kind() {
	case structwire.KindBool:
		b, _ := v.AsBool()
		return b
	case structwire.KindInt:
		i, _ := v.AsInt()
		return i
	case structwire.KindFloat:
		f, _ := v.AsFloat()
		return f
	case structwire.KindString:
		s, _ := v.AsString()
		if !utf8.ValidString(s) {
			// Binary payloads become CBOR byte strings; text strings must be UTF-8.
			return cbor.ByteString(s)
		}
		return s
	case structwire.KindList, structwire.KindSet:
		elems := v.Elements()
		out := make([]any, len(elems))
		for i, e := range elems {
			out[i] = valueTree(e)
		}
		return out
	case structwire.KindMap:
		out := make(map[any]any, v.Len())
		for _, entry := range v.Entries() {
			out[keyOf(entry.Key)] = valueTree(entry.Value)
		}
		return out
	case structwire.KindRecord:
		rec, _ := v.AsRecord()
		return recordTree(rec)
	default:
		return nil
	}
}

// keyOf returns a comparable map key. Container and record keys have no
// comparable Go form and are rendered as text.
func keyOf(v structwire.Value) any {
	switch v.Kind() {
	case structwire.KindBool, structwire.KindInt, structwire.KindString:
		return valueTree(v)
	case structwire.KindFloat:
		f, _ := v.AsFloat()
		if math.IsNaN(f) {
			return "NaN"
		}
		return f
	default:
		return v.String()
	}
}
