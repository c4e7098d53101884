package structwire

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Kind classifies the in-memory shape of a Value.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindSet
	KindMap
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindMap:
		return "map"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Value is the tagged union every decoded field is represented as. The
// zero Value is absent. Values are immutable once built: accessors
// return copies of container contents.
type Value struct {
	kind    Kind
	b       bool
	i       int64
	f       float64
	s       string
	elems   []Value
	entries []MapEntry
	rec     *Record
}

// MapEntry is one key/value pair of a map Value.
type MapEntry struct {
	Key   Value
	Value Value
}

// Entry is shorthand for building a MapEntry.
func Entry(key, value Value) MapEntry {
	return MapEntry{Key: key, Value: value}
}

// Absent returns the absent Value.
func Absent() Value { return Value{} }

func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// IntValue holds any of the BYTE, I16, I32 and I64 wire kinds. Range
// checks happen against the field descriptor, not here.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// BytesValue holds binary data; it travels on the wire as STRING.
func BytesValue(b []byte) Value { return Value{kind: KindString, s: string(b)} }

// ListValue builds an ordered sequence.
func ListValue(elems ...Value) Value {
	return Value{kind: KindList, elems: slices.Clone(elems)}
}

// SetValue builds a set, dropping repeated elements. The first
// occurrence of each element keeps its position.
func SetValue(elems ...Value) Value {
	unique := make([]Value, 0, len(elems))
	for _, e := range elems {
		if !slices.ContainsFunc(unique, func(u Value) bool { return Equal(u, e) }) {
			unique = append(unique, e)
		}
	}
	return Value{kind: KindSet, elems: unique}
}

// MapValue builds a keyed map in the given order. A repeated key
// replaces the earlier value in place.
func MapValue(entries ...MapEntry) Value {
	out := make([]MapEntry, 0, len(entries))
	for _, entry := range entries {
		idx := slices.IndexFunc(out, func(existing MapEntry) bool { return Equal(existing.Key, entry.Key) })
		if idx >= 0 {
			out[idx].Value = entry.Value
			continue
		}
		out = append(out, entry)
	}
	return Value{kind: KindMap, entries: out}
}

// RecordValue wraps a nested record. A nil record yields Absent.
func RecordValue(r *Record) Value {
	if r == nil {
		return Value{}
	}
	return Value{kind: KindRecord, rec: r}
}

// rawSet and rawMap keep wire contents exactly as read, duplicates included.
func rawSet(elems []Value) Value { return Value{kind: KindSet, elems: elems} }

func rawMap(entries []MapEntry) Value { return Value{kind: KindMap, entries: entries} }

func (v Value) Kind() Kind { return v.kind }

// IsPresent reports whether v holds anything.
func (v Value) IsPresent() bool { return v.kind != KindAbsent }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindString {
		return nil, false
	}
	return []byte(v.s), true
}

func (v Value) AsRecord() (*Record, bool) { return v.rec, v.kind == KindRecord }

// Len returns the element count of a container, the byte length of a
// string and zero otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList, KindSet:
		return len(v.elems)
	case KindMap:
		return len(v.entries)
	case KindString:
		return len(v.s)
	default:
		return 0
	}
}

// Elements returns a copy of a list or set's elements.
func (v Value) Elements() []Value {
	if v.kind != KindList && v.kind != KindSet {
		return nil
	}
	return slices.Clone(v.elems)
}

// Entries returns a copy of a map's entries in iteration order.
func (v Value) Entries() []MapEntry {
	if v.kind != KindMap {
		return nil
	}
	return slices.Clone(v.entries)
}

// Lookup finds the value stored under key in a map Value.
func (v Value) Lookup(key Value) (Value, bool) {
	for _, entry := range v.entries {
		if Equal(entry.Key, key) {
			return entry.Value, true
		}
	}
	return Value{}, false
}

// Equal compares two values structurally. Lists compare in order; sets
// and maps compare regardless of order. NaN equals NaN so that decoded
// doubles compare equal to their source.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindAbsent:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f || (math.IsNaN(a.f) && math.IsNaN(b.f))
	case KindString:
		return a.s == b.s
	case KindList:
		return slices.EqualFunc(a.elems, b.elems, Equal)
	case KindSet:
		return sameElements(a.elems, b.elems)
	case KindMap:
		return sameEntries(a.entries, b.entries)
	case KindRecord:
		return a.rec.Equal(b.rec)
	default:
		return false
	}
}

// sameElements compares two element slices as multisets.
func sameElements(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, x := range a {
		found := false
		for j, y := range b {
			if !used[j] && Equal(x, y) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// sameEntries compares two entry slices as multisets of key/value pairs.
// Decoded maps may repeat a key, so each entry of b matches at most once.
func sameEntries(a, b []MapEntry) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, x := range a {
		found := false
		for j, y := range b {
			if !used[j] && Equal(x.Key, y.Key) && Equal(x.Value, y.Value) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// clone deep copies nested records so the copy shares nothing mutable.
func (v Value) clone() Value {
	switch v.kind {
	case KindList, KindSet:
		elems := make([]Value, len(v.elems))
		for i, e := range v.elems {
			elems[i] = e.clone()
		}
		v.elems = elems
	case KindMap:
		entries := make([]MapEntry, len(v.entries))
		for i, e := range v.entries {
			entries[i] = MapEntry{Key: e.Key.clone(), Value: e.Value.clone()}
		}
		v.entries = entries
	case KindRecord:
		v.rec = v.rec.Clone()
	}
	return v
}

func (v Value) String() string {
	var sb strings.Builder
	v.format(&sb)
	return sb.String()
}

func (v Value) format(sb *strings.Builder) {
	switch v.kind {
	case KindAbsent:
		sb.WriteString("<absent>")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindString:
		sb.WriteString(strconv.Quote(v.s))
	case KindList, KindSet:
		open, closing := "[", "]"
		if v.kind == KindSet {
			open, closing = "{", "}"
		}
		sb.WriteString(open)
		for i, e := range v.elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.format(sb)
		}
		sb.WriteString(closing)
	case KindMap:
		sb.WriteString("{")
		for i, e := range v.entries {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.Key.format(sb)
			sb.WriteString(": ")
			e.Value.format(sb)
		}
		sb.WriteString("}")
	case KindRecord:
		sb.WriteString(v.rec.String())
	default:
		fmt.Fprintf(sb, "<kind %d>", v.kind)
	}
}
