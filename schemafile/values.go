package schemafile

import (
	"encoding/base64"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/hengadev/errsx"
	"gopkg.in/yaml.v3"

	"github.com/hengadev/structwire"
)

// DecodeRecord builds a record of type spec from a YAML mapping of field
// names to values. Fields left out take their defaults; a null value
// leaves the field absent.
func DecodeRecord(spec *structwire.StructSpec, data []byte) (*structwire.Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse record document: %w", structwire.ErrInvalidValue, err)
	}
	node := &doc
	if node.Kind == 0 || (node.Kind == yaml.DocumentNode && len(node.Content) == 0) {
		return structwire.NewRecord(spec, nil)
	}
	if node.Kind == yaml.DocumentNode {
		node = node.Content[0]
	}
	return recordFromNode(spec, node)
}

func recordFromNode(spec *structwire.StructSpec, node *yaml.Node) (*structwire.Record, error) {
	node = deref(node)
	if isNull(node) {
		return structwire.NewRecord(spec, nil)
	}
	if node.Kind != yaml.MappingNode {
		return nil, nodeError(node, fmt.Sprintf("a mapping for %s", spec.Name()))
	}

	inputs := make(map[string]structwire.Value, len(node.Content)/2)
	var errs errsx.Map
	cause := structwire.ErrInvalidValue
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		fd, ok := spec.FieldByName(name)
		if !ok {
			cause = structwire.ErrUnknownField
			errs.Set(name, fmt.Errorf("%w: '%s' has no field named '%s'", structwire.ErrUnknownField, spec.Name(), name))
			continue
		}
		v, err := ValueFromNode(&fd, node.Content[i+1])
		if err != nil {
			errs.Set(name, err)
			continue
		}
		inputs[name] = v
	}
	if !errs.IsEmpty() {
		return nil, fmt.Errorf("%w: record '%s': %w", cause, spec.Name(), errs.AsError())
	}
	return structwire.NewRecord(spec, inputs)
}

// ValueFromNode converts a YAML node into a Value shaped by fd. Null
// converts to the absent Value.
func ValueFromNode(fd *structwire.FieldDescriptor, node *yaml.Node) (structwire.Value, error) {
	node = deref(node)
	if isNull(node) {
		return structwire.Absent(), nil
	}

	switch fd.Type {
	case structwire.BOOL:
		var b bool
		if err := decodeScalar(node, &b, "bool"); err != nil {
			return structwire.Value{}, err
		}
		return structwire.BoolValue(b), nil
	case structwire.BYTE, structwire.I16, structwire.I32, structwire.I64:
		if fd.Enum != nil && node.Kind == yaml.ScalarNode && node.Tag == "!!str" {
			return fd.Enum.EnumValue(node.Value)
		}
		var i int64
		if err := decodeScalar(node, &i, fd.Type.String()); err != nil {
			return structwire.Value{}, err
		}
		return structwire.IntValue(i), nil
	case structwire.DOUBLE:
		var f float64
		if err := decodeScalar(node, &f, "double"); err != nil {
			return structwire.Value{}, err
		}
		return structwire.FloatValue(f), nil
	case structwire.STRING:
		if node.Kind == yaml.ScalarNode && node.Tag == "!!binary" {
			b, err := base64.StdEncoding.DecodeString(node.Value)
			if err != nil {
				return structwire.Value{}, nodeError(node, "base64 data")
			}
			return structwire.BytesValue(b), nil
		}
		var s string
		if err := decodeScalar(node, &s, "string"); err != nil {
			return structwire.Value{}, err
		}
		return structwire.StringValue(s), nil
	case structwire.LIST, structwire.SET:
		if node.Kind != yaml.SequenceNode {
			return structwire.Value{}, nodeError(node, "a sequence")
		}
		elems := make([]structwire.Value, 0, len(node.Content))
		for i, child := range node.Content {
			v, err := ValueFromNode(fd.Elem, child)
			if err != nil {
				return structwire.Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			elems = append(elems, v)
		}
		if fd.Type == structwire.SET {
			return structwire.SetValue(elems...), nil
		}
		return structwire.ListValue(elems...), nil
	case structwire.MAP:
		if node.Kind != yaml.MappingNode {
			return structwire.Value{}, nodeError(node, "a mapping")
		}
		entries := make([]structwire.MapEntry, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			k, err := ValueFromNode(fd.Key, node.Content[i])
			if err != nil {
				return structwire.Value{}, fmt.Errorf("key %d: %w", i/2, err)
			}
			v, err := ValueFromNode(fd.Val, node.Content[i+1])
			if err != nil {
				return structwire.Value{}, fmt.Errorf("[%s]: %w", node.Content[i].Value, err)
			}
			entries = append(entries, structwire.Entry(k, v))
		}
		return structwire.MapValue(entries...), nil
	case structwire.STRUCT:
		rec, err := recordFromNode(fd.Struct, node)
		if err != nil {
			return structwire.Value{}, err
		}
		return structwire.RecordValue(rec), nil
	default:
		return structwire.Value{}, fmt.Errorf("%w: cannot convert type %s", structwire.ErrInvalidSpec, fd.Type)
	}
}

// MarshalRecord renders a record as a YAML document. Enum fields use
// member names when the value is declared; non UTF-8 strings are written
// as !!binary.
func MarshalRecord(rec *structwire.Record) ([]byte, error) {
	node, err := RecordNode(rec)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(node)
}

// RecordNode converts a record into a YAML mapping node holding its
// present fields in ordinal order.
func RecordNode(rec *structwire.Record) (*yaml.Node, error) {
	spec := rec.Spec()
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, info := range spec.Fields() {
		v := rec.Get(info.Name)
		if !v.IsPresent() {
			continue
		}
		fd, _ := spec.FieldByOrdinal(info.Ordinal)
		child, err := NodeFromValue(&fd, v)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", info.Name, err)
		}
		node.Content = append(node.Content, scalar("!!str", info.Name), child)
	}
	return node, nil
}

// NodeFromValue converts v into a YAML node guided by fd.
func NodeFromValue(fd *structwire.FieldDescriptor, v structwire.Value) (*yaml.Node, error) {
	switch v.Kind() {
	case structwire.KindAbsent:
		return scalar("!!null", "null"), nil
	case structwire.KindBool:
		b, _ := v.AsBool()
		return scalar("!!bool", strconv.FormatBool(b)), nil
	case structwire.KindInt:
		i, _ := v.AsInt()
		if fd != nil && fd.Enum != nil && i >= math.MinInt32 && i <= math.MaxInt32 {
			if name, ok := fd.Enum.NameOf(int32(i)); ok {
				return scalar("!!str", name), nil
			}
		}
		return scalar("!!int", strconv.FormatInt(i, 10)), nil
	case structwire.KindFloat:
		f, _ := v.AsFloat()
		return scalar("!!float", formatFloat(f)), nil
	case structwire.KindString:
		s, _ := v.AsString()
		if !utf8.ValidString(s) {
			return scalar("!!binary", base64.StdEncoding.EncodeToString([]byte(s))), nil
		}
		return scalar("!!str", s), nil
	case structwire.KindList, structwire.KindSet:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range v.Elements() {
			child, err := NodeFromValue(elem(fd), e)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case structwire.KindMap:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		var keyFD, valFD *structwire.FieldDescriptor
		if fd != nil {
			keyFD, valFD = fd.Key, fd.Val
		}
		for _, entry := range v.Entries() {
			k, err := NodeFromValue(keyFD, entry.Key)
			if err != nil {
				return nil, err
			}
			val, err := NodeFromValue(valFD, entry.Value)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, k, val)
		}
		return node, nil
	case structwire.KindRecord:
		rec, _ := v.AsRecord()
		return RecordNode(rec)
	default:
		return nil, fmt.Errorf("cannot render value of kind %s", v.Kind())
	}
}

func elem(fd *structwire.FieldDescriptor) *structwire.FieldDescriptor {
	if fd == nil {
		return nil
	}
	return fd.Elem
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

func decodeScalar(node *yaml.Node, out any, want string) error {
	if node.Kind != yaml.ScalarNode {
		return nodeError(node, "a "+want+" scalar")
	}
	if err := node.Decode(out); err != nil {
		return nodeError(node, "a "+want)
	}
	return nil
}

func deref(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

func isNull(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.Tag == "!!null")
}

var kindNames = map[yaml.Kind]string{
	yaml.DocumentNode: "document",
	yaml.SequenceNode: "sequence",
	yaml.MappingNode:  "mapping",
	yaml.ScalarNode:   "scalar",
	yaml.AliasNode:    "alias",
}

func nodeError(node *yaml.Node, want string) error {
	got := kindNames[node.Kind]
	if node.Kind == yaml.ScalarNode {
		got = fmt.Sprintf("%q", node.Value)
	}
	return fmt.Errorf("%w: line %d: expected %s, got %s", structwire.ErrInvalidValue, node.Line, want, got)
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
