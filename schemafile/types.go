package schemafile

import (
	"fmt"
	"strings"

	"github.com/hengadev/structwire"
)

type resolver func(name string) (*structwire.FieldDescriptor, error)

// ParseType parses an IDL type expression made of primitives and
// containers only, such as "map<string, list<set<i32>>>".
func ParseType(expr string) (*structwire.FieldDescriptor, error) {
	return parseType(expr, func(name string) (*structwire.FieldDescriptor, error) {
		return nil, fmt.Errorf("unknown type '%s'", name)
	})
}

func parseType(expr string, resolve resolver) (*structwire.FieldDescriptor, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("type cannot be empty")
	}

	if open := strings.IndexByte(expr, '<'); open >= 0 {
		if !strings.HasSuffix(expr, ">") {
			return nil, fmt.Errorf("unbalanced type '%s'", expr)
		}
		kind, inner := strings.TrimSpace(expr[:open]), expr[open+1:len(expr)-1]
		args, err := splitArgs(inner)
		if err != nil {
			return nil, fmt.Errorf("type '%s': %w", expr, err)
		}

		switch kind {
		case "list", "set":
			if len(args) != 1 {
				return nil, fmt.Errorf("%s takes one type argument, got %d", kind, len(args))
			}
			elem, err := parseType(args[0], resolve)
			if err != nil {
				return nil, err
			}
			if kind == "list" {
				return structwire.ListOf(elem), nil
			}
			return structwire.SetOf(elem), nil
		case "map":
			if len(args) != 2 {
				return nil, fmt.Errorf("map takes two type arguments, got %d", len(args))
			}
			key, err := parseType(args[0], resolve)
			if err != nil {
				return nil, err
			}
			val, err := parseType(args[1], resolve)
			if err != nil {
				return nil, err
			}
			return structwire.MapOf(key, val), nil
		default:
			return nil, fmt.Errorf("unknown container '%s'", kind)
		}
	}

	if tag, err := structwire.ParseTypeTag(expr); err == nil {
		if !tag.IsScalar() {
			return nil, fmt.Errorf("%s needs type arguments", expr)
		}
		return structwire.TypeOf(tag), nil
	}
	return resolve(expr)
}

// splitArgs splits a type argument list at top-level commas.
func splitArgs(s string) ([]string, error) {
	var args []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced '>'")
			}
		case ',':
			if depth == 0 {
				args = append(args, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced '<'")
	}
	args = append(args, s[start:])
	for i, a := range args {
		if strings.TrimSpace(a) == "" {
			return nil, fmt.Errorf("empty type argument %d", i+1)
		}
	}
	return args, nil
}
