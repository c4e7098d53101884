// Package schemafile loads struct specifications from YAML and converts
// records to and from YAML documents.
//
// A schema file declares enums and structs:
//
//	enums:
//	  City: {NYC: 0, MPK: 1, SEA: 2}
//	structs:
//	  - name: Foo
//	    fields:
//	      - {id: 1, name: a, type: "list<string>"}
//	      - {id: 2, name: b, type: "map<string, list<set<i32>>>"}
//	      - {id: 3, name: c, type: i64, default: 7}
//	      - {id: 4, name: d, type: bool, default: false}
//	  - name: Baz
//	    exception: true
//	    message: message
//	    fields:
//	      - {id: 1, name: message, type: string, default: ""}
//
// Field types use IDL notation; a bare name refers to another struct or
// an enum of the same file.
package schemafile

import (
	"fmt"
	"os"
	"slices"

	"github.com/hengadev/errsx"
	"gopkg.in/yaml.v3"

	"github.com/hengadev/structwire"
)

// File is the on-disk layout of a schema file.
type File struct {
	Enums   map[string]map[string]int32 `yaml:"enums,omitempty"`
	Structs []StructDef                 `yaml:"structs"`
}

// StructDef declares one record type.
type StructDef struct {
	Name      string     `yaml:"name"`
	Exception bool       `yaml:"exception,omitempty"`
	Message   string     `yaml:"message,omitempty"`
	Fields    []FieldDef `yaml:"fields"`
}

// FieldDef declares one field. Default is left as a node because its
// meaning depends on Type.
type FieldDef struct {
	ID       int16     `yaml:"id"`
	Name     string    `yaml:"name"`
	Type     string    `yaml:"type"`
	Required bool      `yaml:"required,omitempty"`
	Default  yaml.Node `yaml:"default,omitempty"`
}

// Schema is a resolved set of specifications.
type Schema struct {
	structs map[string]*structwire.StructSpec
	enums   map[string]*structwire.EnumSpec
	order   []string
}

// Load reads and resolves a schema file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}

// Parse resolves a schema from YAML bytes.
func Parse(data []byte) (*Schema, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: failed to parse schema: %w", structwire.ErrInvalidSpec, err)
	}
	return f.Resolve()
}

// Resolve builds every declared spec, nested references first. Every
// struct that fails is reported.
func (f *File) Resolve() (*Schema, error) {
	b := &builder{
		defs:     make(map[string]*StructDef, len(f.Structs)),
		schema:   &Schema{structs: make(map[string]*structwire.StructSpec), enums: make(map[string]*structwire.EnumSpec)},
		visiting: make(map[string]bool),
		failed:   make(map[string]error),
	}

	var errs errsx.Map
	for name, values := range f.Enums {
		enum, err := structwire.NewEnumSpec(name, values)
		if err != nil {
			errs.Set("enum "+name, err)
			continue
		}
		b.schema.enums[name] = enum
	}

	for i := range f.Structs {
		def := &f.Structs[i]
		switch {
		case def.Name == "":
			errs.Set(fmt.Sprintf("struct #%d", i), fmt.Errorf("name cannot be empty"))
			continue
		case b.defs[def.Name] != nil:
			errs.Set("struct "+def.Name, fmt.Errorf("declared more than once"))
			continue
		case b.schema.enums[def.Name] != nil:
			errs.Set("struct "+def.Name, fmt.Errorf("name already used by an enum"))
			continue
		}
		b.defs[def.Name] = def
		b.schema.order = append(b.schema.order, def.Name)
	}

	for _, name := range b.schema.order {
		if _, err := b.build(name); err != nil {
			errs.Set("struct "+name, err)
		}
	}

	if !errs.IsEmpty() {
		return nil, fmt.Errorf("%w: %w", structwire.ErrInvalidSpec, errs.AsError())
	}
	return b.schema, nil
}

// Struct returns the spec declared under name.
func (s *Schema) Struct(name string) (*structwire.StructSpec, bool) {
	spec, ok := s.structs[name]
	return spec, ok
}

// Enum returns the enum declared under name.
func (s *Schema) Enum(name string) (*structwire.EnumSpec, bool) {
	enum, ok := s.enums[name]
	return enum, ok
}

// StructNames lists struct names in declaration order.
func (s *Schema) StructNames() []string {
	return slices.Clone(s.order)
}

// EnumNames lists enum names alphabetically.
func (s *Schema) EnumNames() []string {
	return sortedNames(s.enums)
}

type builder struct {
	defs     map[string]*StructDef
	schema   *Schema
	visiting map[string]bool
	failed   map[string]error
}

func (b *builder) build(name string) (*structwire.StructSpec, error) {
	if spec, ok := b.schema.structs[name]; ok {
		return spec, nil
	}
	if err, ok := b.failed[name]; ok {
		return nil, err
	}
	def, ok := b.defs[name]
	if !ok {
		return nil, fmt.Errorf("unknown type '%s'", name)
	}
	if b.visiting[name] {
		return nil, fmt.Errorf("struct '%s' contains itself", name)
	}
	b.visiting[name] = true
	defer delete(b.visiting, name)

	spec, err := b.buildDef(def)
	if err != nil {
		b.failed[name] = err
		return nil, err
	}
	b.schema.structs[name] = spec
	return spec, nil
}

func (b *builder) buildDef(def *StructDef) (*structwire.StructSpec, error) {
	fields := make([]*structwire.FieldDescriptor, 0, len(def.Fields))
	for _, fdef := range def.Fields {
		typ, err := parseType(fdef.Type, b.resolve)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", fdef.Name, err)
		}
		var opts []structwire.FieldOption
		if fdef.Required {
			opts = append(opts, structwire.Required())
		}
		if fdef.Default.Kind != 0 {
			v, err := ValueFromNode(typ, &fdef.Default)
			if err != nil {
				return nil, fmt.Errorf("field '%s' default: %w", fdef.Name, err)
			}
			opts = append(opts, structwire.Default(v))
		}
		fields = append(fields, structwire.Field(fdef.ID, fdef.Name, typ, opts...))
	}

	var opts []structwire.SpecOption
	if def.Exception {
		message := def.Message
		if message == "" {
			message = "message"
		}
		opts = append(opts, structwire.AsException(message))
	}
	return structwire.NewStructSpec(def.Name, fields, opts...)
}

func (b *builder) resolve(name string) (*structwire.FieldDescriptor, error) {
	if enum, ok := b.schema.enums[name]; ok {
		return structwire.EnumOf(enum), nil
	}
	spec, err := b.build(name)
	if err != nil {
		return nil, err
	}
	return structwire.StructOf(spec), nil
}
