package structwire

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/hengadev/errsx"

	"github.com/hengadev/structwire/internal/wireerr"
)

// StructSpec is the static field table of one record type. It is built
// once, usually at package initialization, and is safe for concurrent
// read-only use by any number of encode and decode calls.
type StructSpec struct {
	name         string
	exception    bool
	messageField string

	fields    []*FieldDescriptor // ascending ordinal
	byOrdinal map[int16]int
	byName    map[string]int16

	structuralID uint64
}

// SpecOption adjusts a StructSpec while it is being built.
type SpecOption func(*StructSpec)

// AsException marks the record type as an error variant whose message is
// read from the named STRING field.
func AsException(messageField string) SpecOption {
	return func(s *StructSpec) {
		s.exception = true
		s.messageField = messageField
	}
}

// FieldInfo is the introspection view of one field.
type FieldInfo struct {
	Ordinal    int16
	Name       string
	Type       TypeTag
	TypeName   string
	Required   bool
	HasDefault bool
	Default    Value
}

// NewStructSpec validates the field table and derives the name index and
// the structural identity hash. Every problem found is reported at once.
func NewStructSpec(name string, fields []*FieldDescriptor, opts ...SpecOption) (*StructSpec, error) {
	s := &StructSpec{
		name:      name,
		byOrdinal: make(map[int16]int, len(fields)),
		byName:    make(map[string]int16, len(fields)),
	}
	for _, opt := range opts {
		opt(s)
	}

	var errs errsx.Map
	if name == "" {
		errs.Set("struct name", fmt.Errorf("cannot be empty"))
	}

	seenOrdinals := make(map[int16]string, len(fields))
	for i, fd := range fields {
		key := fmt.Sprintf("field #%d", i)
		if fd == nil {
			errs.Set(key, fmt.Errorf("descriptor is nil"))
			continue
		}
		if fd.Name != "" {
			key = fmt.Sprintf("field '%s'", fd.Name)
		}
		if err := validateField(fd, seenOrdinals, s.byName); err != nil {
			errs.Set(key, err)
			continue
		}
		seenOrdinals[fd.Ordinal] = fd.Name
		s.byName[fd.Name] = fd.Ordinal
		s.fields = append(s.fields, fd.clone())
	}

	if s.exception {
		if err := s.validateMessageField(); err != nil {
			errs.Set("exception message", err)
		}
	}

	if !errs.IsEmpty() {
		return nil, fmt.Errorf("%w: '%s': %w", wireerr.ErrInvalidSpec, name, errs.AsError())
	}

	slices.SortFunc(s.fields, func(a, b *FieldDescriptor) int { return cmp.Compare(a.Ordinal, b.Ordinal) })
	for i, fd := range s.fields {
		s.byOrdinal[fd.Ordinal] = i
	}
	s.structuralID = computeStructuralID(s.fields)
	return s, nil
}

// MustStructSpec is NewStructSpec for package-level tables; it panics on
// an invalid table.
func MustStructSpec(name string, fields []*FieldDescriptor, opts ...SpecOption) *StructSpec {
	s, err := NewStructSpec(name, fields, opts...)
	if err != nil {
		panic("structwire: " + err.Error())
	}
	return s
}

func validateField(fd *FieldDescriptor, ordinals map[int16]string, names map[string]int16) error {
	if fd.Ordinal <= 0 {
		return fmt.Errorf("ordinal must be positive, got %d", fd.Ordinal)
	}
	if fd.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if other, dup := ordinals[fd.Ordinal]; dup {
		return fmt.Errorf("ordinal %d already used by '%s'", fd.Ordinal, other)
	}
	if _, dup := names[fd.Name]; dup {
		return fmt.Errorf("name already used")
	}
	if err := fd.validateShape(fd.Name); err != nil {
		return err
	}
	if fd.Default.IsPresent() {
		if err := fd.checkValue(fd.Name, fd.Default, wireerr.Construct); err != nil {
			return fmt.Errorf("default: %w", err)
		}
	}
	return nil
}

func (s *StructSpec) validateMessageField() error {
	ordinal, ok := s.byName[s.messageField]
	if !ok {
		return fmt.Errorf("message field '%s' is not declared", s.messageField)
	}
	for _, fd := range s.fields {
		if fd.Ordinal == ordinal && fd.Type != STRING {
			return fmt.Errorf("message field '%s' must be a string, got %s", s.messageField, fd.Type)
		}
	}
	return nil
}

func (s *StructSpec) Name() string { return s.name }

// IsException reports whether records of this type are error variants.
func (s *StructSpec) IsException() bool { return s.exception }

// MessageField names the field surfaced by Exception.Error.
func (s *StructSpec) MessageField() string { return s.messageField }

// StructuralID is the shape hash computed at construction.
func (s *StructSpec) StructuralID() uint64 { return s.structuralID }

func (s *StructSpec) NumFields() int { return len(s.fields) }

// SameShape reports whether records of other can be written where s is
// expected: the same spec, or one with an identical structural id.
func (s *StructSpec) SameShape(other *StructSpec) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s == other || s.structuralID == other.structuralID
}

// Ordinal resolves a field name.
func (s *StructSpec) Ordinal(name string) (int16, bool) {
	ordinal, ok := s.byName[name]
	return ordinal, ok
}

// FieldByOrdinal returns a copy of the descriptor for ordinal. Nested
// descriptors are shared with the spec and must not be modified.
func (s *StructSpec) FieldByOrdinal(ordinal int16) (FieldDescriptor, bool) {
	fd := s.descriptor(ordinal)
	if fd == nil {
		return FieldDescriptor{}, false
	}
	return *fd, true
}

// FieldByName returns a copy of the descriptor for name.
func (s *StructSpec) FieldByName(name string) (FieldDescriptor, bool) {
	ordinal, ok := s.byName[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return s.FieldByOrdinal(ordinal)
}

// Fields enumerates the fields in ordinal order.
func (s *StructSpec) Fields() []FieldInfo {
	out := make([]FieldInfo, len(s.fields))
	for i, fd := range s.fields {
		out[i] = FieldInfo{
			Ordinal:    fd.Ordinal,
			Name:       fd.Name,
			Type:       fd.Type,
			TypeName:   fd.TypeName(),
			Required:   fd.Required,
			HasDefault: fd.Default.IsPresent(),
			Default:    fd.Default,
		}
	}
	return out
}

func (s *StructSpec) descriptor(ordinal int16) *FieldDescriptor {
	idx, ok := s.byOrdinal[ordinal]
	if !ok {
		return nil
	}
	return s.fields[idx]
}

// position returns the slot index used by Record for ordinal.
func (s *StructSpec) position(ordinal int16) (int, bool) {
	idx, ok := s.byOrdinal[ordinal]
	return idx, ok
}

// IDL renders the spec as an IDL-style declaration.
func (s *StructSpec) IDL() string {
	var sb strings.Builder
	kind := "struct"
	if s.exception {
		kind = "exception"
	}
	fmt.Fprintf(&sb, "%s %s {\n", kind, s.name)
	for _, fd := range s.fields {
		fmt.Fprintf(&sb, "  %d: ", fd.Ordinal)
		if fd.Required {
			sb.WriteString("required ")
		}
		fmt.Fprintf(&sb, "%s %s", fd.TypeName(), fd.Name)
		if fd.Default.IsPresent() {
			fmt.Fprintf(&sb, " = %s", fd.Default)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}

func (s *StructSpec) String() string {
	return fmt.Sprintf("%s(%d fields, id %#016x)", s.name, len(s.fields), s.structuralID)
}
