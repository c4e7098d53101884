package structwire

// Exception is a record whose type is marked as an error variant. It
// travels through the engine like any other record; the only addition is
// the error message projected from the designated string field.
type Exception struct {
	record *Record
}

// NewException constructs a record of an exception type and wraps it.
func NewException(spec *StructSpec, inputs map[string]Value) (*Exception, error) {
	if spec != nil && !spec.IsException() {
		return nil, errNotException(spec)
	}
	r, err := NewRecord(spec, inputs)
	if err != nil {
		return nil, err
	}
	return &Exception{record: r}, nil
}

// AsException wraps r when its type is an exception.
func (r *Record) AsException() (*Exception, bool) {
	if r == nil || !r.spec.IsException() {
		return nil, false
	}
	return &Exception{record: r}, true
}

// Record returns the underlying record.
func (e *Exception) Record() *Record { return e.record }

// Message returns the designated message field, or "" when it is absent.
func (e *Exception) Message() string {
	s, _ := e.record.Get(e.record.spec.messageField).AsString()
	return s
}

func (e *Exception) Error() string {
	if msg := e.Message(); msg != "" {
		return e.record.spec.name + ": " + msg
	}
	return e.record.spec.name
}
