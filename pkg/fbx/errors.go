package fbx

import (
	"errors"
	"fmt"
)

// Failure kinds. Builders wrap these so callers can decide per asset type
// whether a load is salvageable.
var (
	ErrInvalidSignature    = errors.New("invalid FBX signature: expected 'Kaydara FBX Binary'")
	ErrUnsupportedVersion  = errors.New("unsupported FBX version")
	ErrMalformedContainer  = errors.New("malformed container")
	ErrUnsupportedEncoding = errors.New("unsupported array encoding")
	ErrUnresolvedReference = errors.New("unresolved object reference")
	ErrDuplicateObject     = errors.New("duplicate object id")
	ErrMissingParent       = errors.New("missing bone parent")
	ErrAmbiguousParent     = errors.New("ambiguous bone parent")
	ErrUnsupportedMapping  = errors.New("unsupported layer mapping")
	ErrPropertyType        = errors.New("property type mismatch")
)

// OffsetError reports a structural violation at a byte offset of the stream.
// Once one occurs the remaining offsets cannot be trusted and the load stops.
type OffsetError struct {
	Offset int64
	Err    error
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("at offset %d: %v", e.Offset, e.Err)
}

// Unwrap exposes the failure kind. Anything that is not already a more
// specific kind is reported as ErrMalformedContainer.
func (e *OffsetError) Unwrap() []error {
	if errors.Is(e.Err, ErrMalformedContainer) {
		return []error{e.Err}
	}
	return []error{ErrMalformedContainer, e.Err}
}

func malformedAt(offset int64, format string, args ...any) error {
	return &OffsetError{Offset: offset, Err: fmt.Errorf(format, args...)}
}

// ReferenceError names an object ID that a connection or record points at
// but that the object map does not contain.
type ReferenceError struct {
	ID      int64
	Context string
}

func (e *ReferenceError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("%v: id %d", ErrUnresolvedReference, e.ID)
	}
	return fmt.Sprintf("%v: id %d (%s)", ErrUnresolvedReference, e.ID, e.Context)
}

func (e *ReferenceError) Unwrap() error { return ErrUnresolvedReference }

// PropertyTypeError is returned when a property is read as a type it cannot
// be converted to without loss.
type PropertyTypeError struct {
	Want string
	Got  PropertyType
}

func (e *PropertyTypeError) Error() string {
	return fmt.Sprintf("%v: want %s, got %s", ErrPropertyType, e.Want, e.Got)
}

func (e *PropertyTypeError) Unwrap() error { return ErrPropertyType }

// MappingError reports an enumerated layer field carrying a value outside
// the supported set.
type MappingError struct {
	Element string
	Field   string
	Value   string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%v: %s.%s = %q", ErrUnsupportedMapping, e.Element, e.Field, e.Value)
}

func (e *MappingError) Unwrap() error { return ErrUnsupportedMapping }
