package intent

import (
	"errors"
	"fmt"
)

// ErrMissingKind is returned when the payload has no usable discriminator.
// UnknownKindError also matches it.
var ErrMissingKind = errors.New("intent: missing kind")

// UnknownKindError reports a discriminator outside the known set.
type UnknownKindError struct {
	Value string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("intent: unknown kind %q", e.Value)
}

func (e *UnknownKindError) Is(target error) bool {
	return target == ErrMissingKind
}

// MissingFieldError reports a required field that is absent, null or empty.
type MissingFieldError struct {
	Kind  Kind
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("intent %s: missing required field %q", e.Kind, e.Field)
}

// InvalidFieldError reports a present field whose value breaks its format.
type InvalidFieldError struct {
	Kind  Kind
	Field string
	Value any
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("intent %s: invalid value %v for field %q", e.Kind, e.Value, e.Field)
}
