package dialect

import (
	"errors"
	"fmt"
)

// ErrDialectRequired is returned when a dialect is required but not provided.
var ErrDialectRequired = errors.New("dialect is required")

// ErrUnsupportedFeature is the sentinel behind every CapabilityError.
var ErrUnsupportedFeature = errors.New("unsupported dialect feature")

// CapabilityError reports that a dialect cannot render a construct.
type CapabilityError struct {
	Dialect string
	Feature Feature
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("dialect %q does not support %s", e.Dialect, e.Feature)
}

// Unwrap returns ErrUnsupportedFeature.
func (e *CapabilityError) Unwrap() error {
	return ErrUnsupportedFeature
}

// UnknownDialectError is returned when a dialect name is not registered.
type UnknownDialectError struct {
	Name      string
	Available []string
}

func (e *UnknownDialectError) Error() string {
	return fmt.Sprintf("unknown dialect %q (available: %v)", e.Name, e.Available)
}
