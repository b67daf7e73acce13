package core

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is the sentinel for every configuration error.
var ErrInvalidConfiguration = errors.New("invalid ingest configuration")

// ErrEmptyBatch is returned when an empty batch meets EmptyBatchFail.
var ErrEmptyBatch = errors.New("staging dataset is empty")

// ConfigError describes an invalid schema/mode combination.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidConfiguration, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfiguration, e.Field, e.Reason)
}

// Unwrap returns ErrInvalidConfiguration.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

// Configf builds a ConfigError with a formatted reason.
func Configf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
