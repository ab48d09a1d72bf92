package config

import "errors"

var (
	// ErrInvalidConfig means a configuration value failed validation.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrConfigPersist means an update could not be written to durable storage.
	ErrConfigPersist = errors.New("config persist failed")
)

// FieldError is a validation failure of one Mutable field. It matches
// ErrInvalidConfig with errors.Is.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return ErrInvalidConfig.Error() + ": " + e.Message()
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidConfig
}

// Message describes the failure without the sentinel prefix.
func (e *FieldError) Message() string {
	return e.Field + " " + e.Reason
}
