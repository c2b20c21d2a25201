package pm

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMeshConfigured indicates a scale factor earlier than every
	// configured mesh activation time.
	ErrNoMeshConfigured = errors.New("pm: no mesh configured for scale factor")

	// ErrConfiguration indicates an empty, unordered or otherwise invalid
	// configuration.
	ErrConfiguration = errors.New("pm: invalid configuration")

	// ErrResourceExhausted indicates a scratch buffer request that cannot
	// be satisfied.
	ErrResourceExhausted = errors.New("pm: scratch allocation exhausted")

	// ErrAliasedFields indicates a kernel was given the same buffer as
	// source and destination.
	ErrAliasedFields = errors.New("pm: source and destination fields alias")

	// ErrFieldLength indicates a field whose length does not match the
	// local region.
	ErrFieldLength = errors.New("pm: field length does not match region")
)

// CollaboratorError wraps an error returned by a collaborator with the
// pipeline stage that called it.
type CollaboratorError struct {
	Stage   string
	Wrapped error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("pm: %s: %v", e.Stage, e.Wrapped)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Wrapped
}

// Collaborator wraps err for stage, or returns nil.
func Collaborator(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Stage: stage, Wrapped: err}
}

// Configf builds an error wrapping ErrConfiguration.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
