package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Parameter errors
	ErrUnsupportedParameterType = errors.New("unsupported parameter type")
	ErrInvalidParameter         = errors.New("invalid parameter")
	ErrParameterNotFound        = errors.New("parameter not found")

	// Configuration errors
	ErrModelSpaceMisconfigured = errors.New("model space misconfigured")
	ErrUnknownComponent        = errors.New("unknown component")
	ErrInvalidDesign           = errors.New("invalid design")

	// Fitting errors
	ErrLatentsUnavailable = errors.New("latent trajectories unavailable")
	ErrFitFailed          = errors.New("all optimizer restarts failed")
)

// Error constructors with context
func NewParameterNotFoundError(group, name string) error {
	if group == "" {
		return fmt.Errorf("%w: %s", ErrParameterNotFound, name)
	}
	return fmt.Errorf("%w: %s.%s", ErrParameterNotFound, group, name)
}

func NewInvalidParameterError(name string, value float64, reason string) error {
	return fmt.Errorf("%w: %s=%g (%s)", ErrInvalidParameter, name, value, reason)
}

func NewUnsupportedParameterTypeError(path string, value interface{}) error {
	return fmt.Errorf("%w at %q: %T", ErrUnsupportedParameterType, path, value)
}

func NewModelSpaceError(reason string) error {
	return fmt.Errorf("%w: %s", ErrModelSpaceMisconfigured, reason)
}

func NewUnknownComponentError(kind, name string) error {
	return fmt.Errorf("%w: %s %q", ErrUnknownComponent, kind, name)
}

// IsRecoverable reports errors that must not abort a batch.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrLatentsUnavailable)
}
