package session

import (
	"fmt"
	"strings"
)

// UnsupportedModelError is returned at construction when the model
// identifier is not in the capacity table.
type UnsupportedModelError struct {
	Model     string
	Supported []string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported model %q: must be one of [%s]",
		e.Model, strings.Join(e.Supported, ", "))
}

// ConfigurationError is returned at construction for invalid settings,
// e.g. an output reservation that meets or exceeds the model's capacity.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid session configuration: " + e.Reason
}

// UnsupportedInputError is returned when token counting is invoked with an
// unrecognized input shape. This is a programmer error and always propagates.
type UnsupportedInputError struct {
	Input any
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("cannot count tokens for input of type %T", e.Input)
}

// UnrecognizedStateError signals an unexpected finish reason in a provider
// response: a protocol contract violation, never masked by the error policy.
type UnrecognizedStateError struct {
	FinishReason string
}

func (e *UnrecognizedStateError) Error() string {
	return fmt.Sprintf("unrecognized finish reason %q in provider response", e.FinishReason)
}
