package utils

import "fmt"

// GridError represents a structured grid-read error. Variable is set when
// the failure concerns one variable of a data source.
type GridError struct {
	Context  string
	Variable string
	Cause    error
}

// Error implements the error interface.
func (e *GridError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("%s %q: %v", e.Context, e.Variable, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Context, e.Cause)
}

// WrapError creates a contextual error.
func WrapError(context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &GridError{
		Context: context,
		Cause:   cause,
	}
}

// WrapVariableError creates a contextual error about one variable.
func WrapVariableError(context, variable string, cause error) error {
	if cause == nil {
		return nil
	}
	return &GridError{
		Context:  context,
		Variable: variable,
		Cause:    cause,
	}
}

// Unwrap provides compatibility with errors.Unwrap().
func (e *GridError) Unwrap() error {
	return e.Cause
}
