package mcp

import "fmt"

// DuplicateNameError is returned by NewRegistry when two tools or two prompts
// share a name.
type DuplicateNameError struct {
	Kind string // "tool" or "prompt"
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s with name %q already registered", e.Kind, e.Name)
}

// ValidationError reports a schema validation failure for one field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// StateAccessError is returned by Arguments.State when the requested key is
// absent from the shared state container or holds a value of the wrong type.
type StateAccessError struct {
	Key    string
	Reason string
}

func (e *StateAccessError) Error() string {
	return fmt.Sprintf("state key %q: %s", e.Key, e.Reason)
}

// internalError marks a fault that was not raised by handler logic, such as a
// recovered panic. It always surfaces as a JSON-RPC internal error, never as
// an error-as-value payload.
type internalError struct {
	cause error
}

func (e *internalError) Error() string {
	return e.cause.Error()
}

func (e *internalError) Unwrap() error {
	return e.cause
}
