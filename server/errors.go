package main

import "fmt"

// ValidationError is a user-facing input problem. Kind is the stable
// machine-readable code returned as "error".
type ValidationError struct {
	Kind    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func invalid(kind, msg string) *ValidationError {
	return &ValidationError{Kind: kind, Message: msg}
}
