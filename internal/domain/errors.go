package domain

import "fmt"

// ValidationError reports an untrusted input that failed domain validation.
// It maps to a 400-level response; validation messages describe user input
// and are safe to expose.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// StatusCode returns the HTTP status this error maps to.
func (e *ValidationError) StatusCode() int { return 400 }

// PublicMessage returns the client-facing message.
func (e *ValidationError) PublicMessage() string { return e.Error() }
