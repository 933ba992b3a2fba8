package service

import "fmt"

// NotFoundError is returned when a requested resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ValidationError is returned when request data fails validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
	}
	return e.Message
}

// StoreUnavailableError is returned when the subscription store or the
// delivery log could not be reached or rejected a management operation.
// Callers may retry.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// SignatureError is returned when an inbound delivery fails verification.
type SignatureError struct {
	Reason string
}

func (e *SignatureError) Error() string {
	return "signature verification failed: " + e.Reason
}

// UnsupportedError is returned when the configured backend cannot perform an
// operation at all.
type UnsupportedError struct {
	Op string
}

func (e *UnsupportedError) Error() string {
	return e.Op + " is not supported by the configured subscription store"
}
