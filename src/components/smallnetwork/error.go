package smallnetwork

import (
	"errors"
	"fmt"
)

var (
	errNotAdvertisable = errors.New("local bind address is not advertisable")
	errNotTCP          = errors.New("local address is not a TCP address")
	errFrameTooLarge   = errors.New("frame exceeds maximum message size")
)

// IdentityError means no network identity could be created.
type IdentityError struct {
	Cause error
}

// Error ...
func (e *IdentityError) Error() string {
	return fmt.Sprintf("failed to create network identity: %v", e.Cause)
}

// Unwrap ...
func (e *IdentityError) Unwrap() error {
	return e.Cause
}

// ErrorKind ...
type ErrorKind uint32

const (
	// Listen means the listener could not be bound.
	Listen ErrorKind = iota
	// Metrics ...
	Metrics
)

// Error is a construction failure of the network component.
type Error struct {
	Kind  ErrorKind
	Cause error
}

// Error ...
func (e *Error) Error() string {
	switch e.Kind {
	case Listen:
		return fmt.Sprintf("failed to listen: %v", e.Cause)
	case Metrics:
		return fmt.Sprintf("failed to register network metrics: %v", e.Cause)
	}
	return e.Cause.Error()
}

// Unwrap ...
func (e *Error) Unwrap() error {
	return e.Cause
}
