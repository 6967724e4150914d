package storage

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind ...
type ErrorKind uint32

const (
	// CreateDir ...
	CreateDir ErrorKind = iota
	// Open ...
	Open
	// Cache ...
	Cache
	// Internal is a database failure after startup.
	Internal
)

// Error ...
type Error struct {
	Kind  ErrorKind
	Path  string
	Cause error
}

func newError(kind ErrorKind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Cause: cause}
}

// Error ...
func (e *Error) Error() string {
	m := ""
	switch e.Kind {
	case CreateDir:
		m = "failed to create database directory"
	case Open:
		m = "failed to open database"
	case Cache:
		m = "failed to create block cache"
	case Internal:
		m = "database error"
	}
	return fmt.Sprintf("%s %s: %v", m, e.Path, e.Cause)
}

// Unwrap ...
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsError checks that err is, or wraps, a storage Error of the given kind.
func IsError(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
