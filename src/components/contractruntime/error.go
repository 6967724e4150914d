package contractruntime

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind ...
type ErrorKind uint32

const (
	// InvalidConfig means the configuration is unusable.
	InvalidConfig ErrorKind = iota
	// Open ...
	Open
	// Metrics ...
	Metrics
	// StateFull means global state reached MaxGlobalStateSize.
	StateFull
)

// Error ...
type Error struct {
	Kind  ErrorKind
	Cause error
}

// Error ...
func (e *Error) Error() string {
	m := ""
	switch e.Kind {
	case InvalidConfig:
		m = "invalid contract runtime config"
	case Open:
		m = "failed to open global state"
	case Metrics:
		m = "failed to register contract runtime metrics"
	case StateFull:
		m = "global state is full"
	}
	return fmt.Sprintf("%s: %v", m, e.Cause)
}

// Unwrap ...
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsError checks that err is, or wraps, a contract runtime Error of the given
// kind.
func IsError(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
