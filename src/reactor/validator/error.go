package validator

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind says which step of construction failed.
type ErrorKind uint32

const (
	// Config means the node configuration could not be used.
	Config ErrorKind = iota
	// Metrics means metrics could not be registered.
	Metrics
	// Storage means the chain could not be read back from storage.
	Storage
	// SmallNetwork means the small network could not start.
	SmallNetwork
	// Consensus means consensus could not be created.
	Consensus
	// APIServer means one of the REST, RPC or event stream servers could not
	// start.
	APIServer
)

// String describes the kind.
func (k ErrorKind) String() string {
	switch k {
	case Config:
		return "config error"
	case Metrics:
		return "metrics error"
	case Storage:
		return "storage error"
	case SmallNetwork:
		return "small network error"
	case Consensus:
		return "consensus error"
	case APIServer:
		return "api server error"
	}
	return fmt.Sprintf("unknown error kind %d", uint32(k))
}

// Error is returned when the validator reactor cannot be constructed.
type Error struct {
	Kind  ErrorKind
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsError checks that err is, or wraps, a validator Error of the given kind.
func IsError(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
