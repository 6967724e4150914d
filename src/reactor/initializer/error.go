package initializer

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind tells which step of the initializer's construction failed.
type ErrorKind uint32

const (
	// Config means the node configuration could not be used, such as an
	// unreadable secret key.
	Config ErrorKind = iota
	// Metrics means metrics could not be registered.
	Metrics
	// Chainspec means the chainspec or its accounts could not be loaded.
	Chainspec
	// Storage means storage could not be opened.
	Storage
	// ContractRuntime means the contract runtime could not be created.
	ContractRuntime
	// SmallNetworkIdentity means no network identity could be created.
	SmallNetworkIdentity
	// Genesis means the reactor stopped without committing genesis.
	Genesis
)

// String describes the kind.
func (k ErrorKind) String() string {
	switch k {
	case Config:
		return "config error"
	case Metrics:
		return "metrics error"
	case Chainspec:
		return "chainspec error"
	case Storage:
		return "storage error"
	case ContractRuntime:
		return "contract runtime error"
	case SmallNetworkIdentity:
		return "small network identity error"
	case Genesis:
		return "genesis error"
	}
	return fmt.Sprintf("unknown error kind %d", uint32(k))
}

// Error is returned by the initializer's constructors.
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

// IsError checks that err is, or wraps, an initializer Error of the given
// kind.
func IsError(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
