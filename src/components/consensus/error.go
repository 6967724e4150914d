package consensus

import "fmt"

// ErrorKind ...
type ErrorKind uint32

const (
	// InvalidConfig means the chainspec does not allow running consensus.
	InvalidConfig ErrorKind = iota
	// Metrics ...
	Metrics
)

// Error is a construction failure of the consensus component.
type Error struct {
	Kind  ErrorKind
	Cause error
}

// Error ...
func (e *Error) Error() string {
	switch e.Kind {
	case InvalidConfig:
		return fmt.Sprintf("invalid consensus configuration: %v", e.Cause)
	case Metrics:
		return fmt.Sprintf("failed to register consensus metrics: %v", e.Cause)
	}
	return e.Cause.Error()
}

// Unwrap ...
func (e *Error) Unwrap() error {
	return e.Cause
}
