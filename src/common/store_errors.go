package common

import "fmt"

// IndexErrType ...
type IndexErrType uint32

const (
	// KeyNotFound ...
	KeyNotFound IndexErrType = iota
	// TooLate means the item was already rolled out of the window.
	TooLate
	// SkippedIndex means an item was set past the next expected index.
	SkippedIndex
)

// IndexErr ...
type IndexErr struct {
	name    string
	errType IndexErrType
	index   uint64
}

// NewIndexErr ...
func NewIndexErr(name string, errType IndexErrType, index uint64) IndexErr {
	return IndexErr{
		name:    name,
		errType: errType,
		index:   index,
	}
}

// Error ...
func (e IndexErr) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case TooLate:
		m = "Too Late"
	case SkippedIndex:
		m = "Skipped Index"
	}

	return fmt.Sprintf("%s, %d, %s", e.name, e.index, m)
}

// IsIndexErr checks that an error is an IndexErr of type t.
func IsIndexErr(err error, t IndexErrType) bool {
	indexErr, ok := err.(IndexErr)
	return ok && indexErr.errType == t
}
