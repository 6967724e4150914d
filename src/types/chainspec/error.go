package chainspec

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shivlim/casper-node/src/types"
)

// ErrorKind ...
type ErrorKind uint32

const (
	// DecodingFromToml ...
	DecodingFromToml ErrorKind = iota
	// DecodingMotes ...
	DecodingMotes
	// LoadChainspec ...
	LoadChainspec
	// LoadUpgradePoint ...
	LoadUpgradePoint
	// LoadChainspecAccounts ...
	LoadChainspecAccounts
	// Invalid means the chainspec decoded but its content is unusable.
	Invalid
)

// String ...
func (k ErrorKind) String() string {
	switch k {
	case DecodingFromToml:
		return "decoding from TOML"
	case DecodingMotes:
		return "decoding motes from base-10"
	case LoadChainspec:
		return "could not load chainspec"
	case LoadUpgradePoint:
		return "could not load upgrade point"
	case LoadChainspecAccounts:
		return "could not load chainspec accounts"
	case Invalid:
		return "invalid chainspec"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint32(k))
	}
}

// Error is returned by everything that reads or validates a chainspec.
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
	if e.Path != "" {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

// Unwrap ...
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsError reports whether err is, or wraps, a chainspec Error of the given
// kind.
func IsError(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// AccountsLoadErrorKind ...
type AccountsLoadErrorKind uint32

const (
	// DecodingFromCsv ...
	DecodingFromCsv AccountsLoadErrorKind = iota
	// DecodingFromHex ...
	DecodingFromHex
	// AccountDecodingMotes ...
	AccountDecodingMotes
	// InvalidHashLength ...
	InvalidHashLength
	// Crypto covers key hashes that are neither hex nor base64.
	Crypto
)

// AccountsLoadError describes a bad row in the accounts file.
type AccountsLoadError struct {
	Kind AccountsLoadErrorKind
	// Line is 1-based.
	Line int
	// Length is the decoded key hash length, set for InvalidHashLength.
	Length int
	Cause  error
}

// Error ...
func (e *AccountsLoadError) Error() string {
	var m string
	switch e.Kind {
	case DecodingFromCsv:
		m = fmt.Sprintf("decoding from CSV error: %v", e.Cause)
	case DecodingFromHex:
		m = fmt.Sprintf("decoding from hex error: %v", e.Cause)
	case AccountDecodingMotes:
		m = fmt.Sprintf("decoding motes from base-10 error: %v", e.Cause)
	case InvalidHashLength:
		m = fmt.Sprintf("expected hash length of %d, got %d", types.AccountHashLength, e.Length)
	case Crypto:
		m = fmt.Sprintf("crypto module error: %v", e.Cause)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, m)
	}
	return m
}

// Unwrap ...
func (e *AccountsLoadError) Unwrap() error {
	return e.Cause
}

// IsAccountsLoadError reports whether err is, or wraps, an AccountsLoadError of
// the given kind.
func IsAccountsLoadError(err error, kind AccountsLoadErrorKind) bool {
	var e *AccountsLoadError
	return errors.As(err, &e) && e.Kind == kind
}

// InvalidHashLengthOf returns the offending length if err is, or wraps, an
// InvalidHashLength error.
func InvalidHashLengthOf(err error) (int, bool) {
	var e *AccountsLoadError
	if errors.As(err, &e) && e.Kind == InvalidHashLength {
		return e.Length, true
	}
	return 0, false
}
