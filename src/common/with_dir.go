package common

import "path/filepath"

// WithDir pairs a configuration value with the directory its relative paths
// are resolved against.
type WithDir[T any] struct {
	Dir   string
	Value T
}

// NewWithDir ...
func NewWithDir[T any](dir string, value T) WithDir[T] {
	return WithDir[T]{Dir: dir, Value: value}
}

// WithDirFor reuses w's directory for another value.
func WithDirFor[T, U any](w WithDir[T], value U) WithDir[U] {
	return WithDir[U]{Dir: w.Dir, Value: value}
}

// Resolve returns p unchanged if it is absolute and joined to Dir otherwise.
func (w WithDir[T]) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(w.Dir, p)
}
