// Package backend defines the contract for pluggable key/value storage
// backends and the registry used to build them from configuration.
//
// A Backend stores opaque string values under tuple keys. Different
// backend kinds (in-memory, filesystem, database) implement the Backend
// interface with their own persistence and their own concurrency
// discipline; the stores built on top never lock.
//
// The Registry replaces loading a backend class by module and class name:
// each kind registers a Factory and a Descriptor once at process start,
// and configuration names the kind it wants.
package backend

import (
	"context"
	"strings"
)

// Kind is the registered name of a backend implementation
// (e.g. "InMemoryStoreBackend").
type Kind string

// Key is an ordered tuple of key elements.
type Key []string

// String joins the key elements with "/" for logging.
func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether the leading elements of k equal prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, p := range prefix {
		if k[i] != p {
			return false
		}
	}
	return true
}

// Clone returns a copy of k that shares no memory with it.
func (k Key) Clone() Key {
	return append(Key(nil), k...)
}

// Backend is the interface that all storage backends must implement.
type Backend interface {
	// Kind returns the registered kind of this backend.
	Kind() Kind

	// Get returns the raw value stored under key. The boolean is false
	// when nothing is stored under key.
	Get(ctx context.Context, key Key) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key Key, value string) error

	// Has reports whether a value is stored under key.
	Has(ctx context.Context, key Key) (bool, error)

	// Remove deletes the value stored under key. Removing a missing key
	// is not an error.
	Remove(ctx context.Context, key Key) error

	// ListKeys returns every stored key whose leading elements equal
	// prefix. An empty prefix lists all keys. Ordering is backend-defined.
	ListKeys(ctx context.Context, prefix Key) ([]Key, error)

	// Close releases any resources held by the backend.
	Close() error
}
