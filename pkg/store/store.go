// Package store provides typed key/value stores on top of a pluggable
// backend.Backend: a generic Store, the MetricStore for JSON metric values
// and the EvaluationParameterStore that serves them back per run.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kylerisse/metricstore/pkg/backend"
	"github.com/sirupsen/logrus"
)

// Keyer is a key type that maps to a backend key tuple.
type Keyer interface {
	ToTuple() []string
}

// Codec validates and converts values to and from their stored form.
type Codec[V any] interface {
	// Validate rejects values that must not be stored.
	Validate(value V) error
	Serialize(value V) (string, error)
	// Deserialize returns false when raw holds no value.
	Deserialize(raw string) (V, bool, error)
}

// ValidationError is returned by Set when a value fails Codec.Validate.
// Nothing is written to the backend.
type ValidationError struct {
	Store string
	Key   backend.Key
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("store %s: invalid value for %s: %v", e.Store, e.Key, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Store is a typed view over a Backend. It holds no locks of its own;
// concurrency is the backend's concern.
type Store[K Keyer, V any] struct {
	backend  backend.Backend
	codec    Codec[V]
	decode   func(backend.Key) (K, error)
	name     string
	logger   *logrus.Logger
	observer Observer
}

// New creates a Store. decode converts backend key tuples into K.
// A nil logger discards output and a nil observer drops observations.
func New[K Keyer, V any](b backend.Backend, codec Codec[V], decode func(backend.Key) (K, error),
	name string, logger *logrus.Logger, observer Observer) *Store[K, V] {
	if logger == nil {
		logger = backend.DiscardLogger()
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Store[K, V]{
		backend:  b,
		codec:    codec,
		decode:   decode,
		name:     name,
		logger:   logger,
		observer: observer,
	}
}

// Name returns the store name.
func (s *Store[K, V]) Name() string {
	return s.name
}

// Backend returns the underlying backend.
func (s *Store[K, V]) Backend() backend.Backend {
	return s.backend
}

// TupleToKey converts a backend key tuple into a typed key.
func (s *Store[K, V]) TupleToKey(t []string) (K, error) {
	return s.decode(backend.Key(t))
}

func (s *Store[K, V]) observe(op Op, start time.Time, err error) {
	s.observer.Observe(Observation{
		Timestamp: start,
		Store:     s.name,
		Op:        op,
		Success:   err == nil,
		Err:       err,
		Duration:  time.Since(start),
	})
}

// Get returns the value stored under key. The boolean is false when the
// key is absent or the stored form holds no value.
func (s *Store[K, V]) Get(ctx context.Context, key K) (value V, ok bool, err error) {
	start := time.Now()
	defer func() { s.observe(OpGet, start, err) }()

	k := backend.Key(key.ToTuple())
	raw, found, err := s.backend.Get(ctx, k)
	if err != nil {
		s.logger.Errorf("Store %s: failed to get %s: %v", s.name, k, err)
		return value, false, err
	}
	if !found {
		return value, false, nil
	}
	value, ok, err = s.codec.Deserialize(raw)
	if err != nil {
		err = fmt.Errorf("store %s: failed to decode %s: %w", s.name, k, err)
		s.logger.Error(err)
		return value, false, err
	}
	return value, ok, nil
}

// Set validates and stores value under key.
func (s *Store[K, V]) Set(ctx context.Context, key K, value V) (err error) {
	start := time.Now()
	defer func() { s.observe(OpSet, start, err) }()

	k := backend.Key(key.ToTuple())
	if verr := s.codec.Validate(value); verr != nil {
		return &ValidationError{Store: s.name, Key: k, Err: verr}
	}
	raw, err := s.codec.Serialize(value)
	if err != nil {
		return fmt.Errorf("store %s: failed to encode %s: %w", s.name, k, err)
	}
	if err = s.backend.Set(ctx, k, raw); err != nil {
		s.logger.Errorf("Store %s: failed to set %s: %v", s.name, k, err)
		return err
	}
	s.logger.Debugf("Store %s: set %s.", s.name, k)
	return nil
}

// Has reports whether a value is stored under key.
func (s *Store[K, V]) Has(ctx context.Context, key K) (ok bool, err error) {
	start := time.Now()
	defer func() { s.observe(OpHas, start, err) }()
	return s.backend.Has(ctx, backend.Key(key.ToTuple()))
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Store[K, V]) Remove(ctx context.Context, key K) (err error) {
	start := time.Now()
	defer func() { s.observe(OpRemove, start, err) }()
	return s.backend.Remove(ctx, backend.Key(key.ToTuple()))
}

// ListKeys returns the decoded keys whose tuples start with prefix.
// Keys that cannot be decoded are skipped with a warning.
func (s *Store[K, V]) ListKeys(ctx context.Context, prefix ...string) (keys []K, err error) {
	start := time.Now()
	defer func() { s.observe(OpListKeys, start, err) }()

	raw, err := s.backend.ListKeys(ctx, backend.Key(prefix))
	if err != nil {
		return nil, err
	}
	keys = make([]K, 0, len(raw))
	for _, t := range raw {
		k, derr := s.decode(t)
		if derr != nil {
			s.logger.Warnf("Store %s: skipping key %s: %v", s.name, t, derr)
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Close closes the backend.
func (s *Store[K, V]) Close() error {
	return s.backend.Close()
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
