// Package memory implements an in-process backend.Backend.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/kylerisse/metricstore/pkg/backend"
	"github.com/sirupsen/logrus"
)

// Kind is the registered name for this backend.
const Kind backend.Kind = "InMemoryStoreBackend"

// keySeparator joins key elements into map keys. It cannot appear in
// valid UTF-8 text.
const keySeparator = "\xff"

// Backend keeps values in a map. It is safe for concurrent use.
// ListKeys returns keys in insertion order.
type Backend struct {
	mu     sync.RWMutex
	values map[string]string
	order  []backend.Key
	logger *logrus.Logger
}

// New creates an empty in-memory Backend.
func New(logger *logrus.Logger) *Backend {
	if logger == nil {
		logger = backend.DiscardLogger()
	}
	return &Backend{
		values: make(map[string]string),
		logger: logger,
	}
}

// Factory creates an in-memory Backend from a config map. No options are
// recognized; "module_name" and "class_name" are ignored.
func Factory(_ backend.Config, logger *logrus.Logger) (backend.Backend, error) {
	return New(logger), nil
}

// Kind returns the backend kind name.
func (b *Backend) Kind() backend.Kind {
	return Kind
}

func (b *Backend) Get(_ context.Context, key backend.Key) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[flatten(key)]
	return v, ok, nil
}

func (b *Backend) Set(_ context.Context, key backend.Key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := flatten(key)
	if _, exists := b.values[k]; !exists {
		b.order = append(b.order, key.Clone())
	}
	b.values[k] = value
	b.logger.Debugf("memory: set %s (%d bytes)", key, len(value))
	return nil
}

func (b *Backend) Has(_ context.Context, key backend.Key) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.values[flatten(key)]
	return ok, nil
}

func (b *Backend) Remove(_ context.Context, key backend.Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := flatten(key)
	if _, exists := b.values[k]; !exists {
		return nil
	}
	delete(b.values, k)
	for i, existing := range b.order {
		if flatten(existing) == k {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.logger.Debugf("memory: removed %s", key)
	return nil
}

func (b *Backend) ListKeys(_ context.Context, prefix backend.Key) ([]backend.Key, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]backend.Key, 0, len(b.order))
	for _, k := range b.order {
		if k.HasPrefix(prefix) {
			keys = append(keys, k.Clone())
		}
	}
	return keys, nil
}

// Len returns the number of stored values.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.values)
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}

func flatten(key backend.Key) string {
	return strings.Join(key, keySeparator)
}
