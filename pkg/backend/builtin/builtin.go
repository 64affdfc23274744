// Package builtin registers the backend kinds shipped with metricstore.
package builtin

import (
	"sync"

	"github.com/kylerisse/metricstore/pkg/backend"
	"github.com/kylerisse/metricstore/pkg/backend/database"
	"github.com/kylerisse/metricstore/pkg/backend/filesystem"
	"github.com/kylerisse/metricstore/pkg/backend/memory"
)

var (
	once     sync.Once
	registry *backend.Registry
)

// Register adds the in-memory, filesystem and database kinds to reg.
func Register(reg *backend.Registry) error {
	kinds := []struct {
		kind    backend.Kind
		factory backend.Factory
		desc    backend.Descriptor
	}{
		{memory.Kind, memory.Factory, backend.Descriptor{
			Description: "process-local map, lost on exit",
		}},
		{filesystem.Kind, filesystem.Factory, backend.Descriptor{
			Description: "one file per key under base_directory",
		}},
		{database.Kind, database.Factory, backend.Descriptor{
			Database:    true,
			Description: "SQL table keyed by key_columns (sqlite, libsql, clickhouse)",
		}},
	}
	for _, k := range kinds {
		if err := reg.Register(k.kind, k.factory, k.desc); err != nil {
			return err
		}
	}
	return nil
}

// Registry returns the process-wide registry holding the built-in kinds.
// It is populated on first use.
func Registry() *backend.Registry {
	once.Do(func() {
		registry = backend.NewRegistry()
		if err := Register(registry); err != nil {
			panic(err)
		}
	})
	return registry
}
