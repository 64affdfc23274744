package store

import (
	"context"
	"fmt"
	"reflect"

	"github.com/kylerisse/metricstore/pkg/backend"
	"github.com/kylerisse/metricstore/pkg/identifier"
	"github.com/kylerisse/metricstore/pkg/jsonutil"
)

// EvaluationParameterStore is a MetricStore whose values are read back as
// evaluation parameters, addressed by URN.
type EvaluationParameterStore struct {
	*MetricStore

	config map[string]any
}

// NewEvaluationParameterStore behaves like NewMetricStore but defaults the
// database table to DefaultEvaluationParameterTable.
func NewEvaluationParameterStore(storeBackend backend.Config, storeName string, opts ...Option) (*EvaluationParameterStore, error) {
	m, err := newMetricStore(storeBackend, storeName, DefaultEvaluationParameterTable, opts)
	if err != nil {
		return nil, err
	}

	t := reflect.TypeOf(EvaluationParameterStore{})
	cfg := map[string]any{
		"store_backend": map[string]any(m.storeBackend.Clone()),
		"store_name":    storeName,
		"module_name":   t.PkgPath(),
		"class_name":    t.Name(),
	}
	return &EvaluationParameterStore{
		MetricStore: m,
		config:      jsonutil.FilterFalsy(cfg),
	}, nil
}

// Config returns a copy of the construction snapshot: store_backend (with
// defaults applied), store_name, module_name and class_name. Empty entries
// are omitted.
func (e *EvaluationParameterStore) Config() map[string]any {
	return backend.Config(e.config).Clone()
}

// GetBindParams returns every value stored for runID keyed by its
// evaluation parameter URN. Keys are visited in backend order; when two
// keys share a URN the later one wins.
func (e *EvaluationParameterStore) GetBindParams(ctx context.Context, runID identifier.RunIdentifier) (map[string]any, error) {
	keys, err := e.ListKeys(ctx, runID.ToTuple()...)
	if err != nil {
		return nil, fmt.Errorf("store %s: failed to list parameters for run %s: %w", e.Name(), runID, err)
	}

	params := make(map[string]any, len(keys))
	for _, key := range keys {
		value, _, err := e.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		params[key.ToEvaluationParameterURN()] = value
	}
	e.logger.Debugf("Store %s: %d bind params for run %s.", e.Name(), len(params), runID)
	return params, nil
}
