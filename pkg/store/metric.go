package store

import (
	"encoding/json"
	"fmt"

	"github.com/kylerisse/metricstore/pkg/backend"
	"github.com/kylerisse/metricstore/pkg/backend/builtin"
	"github.com/kylerisse/metricstore/pkg/identifier"
	"github.com/kylerisse/metricstore/pkg/jsonutil"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultMetricTable is injected as "table_name" for database backends.
	DefaultMetricTable = "ge_metrics"

	// DefaultEvaluationParameterTable replaces DefaultMetricTable for the
	// EvaluationParameterStore.
	DefaultEvaluationParameterTable = "ge_evaluation_parameters"
)

// DefaultKeyColumns is injected as "key_columns" for database backends.
// The order matches identifier.ValidationMetricIdentifier.ToTuple for
// single-element suite names.
var DefaultKeyColumns = []string{
	"run_name",
	"run_time",
	"data_asset_name",
	"expectation_suite_identifier",
	"metric_name",
	"metric_kwargs_id",
}

// MetricStore stores JSON-serializable metric values under validation
// metric identifiers. Values are wrapped as {"value": <payload>}.
type MetricStore struct {
	*Store[identifier.ValidationMetricIdentifier, any]

	storeBackend backend.Config
	descriptor   backend.Descriptor
}

type options struct {
	registry *backend.Registry
	logger   *logrus.Logger
	observer Observer
}

// Option configures a MetricStore or EvaluationParameterStore.
type Option func(*options)

// WithRegistry resolves backend kinds through reg instead of the
// built-in registry.
func WithRegistry(reg *backend.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithLogger sets the logger used by the store and its backend.
func WithLogger(logger *logrus.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver reports every store operation to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// NewMetricStore builds the backend described by storeBackend and wraps
// it. A nil storeBackend selects the in-memory backend. For database
// backends "table_name" and "key_columns" are filled in when absent.
// The caller's mapping is never modified.
func NewMetricStore(storeBackend backend.Config, storeName string, opts ...Option) (*MetricStore, error) {
	return newMetricStore(storeBackend, storeName, DefaultMetricTable, opts)
}

func newMetricStore(storeBackend backend.Config, storeName, table string, opts []Option) (*MetricStore, error) {
	o := options{registry: builtin.Registry()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = backend.DiscardLogger()
	}

	cfg := storeBackend.Clone()
	desc, err := o.registry.Describe(cfg)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", storeName, err)
	}
	if cfg != nil && desc.Database {
		if !cfg.Has("table_name") {
			cfg["table_name"] = table
		}
		if !cfg.Has("key_columns") {
			cfg["key_columns"] = append([]string(nil), DefaultKeyColumns...)
		}
	}

	b, err := o.registry.Create(cfg, o.logger)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", storeName, err)
	}
	o.logger.Debugf("Store %s: using %s backend.", storeName, b.Kind())

	return &MetricStore{
		Store:        New[identifier.ValidationMetricIdentifier, any](b, metricCodec{}, decodeMetricKey, storeName, o.logger, o.observer),
		storeBackend: cfg,
		descriptor:   desc,
	}, nil
}

// StoreBackend returns a copy of the backend configuration after defaults
// were applied. It is nil when the store was built without one.
func (m *MetricStore) StoreBackend() backend.Config {
	return m.storeBackend.Clone()
}

// Descriptor returns the descriptor of the backend kind in use.
func (m *MetricStore) Descriptor() backend.Descriptor {
	return m.descriptor
}

func decodeMetricKey(k backend.Key) (identifier.ValidationMetricIdentifier, error) {
	return identifier.ValidationMetricIdentifierFromTuple(k)
}

// metricCodec wraps values in a {"value": ...} JSON envelope.
type metricCodec struct{}

type envelope struct {
	Value any `json:"value"`
}

func (metricCodec) Validate(value any) error {
	return jsonutil.EnsureSerializable(value)
}

func (metricCodec) Serialize(value any) (string, error) {
	v, err := jsonutil.ToSerializable(value)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(envelope{Value: v})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (metricCodec) Deserialize(raw string) (any, bool, error) {
	if raw == "" {
		return nil, false, nil
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, false, err
	}
	return env.Value, true, nil
}
