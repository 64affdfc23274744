package backend

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultModuleName is the module assumed when configuration omits
	// "module_name".
	DefaultModuleName = "great_expectations.data_context.store"

	// DefaultClassName is the kind assumed when configuration omits
	// "class_name".
	DefaultClassName = "InMemoryStoreBackend"
)

// Factory is a function that creates a Backend from a configuration map.
// Each backend kind registers a Factory with the Registry.
type Factory func(cfg Config, logger *logrus.Logger) (Backend, error)

type registration struct {
	factory Factory
	desc    Descriptor
}

// Registry holds registered backend kinds and their factories.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	kinds map[Kind]registration
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[Kind]registration),
	}
}

// Register adds a backend factory and its descriptor under the given kind.
// Returns an error if the kind is already registered.
func (r *Registry) Register(kind Kind, factory Factory, desc Descriptor) error {
	if kind == "" {
		return fmt.Errorf("backend kind must not be empty")
	}
	if factory == nil {
		return fmt.Errorf("backend kind %q has a nil factory", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[kind]; exists {
		return fmt.Errorf("backend kind %q is already registered", kind)
	}
	r.kinds[kind] = registration{factory: factory, desc: desc}
	return nil
}

// Resolve finds the kind named by class within module. Empty arguments
// fall back to DefaultModuleName and DefaultClassName. Returns an
// *UnknownBackendError if no registered kind matches.
func (r *Registry) Resolve(module, class string) (Kind, Descriptor, error) {
	if module == "" {
		module = DefaultModuleName
	}
	if class == "" {
		class = DefaultClassName
	}

	r.mu.RLock()
	reg, exists := r.kinds[Kind(class)]
	r.mu.RUnlock()

	if !exists || reg.desc.module() != module {
		return "", Descriptor{}, &UnknownBackendError{Module: module, Class: class, Known: r.Kinds()}
	}
	return Kind(class), reg.desc, nil
}

// Describe returns the descriptor for the configured backend without
// building it.
func (r *Registry) Describe(cfg Config) (Descriptor, error) {
	module, class, err := cfg.classRef()
	if err != nil {
		return Descriptor{}, err
	}
	_, desc, err := r.Resolve(module, class)
	return desc, err
}

// Create instantiates the backend named by the "module_name" and
// "class_name" entries of cfg, passing cfg to the kind's factory.
// Returns an error if the kind is not registered or the factory fails.
func (r *Registry) Create(cfg Config, logger *logrus.Logger) (Backend, error) {
	module, class, err := cfg.classRef()
	if err != nil {
		return nil, err
	}
	kind, _, err := r.Resolve(module, class)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	factory := r.kinds[kind].factory
	r.mu.RUnlock()

	if logger == nil {
		logger = DiscardLogger()
	}
	b, err := factory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}
	logger.Debugf("Created %s backend.", kind)
	return b, nil
}

// Kinds returns the names of all registered backend kinds, sorted.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.kinds))
	for kind := range r.kinds {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Descriptors returns a copy of every registered kind's descriptor.
func (r *Registry) Descriptors() map[Kind]Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[Kind]Descriptor, len(r.kinds))
	for kind, reg := range r.kinds {
		out[kind] = reg.desc
	}
	return out
}

// UnknownBackendError is returned when configuration names a backend kind
// that is not registered.
type UnknownBackendError struct {
	Module string
	Class  string
	Known  []Kind
}

func (e *UnknownBackendError) Error() string {
	known := make([]string, len(e.Known))
	for i, k := range e.Known {
		known[i] = string(k)
	}
	return fmt.Sprintf("unknown store backend %q in module %q (registered: %s)",
		e.Class, e.Module, strings.Join(known, ", "))
}

// DiscardLogger returns a logger that writes nothing.
func DiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}
