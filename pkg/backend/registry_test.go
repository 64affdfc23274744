package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

// stubBackend is a minimal Backend implementation for testing.
type stubBackend struct {
	kind Kind
	cfg  Config
}

func (s *stubBackend) Kind() Kind { return s.kind }
func (s *stubBackend) Get(context.Context, Key) (string, bool, error) {
	return "", false, nil
}
func (s *stubBackend) Set(context.Context, Key, string) error { return nil }
func (s *stubBackend) Has(context.Context, Key) (bool, error) { return false, nil }
func (s *stubBackend) Remove(context.Context, Key) error { return nil }
func (s *stubBackend) ListKeys(context.Context, Key) ([]Key, error) { return nil, nil }
func (s *stubBackend) Close() error { return nil }

func stubFactory(kind Kind) Factory {
	return func(cfg Config, _ *logrus.Logger) (Backend, error) {
		return &stubBackend{kind: kind, cfg: cfg}, nil
	}
}

func failingFactory(Config, *logrus.Logger) (Backend, error) {
	return nil, fmt.Errorf("factory error")
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register("StubStoreBackend", stubFactory("StubStoreBackend"), Descriptor{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	b, err := reg.Create(Config{"class_name": "StubStoreBackend", "option": 1}, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if b.Kind() != "StubStoreBackend" {
		t.Errorf("expected kind 'StubStoreBackend', got %q", b.Kind())
	}
	if b.(*stubBackend).cfg["option"] != 1 {
		t.Error("expected factory to receive the configuration")
	}
}

func TestRegistry_CreateDefaultsToInMemory(t *testing.T) {
	reg := NewRegistry()
	reg.Register(DefaultClassName, stubFactory(DefaultClassName), Descriptor{})

	b, err := reg.Create(Config{}, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if b.Kind() != DefaultClassName {
		t.Errorf("expected %q, got %q", DefaultClassName, b.Kind())
	}
}

func TestRegistry_DuplicateRegister(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register("dup", stubFactory("dup"), Descriptor{}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := reg.Register("dup", stubFactory("dup"), Descriptor{}); err == nil {
		t.Error("expected error on duplicate registration")
	}
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("", stubFactory(""), Descriptor{}); err == nil {
		t.Error("expected error for empty kind")
	}
	if err := reg.Register("nil", nil, Descriptor{}); err == nil {
		t.Error("expected error for nil factory")
	}
}

func TestRegistry_CreateUnknownKind(t *testing.T) {
	reg := NewRegistry()
	reg.Register("KnownStoreBackend", stubFactory("KnownStoreBackend"), Descriptor{})

	_, err := reg.Create(Config{"class_name": "NoSuchStoreBackend"}, nil)
	var unknown *UnknownBackendError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected *UnknownBackendError, got %v", err)
	}
	if unknown.Class != "NoSuchStoreBackend" {
		t.Errorf("expected class 'NoSuchStoreBackend', got %q", unknown.Class)
	}
	if len(unknown.Known) != 1 || unknown.Known[0] != "KnownStoreBackend" {
		t.Errorf("expected known kinds to be listed, got %v", unknown.Known)
	}
}

func TestRegistry_CreateWrongModule(t *testing.T) {
	reg := NewRegistry()
	reg.Register("StubStoreBackend", stubFactory("StubStoreBackend"), Descriptor{})

	_, err := reg.Create(Config{"module_name": "some.other.module", "class_name": "StubStoreBackend"}, nil)
	var unknown *UnknownBackendError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected *UnknownBackendError, got %v", err)
	}
}

func TestRegistry_CreateCustomModule(t *testing.T) {
	reg := NewRegistry()
	reg.Register("PluginStoreBackend", stubFactory("PluginStoreBackend"), Descriptor{Module: "plugins.stores"})

	if _, err := reg.Create(Config{"module_name": "plugins.stores", "class_name": "PluginStoreBackend"}, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := reg.Create(Config{"class_name": "PluginStoreBackend"}, nil); err == nil {
		t.Error("expected error when the default module is assumed")
	}
}

func TestRegistry_CreateBadClassNameType(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Create(Config{"class_name": 42}, nil); err == nil {
		t.Error("expected error for non-string class_name")
	}
}

func TestRegistry_CreateFactoryError(t *testing.T) {
	reg := NewRegistry()
	reg.Register("bad", failingFactory, Descriptor{})

	if _, err := reg.Create(Config{"class_name": "bad"}, nil); err == nil {
		t.Error("expected error from failing factory")
	}
}

func TestRegistry_Describe(t *testing.T) {
	reg := NewRegistry()
	reg.Register("DatabaseStoreBackend", stubFactory("DatabaseStoreBackend"), Descriptor{Database: true})
	reg.Register(DefaultClassName, stubFactory(DefaultClassName), Descriptor{})

	desc, err := reg.Describe(Config{"class_name": "DatabaseStoreBackend"})
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if !desc.Database {
		t.Error("expected database descriptor")
	}

	desc, err = reg.Describe(nil)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if desc.Database {
		t.Error("expected in-memory descriptor for empty config")
	}
}

func TestRegistry_Kinds(t *testing.T) {
	reg := NewRegistry()

	reg.Register("TupleFilesystemStoreBackend", stubFactory("a"), Descriptor{})
	reg.Register("InMemoryStoreBackend", stubFactory("b"), Descriptor{})
	reg.Register("DatabaseStoreBackend", stubFactory("c"), Descriptor{})

	kinds := reg.Kinds()
	expected := []Kind{"DatabaseStoreBackend", "InMemoryStoreBackend", "TupleFilesystemStoreBackend"}
	if len(kinds) != len(expected) {
		t.Fatalf("expected %d kinds, got %d", len(expected), len(kinds))
	}
	for i, kind := range kinds {
		if kind != expected[i] {
			t.Errorf("expected kind %q at index %d, got %q", expected[i], i, kind)
		}
	}
	if len(reg.Descriptors()) != 3 {
		t.Errorf("expected 3 descriptors, got %d", len(reg.Descriptors()))
	}
}

func TestRegistry_KindsEmpty(t *testing.T) {
	reg := NewRegistry()
	if kinds := reg.Kinds(); len(kinds) != 0 {
		t.Errorf("expected empty kinds, got %v", kinds)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	reg.Register("base", stubFactory("base"), Descriptor{})

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			reg.Register(Kind(fmt.Sprintf("kind-%d", n)), stubFactory("x"), Descriptor{})
		}(i)
		go func() {
			defer wg.Done()
			reg.Create(Config{"class_name": "base"}, nil)
			reg.Kinds()
		}()
	}
	wg.Wait()

	if len(reg.Kinds()) != 51 {
		t.Errorf("expected 51 kinds, got %d", len(reg.Kinds()))
	}
}
