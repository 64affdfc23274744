package database

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/kylerisse/metricstore/pkg/backend"
)

var testColumns = []string{"run_name", "run_time", "metric_name"}

func newSQLiteBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New(context.Background(), Options{
		TableName:   "ge_metrics",
		KeyColumns:  testColumns,
		URL:         filepath.Join(t.TempDir(), "metrics.db"),
		CreateTable: true,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestFactory_SQLite(t *testing.T) {
	b, err := Factory(backend.Config{
		"class_name":  "DatabaseStoreBackend",
		"table_name":  "ge_evaluation_parameters",
		"key_columns": []any{"a", "b"},
		"url":         filepath.Join(t.TempDir(), "params.db"),
	}, nil)
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	defer b.Close()

	db := b.(*Backend)
	if db.Table() != "ge_evaluation_parameters" {
		t.Errorf("unexpected table %q", db.Table())
	}
	if !reflect.DeepEqual(db.KeyColumns(), []string{"a", "b"}) {
		t.Errorf("unexpected key columns %v", db.KeyColumns())
	}
}

func TestFactory_InMemoryDefault(t *testing.T) {
	b, err := Factory(backend.Config{
		"table_name":  "t",
		"key_columns": []string{"k"},
	}, nil)
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	if err := b.Set(ctx, backend.Key{"x"}, "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, _ := b.Get(ctx, backend.Key{"x"}); !ok || v != "1" {
		t.Errorf("expected value from in-memory sqlite, got %q %v", v, ok)
	}
}

func TestFactory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     backend.Config
		wantErr string
	}{
		{"missing table", backend.Config{"key_columns": []string{"a"}}, "table_name"},
		{"missing columns", backend.Config{"table_name": "t"}, "key_columns"},
		{"empty columns", backend.Config{"table_name": "t", "key_columns": []string{}}, "key_columns"},
		{"bad table", backend.Config{"table_name": "t; DROP", "key_columns": []string{"a"}}, "table_name"},
		{"bad column", backend.Config{"table_name": "t", "key_columns": []string{"1a"}}, "key column"},
		{"reserved column", backend.Config{"table_name": "t", "key_columns": []string{"value"}}, "reserved"},
		{"duplicate column", backend.Config{"table_name": "t", "key_columns": []string{"a", "a"}}, "duplicate"},
		{"unknown driver", backend.Config{"table_name": "t", "key_columns": []string{"a"}, "driver": "oracle"}, "not available"},
		{"bad create_table", backend.Config{"table_name": "t", "key_columns": []string{"a"}, "create_table": "yes"}, "create_table"},
		{"bad credentials", backend.Config{"table_name": "t", "key_columns": []string{"a"}, "credentials": "x"}, "credentials"},
		{"bad port", backend.Config{"table_name": "t", "key_columns": []string{"a"}, "credentials": map[string]any{"port": "9000"}}, "port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Factory(tt.cfg, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := optionsFromConfig(backend.Config{
		"table_name":   "t",
		"key_columns":  []any{"a"},
		"driver":       "clickhouse",
		"dsn":          "clickhouse://localhost:9000/default",
		"create_table": false,
		"credentials": map[string]any{
			"host":     "ch",
			"port":     float64(9440),
			"username": "user",
			"password": "secret",
			"database": "metrics",
		},
	})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	want := Options{
		TableName:  "t",
		KeyColumns: []string{"a"},
		Driver:     "clickhouse",
		URL:        "clickhouse://localhost:9000/default",
		Credentials: Credentials{
			Host: "ch", Port: 9440, Username: "user", Password: "secret", Database: "metrics",
		},
	}
	if !reflect.DeepEqual(opts, want) {
		t.Errorf("expected %+v, got %+v", want, opts)
	}
}

func TestSetGetOverwrite(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteBackend(t)
	key := backend.Key{"run", "20240101T000000.000000Z", "m"}

	if _, ok, err := b.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected miss, got %v %v", ok, err)
	}
	if err := b.Set(ctx, key, `{"value": 1}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := b.Set(ctx, key, `{"value": 2}`); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, ok, err := b.Get(ctx, key)
	if err != nil || !ok || v != `{"value": 2}` {
		t.Errorf("unexpected Get result %q %v %v", v, ok, err)
	}
}

func TestHasRemove(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteBackend(t)
	key := backend.Key{"r", "t", "m"}

	b.Set(ctx, key, "v")
	if ok, err := b.Has(ctx, key); err != nil || !ok {
		t.Fatalf("expected key to exist, got %v %v", ok, err)
	}
	if err := b.Remove(ctx, key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ok, _ := b.Has(ctx, key); ok {
		t.Error("expected key to be removed")
	}
	if err := b.Remove(ctx, key); err != nil {
		t.Errorf("removing a missing key should not fail: %v", err)
	}
}

func TestKeyLength(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteBackend(t)

	for _, key := range []backend.Key{{"a"}, {"a", "b", "c", "d"}} {
		if err := b.Set(ctx, key, "v"); !errors.Is(err, ErrKeyLength) {
			t.Errorf("Set %v: expected ErrKeyLength, got %v", key, err)
		}
		if _, _, err := b.Get(ctx, key); !errors.Is(err, ErrKeyLength) {
			t.Errorf("Get %v: expected ErrKeyLength, got %v", key, err)
		}
		if _, err := b.Has(ctx, key); !errors.Is(err, ErrKeyLength) {
			t.Errorf("Has %v: expected ErrKeyLength, got %v", key, err)
		}
		if err := b.Remove(ctx, key); !errors.Is(err, ErrKeyLength) {
			t.Errorf("Remove %v: expected ErrKeyLength, got %v", key, err)
		}
	}
}

func TestListKeys(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteBackend(t)

	b.Set(ctx, backend.Key{"run2", "t1", "a"}, "1")
	b.Set(ctx, backend.Key{"run1", "t1", "b"}, "2")
	b.Set(ctx, backend.Key{"run1", "t1", "a"}, "3")
	b.Set(ctx, backend.Key{"run1", "t2", "a"}, "4")

	keys, err := b.ListKeys(ctx, backend.Key{"run1", "t1"})
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	want := []backend.Key{{"run1", "t1", "a"}, {"run1", "t1", "b"}}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("expected %v, got %v", want, keys)
	}

	all, err := b.ListKeys(ctx, nil)
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(all) != 4 || all[0][0] != "run1" {
		t.Errorf("expected 4 keys ordered by columns, got %v", all)
	}

	none, err := b.ListKeys(ctx, backend.Key{"run1", "t1", "a", "extra"})
	if err != nil || len(none) != 0 {
		t.Errorf("expected no keys for over-long prefix, got %v %v", none, err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	url := filepath.Join(t.TempDir(), "persist.db")
	opts := Options{TableName: "t", KeyColumns: []string{"k"}, URL: url, CreateTable: true}

	b, err := New(ctx, opts, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.Set(ctx, backend.Key{"k1"}, "stored")
	b.Close()

	b, err = New(ctx, opts, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()
	if v, ok, _ := b.Get(ctx, backend.Key{"k1"}); !ok || v != "stored" {
		t.Errorf("expected persisted value, got %q %v", v, ok)
	}
}

func TestCreateTableDisabled(t *testing.T) {
	ctx := context.Background()
	b, err := New(ctx, Options{
		TableName:  "missing",
		KeyColumns: []string{"k"},
		URL:        filepath.Join(t.TempDir(), "x.db"),
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	if err := b.Set(ctx, backend.Key{"k"}, "v"); err == nil {
		t.Error("expected error writing to a table that was never created")
	}
}

func TestDrivers(t *testing.T) {
	drivers := Drivers()
	for _, want := range []string{DriverClickHouse, DriverSQLite} {
		found := false
		for _, d := range drivers {
			if d == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected driver %q in %v", want, drivers)
		}
	}
}
