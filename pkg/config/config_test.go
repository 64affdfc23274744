package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kylerisse/metricstore/pkg/backend/database"
	"github.com/kylerisse/metricstore/pkg/backend/memory"
	"github.com/kylerisse/metricstore/pkg/identifier"
	"github.com/kylerisse/metricstore/pkg/store"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Server.ListenPort != "1982" || c.Server.RateLimit != 200 || c.Server.RateBurst != 500 {
		t.Errorf("unexpected server defaults %+v", c.Server)
	}
	if c.Stores[MetricStoreName].ClassName != ClassMetricStore {
		t.Errorf("unexpected metric store %+v", c.Stores[MetricStoreName])
	}
	if c.Stores[EvaluationParameterStoreName].ClassName != ClassEvaluationParameterStore {
		t.Errorf("unexpected parameter store %+v", c.Stores[EvaluationParameterStoreName])
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestParse(t *testing.T) {
	t.Setenv("METRICS_DB", "/tmp/metrics.db")
	c, err := Parse([]byte(`
stores:
  metric_store:
    class_name: MetricStore
    store_backend:
      class_name: DatabaseStoreBackend
      url: ${METRICS_DB}
      credentials:
        port: 9000
server:
  listen_port: "8080"
telemetry:
  enabled: true
  endpoint: collector:4317
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	sb := c.Stores[MetricStoreName].StoreBackend
	if url, _, _ := sb.String("url"); url != "/tmp/metrics.db" {
		t.Errorf("expected env substitution, got %q", url)
	}
	creds, _, _ := sb.Map("credentials")
	if creds["port"] != 9000 {
		t.Errorf("expected nested mapping, got %v", creds)
	}
	if c.Server.ListenPort != "8080" || c.Server.RateBurst != DefaultRateBurst {
		t.Errorf("unexpected server config %+v", c.Server)
	}
	if !c.Telemetry.Enabled || c.Telemetry.Endpoint != "collector:4317" {
		t.Errorf("unexpected telemetry config %+v", c.Telemetry)
	}
	if _, ok := c.Stores[EvaluationParameterStoreName]; !ok {
		t.Error("expected evaluation parameter store default")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad yaml", "stores: [", "parse YAML"},
		{"unknown class", "stores:\n  metric_store:\n    class_name: ValidationsStore\n", "unknown class_name"},
		{"wrong parameter class", "stores:\n  evaluation_parameter_store:\n    class_name: MetricStore\n", "must be EvaluationParameterStore"},
		{"bad port", "server:\n  listen_port: http\n", "not a valid port"},
		{"negative rate", "server:\n  rate_limit: -1\n", "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	if c, err := Load(""); err != nil || c.Server.ListenPort != DefaultListenPort {
		t.Errorf("expected defaults for empty path, got %+v %v", c, err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metricstore.yaml")
	c := Default()
	c.Server.ListenPort = "9999"
	c.Stores[MetricStoreName] = StoreConfig{
		ClassName:    ClassMetricStore,
		StoreBackend: map[string]any{"class_name": "TupleFilesystemStoreBackend", "base_directory": "/data"},
	}
	if err := c.Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Server.ListenPort != "9999" {
		t.Errorf("unexpected port %q", back.Server.ListenPort)
	}
	if dir, _, _ := back.Stores[MetricStoreName].StoreBackend.String("base_directory"); dir != "/data" {
		t.Errorf("unexpected base directory %q", dir)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	os.WriteFile(path, []byte("METRICSTORE_TEST_DOTENV=loaded\n"), 0644)
	t.Cleanup(func() { os.Unsetenv("METRICSTORE_TEST_DOTENV") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if os.Getenv("METRICSTORE_TEST_DOTENV") != "loaded" {
		t.Error("expected variable from .env file")
	}
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing .env should not fail: %v", err)
	}
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	c, err := Parse([]byte(`
stores:
  evaluation_parameter_store:
    class_name: EvaluationParameterStore
    store_backend:
      class_name: DatabaseStoreBackend
      url: ` + filepath.Join(t.TempDir(), "params.db") + `
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	stats := store.NewStats()
	stores, err := c.Build(store.WithObserver(stats))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer stores.Close()

	if stores.Metrics.Backend().Kind() != memory.Kind {
		t.Errorf("expected in-memory metric store, got %s", stores.Metrics.Backend().Kind())
	}
	if stores.Parameters.Backend().Kind() != database.Kind {
		t.Errorf("expected database parameter store, got %s", stores.Parameters.Backend().Kind())
	}

	key := identifier.ValidationMetricIdentifier{
		RunID:                      identifier.NewRunIdentifier("run", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
		ExpectationSuiteIdentifier: identifier.ExpectationSuiteIdentifier{Name: "suite"},
		MetricName:                 "m",
	}
	if err := stores.Parameters.Set(ctx, key, 1.0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(stats.Snapshot()) == 0 {
		t.Error("expected the observer to be wired into built stores")
	}
}

func TestBuild_MetricStoreAsParameterStore(t *testing.T) {
	c := Default()
	c.Stores[MetricStoreName] = StoreConfig{ClassName: ClassEvaluationParameterStore}
	stores, err := c.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stores.Metrics.Name() != MetricStoreName {
		t.Errorf("unexpected name %q", stores.Metrics.Name())
	}
}

func TestBuild_UnknownBackend(t *testing.T) {
	c := Default()
	c.Stores[MetricStoreName] = StoreConfig{
		ClassName:    ClassMetricStore,
		StoreBackend: map[string]any{"class_name": "NoSuchBackend"},
	}
	if _, err := c.Build(); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestString_RedactsSecrets(t *testing.T) {
	c := Default()
	c.Stores[MetricStoreName] = StoreConfig{
		ClassName: ClassMetricStore,
		StoreBackend: map[string]any{
			"class_name":  "DatabaseStoreBackend",
			"credentials": map[string]any{"password": "hunter2"},
			"auth_token":  "tok",
		},
	}
	out := c.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "tok\n") {
		t.Errorf("secrets leaked:\n%s", out)
	}
	creds, _, _ := c.Stores[MetricStoreName].StoreBackend.Map("credentials")
	if creds["password"] != "hunter2" {
		t.Error("redaction modified the original config")
	}
}
