// Package config loads the metricstore YAML configuration and builds the
// stores it describes.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/kylerisse/metricstore/pkg/backend"
	"github.com/kylerisse/metricstore/pkg/store"
	"github.com/kylerisse/metricstore/pkg/telemetry"
	"gopkg.in/yaml.v3"
)

const (
	// MetricStoreName is the stores entry served as the metric store.
	MetricStoreName = "metric_store"

	// EvaluationParameterStoreName is the stores entry served as the
	// evaluation parameter store.
	EvaluationParameterStoreName = "evaluation_parameter_store"

	ClassMetricStore              = "MetricStore"
	ClassEvaluationParameterStore = "EvaluationParameterStore"

	DefaultListenPort = "1982"
	DefaultRateLimit  = 200
	DefaultRateBurst  = 500
)

// StoreConfig describes one store.
type StoreConfig struct {
	ClassName    string         `yaml:"class_name"`
	StoreBackend backend.Config `yaml:"store_backend,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	ListenPort string  `yaml:"listen_port"`
	RateLimit  float64 `yaml:"rate_limit"`
	RateBurst  int     `yaml:"rate_burst"`
}

// Config is the top-level configuration file.
type Config struct {
	Stores    map[string]StoreConfig `yaml:"stores"`
	Server    ServerConfig           `yaml:"server"`
	Telemetry telemetry.Config       `yaml:"telemetry"`
}

// Default returns a configuration with in-memory stores.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Stores == nil {
		c.Stores = make(map[string]StoreConfig)
	}
	if _, ok := c.Stores[MetricStoreName]; !ok {
		c.Stores[MetricStoreName] = StoreConfig{ClassName: ClassMetricStore}
	}
	if _, ok := c.Stores[EvaluationParameterStoreName]; !ok {
		c.Stores[EvaluationParameterStoreName] = StoreConfig{ClassName: ClassEvaluationParameterStore}
	}
	if c.Server.ListenPort == "" {
		c.Server.ListenPort = DefaultListenPort
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = DefaultRateLimit
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = DefaultRateBurst
	}
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv substitutes ${VAR} references. Unset variables expand to "".
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envRef.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// LoadDotEnv loads the given .env files, or ".env" when none are given.
// Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		// It's okay if the file doesn't exist
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error loading .env file: %w", err)
		}
	}
	return nil
}

// Parse decodes YAML after expanding ${VAR} references and applies
// defaults.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(expandEnv(data), c); err != nil {
		return nil, fmt.Errorf("could not parse YAML: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and parses the configuration file at path. An empty path
// returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read file %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate checks store classes and server settings.
func (c *Config) Validate() error {
	for _, name := range c.storeNames() {
		sc := c.Stores[name]
		switch sc.ClassName {
		case ClassMetricStore, ClassEvaluationParameterStore:
		default:
			return fmt.Errorf("stores.%s: unknown class_name %q", name, sc.ClassName)
		}
	}
	if sc := c.Stores[EvaluationParameterStoreName]; sc.ClassName != ClassEvaluationParameterStore {
		return fmt.Errorf("stores.%s: class_name must be %s", EvaluationParameterStoreName, ClassEvaluationParameterStore)
	}
	if c.Server.ListenPort == "" {
		return fmt.Errorf("server.listen_port must not be empty")
	}
	if port, err := strconv.Atoi(c.Server.ListenPort); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server.listen_port %q is not a valid port", c.Server.ListenPort)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("server rate limits must not be negative")
	}
	return nil
}

func (c *Config) storeNames() []string {
	names := make([]string, 0, len(c.Stores))
	for name := range c.Stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stores holds the built metric and evaluation parameter stores.
type Stores struct {
	Metrics    *store.MetricStore
	Parameters *store.EvaluationParameterStore
}

// Close closes both stores.
func (s *Stores) Close() error {
	return errors.Join(s.Metrics.Close(), s.Parameters.Close())
}

// Build constructs the metric and evaluation parameter stores.
func (c *Config) Build(opts ...store.Option) (*Stores, error) {
	params, err := store.NewEvaluationParameterStore(
		c.Stores[EvaluationParameterStoreName].StoreBackend, EvaluationParameterStoreName, opts...)
	if err != nil {
		return nil, err
	}

	msc := c.Stores[MetricStoreName]
	var metrics *store.MetricStore
	if msc.ClassName == ClassEvaluationParameterStore {
		eps, err := store.NewEvaluationParameterStore(msc.StoreBackend, MetricStoreName, opts...)
		if err != nil {
			params.Close()
			return nil, err
		}
		metrics = eps.MetricStore
	} else {
		metrics, err = store.NewMetricStore(msc.StoreBackend, MetricStoreName, opts...)
		if err != nil {
			params.Close()
			return nil, err
		}
	}
	return &Stores{Metrics: metrics, Parameters: params}, nil
}

// Write encodes c as YAML to path.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var secretKeys = map[string]bool{"password": true, "auth_token": true}

// Redacted returns a copy of c with secrets in store backends masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Stores = make(map[string]StoreConfig, len(c.Stores))
	for name, sc := range c.Stores {
		sc.StoreBackend = backend.Config(Redact(sc.StoreBackend))
		out.Stores[name] = sc
	}
	return &out
}

// Redact returns a deep copy of m with password and auth_token values
// masked at any depth.
func Redact(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return redact(map[string]any(backend.Config(m).Clone()))
}

func redact(m map[string]any) map[string]any {
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			m[k] = redact(t)
		case backend.Config:
			m[k] = backend.Config(redact(t))
		case string:
			if secretKeys[k] && t != "" {
				m[k] = "********"
			}
		}
	}
	return m
}

// String renders the redacted configuration as YAML.
func (c *Config) String() string {
	data, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return string(data)
}
