package telemetry

import (
	"os"
	"strconv"
)

// Config holds OTLP exporter configuration.
type Config struct {
	Endpoint string `yaml:"endpoint"`
	Enabled  bool   `yaml:"enabled"`
	Insecure bool   `yaml:"insecure"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() Config {
	enabled, _ := strconv.ParseBool(os.Getenv("METRICSTORE_OTEL_ENABLED"))
	insecure, _ := strconv.ParseBool(os.Getenv("METRICSTORE_OTEL_INSECURE"))

	return Config{
		Endpoint: os.Getenv("METRICSTORE_OTEL_ENDPOINT"),
		Enabled:  enabled,
		Insecure: insecure,
	}
}

// Merge returns c with every unset field taken from env.
func (c Config) Merge(env Config) Config {
	if c.Endpoint == "" {
		c.Endpoint = env.Endpoint
	}
	if !c.Enabled {
		c.Enabled = env.Enabled
	}
	if !c.Insecure {
		c.Insecure = env.Insecure
	}
	return c
}
