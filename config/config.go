// Package config provides loading and parsing of toolgate.yaml configuration
// files. A toolgate.yaml describes one gateway dependency: its endpoint,
// credentials, timeouts, circuit breaker thresholds, and optional catalog
// cache. The loaded configuration converts directly into gateway.Options.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/manavgup/toolgate"
	"github.com/manavgup/toolgate/gateway"
)

// Config represents a toolgate.yaml configuration file.
type Config struct {
	// Gateway configures the endpoint and per-call behavior.
	Gateway GatewayConfig `yaml:"gateway"`

	// Breaker configures the circuit breaker. Optional.
	Breaker *BreakerConfig `yaml:"breaker,omitempty"`

	// Catalog configures the Redis catalog cache. Optional.
	Catalog *CatalogConfig `yaml:"catalog,omitempty"`
}

// GatewayConfig identifies the gateway endpoint and call behavior.
type GatewayConfig struct {
	// URL is the gateway base URL. Required.
	URL string `yaml:"url"`

	// APIKey is the bearer credential sent on invocations.
	APIKey string `yaml:"api_key,omitempty"`

	// APIKeyEnv names an environment variable holding the credential.
	// Preferred over APIKey so secrets stay out of config files; ignored
	// when APIKey is set.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	// Timeout is the default per-call timeout.
	// Format: Go duration string (e.g., "30s", "1m")
	// Default: 30s
	Timeout string `yaml:"timeout,omitempty"`

	// HealthCheckTimeout bounds health probes.
	// Format: Go duration string (e.g., "5s")
	// Default: 5s
	HealthCheckTimeout string `yaml:"health_check_timeout,omitempty"`

	// MaxConcurrent caps in-flight requests during parallel fan-out.
	// Default: 4
	MaxConcurrent int `yaml:"max_concurrent,omitempty"`
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the consecutive failure count that trips the breaker.
	// Default: 5
	FailureThreshold int `yaml:"failure_threshold,omitempty"`

	// RecoveryTimeout is how long the breaker stays open before probing.
	// Format: Go duration string (e.g., "60s")
	// Default: 60s
	RecoveryTimeout string `yaml:"recovery_timeout,omitempty"`
}

// CatalogConfig configures the Redis catalog cache.
type CatalogConfig struct {
	// RedisURL is the Redis connection string (e.g., "redis://localhost:6379").
	RedisURL string `yaml:"redis_url"`

	// Key is the Redis key holding the catalog.
	Key string `yaml:"key,omitempty"`

	// TTL is how long a stored catalog stays fresh.
	// Format: Go duration string (e.g., "30s")
	TTL string `yaml:"ttl,omitempty"`
}

// GetTimeout parses the call timeout and returns a duration.
// Returns the default value if not set or invalid.
func (g *GatewayConfig) GetTimeout() time.Duration {
	return parseDuration(g.Timeout, gateway.DefaultTimeout)
}

// GetHealthCheckTimeout parses the health check timeout and returns a duration.
// Returns the default value if not set or invalid.
func (g *GatewayConfig) GetHealthCheckTimeout() time.Duration {
	return parseDuration(g.HealthCheckTimeout, gateway.DefaultHealthCheckTimeout)
}

// GetMaxConcurrent returns the configured fan-out cap or the default value.
func (g *GatewayConfig) GetMaxConcurrent() int {
	if g.MaxConcurrent <= 0 {
		return gateway.DefaultMaxConcurrent
	}
	return g.MaxConcurrent
}

// ResolveAPIKey returns the credential, reading the environment variable
// named by APIKeyEnv when APIKey itself is empty.
func (g *GatewayConfig) ResolveAPIKey() string {
	if g.APIKey != "" {
		return g.APIKey
	}
	if g.APIKeyEnv != "" {
		return os.Getenv(g.APIKeyEnv)
	}
	return ""
}

// GetFailureThreshold returns the configured threshold or the default value.
func (b *BreakerConfig) GetFailureThreshold() int {
	if b == nil || b.FailureThreshold <= 0 {
		return 0 // gateway applies the breaker default
	}
	return b.FailureThreshold
}

// GetRecoveryTimeout parses the recovery timeout and returns a duration.
func (b *BreakerConfig) GetRecoveryTimeout() time.Duration {
	if b == nil {
		return 0
	}
	return parseDuration(b.RecoveryTimeout, 0)
}

// GetTTL parses the catalog TTL and returns a duration.
func (c *CatalogConfig) GetTTL() time.Duration {
	if c == nil {
		return 0
	}
	return parseDuration(c.TTL, 0)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Gateway.URL == "" {
		return fmt.Errorf("gateway.url is required: %w", toolgate.ErrInvalidConfig)
	}
	return nil
}

// ClientOptions converts the configuration into gateway client options.
// Catalog cache construction is left to the caller since it opens a
// network connection.
func (c *Config) ClientOptions() gateway.Options {
	return gateway.Options{
		GatewayURL:         c.Gateway.URL,
		APIKey:             c.Gateway.ResolveAPIKey(),
		Timeout:            c.Gateway.GetTimeout(),
		HealthCheckTimeout: c.Gateway.GetHealthCheckTimeout(),
		MaxConcurrent:      c.Gateway.GetMaxConcurrent(),
		FailureThreshold:   c.Breaker.GetFailureThreshold(),
		RecoveryTimeout:    c.Breaker.GetRecoveryTimeout(),
	}
}

// Load reads and parses a toolgate.yaml file from the given path.
// If the path is a directory, it looks for toolgate.yaml or toolgate.yml in
// that directory.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		yamlPath := filepath.Join(path, "toolgate.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			ymlPath := filepath.Join(path, "toolgate.yml")
			if _, err := os.Stat(ymlPath); err == nil {
				configPath = ymlPath
			} else {
				return nil, fmt.Errorf("no toolgate.yaml or toolgate.yml found in %s", path)
			}
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromDir searches for toolgate.yaml starting from the given directory
// and walking up to parent directories until found or root is reached.
func LoadFromDir(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		config, err := Load(absDir)
		if err == nil {
			return config, nil
		}

		parent := filepath.Dir(absDir)
		if parent == absDir {
			return nil, fmt.Errorf("no toolgate.yaml found in %s or parent directories", dir)
		}
		absDir = parent
	}
}

// LoadFromCurrentDir loads toolgate.yaml from the current working directory.
func LoadFromCurrentDir() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return LoadFromDir(cwd)
}

// parseDuration parses a Go duration string, falling back to def when the
// value is empty or invalid.
func parseDuration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}
