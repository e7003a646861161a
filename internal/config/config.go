// Package config loads the editor configuration from a YAML (or JSON) file.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/node"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendLoam   = "loam"
)

// Config is the root configuration.
type Config struct {
	LogLevel  string              `yaml:"log_level"`
	LogFormat logging.Format      `yaml:"log_format"`
	Store     StoreConfig         `yaml:"store"`
	HTTP      HTTPConfig          `yaml:"http"`
	Geometry  node.GeometryConfig `yaml:"geometry"`
}

// StoreConfig selects where scenes are persisted.
type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`   // file and loam
	Format  string      `yaml:"format"` // file: json or yaml
	Redis   RedisConfig `yaml:"redis"`

	// EncryptionKey enables AES-256 encryption at rest. Base64 of 32 bytes.
	EncryptionKey string `yaml:"encryption_key"`
	// FallbackKeys still decrypt scenes written before a key rotation.
	FallbackKeys []string `yaml:"fallback_keys"`
}

// EncryptionKeys decodes the active and fallback keys. active is nil when
// encryption is off.
func (c StoreConfig) EncryptionKeys() (active []byte, fallback [][]byte, err error) {
	if c.EncryptionKey == "" {
		if len(c.FallbackKeys) > 0 {
			return nil, nil, errors.New("fallback_keys require an encryption_key")
		}
		return nil, nil, nil
	}
	active, err = decodeKey(c.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("encryption_key: %w", err)
	}
	for i, k := range c.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// RedisConfig configures the redis store and locker.
type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Address string `yaml:"address"`
	Metrics bool   `yaml:"metrics"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: logging.FormatText,
		Store: StoreConfig{
			Backend: BackendFile,
			Path:    ".espalier/scenes",
			Format:  "json",
			Redis: RedisConfig{
				Address: "localhost:6379",
				Prefix:  "espalier:scene:",
				LockTTL: 30 * time.Second,
			},
		},
		HTTP: HTTPConfig{
			Address: ":8080",
			Metrics: true,
		},
		Geometry: node.DefaultGeometryConfig(),
	}
}

// Load reads path over the defaults. An empty path or a missing file yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendLoam:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	switch c.Store.Format {
	case "", "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("unknown file format %q", c.Store.Format))
	}
	if _, _, err := c.Store.EncryptionKeys(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
