// Package config loads the CLI configuration file.
package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in Config.Backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config is the content of stately.yaml.
type Config struct {
	Backend string       `yaml:"backend" json:"backend"`
	Redis   RedisConfig  `yaml:"redis" json:"redis"`
	SQLite  SQLiteConfig `yaml:"sqlite" json:"sqlite"`
	Badger  BadgerConfig `yaml:"badger" json:"badger"`
	Log     LogConfig    `yaml:"log" json:"log"`
	Demo    DemoConfig   `yaml:"demo" json:"demo"`
	Serve   ServeConfig  `yaml:"serve" json:"serve"`

	Encryption EncryptionConfig `yaml:"encryption" json:"encryption"`
}

// RedisConfig configures the Redis replay log.
type RedisConfig struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

// SQLiteConfig configures the SQLite replay log.
type SQLiteConfig struct {
	Path  string `yaml:"path" json:"path"`
	Table string `yaml:"table" json:"table"`
}

// BadgerConfig configures the Badger replay log.
type BadgerConfig struct {
	Path     string `yaml:"path" json:"path"`
	InMemory bool   `yaml:"in_memory" json:"in_memory"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// DemoConfig configures the demo command.
type DemoConfig struct {
	Workers    int `yaml:"workers" json:"workers"`
	Dispatches int `yaml:"dispatches" json:"dispatches"`
}

// ServeConfig configures the serve command.
type ServeConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// EncryptionConfig enables at-rest encryption of the action log.
// Keys are base64-encoded 32-byte AES keys; an empty Key disables encryption.
type EncryptionConfig struct {
	Key          string   `yaml:"key" json:"key"`
	FallbackKeys []string `yaml:"fallback_keys" json:"fallback_keys"`
}

// Enabled reports whether a key is configured.
func (e EncryptionConfig) Enabled() bool {
	return e.Key != ""
}

// Decode returns the active key and the fallback keys.
func (e EncryptionConfig) Decode() ([]byte, [][]byte, error) {
	active, err := base64.StdEncoding.DecodeString(e.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("encryption.key is not valid base64: %w", err)
	}
	fallback := make([][]byte, 0, len(e.FallbackKeys))
	for i, k := range e.FallbackKeys {
		b, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, nil, fmt.Errorf("encryption.fallback_keys[%d] is not valid base64: %w", i, err)
		}
		fallback = append(fallback, b)
	}
	return active, fallback, nil
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Backend: BackendSQLite,
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "stately:replay:",
		},
		SQLite: SQLiteConfig{Path: "stately.db", Table: "stately_kv"},
		Badger: BadgerConfig{Path: "stately.badger"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Demo:   DemoConfig{Workers: 4, Dispatches: 100},
		Serve:  ServeConfig{Addr: ":2112"},
	}
}

// Load reads a configuration file (YAML or JSON) on top of Default.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}
	return cfg, cfg.Validate()
}

// Validate checks values Load cannot default.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendRedis, BackendSQLite, BackendBadger:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Demo.Workers < 1 {
		return fmt.Errorf("demo.workers must be positive, got %d", c.Demo.Workers)
	}
	if c.Demo.Dispatches < 0 {
		return fmt.Errorf("demo.dispatches must not be negative, got %d", c.Demo.Dispatches)
	}
	if c.Encryption.Enabled() {
		if _, _, err := c.Encryption.Decode(); err != nil {
			return err
		}
	}
	return nil
}
