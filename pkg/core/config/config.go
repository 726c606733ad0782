// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Storage   StorageConfig   `yaml:"storage"`
	FileStore FileStoreConfig `yaml:"file_store"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

// ProvidersConfig holds both LLM backend configurations. Groq is the
// primary; Gemini is the fallback.
type ProvidersConfig struct {
	Groq   ProviderConfig `yaml:"groq"`
	Gemini ProviderConfig `yaml:"gemini"`
}

// ProviderConfig configures one LLM backend.
type ProviderConfig struct {
	APIKey  string   `yaml:"api_key"`
	BaseURL string   `yaml:"base_url"`
	Models  []string `yaml:"models"` // tried in order
}

// ExtractorConfig configures document text extraction.
type ExtractorConfig struct {
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	MaxFetchBytes int64         `yaml:"max_fetch_bytes"`
	CacheTTL      time.Duration `yaml:"cache_ttl"` // 0 means never expire
}

// StorageConfig selects the session/material store backend.
type StorageConfig struct {
	Type string `yaml:"type"` // "memory" (default), "sqlite" or "postgres"
	DSN  string `yaml:"dsn"`
}

// FileStoreConfig selects the material content backend.
type FileStoreConfig struct {
	Type     string `yaml:"type"`     // "memory" (default), "filesystem" or "s3"
	BaseDir  string `yaml:"base_dir"` // filesystem backend
	Bucket   string `yaml:"bucket"`   // s3 backend
	Region   string `yaml:"region"`
	Prefix   string `yaml:"prefix"`
	Endpoint string `yaml:"endpoint"` // custom endpoint for MinIO compatibility
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 60 * time.Second,
		},
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

// applyEnvOverrides loads secrets and deployment settings from the
// environment, overriding whatever the file said.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.Providers.Groq.APIKey = v
	}
	if v := os.Getenv("GROQ_BASE_URL"); v != "" {
		cfg.Providers.Groq.BaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Providers.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_BASE_URL"); v != "" {
		cfg.Providers.Gemini.BaseURL = v
	}
	if v := os.Getenv("STUDYGW_DB_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("STUDYGW_S3_BUCKET"); v != "" {
		cfg.FileStore.Bucket = v
		cfg.FileStore.Type = "s3"
	}
	if v := os.Getenv("STUDYGW_S3_ENDPOINT"); v != "" {
		cfg.FileStore.Endpoint = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 60 * time.Second
	}
	if len(cfg.Providers.Groq.Models) == 0 {
		cfg.Providers.Groq.Models = []string{
			"llama-3.3-70b-versatile",
			"llama-3.1-8b-instant",
			"qwen/qwen3-32b",
			"gemma2-9b-it",
		}
	}
	if len(cfg.Providers.Gemini.Models) == 0 {
		cfg.Providers.Gemini.Models = []string{
			"gemini-2.0-flash",
			"gemini-1.5-flash",
		}
	}
	if cfg.Extractor.FetchTimeout == 0 {
		cfg.Extractor.FetchTimeout = 30 * time.Second
	}
	if cfg.Extractor.MaxFetchBytes == 0 {
		cfg.Extractor.MaxFetchBytes = 25 << 20
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "memory"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// StorageParams returns the provider registry parameters for the configured
// storage backend.
func (c *Config) StorageParams() map[string]string {
	return map[string]string{"dsn": c.Storage.DSN}
}

// FileStoreParams returns the provider registry parameters for the
// configured filestore backend.
func (c *Config) FileStoreParams() map[string]string {
	return map[string]string{
		"base_dir": c.FileStore.BaseDir,
		"bucket":   c.FileStore.Bucket,
		"region":   c.FileStore.Region,
		"prefix":   c.FileStore.Prefix,
		"endpoint": c.FileStore.Endpoint,
	}
}
