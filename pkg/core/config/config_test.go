// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9090
providers:
  groq:
    api_key: gsk_test
    models:
      - llama-3.3-70b-versatile
      - llama-3.1-8b-instant
  gemini:
    api_key: gm_test
storage:
  type: sqlite
  dsn: /var/lib/studychat/studychat.db
file_store:
  type: filesystem
  base_dir: /var/lib/studychat/files
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("server config not parsed: %+v", cfg.Server)
	}
	if cfg.Providers.Groq.APIKey != "gsk_test" {
		t.Errorf("groq api key not parsed")
	}
	if len(cfg.Providers.Groq.Models) != 2 {
		t.Errorf("explicit model list must not be padded with defaults: %v", cfg.Providers.Groq.Models)
	}
	if cfg.Storage.Type != "sqlite" {
		t.Errorf("storage type not parsed: %+v", cfg.Storage)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level not parsed: %+v", cfg.Logging)
	}

	// Defaults fill in what the file omitted.
	if cfg.Server.Timeout != 60*time.Second {
		t.Errorf("expected default server timeout, got %v", cfg.Server.Timeout)
	}
	if len(cfg.Providers.Gemini.Models) == 0 {
		t.Errorf("expected default gemini model list")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_env")
	t.Setenv("GEMINI_API_KEY", "gm_env")
	t.Setenv("STUDYGW_DB_DSN", "postgres://env/studychat")

	path := writeConfig(t, `
providers:
  groq:
    api_key: gsk_file
storage:
  type: postgres
  dsn: postgres://file/studychat
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Providers.Groq.APIKey != "gsk_env" {
		t.Errorf("env must override file for groq api key, got %q", cfg.Providers.Groq.APIKey)
	}
	if cfg.Providers.Gemini.APIKey != "gm_env" {
		t.Errorf("env gemini api key not applied")
	}
	if cfg.Storage.DSN != "postgres://env/studychat" {
		t.Errorf("env dsn not applied, got %q", cfg.Storage.DSN)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Type != "memory" || cfg.FileStore.Type != "memory" {
		t.Errorf("expected memory backends by default: %+v %+v", cfg.Storage, cfg.FileStore)
	}
	if len(cfg.Providers.Groq.Models) == 0 {
		t.Errorf("expected default groq model list")
	}
	if cfg.Extractor.MaxFetchBytes != 25<<20 {
		t.Errorf("expected 25MiB fetch cap, got %d", cfg.Extractor.MaxFetchBytes)
	}
}
