// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// DEFAULTS AND VALIDATION TESTS
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
	if cfg.Backend.BaseURL == "" {
		t.Error("default backend URL missing")
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("Timeout() = %v, want 30s", cfg.Timeout())
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad URL scheme", func(c *Config) { c.Backend.BaseURL = "ftp://example" }},
		{"unparseable URL", func(c *Config) { c.Backend.BaseURL = "://" }},
		{"negative timeout", func(c *Config) { c.Backend.TimeoutSecs = -1 }},
		{"negative rate", func(c *Config) { c.Backend.RequestsPerSecond = -1 }},
		{"zero page size", func(c *Config) { c.Chat.PageSize = 0 }},
		{"oversized page size", func(c *Config) { c.Chat.PageSize = 1000 }},
		{"bad theme", func(c *Config) { c.UI.Theme = "vaporwave" }},
		{"negative wrap width", func(c *Config) { c.UI.WrapWidth = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSetDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.Backend.BaseURL == "" {
		t.Error("BaseURL not defaulted")
	}
	if cfg.Chat.PageSize != 20 {
		t.Errorf("PageSize = %d, want 20", cfg.Chat.PageSize)
	}
	if cfg.UI.Theme != "auto" {
		t.Errorf("Theme = %q, want auto", cfg.UI.Theme)
	}
}

func TestMigrate_NormalizesBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"localhost:8000", "http://localhost:8000"},
		{"http://localhost:8000/", "http://localhost:8000"},
		{"https://api.example.com///", "https://api.example.com"},
		{"http://already.fine", "http://already.fine"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cfg := Default()
			cfg.Backend.BaseURL = tt.in
			cfg.Migrate()
			if cfg.Backend.BaseURL != tt.want {
				t.Errorf("BaseURL = %q, want %q", cfg.Backend.BaseURL, tt.want)
			}
		})
	}
}

// =============================================================================
// LOAD/SAVE TESTS
// =============================================================================

func TestLoadFromPath_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
version = "1.0"

[backend]
base_url = "http://chat.internal:9000"
timeout_secs = 15

[ui]
theme = "dark"
markdown = true
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Backend.BaseURL != "http://chat.internal:9000" {
		t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutSecs != 15 {
		t.Errorf("TimeoutSecs = %d", cfg.Backend.TimeoutSecs)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
	// Unspecified fields keep defaults.
	if cfg.Chat.PageSize != 20 {
		t.Errorf("PageSize = %d, want default 20", cfg.Chat.PageSize)
	}
}

func TestLoadFromPath_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"backend": {"base_url": "https://chat.example.com"}, "ui": {"theme": "light"}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Backend.BaseURL != "https://chat.example.com" {
		t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
}

func TestLoadFromPath_InvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[ui]\ntheme = \"nonsense\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Error("expected error for invalid theme")
	}
}

func TestSaveJSON_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Backend.BaseURL = "http://saved.example:1234"
	if err := SaveJSON(cfg, path); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}

	loaded := Default()
	if err := LoadJSON(loaded, path); err != nil {
		t.Fatalf("LoadJSON failed: %v", err)
	}
	if loaded.Backend.BaseURL != "http://saved.example:1234" {
		t.Errorf("BaseURL = %q after round trip", loaded.Backend.BaseURL)
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDE TESTS
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("OBELISK_BACKEND_URL", "http://env.example:8080")
	t.Setenv("OBELISK_TIMEOUT_SECS", "90")
	t.Setenv("OBELISK_THEME", "light")
	t.Setenv("OBELISK_NO_MARKDOWN", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Backend.BaseURL != "http://env.example:8080" {
		t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutSecs != 90 {
		t.Errorf("TimeoutSecs = %d", cfg.Backend.TimeoutSecs)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
	if cfg.UI.Markdown {
		t.Error("Markdown should be disabled")
	}
}

func TestApplyEnvOverrides_BadTimeoutIgnored(t *testing.T) {
	t.Setenv("OBELISK_TIMEOUT_SECS", "not-a-number")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.Backend.TimeoutSecs != 30 {
		t.Errorf("TimeoutSecs = %d, unparseable env should be ignored", cfg.Backend.TimeoutSecs)
	}
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

// TestConfig_ConcurrentAccess tests that Global(), SetGlobal(), and ReloadGlobal()
// can be safely called concurrently without race conditions.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()

	var wg sync.WaitGroup

	// 50 writers using SetGlobal, 50 readers using Global
	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()

		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}

	wg.Wait()
}
