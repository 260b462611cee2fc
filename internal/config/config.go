// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for obelisk-tui.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.obelisk/config.toml
//   - ~/.obelisk/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/obelisk-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete obelisk-tui configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// Backend connection configuration
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Chat behavior configuration
	Chat ChatConfig `toml:"chat" json:"chat"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// BackendConfig contains the chat backend connection settings.
type BackendConfig struct {
	// BaseURL is the URL of the Obelisk backend
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs is the request timeout for non-streaming calls, in seconds
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RequestsPerSecond caps outgoing request rate (0 = unlimited)
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

// ChatConfig contains chat behavior settings.
type ChatConfig struct {
	// HistoryFile is the REPL input history path (empty = default)
	HistoryFile string `toml:"history_file" json:"history_file"`
	// PageSize is the session list page size
	PageSize int `toml:"page_size" json:"page_size"`
	// ShowKeepalives logs heartbeat events when true (debugging aid)
	ShowKeepalives bool `toml:"show_keepalives" json:"show_keepalives"`
}

// UIConfig contains UI display settings.
type UIConfig struct {
	// Theme is the color theme: "dark", "light", or "auto"
	Theme string `toml:"theme" json:"theme"`
	// Markdown enables markdown rendering of assistant messages
	Markdown bool `toml:"markdown" json:"markdown"`
	// WrapWidth is the render width (0 = detect from terminal)
	WrapWidth int `toml:"wrap_width" json:"wrap_width"`
	// ShowTimestamps shows message timestamps in the transcript
	ShowTimestamps bool `toml:"show_timestamps" json:"show_timestamps"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: "1.0",
		Backend: BackendConfig{
			BaseURL:           "http://localhost:8000",
			TimeoutSecs:       30,
			RequestsPerSecond: 4,
		},
		Chat: ChatConfig{
			PageSize: 20,
		},
		UI: UIConfig{
			Theme:    "auto",
			Markdown: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the obelisk configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".obelisk"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				return nil, fmt.Errorf("failed to load TOML config: %w", err)
			}
			return finishLoad(cfg)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				return nil, fmt.Errorf("failed to load JSON config: %w", err)
			}
			return finishLoad(cfg)
		}
	}

	return finishLoad(cfg)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. The format is chosen by extension, defaulting to TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finishLoad(cfg)
}

// finishLoad applies env overrides, migration, defaults, and validation.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.Migrate()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# obelisk-tui configuration file")
	fmt.Fprintln(file, "# Generated by obelisk-tui - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Backend.BaseURL != "" {
		u, err := url.Parse(c.Backend.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, ValidationError{
				Field:   "backend.base_url",
				Message: fmt.Sprintf("invalid URL '%s', must be http or https", c.Backend.BaseURL),
			})
		}
	}

	if c.Backend.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.timeout_secs",
			Message: "must be non-negative",
		})
	}

	if c.Backend.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.requests_per_second",
			Message: "must be non-negative",
		})
	}

	if c.Chat.PageSize < 1 || c.Chat.PageSize > 100 {
		errs = append(errs, ValidationError{
			Field:   "chat.page_size",
			Message: fmt.Sprintf("must be 1-100, got %d", c.Chat.PageSize),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if c.UI.WrapWidth < 0 {
		errs = append(errs, ValidationError{
			Field:   "ui.wrap_width",
			Message: "must be non-negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaults.Backend.BaseURL
	}
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}
	if c.Chat.PageSize == 0 {
		c.Chat.PageSize = defaults.Chat.PageSize
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// Migrate handles migration from old configuration formats to new ones.
func (c *Config) Migrate() {
	// The backend URL used to be stored without a scheme.
	if c.Backend.BaseURL != "" && !strings.Contains(c.Backend.BaseURL, "://") {
		c.Backend.BaseURL = "http://" + c.Backend.BaseURL
	}

	// Trailing slashes break path joining against the API routes.
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
}

// Timeout returns the non-streaming request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSecs) * time.Second
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - OBELISK_BACKEND_URL: overrides backend.base_url
//   - OBELISK_TIMEOUT_SECS: overrides backend.timeout_secs
//   - OBELISK_THEME: overrides ui.theme
//   - OBELISK_NO_MARKDOWN: set to "1" or "true" to disable markdown rendering
func (c *Config) ApplyEnvOverrides() {
	if baseURL := os.Getenv("OBELISK_BACKEND_URL"); baseURL != "" {
		c.Backend.BaseURL = baseURL
	}

	if timeout := os.Getenv("OBELISK_TIMEOUT_SECS"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil && secs > 0 {
			c.Backend.TimeoutSecs = secs
		}
	}

	if theme := os.Getenv("OBELISK_THEME"); theme != "" {
		c.UI.Theme = theme
	}

	if noMd := os.Getenv("OBELISK_NO_MARKDOWN"); noMd != "" {
		if noMd == "1" || strings.ToLower(noMd) == "true" {
			c.UI.Markdown = false
		}
	}
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
