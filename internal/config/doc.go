// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for obelisk-tui.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation. A file watcher reloads
// the global config when the file changes on disk.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Chat backend connection settings
//   - ChatConfig: Chat behavior settings
//   - UIConfig: Display settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (OBELISK_*)
//   - ~/.obelisk/config.toml
//   - ~/.obelisk/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	baseURL := cfg.Backend.BaseURL
//	timeout := cfg.Timeout()
package config
