// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/jeranaias/obelisk-tui/internal/util"
)

// =============================================================================
// SCHEMA
// =============================================================================

// SchemaVersion identifies the current app_state.json layout. Bump it when
// the AI settings shape changes incompatibly; older files then reset to
// defaults instead of half-loading.
const SchemaVersion = "1.1"

// stateFileName is the file under the state directory.
const stateFileName = "app_state.json"

// Compiled defaults for the AI settings.
const (
	DefaultModel       = "deepseek/deepseek-chat-v3-0324:free"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
)

// AIConfig holds the user-adjustable generation settings.
type AIConfig struct {
	Model         string  `json:"model"`
	Temperature   float64 `json:"temperature"`
	MaxTokens     int     `json:"max_tokens"`
	Streaming     bool    `json:"streaming"`
	ShowToolCalls bool    `json:"show_tool_calls"`
}

// DefaultAIConfig returns the compiled default settings.
func DefaultAIConfig() AIConfig {
	return AIConfig{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Streaming:   true,
	}
}

// Pagination is the session list position.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

// DefaultPagination returns the first page at the standard size.
func DefaultPagination() Pagination {
	return Pagination{Page: 1, PageSize: 20}
}

// AppState is everything the store persists.
type AppState struct {
	Version          string     `json:"version"`
	CurrentSessionID string     `json:"currentSessionId"`
	Pagination       Pagination `json:"pagination"`
	AIConfig         AIConfig   `json:"aiConfig"`
}

// persistedState mirrors AppState but keeps aiConfig raw so a schema
// mismatch can discard it without touching the other fields.
type persistedState struct {
	Version          string          `json:"version"`
	CurrentSessionID string          `json:"currentSessionId"`
	Pagination       *Pagination     `json:"pagination"`
	AIConfig         json.RawMessage `json:"aiConfig"`
}

// =============================================================================
// STORE
// =============================================================================

// Store owns the persisted app state. All mutating operations save
// synchronously, so a crash loses at most the change in progress.
type Store struct {
	mu    sync.Mutex
	path  string
	state AppState
}

// NewStore creates a store rooted at dir without touching disk. Call Load
// to read any existing state file.
func NewStore(dir string) *Store {
	return &Store{
		path: filepath.Join(dir, stateFileName),
		state: AppState{
			Version:    SchemaVersion,
			Pagination: DefaultPagination(),
			AIConfig:   DefaultAIConfig(),
		},
	}
}

// DefaultDir returns the standard state directory, ~/.obelisk.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, ".obelisk"), nil
}

// Load reads the state file. A missing file leaves the defaults in place
// and is not an error. A file from a different schema version resets the
// AI settings to compiled defaults while keeping the selected session and
// pagination exactly as stored.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var p persistedState
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}

	s.state.CurrentSessionID = p.CurrentSessionID
	if p.Pagination != nil {
		s.state.Pagination = *p.Pagination
	}

	s.state.AIConfig = DefaultAIConfig()
	if p.Version != SchemaVersion {
		log.Printf("state: schema %q does not match %q, resetting AI settings", p.Version, SchemaVersion)
	} else if len(p.AIConfig) > 0 {
		// Stored keys overlay the defaults; keys absent from the file
		// keep their default values.
		if err := json.Unmarshal(p.AIConfig, &s.state.AIConfig); err != nil {
			return fmt.Errorf("failed to parse AI settings: %w", err)
		}
	}
	s.state.Version = SchemaVersion

	return nil
}

// Save writes the state file atomically. The state directory is created
// with owner-only permissions on first use.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(s.path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns a copy of the current state.
func (s *Store) State() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentSessionID returns the selected session, or "" when none.
func (s *Store) CurrentSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentSessionID
}

// AIConfig returns a copy of the current AI settings.
func (s *Store) AIConfig() AIConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AIConfig
}

// Pagination returns the current session list position.
func (s *Store) Pagination() Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Pagination
}

// =============================================================================
// MUTATIONS
// =============================================================================

// SetCurrentSession records the selected session and saves.
func (s *Store) SetCurrentSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentSessionID = sessionID
	return s.saveLocked()
}

// SetPagination records the session list position and saves.
func (s *Store) SetPagination(p Pagination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Pagination = p
	return s.saveLocked()
}

// AIConfigPatch is a partial update to the AI settings. Nil fields keep
// their current values.
type AIConfigPatch struct {
	Model         *string
	Temperature   *float64
	MaxTokens     *int
	Streaming     *bool
	ShowToolCalls *bool
}

// UpdateAIConfig applies a patch to the AI settings and saves.
func (s *Store) UpdateAIConfig(patch AIConfigPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.Model != nil {
		s.state.AIConfig.Model = *patch.Model
	}
	if patch.Temperature != nil {
		s.state.AIConfig.Temperature = *patch.Temperature
	}
	if patch.MaxTokens != nil {
		s.state.AIConfig.MaxTokens = *patch.MaxTokens
	}
	if patch.Streaming != nil {
		s.state.AIConfig.Streaming = *patch.Streaming
	}
	if patch.ShowToolCalls != nil {
		s.state.AIConfig.ShowToolCalls = *patch.ShowToolCalls
	}

	return s.saveLocked()
}

// ResetAIConfig restores the compiled default settings and saves.
func (s *Store) ResetAIConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AIConfig = DefaultAIConfig()
	return s.saveLocked()
}

// =============================================================================
// CONFIG OVERRIDE
// =============================================================================

// Override carries only the generation settings that differ from the
// compiled defaults, for the chat request's config_override field.
type Override struct {
	Model       *string  `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// ConfigOverride compares the current AI settings against the compiled
// defaults and returns the differing fields, or nil when nothing differs.
func (s *Store) ConfigOverride() *Override {
	s.mu.Lock()
	cfg := s.state.AIConfig
	s.mu.Unlock()

	var o Override
	if cfg.Model != DefaultModel {
		model := cfg.Model
		o.Model = &model
	}
	if cfg.Temperature != DefaultTemperature {
		temp := cfg.Temperature
		o.Temperature = &temp
	}
	if cfg.MaxTokens != DefaultMaxTokens {
		tokens := cfg.MaxTokens
		o.MaxTokens = &tokens
	}

	if o.Model == nil && o.Temperature == nil && o.MaxTokens == nil {
		return nil
	}
	return &o
}
