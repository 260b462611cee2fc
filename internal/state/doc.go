// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package state persists client-side UI state between runs.
//
// State lives in a single versioned JSON file (app_state.json). It holds
// the selected session, the session list pagination position, and the AI
// settings the user has adjusted. When the file's schema version does not
// match the current one, the AI settings reset to compiled defaults while
// the selected session and pagination survive untouched.
package state
