// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the obelisk TUI.
//
// This file implements thread-safe cancel function handling. The cancel
// function is set from the Update loop and invoked from key handlers while
// the streaming goroutine may still be running.
package chat

import (
	"context"
	"sync"
)

// =============================================================================
// CANCEL FUNCTION MANAGEMENT
// =============================================================================

// cancelManager guards the active stream's cancel function with a mutex.
// IMPORTANT: always held as a pointer (*cancelManager) in Model so Bubble
// Tea's value copies of the model never copy the mutex.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

func newCancelManager() *cancelManager {
	return &cancelManager{}
}

// set stores the cancel function for the current streaming operation.
func (cm *cancelManager) set(fn context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cancelFunc = fn
}

// cancel invokes the stored cancel function and clears it. Safe to call
// multiple times or with no cancel function set.
func (cm *cancelManager) cancel() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
		cm.cancelFunc = nil
	}
}

// clear cancels the context if present and removes the cancel function.
// Contexts are always cancelled to prevent resource leaks.
func (cm *cancelManager) clear() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
		cm.cancelFunc = nil
	}
}
