// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the obelisk TUI.
//
// This file implements viewport optimization to skip redundant viewport
// updates during streaming. Many flush ticks produce the same rendered
// content; re-setting identical content still costs a full reflow in the
// viewport component.
package chat

import (
	"hash/fnv"
	"sync"
	"time"
)

// =============================================================================
// VIEWPORT OPTIMIZER
// =============================================================================

// ViewportOptimizer tracks rendered content and reports whether a redraw is
// actually needed. Content is compared by FNV-1a hash; fast enough to run on
// every tick and reliable enough that a false match is not a practical
// concern for transcript-sized strings.
//
// Thread-safety: all operations are protected by a mutex.
type ViewportOptimizer struct {
	mu          sync.RWMutex
	lastHash    uint64
	hasHash     bool
	dirty       bool
	updateCount uint64
	skipCount   uint64
}

// NewViewportOptimizer creates a new viewport optimizer.
func NewViewportOptimizer() *ViewportOptimizer {
	return &ViewportOptimizer{
		dirty: true, // Force the initial render
	}
}

// ShouldUpdate returns true if the viewport needs to be redrawn for the
// given content.
func (vo *ViewportOptimizer) ShouldUpdate(newContent string) bool {
	vo.mu.Lock()
	defer vo.mu.Unlock()

	vo.updateCount++
	newHash := hashContent(newContent)

	if vo.hasHash && newHash == vo.lastHash {
		vo.skipCount++
		return false
	}

	vo.lastHash = newHash
	vo.hasHash = true
	vo.dirty = true
	return true
}

// MarkClean marks the viewport as up-to-date after a render.
func (vo *ViewportOptimizer) MarkClean() {
	vo.mu.Lock()
	defer vo.mu.Unlock()
	vo.dirty = false
}

// IsDirty returns true if the viewport has pending changes.
func (vo *ViewportOptimizer) IsDirty() bool {
	vo.mu.RLock()
	defer vo.mu.RUnlock()
	return vo.dirty
}

// Reset clears the tracked content. Use when loading a new session or
// clearing the transcript. Counters survive for metrics.
func (vo *ViewportOptimizer) Reset() {
	vo.mu.Lock()
	defer vo.mu.Unlock()

	vo.hasHash = false
	vo.dirty = true
}

// ForceUpdate guarantees that the next ShouldUpdate returns true, content
// match or not. Use after a terminal resize.
func (vo *ViewportOptimizer) ForceUpdate() {
	vo.mu.Lock()
	defer vo.mu.Unlock()

	vo.hasHash = false
	vo.dirty = true
}

// GetStats returns (totalUpdates, skippedUpdates, efficiency%).
func (vo *ViewportOptimizer) GetStats() (total, skipped uint64, efficiency float64) {
	vo.mu.RLock()
	defer vo.mu.RUnlock()

	total = vo.updateCount
	skipped = vo.skipCount
	if total > 0 {
		efficiency = float64(skipped) / float64(total) * 100.0
	}
	return
}

// hashContent computes an FNV-1a hash of the content for change detection.
func hashContent(content string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(content))
	return h.Sum64()
}

// =============================================================================
// TICK LIMITER
// =============================================================================

// tickLimiter coalesces redraw requests into a minimum interval. Used for
// events outside the streaming path (resize bursts, status updates) that can
// also arrive faster than the terminal should repaint.
type tickLimiter struct {
	mu       sync.Mutex
	pending  bool
	last     time.Time
	interval time.Duration
}

func newTickLimiter(interval time.Duration) *tickLimiter {
	if interval <= 0 {
		interval = 16 * time.Millisecond // ~60fps
	}
	return &tickLimiter{interval: interval, last: time.Now()}
}

// request reports whether the caller should redraw now. A denied request is
// remembered as pending.
func (tl *tickLimiter) request() bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	now := time.Now()
	if now.Sub(tl.last) >= tl.interval {
		tl.last = now
		tl.pending = false
		return true
	}
	tl.pending = true
	return false
}

// hasPending reports whether a denied request is waiting.
func (tl *tickLimiter) hasPending() bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.pending
}
