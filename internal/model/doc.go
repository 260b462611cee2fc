// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for Obelisk sessions, turns,
// and messages.
//
// The backend stores conversations as turns: one optional user message plus
// zero or more assistant responses per turn. The UI renders a flat,
// chronologically ordered message list, so this package also provides
// FlattenTurns, the pure conversion from turn-structured history to that
// flat view.
//
// Messages are immutable once finalized. A streaming assistant message is
// mutable only through the stream package's Assembler, which drives
// AppendToken and FinalizeStream.
package model
