// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the plain-terminal surface of obelisk: argument
// parsing, the line-oriented chat REPL, and the sessions listing command.
//
// The REPL is the fallback for environments where the full-screen TUI is
// unsuitable (dumb terminals, scripted use, screen readers). It reads input
// with peterh/liner, streams responses token by token to stdout, and keeps
// input history in a file under the obelisk config directory.
package cli
