// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream implements the streaming-response assembly pipeline for
// the Obelisk chat backend.
//
// The pipeline has three stages:
//
//	raw chunks -> FrameDecoder -> events -> Interpreter -> Assembler
//
// FrameDecoder turns arbitrarily split text chunks into discrete events,
// buffering partial lines across chunk boundaries and tolerating both
// SSE-style "data: " framing and bare JSON lines. Interpreter is the state
// machine that maps events onto assembly transitions. Assembler owns the
// single in-flight streaming message and accumulates its content.
//
// Malformed lines are reported as recoverable DecodeErrors and skipped;
// only transport failures and explicit error events terminate a stream.
package stream
