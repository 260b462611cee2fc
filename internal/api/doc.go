// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the Obelisk chat backend.
//
// It covers the session endpoints (list, fetch, create) and the streaming
// chat endpoint. Streaming responses are decoded through the stream package
// and assembled into model messages; session documents decode into the
// model package's types.
//
// The client does not retry. Callers decide whether a failed request is
// worth repeating, since a chat message resent blindly would duplicate the
// user's turn on the server.
package api
