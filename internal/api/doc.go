// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the chat server.
//
// Two endpoints are used: a POST that answers with an event stream, and a
// GET that returns the stored messages of a conversation.
//
// # Key Types
//
//   - Client: configured endpoint, session token, limiter and HTTP clients
//   - Session: the external login result {role, token, displayName}
//   - StreamRequest: body of the streaming POST
//   - Completion: payload of the stream's "done" event
//   - HistoryRecord: one stored message as returned by the history endpoint
//   - HTTPError: non-2xx response
//
// # Usage
//
//	client := api.NewClient("http://localhost:8080", api.WithSession(sess))
//	body, err := client.OpenStream(ctx, api.StreamRequest{Message: "hi", UserID: uid})
//	defer body.Close()
//
//	records, err := client.FetchHistory(ctx, "c1", uid, 50)
//
// Streaming requests are never retried. History requests are rate limited
// and retried with exponential backoff on transport errors and 5xx replies.
package api
