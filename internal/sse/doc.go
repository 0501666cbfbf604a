// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse decodes the line-oriented event stream returned by the chat
// send endpoint.
//
// The stream is a sequence of blocks separated by a blank line. Inside a
// block, "event:" lines name the event and "data:" lines carry the payload.
// Input may arrive split at any byte, so the parser always returns the
// incomplete tail and expects it back with the next delivery.
//
// # Key Types
//
//   - Event: one decoded (name, payload) pair
//   - Parser: stateful wrapper around Process that keeps the tail
//   - Decoder: reads an io.Reader one Read at a time and feeds a Parser
//
// # Usage
//
//	var p sse.Parser
//	p.Feed("event: chunk\ndata: Hel", handle)
//	p.Feed("lo\n\n", handle)   // handle(Event{Name: "chunk", Data: "Hello"})
//	p.Flush(handle)
//
// # Protocol Events
//
//   - chunk: a fragment of answer text, concatenated in arrival order
//   - done:  JSON completion record {conversationId, answer}
//   - error: human-readable failure message
package sse
