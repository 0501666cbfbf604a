// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"strings"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// Event names used by the chat stream.
const (
	EventMessage = "message" // name used when a block has no event line
	EventChunk   = "chunk"
	EventDone    = "done"
	EventError   = "error"
)

// blockSeparator terminates a block. Flush appends it so the final block is
// decoded even when the server closes without a trailing blank line.
const blockSeparator = "\n\n"

// Event is one decoded block.
type Event struct {
	Name string
	Data string
}

// Handler receives decoded events in block order.
type Handler func(Event)

// =============================================================================
// BUFFER PROCESSING
// =============================================================================

// Process splits buffer into complete blocks, calls handle once per
// non-blank block and returns the trailing fragment that is not yet
// terminated by a blank line. The returned fragment must be prepended to the
// next input.
func Process(buffer string, handle Handler) string {
	if handle == nil {
		return buffer
	}

	buffer = normalizeNewlines(buffer)

	// A lone CR at the very end may be the first half of a CRLF pair.
	var heldCR bool
	if strings.HasSuffix(buffer, "\r") {
		buffer = buffer[:len(buffer)-1]
		heldCR = true
	}

	blocks := strings.Split(buffer, blockSeparator)
	remaining := blocks[len(blocks)-1]
	blocks = blocks[:len(blocks)-1]

	for _, block := range blocks {
		if strings.TrimSpace(block) == "" {
			continue
		}
		handle(decodeBlock(block))
	}

	if heldCR {
		remaining += "\r"
	}
	return remaining
}

// decodeBlock turns the lines of one block into an Event.
func decodeBlock(block string) Event {
	name := EventMessage
	var data []string

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSuffix(line, "\r")

		switch {
		case strings.HasPrefix(line, "event:"):
			if v := strings.TrimSpace(line[len("event:"):]); v != "" {
				name = v
			}
		case strings.HasPrefix(line, "data:"):
			data = append(data, fieldValue(line[len("data:"):]))
		}
		// id:, retry: and ":" comments carry nothing this client uses.
	}

	return Event{Name: name, Data: strings.Join(data, "\n")}
}

// fieldValue strips the single optional space after the field colon. Any
// further whitespace belongs to the payload: chunk fragments often start
// with the space that separates them from the previous word.
func fieldValue(v string) string {
	return strings.TrimPrefix(v, " ")
}

func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// =============================================================================
// STATEFUL PARSER
// =============================================================================

// Parser keeps the undecoded tail between deliveries. The zero value is
// ready to use. A Parser is not safe for concurrent use.
type Parser struct {
	pending string
}

// Feed appends text to the pending tail and decodes every complete block.
func (p *Parser) Feed(text string, handle Handler) {
	p.pending = Process(p.pending+text, handle)
}

// Flush terminates the pending tail and decodes it. Only an empty or blank
// trailing fragment produces no event.
func (p *Parser) Flush(handle Handler) {
	rest := strings.TrimSuffix(p.pending, "\r")
	p.pending = ""
	if strings.TrimSpace(rest) == "" {
		return
	}
	Process(rest+blockSeparator, handle)
}

// Pending returns the number of bytes waiting for a block terminator.
func (p *Parser) Pending() int {
	return len(p.pending)
}

// Reset discards the pending tail.
func (p *Parser) Reset() {
	p.pending = ""
}
