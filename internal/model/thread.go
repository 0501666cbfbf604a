// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// DefaultThreadID is the reserved thread shown when no entry is selected.
const DefaultThreadID = "default"

// =============================================================================
// THREAD TYPE
// =============================================================================

// Thread holds the rendered messages bound to one history entry.
// Loaded and ConversationID together form the fetch cache key.
type Thread struct {
	ID             string
	Messages       []*Message
	Loaded         bool
	ConversationID string
}

// NewThread creates an empty thread. An empty id means the default thread.
func NewThread(id string) *Thread {
	if id == "" {
		id = DefaultThreadID
	}
	return &Thread{ID: id, Messages: make([]*Message, 0)}
}

// IsDefault reports whether this is the panel's greeting thread.
func (t *Thread) IsDefault() bool {
	return t.ID == DefaultThreadID
}

// Add appends a message.
func (t *Thread) Add(msg *Message) {
	t.Messages = append(t.Messages, msg)
}

// Reset clears the thread. When greeting is non-nil a copy of it becomes the
// only message. The loaded marker is cleared as well.
func (t *Thread) Reset(greeting *Message) {
	t.Messages = make([]*Message, 0, 1)
	if greeting != nil {
		t.Messages = append(t.Messages, greeting.Clone())
	}
	t.Loaded = false
	t.ConversationID = ""
}

// Replace swaps in fetched content in chronological order.
func (t *Thread) Replace(msgs []*Message) {
	t.Messages = make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		t.Add(m)
	}
}

// MarkLoaded records that the thread holds the content of conversationID.
func (t *Thread) MarkLoaded(conversationID string) {
	t.Loaded = true
	t.ConversationID = conversationID
}

// IsLoadedFor reports whether the thread already holds conversationID.
func (t *Thread) IsLoadedFor(conversationID string) bool {
	return t.Loaded && conversationID != "" && t.ConversationID == conversationID
}

// HasMessages reports whether the thread shows anything.
func (t *Thread) HasMessages() bool {
	return len(t.Messages) > 0
}

// Find returns the message with id, or nil.
func (t *Thread) Find(id string) *Message {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].ID == id {
			return t.Messages[i]
		}
	}
	return nil
}

// Last returns the most recent message, or nil.
func (t *Thread) Last() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return t.Messages[len(t.Messages)-1]
}
