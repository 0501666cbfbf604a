// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole maps a server role case-insensitively. Anything other than
// "user" is treated as the assistant.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleUser)) {
		return RoleUser
	}
	return RoleAssistant
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one rendered message in a thread.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`

	// Pending is set while an assistant answer is still streaming. Pending
	// messages render as plain text, finalized ones as Markdown.
	Pending bool `json:"-"`
	// Failed marks an assistant message that holds a fallback reply.
	Failed bool `json:"failed,omitempty"`
}

// NewMessage creates a finalized message with a generated ID.
func NewMessage(role Role, text string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(text string) *Message {
	return NewMessage(RoleUser, text)
}

// NewPendingAssistant creates an empty assistant placeholder for a
// streaming answer.
func NewPendingAssistant() *Message {
	msg := NewMessage(RoleAssistant, "")
	msg.Pending = true
	return msg
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Append adds streamed text to a pending message.
func (m *Message) Append(text string) {
	if m.Pending {
		m.Text += text
	}
}

// Finalize replaces the streamed text with the final answer.
func (m *Message) Finalize(text string) {
	m.Text = text
	m.Pending = false
	m.Failed = false
}

// Fail replaces the text with a fallback and marks the message failed.
func (m *Message) Fail(text string) {
	m.Text = text
	m.Pending = false
	m.Failed = true
}

// RendersMarkdown reports whether the message should be shown as Markdown.
func (m *Message) RendersMarkdown() bool {
	return m.Role == RoleAssistant && !m.Pending && !m.Failed
}

// Clone returns a copy that shares nothing with m.
func (m *Message) Clone() *Message {
	c := *m
	return &c
}

// Preview returns a truncated preview of the message text.
func (m *Message) Preview(maxLen int) string {
	runes := []rune(m.Text)
	if maxLen <= 3 || len(runes) <= maxLen {
		return m.Text
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	return "msg_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
