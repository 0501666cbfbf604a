// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/entchat/internal/util"
)

// Title defaults.
const (
	TitleMaxRunes   = 40
	UntitledTitle   = "Untitled conversation"
	NewConversation = "New conversation"
)

// =============================================================================
// HISTORY ENTRY
// =============================================================================

// HistoryEntry is a persisted handle to one conversation thread.
// ConversationID is empty until an exchange resolves a remote id and is
// serialised as null in that case.
type HistoryEntry struct {
	ID             string
	Title          string
	ConversationID string
}

type historyEntryJSON struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	ConversationID *string `json:"conversationId"`
}

// MarshalJSON writes {id, title, conversationId} with a null id when unresolved.
func (e HistoryEntry) MarshalJSON() ([]byte, error) {
	out := historyEntryJSON{ID: e.ID, Title: e.Title}
	if e.ConversationID != "" {
		out.ConversationID = &e.ConversationID
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts null or missing conversationId.
func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	var in historyEntryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	e.ID = in.ID
	e.Title = in.Title
	e.ConversationID = ""
	if in.ConversationID != nil {
		e.ConversationID = *in.ConversationID
	}
	return nil
}

// Resolved reports whether the entry is bound to a remote conversation.
func (e HistoryEntry) Resolved() bool {
	return e.ConversationID != ""
}

// NewHistoryEntry builds an unresolved entry with a fresh id and a
// normalized title.
func NewHistoryEntry(title string) HistoryEntry {
	return HistoryEntry{
		ID:    NewEntryID(),
		Title: NormalizeTitle(title, TitleMaxRunes),
	}
}

// =============================================================================
// TITLES AND IDS
// =============================================================================

// NormalizeTitle collapses whitespace, applies NFC and truncates to maxRunes
// runes followed by "...". Empty text yields UntitledTitle.
func NormalizeTitle(text string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = TitleMaxRunes
	}
	sanitized := strings.Join(strings.Fields(norm.NFC.String(text)), " ")
	if sanitized == "" {
		return UntitledTitle
	}
	truncated, cut := util.TruncateRunes(sanitized, maxRunes)
	if !cut {
		return sanitized
	}
	return truncated + "..."
}

// NewEntryID returns an opaque entry id of the form h-<unix-ms>-<6 hex>.
func NewEntryID() string {
	return fmt.Sprintf("h-%d-%s", time.Now().UnixMilli(), randomHex(6))
}

// NewUserID returns a user identity of the form web-<unix-ms>-<8 hex>.
func NewUserID() string {
	return fmt.Sprintf("web-%d-%s", time.Now().UnixMilli(), randomHex(8))
}

// randomHex returns n lowercase hex characters taken from a random UUID.
func randomHex(n int) string {
	id := uuid.New()
	hex := strings.ReplaceAll(id.String(), "-", "")
	// Skip the version nibble region so the output is fully random.
	return hex[len(hex)-n:]
}
