// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package threads

import (
	"encoding/json"

	"github.com/jeranaias/entchat/internal/model"
	"github.com/jeranaias/entchat/internal/storage"
)

// =============================================================================
// ENTRY OPERATIONS
// =============================================================================

// Entries returns the history list, most recent first.
func (s *Store) Entries() []model.HistoryEntry {
	out := make([]model.HistoryEntry, len(s.state.Entries))
	copy(out, s.state.Entries)
	return out
}

// Entry returns the entry with id.
func (s *Store) Entry(id string) (model.HistoryEntry, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.state.Entries[i], true
	}
	return model.HistoryEntry{}, false
}

// ActiveEntry returns the active entry, if one is selected and still exists.
func (s *Store) ActiveEntry() (model.HistoryEntry, bool) {
	if s.state.ActiveHistoryID == "" {
		return model.HistoryEntry{}, false
	}
	return s.Entry(s.state.ActiveHistoryID)
}

// CreateEntry prepends an unresolved entry titled from title, evicts the
// oldest beyond the cap, persists and returns the new id.
func (s *Store) CreateEntry(title string) string {
	entry := model.HistoryEntry{
		ID:    model.NewEntryID(),
		Title: model.NormalizeTitle(title, s.opts.TitleMaxRunes),
	}
	for s.indexOf(entry.ID) >= 0 {
		entry.ID = model.NewEntryID()
	}

	entries := make([]model.HistoryEntry, 0, len(s.state.Entries)+1)
	entries = append(entries, entry)
	entries = append(entries, s.state.Entries...)
	if len(entries) > s.opts.MaxEntries {
		for _, evicted := range entries[s.opts.MaxEntries:] {
			delete(s.threads, evicted.ID)
		}
		entries = entries[:s.opts.MaxEntries]
	}
	s.state.Entries = entries

	s.persistEntries()
	return entry.ID
}

// RenameEntry retitles id. Unknown ids are ignored.
func (s *Store) RenameEntry(id, title string) {
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.state.Entries[i].Title = model.NormalizeTitle(title, s.opts.TitleMaxRunes)
	s.persistEntries()
}

// BindConversation records the remote conversation id resolved for entry id.
// Rebinding to a different id overwrites the old one and logs a warning.
func (s *Store) BindConversation(id, conversationID string) {
	i := s.indexOf(id)
	if i < 0 || conversationID == "" {
		return
	}
	prev := s.state.Entries[i].ConversationID
	if prev == conversationID {
		return
	}
	if prev != "" {
		s.logger.Warn("entry already bound to a different conversation, overwriting",
			"entry", id, "previous", prev, "conversation", conversationID)
	}
	s.state.Entries[i].ConversationID = conversationID
	s.persistEntries()
}

// DeleteEntry removes id and its thread. When id was active, or the list is
// now empty, the panel falls back to the default thread reset to the
// greeting and the conversation mapping is cleared. It reports whether that
// fallback happened. Unknown ids only trigger the empty-list fallback.
func (s *Store) DeleteEntry(id string) bool {
	if i := s.indexOf(id); i >= 0 {
		s.state.Entries = append(s.state.Entries[:i:i], s.state.Entries[i+1:]...)
		s.persistEntries()
	}

	reset := false
	if s.state.ActiveHistoryID == id || len(s.state.Entries) == 0 {
		s.ResetToDefault()
		reset = true
	}
	s.RemoveThread(id)
	return reset
}

// ResetToDefault selects the default thread, resets it to the greeting and
// clears the panel's conversation id.
func (s *Store) ResetToDefault() {
	s.state.ActiveHistoryID = ""
	s.ResetThread(model.DefaultThreadID, true)
	s.SetConversationID("")
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, e := range s.state.Entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persistEntries() {
	if !s.persistent() {
		return
	}
	data, err := json.Marshal(s.state.Entries)
	if err != nil {
		s.logger.Warn("failed to encode history", "error", err)
		return
	}
	if err := s.kv.Set(storage.HistoryKey(s.opts.PanelKey), string(data)); err != nil {
		s.logger.Warn("failed to persist history", "error", err)
	}
}
