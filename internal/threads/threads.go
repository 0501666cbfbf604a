// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package threads

import (
	"github.com/jeranaias/entchat/internal/model"
)

// =============================================================================
// THREAD OPERATIONS
// =============================================================================

func normalizeThreadID(id string) string {
	if id == "" {
		return model.DefaultThreadID
	}
	return id
}

// Thread returns the thread for id, or nil. An empty id is the default
// thread.
func (s *Store) Thread(id string) *model.Thread {
	return s.threads[normalizeThreadID(id)]
}

// ActiveThread returns the thread of the active entry, or the default thread.
func (s *Store) ActiveThread() *model.Thread {
	return s.EnsureThread(s.state.ActiveHistoryID, true)
}

// EnsureThread returns the thread for id, creating it if needed. A new
// thread starts with the greeting when withGreeting is set.
func (s *Store) EnsureThread(id string, withGreeting bool) *model.Thread {
	id = normalizeThreadID(id)
	if t, ok := s.threads[id]; ok {
		return t
	}
	t := model.NewThread(id)
	if withGreeting {
		t.Reset(s.greeting)
	}
	s.threads[id] = t
	return t
}

// ResetThread clears the thread for id, keeping only the greeting when
// includeGreeting is set.
func (s *Store) ResetThread(id string, includeGreeting bool) {
	t := s.EnsureThread(id, false)
	if includeGreeting {
		t.Reset(s.greeting)
	} else {
		t.Reset(nil)
	}
}

// RemoveThread discards the thread for id. The default thread is never
// removed.
func (s *Store) RemoveThread(id string) {
	id = normalizeThreadID(id)
	if id == model.DefaultThreadID {
		return
	}
	delete(s.threads, id)
}

// MarkLoaded records that the thread for id holds conversationID.
func (s *Store) MarkLoaded(id, conversationID string) {
	s.EnsureThread(id, false).MarkLoaded(conversationID)
}

// IsLoaded reports whether the thread for id already holds conversationID.
func (s *Store) IsLoaded(id, conversationID string) bool {
	t := s.Thread(id)
	return t != nil && t.IsLoadedFor(conversationID)
}

// ThreadCount returns the number of live threads, default included.
func (s *Store) ThreadCount() int {
	return len(s.threads)
}
