// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package threads

import (
	"encoding/json"
	"log/slog"

	"github.com/jeranaias/entchat/internal/model"
	"github.com/jeranaias/entchat/internal/storage"
)

// DefaultMaxEntries caps a panel's history list.
const DefaultMaxEntries = 30

// Options configures a Store.
type Options struct {
	// PanelKey scopes persisted keys. An empty key disables persistence.
	PanelKey string
	// MaxEntries caps the history list (default 30).
	MaxEntries int
	// TitleMaxRunes bounds entry titles (default 40).
	TitleMaxRunes int
	// Greeting is the assistant message new threads start with. Empty means
	// threads start blank.
	Greeting string
	Logger   *slog.Logger
}

// PanelState is a snapshot of one panel.
type PanelState struct {
	ConversationKey string
	ConversationID  string
	Entries         []model.HistoryEntry
	ActiveHistoryID string
	IsLoading       bool
}

// =============================================================================
// STORE
// =============================================================================

// Store holds one panel's entries and threads.
type Store struct {
	kv     storage.KV
	opts   Options
	logger *slog.Logger

	state    PanelState
	threads  map[string]*model.Thread
	greeting *model.Message
}

// Open creates the panel state and rehydrates it from kv. Absent or corrupt
// values fall back to empty defaults.
func Open(kv storage.KV, opts Options) *Store {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.TitleMaxRunes <= 0 {
		opts.TitleMaxRunes = model.TitleMaxRunes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if kv == nil {
		kv = storage.NewMemory()
	}

	s := &Store{
		kv:      kv,
		opts:    opts,
		logger:  logger.With("panel", opts.PanelKey),
		threads: make(map[string]*model.Thread),
		state: PanelState{
			ConversationKey: opts.PanelKey,
			Entries:         make([]model.HistoryEntry, 0),
		},
	}
	s.SetGreeting(opts.Greeting)
	s.rehydrate()

	def := model.NewThread(model.DefaultThreadID)
	def.Reset(s.greeting)
	s.threads[model.DefaultThreadID] = def

	return s
}

func (s *Store) rehydrate() {
	if !s.persistent() {
		return
	}

	if v, ok, err := s.kv.Get(storage.ConversationKey(s.opts.PanelKey)); err != nil {
		s.logger.Warn("failed to read conversation id", "error", err)
	} else if ok {
		s.state.ConversationID = v
	}

	raw, ok, err := s.kv.Get(storage.HistoryKey(s.opts.PanelKey))
	if err != nil {
		s.logger.Warn("failed to read history, using empty list", "error", err)
		return
	}
	if !ok || raw == "" {
		return
	}

	var entries []model.HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.logger.Warn("history is corrupt, using empty list", "error", err)
		return
	}
	if len(entries) > s.opts.MaxEntries {
		entries = entries[:s.opts.MaxEntries]
	}
	if entries != nil {
		s.state.Entries = entries
	}
}

func (s *Store) persistent() bool {
	return s.opts.PanelKey != ""
}

// PanelKey returns the key this panel persists under.
func (s *Store) PanelKey() string {
	return s.opts.PanelKey
}

// State returns a copy of the panel state.
func (s *Store) State() PanelState {
	st := s.state
	st.Entries = s.Entries()
	return st
}

// =============================================================================
// GREETING
// =============================================================================

// SetGreeting replaces the greeting template. Existing threads keep the
// greeting they were created with.
func (s *Store) SetGreeting(text string) {
	if text == "" {
		s.greeting = nil
		return
	}
	s.greeting = model.NewMessage(model.RoleAssistant, text)
}

// Greeting returns a copy of the greeting template, or nil.
func (s *Store) Greeting() *model.Message {
	if s.greeting == nil {
		return nil
	}
	return s.greeting.Clone()
}

// =============================================================================
// PANEL FIELDS
// =============================================================================

// ActiveID returns the active entry id, empty for the default thread.
func (s *Store) ActiveID() string {
	return s.state.ActiveHistoryID
}

// SetActive makes id the active entry and returns its thread, created on
// demand with the greeting when withGreeting is set. An empty id selects the
// default thread.
func (s *Store) SetActive(id string, withGreeting bool) *model.Thread {
	s.state.ActiveHistoryID = id
	return s.EnsureThread(id, withGreeting)
}

// ConversationID returns the panel's mirrored conversation id.
func (s *Store) ConversationID() string {
	return s.state.ConversationID
}

// SetConversationID mirrors id into the panel and persists it. An empty id
// removes the persisted mapping.
func (s *Store) SetConversationID(id string) {
	s.state.ConversationID = id
	if !s.persistent() {
		return
	}

	key := storage.ConversationKey(s.opts.PanelKey)
	var err error
	if id == "" {
		err = s.kv.Delete(key)
	} else {
		err = s.kv.Set(key, id)
	}
	if err != nil {
		s.logger.Warn("failed to persist conversation id", "conversation", id, "error", err)
	}
}

// IsLoading reports whether an exchange or history load is in flight.
func (s *Store) IsLoading() bool {
	return s.state.IsLoading
}

// TryBeginLoading sets IsLoading and reports true, or reports false when it
// was already set.
func (s *Store) TryBeginLoading() bool {
	if s.state.IsLoading {
		return false
	}
	s.state.IsLoading = true
	return true
}

// EndLoading clears IsLoading.
func (s *Store) EndLoading() {
	s.state.IsLoading = false
}
