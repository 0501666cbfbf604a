// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"log/slog"
	"strings"
)

// =============================================================================
// KEY-VALUE INTERFACE
// =============================================================================

// KV is a string key-value store. Implementations are not required to be
// safe for concurrent use.
type KV interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// Keys lists stored keys that start with prefix, sorted.
	Keys(prefix string) ([]string, error)
	// Close releases the backend.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// =============================================================================
// KEY NAMES
// =============================================================================

// Key prefixes.
const (
	KeyUserID          = "entchat.userId"
	PrefixConversation = "entchat.conversation:"
	PrefixHistory      = "entchat.history:"
)

// ConversationKey is the key holding a panel's active resolved conversation id.
func ConversationKey(panelKey string) string {
	return PrefixConversation + panelKey
}

// HistoryKey is the key holding a panel's serialized entry list.
func HistoryKey(panelKey string) string {
	return PrefixHistory + panelKey
}

// PanelKeys returns the panel keys that have a stored entry list.
func PanelKeys(kv KV) ([]string, error) {
	keys, err := kv.Keys(PrefixHistory)
	if err != nil {
		return nil, err
	}
	panels := make([]string, 0, len(keys))
	for _, k := range keys {
		panels = append(panels, strings.TrimPrefix(k, PrefixHistory))
	}
	return panels, nil
}

// =============================================================================
// OPEN
// =============================================================================

// Open creates the backend named by backend at path and wraps it in a
// Resilient store. If the backend cannot be opened the error is logged and
// an in-memory store is returned together with ErrUnavailable.
func Open(backend, path string, logger *slog.Logger) (*Resilient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		kv  KV
		err error
	)
	switch backend {
	case BackendSQLite, "":
		kv, err = OpenSQLite(path)
	case BackendFile:
		kv, err = OpenFile(path)
	case BackendMemory:
		kv = NewMemory()
	default:
		err = fmt.Errorf("unknown storage backend %q", backend)
	}

	if err != nil {
		logger.Warn("storage unavailable, history will not persist",
			"backend", backend, "path", path, "error", err)
		r := NewResilient(NewMemory(), logger)
		r.degraded = true
		return r, &Error{Op: "open", Key: path, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	return NewResilient(kv, logger), nil
}
