// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"sort"
	"sync"

	"github.com/jeranaias/entchat/internal/storage"
	"github.com/jeranaias/entchat/internal/threads"
)

// PanelOptions configures one panel created by a Registry.
type PanelOptions struct {
	Store      threads.Options
	Controller Options
}

// Registry owns one Controller per panel key. Panels are created and
// rehydrated on first access and dropped by Destroy.
type Registry struct {
	mu      sync.Mutex
	kv      storage.KV
	fetcher ConversationFetcher
	options func(panelKey string) PanelOptions
	panels  map[string]*Controller
}

// NewRegistry creates an empty registry. options supplies per-panel
// settings; the store's PanelKey is always set to the requested key.
func NewRegistry(kv storage.KV, fetcher ConversationFetcher, options func(panelKey string) PanelOptions) *Registry {
	if options == nil {
		options = func(string) PanelOptions { return PanelOptions{} }
	}
	return &Registry{
		kv:      kv,
		fetcher: fetcher,
		options: options,
		panels:  make(map[string]*Controller),
	}
}

// Get returns the controller for panelKey, creating it on first access.
func (r *Registry) Get(panelKey string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.panels[panelKey]; ok {
		return c
	}
	opts := r.options(panelKey)
	opts.Store.PanelKey = panelKey
	store := threads.Open(r.kv, opts.Store)
	c := NewController(store, r.fetcher, opts.Controller)
	r.panels[panelKey] = c
	return c
}

// Destroy drops the in-memory state of panelKey. Persisted data is kept.
func (r *Registry) Destroy(panelKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.panels[panelKey]; !ok {
		return false
	}
	delete(r.panels, panelKey)
	return true
}

// Keys returns the keys of live panels, sorted.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.panels))
	for k := range r.panels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
