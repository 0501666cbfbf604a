// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"log/slog"
	"sync"
)

// Resilient wraps a KV and never fails its callers. The first backend error
// is logged once, the current contents are copied into memory, and from
// then on every operation is served from memory only.
type Resilient struct {
	mu       sync.Mutex
	backend  KV
	fallback *Memory
	removed  map[string]struct{}
	degraded bool
	once     sync.Once
	logger   *slog.Logger
}

// NewResilient wraps backend.
func NewResilient(backend KV, logger *slog.Logger) *Resilient {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resilient{
		backend:  backend,
		fallback: NewMemory(),
		removed:  make(map[string]struct{}),
		logger:   logger,
	}
}

// Degraded reports whether persistence has been abandoned.
func (r *Resilient) Degraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded
}

// Get implements KV.
func (r *Resilient) Get(key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.degraded {
		v, ok, err := r.backend.Get(key)
		if err == nil {
			return v, ok, nil
		}
		r.degradeLocked("get", key, err)
	}
	return r.fallback.Get(key)
}

// Set implements KV.
func (r *Resilient) Set(key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fallback.Set(key, value)
	delete(r.removed, key)
	if !r.degraded {
		if err := r.backend.Set(key, value); err != nil {
			r.degradeLocked("set", key, err)
		}
	}
	return nil
}

// Delete implements KV.
func (r *Resilient) Delete(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fallback.Delete(key)
	r.removed[key] = struct{}{}
	if !r.degraded {
		if err := r.backend.Delete(key); err != nil {
			r.degradeLocked("delete", key, err)
		}
	}
	return nil
}

// Keys implements KV.
func (r *Resilient) Keys(prefix string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.degraded {
		keys, err := r.backend.Keys(prefix)
		if err == nil {
			return keys, nil
		}
		r.degradeLocked("keys", prefix, err)
	}
	return r.fallback.Keys(prefix)
}

// Close implements KV.
func (r *Resilient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.backend == nil {
		return nil
	}
	return r.backend.Close()
}

// degradeLocked switches to memory-only mode. Whatever the backend can
// still return is copied across first, except keys deleted through r.
func (r *Resilient) degradeLocked(op, key string, err error) {
	r.once.Do(func() {
		r.logger.Warn("storage unavailable, continuing in memory",
			"op", op, "key", key, "error", &Error{Op: op, Key: key, Err: err})
	})
	if keys, kerr := r.backend.Keys(""); kerr == nil {
		for _, k := range keys {
			if _, gone := r.removed[k]; gone {
				continue
			}
			if _, have, _ := r.fallback.Get(k); have {
				continue
			}
			if v, ok, gerr := r.backend.Get(k); gerr == nil && ok {
				r.fallback.Set(k, v)
			}
		}
	}
	r.degraded = true
}
