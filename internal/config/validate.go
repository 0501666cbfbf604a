// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validBackends = map[string]bool{"sqlite": true, "file": true, "memory": true}
	validLevels   = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validThemes   = map[string]bool{"auto": true, "dark": true, "light": true}
)

// Validate validates the configuration and returns ValidateErrors when
// anything is wrong.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Server
	if u, err := url.Parse(c.Server.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		add("server.base_url", "invalid URL '%s'", c.Server.BaseURL)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		add("server.base_url", "scheme must be http or https, got '%s'", u.Scheme)
	}
	for field, path := range map[string]string{
		"server.stream_path":  c.Server.StreamPath,
		"server.history_path": c.Server.HistoryPath,
	} {
		if !strings.HasPrefix(path, "/") {
			add(field, "must start with '/', got '%s'", path)
		}
	}
	if c.Server.TimeoutSecs < 0 {
		add("server.timeout_secs", "must not be negative")
	}
	if c.Server.StreamTimeoutSecs < 0 {
		add("server.stream_timeout_secs", "must not be negative")
	}
	if c.Server.HistoryRPS < 0 {
		add("server.history_rps", "must not be negative")
	}

	// History
	if c.History.MaxEntries < 1 {
		add("history.max_entries", "must be at least 1, got %d", c.History.MaxEntries)
	}
	if c.History.FetchLimit < 1 {
		add("history.fetch_limit", "must be at least 1, got %d", c.History.FetchLimit)
	}
	if c.History.TitleMaxRunes < 1 {
		add("history.title_max_runes", "must be at least 1, got %d", c.History.TitleMaxRunes)
	}

	// Render
	if c.Render.CharsPerFrame < 1 {
		add("render.chars_per_frame", "must be at least 1, got %d", c.Render.CharsPerFrame)
	}
	if c.Render.FPS < 1 || c.Render.FPS > 240 {
		add("render.fps", "must be between 1 and 240, got %d", c.Render.FPS)
	}

	// Storage, log and UI
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		add("storage.backend", "invalid backend '%s', must be one of: sqlite, file, memory", c.Storage.Backend)
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		add("log.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		add("log", "rotation limits must not be negative")
	}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		add("ui.theme", "invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme)
	}

	// Panels
	if len(c.Panels) == 0 {
		add("panels", "at least one panel is required")
	}
	seen := make(map[string]bool, len(c.Panels))
	for i, p := range c.Panels {
		field := fmt.Sprintf("panels[%d].key", i)
		switch {
		case strings.TrimSpace(p.Key) == "":
			add(field, "must not be empty")
		case strings.ContainsAny(p.Key, ": \t\n"):
			add(field, "must not contain ':' or whitespace, got '%s'", p.Key)
		case seen[p.Key]:
			add(field, "duplicate panel key '%s'", p.Key)
		}
		seen[p.Key] = true
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
