// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - ENTCHAT_BASE_URL: overrides server.base_url
//   - ENTCHAT_TOKEN: overrides session.token
//   - ENTCHAT_DISPLAY_NAME: overrides session.display_name
//   - ENTCHAT_STORAGE: overrides storage.backend
//   - ENTCHAT_STORAGE_PATH: overrides storage.path
//   - ENTCHAT_LOG_LEVEL: overrides log.level
//   - ENTCHAT_CHARS_PER_FRAME: overrides render.chars_per_frame
//   - ENTCHAT_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("ENTCHAT_BASE_URL"); v != "" {
		c.Server.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("ENTCHAT_TOKEN"); v != "" {
		c.Session.Token = v
	}
	if v := os.Getenv("ENTCHAT_DISPLAY_NAME"); v != "" {
		c.Session.DisplayName = v
	}
	if v := os.Getenv("ENTCHAT_STORAGE"); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("ENTCHAT_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("ENTCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("ENTCHAT_CHARS_PER_FRAME"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Render.CharsPerFrame = n
		}
	}
	if v := os.Getenv("ENTCHAT_THEME"); v != "" {
		c.UI.Theme = strings.ToLower(v)
	}
}
