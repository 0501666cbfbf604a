// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/entchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete entchat configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Session SessionConfig `toml:"session"`
	History HistoryConfig `toml:"history"`
	Render  RenderConfig  `toml:"render"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
	UI      UIConfig      `toml:"ui"`
	Panels  []PanelConfig `toml:"panels"`
}

// ServerConfig locates the chat backend.
type ServerConfig struct {
	BaseURL           string  `toml:"base_url"`
	StreamPath        string  `toml:"stream_path"`
	HistoryPath       string  `toml:"history_path"`
	TimeoutSecs       int     `toml:"timeout_secs"`
	StreamTimeoutSecs int     `toml:"stream_timeout_secs"`
	HistoryRPS        float64 `toml:"history_rps"`
}

// Timeout returns the request timeout.
func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// StreamTimeout returns the exchange timeout, zero for none.
func (s ServerConfig) StreamTimeout() time.Duration {
	return time.Duration(s.StreamTimeoutSecs) * time.Second
}

// SessionConfig is the result of an external login.
type SessionConfig struct {
	Token       string `toml:"token"`
	DisplayName string `toml:"display_name"`
	Role        string `toml:"role"`
}

// HistoryConfig bounds the history list.
type HistoryConfig struct {
	MaxEntries    int `toml:"max_entries"`
	FetchLimit    int `toml:"fetch_limit"`
	TitleMaxRunes int `toml:"title_max_runes"`
}

// RenderConfig controls streamed text pacing.
type RenderConfig struct {
	CharsPerFrame int `toml:"chars_per_frame"`
	FPS           int `toml:"fps"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// UIConfig holds display settings.
type UIConfig struct {
	Theme string `toml:"theme"`
}

// PanelConfig declares one chat panel.
type PanelConfig struct {
	Key            string `toml:"key"`
	Title          string `toml:"title"`
	Greeting       string `toml:"greeting"`
	UserLabel      string `toml:"user_label"`
	AssistantLabel string `toml:"assistant_label"`
	ReplyTemplate  string `toml:"reply_template"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default panel key.
const DefaultPanelKey = "main"

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:           "http://localhost:8080",
			StreamPath:        "/api/chat/send-stream",
			HistoryPath:       "/api/chat/history",
			TimeoutSecs:       30,
			StreamTimeoutSecs: 0,
			HistoryRPS:        2,
		},
		History: HistoryConfig{
			MaxEntries:    30,
			FetchLimit:    50,
			TitleMaxRunes: 40,
		},
		Render: RenderConfig{
			CharsPerFrame: 8,
			FPS:           60,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
		UI: UIConfig{
			Theme: "auto",
		},
		Panels: []PanelConfig{DefaultPanel()},
	}
}

// DefaultPanel returns the panel used when none is configured.
func DefaultPanel() PanelConfig {
	return PanelConfig{
		Key:            DefaultPanelKey,
		Title:          "Enterprise assistant",
		Greeting:       "Hello! Ask me about policies, services and applications for your enterprise.",
		UserLabel:      "You",
		AssistantLabel: "Assistant",
	}
}

// SetDefaults fills zero values that must not stay empty.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Server.BaseURL == "" {
		c.Server.BaseURL = d.Server.BaseURL
	}
	if c.Server.StreamPath == "" {
		c.Server.StreamPath = d.Server.StreamPath
	}
	if c.Server.HistoryPath == "" {
		c.Server.HistoryPath = d.Server.HistoryPath
	}
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = d.Server.TimeoutSecs
	}
	if c.History.MaxEntries == 0 {
		c.History.MaxEntries = d.History.MaxEntries
	}
	if c.History.FetchLimit == 0 {
		c.History.FetchLimit = d.History.FetchLimit
	}
	if c.History.TitleMaxRunes == 0 {
		c.History.TitleMaxRunes = d.History.TitleMaxRunes
	}
	if c.Render.CharsPerFrame == 0 {
		c.Render.CharsPerFrame = d.Render.CharsPerFrame
	}
	if c.Render.FPS == 0 {
		c.Render.FPS = d.Render.FPS
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}

	if len(c.Panels) == 0 {
		c.Panels = d.Panels
	}
	def := DefaultPanel()
	for i := range c.Panels {
		p := &c.Panels[i]
		if p.Title == "" {
			p.Title = p.Key
		}
		if p.UserLabel == "" {
			p.UserLabel = def.UserLabel
		}
		if p.AssistantLabel == "" {
			p.AssistantLabel = def.AssistantLabel
		}
	}
}

// Panel returns the panel declared with key.
func (c *Config) Panel(key string) (PanelConfig, bool) {
	for _, p := range c.Panels {
		if p.Key == key {
			return p, true
		}
	}
	return PanelConfig{}, false
}

// PanelKeys returns the configured panel keys in declaration order.
func (c *Config) PanelKeys() []string {
	keys := make([]string, 0, len(c.Panels))
	for _, p := range c.Panels {
		keys = append(keys, p.Key)
	}
	return keys
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Panels = append([]PanelConfig(nil), c.Panels...)
	return &out
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the entchat configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".entchat"), nil
}

// Path returns the default config file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StoragePath returns the store location, resolving the default for the
// configured backend.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	switch c.Storage.Backend {
	case "file":
		return filepath.Join(dir, "store.json"), nil
	default:
		return filepath.Join(dir, "entchat.db"), nil
	}
}

// LogPath returns the log file location.
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "entchat.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the default config file. A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the config at path, applies environment overrides and
// defaults, and validates the result. A missing file yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	cfg.Panels = nil

	meta, err := toml.DecodeFile(path, cfg)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = Default()
	case err != nil:
		return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	default:
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %v\n", path, undecoded)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path with owner-only permissions.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	header := []byte("# entchat configuration file\n\n")

	if err := util.AtomicWriteFile(path, append(header, data...), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
