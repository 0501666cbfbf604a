// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app assembles the storage, API client and per-panel controllers
// described by a Config. Both the TUI and the line-oriented commands start
// from an App.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jeranaias/entchat/internal/api"
	"github.com/jeranaias/entchat/internal/config"
	"github.com/jeranaias/entchat/internal/exchange"
	"github.com/jeranaias/entchat/internal/history"
	"github.com/jeranaias/entchat/internal/pacing"
	"github.com/jeranaias/entchat/internal/storage"
	"github.com/jeranaias/entchat/internal/threads"
)

// App holds the long-lived collaborators of one process.
type App struct {
	Logger   *slog.Logger
	Store    *storage.Resilient
	Client   *api.Client
	Registry *history.Registry
	UserID   string

	mu            sync.Mutex
	cfg           *config.Config
	orchestrators map[string]*exchange.Orchestrator
}

// New opens the configured store and builds the client and registry. A
// store that cannot be opened degrades to memory; the returned App is still
// usable and the failure is logged.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	path, err := cfg.StoragePath()
	if err != nil {
		return nil, err
	}
	kv, err := storage.Open(cfg.Storage.Backend, path, logger)
	if err != nil && (kv == nil || !errors.Is(err, storage.ErrUnavailable)) {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	userID, err := storage.UserID(kv)
	if err != nil {
		logger.Warn("user id not persisted", "error", err)
	}

	return NewWithStore(cfg, kv, userID, logger), nil
}

// NewWithStore builds an App over an already open store.
func NewWithStore(cfg *config.Config, kv *storage.Resilient, userID string, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Logger:        logger,
		Store:         kv,
		UserID:        userID,
		cfg:           cfg,
		orchestrators: make(map[string]*exchange.Orchestrator),
	}
	a.Client = NewClient(cfg, logger)
	a.Registry = history.NewRegistry(kv, a.Client, a.panelOptions)
	return a
}

// NewClient builds the API client for cfg.
func NewClient(cfg *config.Config, logger *slog.Logger) *api.Client {
	return api.NewClient(cfg.Server.BaseURL,
		api.WithPaths(cfg.Server.StreamPath, cfg.Server.HistoryPath),
		api.WithTimeout(cfg.Server.Timeout()),
		api.WithHistoryRate(cfg.Server.HistoryRPS),
		api.WithSession(api.Session{
			Role:        cfg.Session.Role,
			Token:       cfg.Session.Token,
			DisplayName: cfg.Session.DisplayName,
		}),
		api.WithLogger(logger),
	)
}

// Config returns the current configuration.
func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// Panel returns the configuration of panelKey, falling back to the
// defaults for undeclared keys.
func (a *App) Panel(panelKey string) config.PanelConfig {
	if p, ok := a.Config().Panel(panelKey); ok {
		return p
	}
	p := config.DefaultPanel()
	p.Key = panelKey
	p.Title = panelKey
	return p
}

func (a *App) panelOptions(panelKey string) history.PanelOptions {
	cfg := a.Config()
	panel := a.Panel(panelKey)
	return history.PanelOptions{
		Store: threads.Options{
			MaxEntries:    cfg.History.MaxEntries,
			TitleMaxRunes: cfg.History.TitleMaxRunes,
			Greeting:      panel.Greeting,
			Logger:        a.Logger,
		},
		Controller: history.Options{
			UserID:     a.UserID,
			FetchLimit: cfg.History.FetchLimit,
			Logger:     a.Logger,
		},
	}
}

// Controller returns the history controller of panelKey.
func (a *App) Controller(panelKey string) *history.Controller {
	return a.Registry.Get(panelKey)
}

// Orchestrator returns the send orchestrator of panelKey, creating it on
// first use.
func (a *App) Orchestrator(panelKey string) *exchange.Orchestrator {
	ctrl := a.Controller(panelKey)

	a.mu.Lock()
	defer a.mu.Unlock()
	if o, ok := a.orchestrators[panelKey]; ok && o.Controller() == ctrl {
		return o
	}

	panel, ok := a.cfg.Panel(panelKey)
	if !ok {
		panel = config.DefaultPanel()
	}
	o := exchange.New(ctrl, a.Client, exchange.Options{
		ReplyTemplate: panel.ReplyTemplate,
		Budget:        a.cfg.Render.CharsPerFrame,
		StreamTimeout: a.cfg.Server.StreamTimeout(),
		FrameInterval: pacing.FrameInterval(a.cfg.Render.FPS),
		Logger:        a.Logger,
	})
	a.orchestrators[panelKey] = o
	return o
}

// DestroyPanel drops the live state of panelKey: its controller and its
// orchestrator. Persisted history is kept and rehydrated on next access.
func (a *App) DestroyPanel(panelKey string) bool {
	a.mu.Lock()
	delete(a.orchestrators, panelKey)
	a.mu.Unlock()

	if !a.Registry.Destroy(panelKey) {
		return false
	}
	a.Logger.Debug("panel destroyed", "panel", panelKey)
	return true
}

// Apply installs a reloaded configuration. Greetings, reply templates and
// the render budget of live panels change immediately; connection settings
// apply after a restart.
func (a *App) Apply(cfg *config.Config) {
	a.mu.Lock()
	a.cfg = cfg
	orchestrators := make(map[string]*exchange.Orchestrator, len(a.orchestrators))
	for k, o := range a.orchestrators {
		orchestrators[k] = o
	}
	a.mu.Unlock()

	for _, key := range a.Registry.Keys() {
		panel := a.Panel(key)
		a.Controller(key).Store().SetGreeting(panel.Greeting)
		if o, ok := orchestrators[key]; ok {
			o.SetBudget(cfg.Render.CharsPerFrame)
			o.SetReplyTemplate(panel.ReplyTemplate)
		}
	}
	a.Logger.Info("configuration applied", "panels", len(cfg.Panels))
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
