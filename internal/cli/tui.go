// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/entchat/internal/config"
	"github.com/jeranaias/entchat/internal/ui/chat"
)

// ErrNotInteractive is returned when the TUI is started without a terminal.
var ErrNotInteractive = errors.New("the terminal UI needs an interactive terminal; use 'entchat ask' or 'entchat repl'")

// TUICmd runs the full-screen chat UI.
type TUICmd struct {
	Theme   string `help:"Color theme (auto, dark, light). Overrides ui.theme."`
	NoWatch bool   `help:"Do not reload the config file when it changes." name:"no-watch"`
}

// Run implements the tui command.
func (c *TUICmd) Run(env *Env) error {
	if !IsTTY() || !IsStdoutTTY() {
		return ErrNotInteractive
	}

	a, err := env.App()
	if err != nil {
		return err
	}
	key, err := env.PanelKey(a)
	if err != nil {
		return err
	}

	m := chat.New(a, chat.Options{PanelKey: key, Theme: c.Theme})
	defer m.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if !c.NoWatch {
		path, err := env.ConfigPath()
		if err == nil {
			go func() {
				err := config.Watch(ctx, path, a.Logger, func(cfg *config.Config) {
					p.Send(chat.ConfigReloadedMsg{Config: cfg})
				})
				if err != nil {
					a.Logger.Debug("config watch disabled", "path", path, "error", err)
				}
			}()
		}
	}

	final, err := p.Run()
	if fm, ok := final.(chat.Model); ok {
		fm.Shutdown()
	}
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
