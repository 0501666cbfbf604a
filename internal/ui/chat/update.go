// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/entchat/internal/config"
	"github.com/jeranaias/entchat/internal/history"
	"github.com/jeranaias/entchat/internal/ui/styles"
)

// buttonWidth is the space reserved right of the textarea.
const buttonWidth = 12

// Update handles incoming messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.dispatch(msg)
	m.syncChanges()
	return m, cmd
}

func (m *Model) dispatch(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg.Width, msg.Height)
		return nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case streamUpdateMsg:
		return m.handleStreamUpdate(msg)

	case frameMsg:
		return m.handleFrame()

	case historyLoadedMsg:
		m.handleHistoryLoaded(msg)
		return nil

	case ConfigReloadedMsg:
		m.applyConfig(msg.Config)
		return nil

	case spinner.TickMsg:
		if !m.active() {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh(false)
		return cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// active reports whether anything is in flight that animates the spinner.
func (m Model) active() bool {
	return len(m.runs) > 0 || m.controller().Store().IsLoading()
}

// =============================================================================
// RESIZE
// =============================================================================

func (m *Model) handleResize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	convWidth := m.conversationWidth()
	vpHeight := height - headerHeight - statusHeight - inputHeight - inputChrome
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = convWidth
	m.viewport.Height = vpHeight
	m.input.SetWidth(max(convWidth-buttonWidth, 10))

	md, err := styles.NewMarkdown(m.theme.IsDark, convWidth-4)
	if err != nil {
		m.app.Logger.Warn("markdown renderer unavailable", "error", err)
	}
	m.md = md
	clear(m.rendered)

	m.ready = true
	m.refresh(true)
}

// conversationWidth is the width left for the conversation column.
func (m Model) conversationWidth() int {
	if m.theme.ShowSidebar() {
		return m.width - styles.SidebarWidth - 1
	}
	return m.width
}

// =============================================================================
// KEYBOARD
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Shutdown()
		return tea.Quit

	case key.Matches(msg, m.keys.NextPanel):
		m.current = (m.current + 1) % len(m.panels)
		m.setStatus("", false)
		m.refresh(true)
		return nil

	case key.Matches(msg, m.keys.New):
		m.newConversation()
		return nil

	case key.Matches(msg, m.keys.Focus):
		m.toggleFocus()
		return nil

	case key.Matches(msg, m.keys.Cancel):
		if m.Busy() {
			m.cancelCurrent()
		} else if m.focus == focusSidebar {
			m.toggleFocus()
		}
		return nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}

	if key.Matches(msg, m.keys.Submit) {
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) toggleFocus() {
	if m.focus == focusInput {
		m.focus = focusSidebar
		m.input.Blur()
		m.cursor[m.PanelKey()] = m.activeIndex()
		return
	}
	m.focus = focusInput
	m.input.Focus()
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) tea.Cmd {
	panel := m.PanelKey()
	entries := m.controller().Store().Entries()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor[panel] > 0 {
			m.cursor[panel]--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor[panel] < len(entries)-1 {
			m.cursor[panel]++
		}
	case key.Matches(msg, m.keys.Select):
		return m.selectEntry()
	case key.Matches(msg, m.keys.Delete):
		m.deleteEntry()
	}
	return nil
}

// =============================================================================
// HISTORY ACTIONS
// =============================================================================

// cursorEntry returns the id under the sidebar cursor.
func (m *Model) cursorEntry() (string, bool) {
	entries := m.controller().Store().Entries()
	if len(entries) == 0 {
		return "", false
	}
	idx := min(max(m.cursor[m.PanelKey()], 0), len(entries)-1)
	m.cursor[m.PanelKey()] = idx
	return entries[idx].ID, true
}

// activeIndex returns the sidebar position of the active entry, or 0.
func (m Model) activeIndex() int {
	store := m.controller().Store()
	active := store.ActiveID()
	for i, e := range store.Entries() {
		if e.ID == active {
			return i
		}
	}
	return 0
}

func (m *Model) selectEntry() tea.Cmd {
	id, ok := m.cursorEntry()
	if !ok {
		return nil
	}
	ctrl := m.controller()
	plan, err := ctrl.BeginSelect(id)
	if errors.Is(err, history.ErrBusy) {
		m.setStatus("Please wait for the current answer", true)
		return nil
	}

	m.setStatus("", false)
	m.focus = focusInput
	m.input.Focus()
	if !plan.NeedsFetch {
		return nil
	}

	panel := m.PanelKey()
	ctx := m.ctx
	fetch := func() tea.Msg {
		msgs, err := ctrl.FetchConversation(ctx, plan)
		return historyLoadedMsg{panel: panel, ctrl: ctrl, plan: plan, msgs: msgs, err: err}
	}
	return tea.Batch(fetch, m.spinner.Tick)
}

func (m *Model) handleHistoryLoaded(msg historyLoadedMsg) {
	// The panel was destroyed while loading.
	if sub, ok := m.subs[msg.panel]; !ok || sub.ctrl != msg.ctrl {
		return
	}
	err := msg.ctrl.CompleteLoad(msg.plan, msg.msgs, msg.err)
	if err != nil {
		m.setStatus("Could not load conversation: "+firstLine(err.Error()), true)
	}
}

func (m *Model) deleteEntry() {
	id, ok := m.cursorEntry()
	if !ok {
		return
	}
	if err := m.controller().Delete(id); errors.Is(err, history.ErrBusy) {
		m.setStatus("Please wait for the current answer", true)
		return
	}
	if n := len(m.controller().Store().Entries()); m.cursor[m.PanelKey()] >= n {
		m.cursor[m.PanelKey()] = max(n-1, 0)
	}
}

func (m *Model) newConversation() {
	if _, err := m.controller().NewConversation(); errors.Is(err, history.ErrBusy) {
		m.setStatus("Please wait for the current answer", true)
		return
	}
	m.cursor[m.PanelKey()] = 0
	m.setStatus("", false)
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	m.app.Apply(cfg)

	shown := m.PanelKey()
	if keys := cfg.PanelKeys(); len(keys) > 0 {
		m.dropRemovedPanels(keys, shown)
		m.panels = keys
	}
	m.current = 0
	m.selectPanel(shown)

	if m.themeOverride == "" {
		m.theme = styles.NewTheme(cfg.UI.Theme)
	}
	m.setStatus("Configuration reloaded", false)
	if m.ready {
		m.handleResize(m.width, m.height)
	}
}

// dropRemovedPanels destroys the panels missing from keys, except the shown
// panel.
func (m *Model) dropRemovedPanels(keys []string, shown string) {
	kept := make(map[string]bool, len(keys))
	for _, k := range keys {
		kept[k] = true
	}
	for _, k := range m.panels {
		if kept[k] || k == shown {
			continue
		}
		if r, ok := m.runs[k]; ok {
			r.cancel()
			m.finish(r, context.Canceled)
		}
		m.unwatch(k)
		delete(m.cursor, k)
		m.app.DestroyPanel(k)
	}
}
