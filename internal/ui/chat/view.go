// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/entchat/internal/model"
	"github.com/jeranaias/entchat/internal/ui/styles"
)

// EmptyHistoryText is shown in the sidebar when a panel has no entries.
const EmptyHistoryText = "No conversations yet"

// View renders the chat panel.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var body string
	switch {
	case m.theme.ShowSidebar():
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderSidebar(m.viewport.Height),
			m.viewport.View(),
		)
	case m.focus == focusSidebar:
		body = m.renderSidebar(m.viewport.Height)
	default:
		body = m.viewport.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderInput(),
		m.renderStatus(),
	)
}

// =============================================================================
// CONVERSATION
// =============================================================================

// refresh re-renders the shown thread into the viewport. The view follows
// new content when it was already at the bottom or toBottom is set.
func (m *Model) refresh(toBottom bool) {
	if !m.ready {
		return
	}
	follow := toBottom || m.viewport.AtBottom()
	m.viewport.SetContent(m.renderThread())
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderThread() string {
	thread := m.controller().Store().ActiveThread()
	panel := m.panel()
	width := max(m.viewport.Width-1, 10)

	var b strings.Builder
	for i, msg := range thread.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if msg.Role == model.RoleUser {
			b.WriteString(m.theme.UserLabel.Render(labelOr(panel.UserLabel, msg.Role)))
		} else {
			b.WriteString(m.theme.AssistantLabel.Render(labelOr(panel.AssistantLabel, msg.Role)))
		}
		b.WriteString("\n")
		b.WriteString(m.renderBody(msg, width))
	}
	return b.String()
}

func (m *Model) renderBody(msg *model.Message, width int) string {
	switch {
	case msg.Failed:
		return m.theme.FailedText.Width(width).
			Render(styles.StatusIndicators.Failed + " " + msg.Text)
	case msg.Pending && msg.Text == "":
		return m.theme.PendingText.Render(m.spinner.View() + " thinking")
	case msg.Pending:
		return m.theme.PendingText.Width(width).Render(msg.Text)
	case msg.RendersMarkdown():
		if out, ok := m.rendered[msg.ID]; ok {
			return out
		}
		out := m.md.Render(msg.Text)
		m.rendered[msg.ID] = out
		return out
	default:
		return m.theme.MessageText.Width(width).Render(msg.Text)
	}
}

func labelOr(label string, role model.Role) string {
	if label == "" {
		return role.DisplayName()
	}
	return label
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	parts := []string{m.theme.HeaderTitle.Render("entchat")}
	for i, key := range m.panels {
		title := m.app.Panel(key).Title
		if i == m.current {
			parts = append(parts, m.theme.PanelTabOn.Render(title))
		} else {
			parts = append(parts, m.theme.PanelTab.Render(title))
		}
	}
	left := lipgloss.JoinHorizontal(lipgloss.Top, parts...)

	right := ""
	if id := m.controller().Store().ConversationID(); id != "" {
		right = m.theme.StatusHint.Render("conversation " + runewidth.Truncate(id, 24, "…"))
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		return m.theme.Header.Width(m.width).MaxWidth(m.width).Render(left)
	}
	return m.theme.Header.Width(m.width).MaxWidth(m.width).
		Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar(height int) string {
	style := m.theme.Sidebar
	if m.focus == focusSidebar {
		style = m.theme.SidebarFocused
	}
	style = style.Height(height)

	store := m.controller().Store()
	entries := store.Entries()
	lines := []string{m.theme.SidebarTitle.Render("History")}
	if len(entries) == 0 {
		lines = append(lines, m.theme.SidebarEmpty.Render(EmptyHistoryText))
		return style.Render(strings.Join(lines, "\n"))
	}

	// Keep the cursor row visible in long lists.
	visible := max(height-2, 1)
	cursor := m.cursor[m.PanelKey()]
	start := 0
	if m.focus == focusSidebar && cursor >= visible {
		start = cursor - visible + 1
	}

	titleWidth := styles.SidebarWidth - 4
	active := store.ActiveID()
	for i := start; i < len(entries) && i < start+visible; i++ {
		e := entries[i]
		title := runewidth.Truncate(e.Title, titleWidth, "…")

		marker := "  "
		if m.focus == focusSidebar && i == cursor {
			marker = m.theme.SidebarCursor.Render("› ")
		}
		if e.ID == active {
			lines = append(lines, marker+m.theme.SidebarActive.Render(title))
		} else {
			lines = append(lines, marker+m.theme.SidebarItem.Render(title))
		}
	}
	return style.Render(strings.Join(lines, "\n"))
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m Model) renderInput() string {
	label := m.buttonLabel()
	button := m.theme.ButtonReady.Render(label)
	if label != "Send" {
		button = m.theme.ButtonBusy.Render(label)
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, m.input.View(), " ", button)
	return m.theme.InputContainer.Width(m.width).Render(row)
}

func (m Model) renderStatus() string {
	var line string
	switch {
	case m.status != "" && m.statusErr:
		line = m.theme.StatusError.Render(m.status)
	case m.status != "":
		line = m.theme.StatusHint.Render(m.status)
	case m.focus == focusSidebar:
		line = m.help.View(sidebarHelp{m.keys})
	default:
		line = m.help.View(inputHelp{m.keys})
	}
	if m.active() {
		line = m.spinner.View() + " " + line
	}
	return m.theme.StatusBar.MaxWidth(m.width).Render(line)
}
