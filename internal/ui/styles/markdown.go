// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/glamour"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

// Markdown renders finalized answers. A zero Markdown or a renderer error
// falls back to the raw text.
type Markdown struct {
	renderer *glamour.TermRenderer
	width    int
}

// NewMarkdown builds a renderer wrapping at width cells. width <= 0
// disables wrapping. Output follows the lipgloss color profile.
func NewMarkdown(dark bool, width int) (*Markdown, error) {
	style := glamourstyles.LightStyle
	if dark {
		style = glamourstyles.DarkStyle
	}
	if width < 0 {
		width = 0
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
		glamour.WithColorProfile(lipgloss.ColorProfile()),
	)
	if err != nil {
		return nil, err
	}
	return &Markdown{renderer: r, width: width}, nil
}

// Width returns the wrap width.
func (m *Markdown) Width() int {
	if m == nil {
		return 0
	}
	return m.width
}

// Render converts text to styled terminal output.
func (m *Markdown) Render(text string) string {
	if m == nil || m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
