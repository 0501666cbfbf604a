// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/entchat/internal/app"
	"github.com/jeranaias/entchat/internal/config"
	"github.com/jeranaias/entchat/internal/exchange"
	"github.com/jeranaias/entchat/internal/history"
	"github.com/jeranaias/entchat/internal/pacing"
	"github.com/jeranaias/entchat/internal/ui/styles"
)

// Layout constants.
const (
	headerHeight = 1
	statusHeight = 1
	inputHeight  = 3
	// inputChrome is the border line above the textarea.
	inputChrome = 1
)

type focus int

const (
	focusInput focus = iota
	focusSidebar
)

// Options configures a Model.
type Options struct {
	// PanelKey selects the initially shown panel. Empty means the first
	// configured panel.
	PanelKey string
	// Theme overrides the configured ui.theme when non-empty.
	Theme string
}

// run is one in-flight exchange.
type run struct {
	panel   string
	ex      *exchange.Exchange
	orch    *exchange.Orchestrator
	cancel  context.CancelFunc
	updates chan exchange.StreamUpdate
	// ended is closed when the run is finished.
	ended chan struct{}
}

// subscription is the change listener installed on one panel controller.
type subscription struct {
	ctrl *history.Controller
	stop func()
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat panels.
type Model struct {
	app           *app.App
	theme         *styles.Theme
	themeOverride string
	keys          KeyMap
	md            *styles.Markdown

	panels  []string
	current int
	cursor  map[string]int
	runs    map[string]*run
	// changed collects the panels whose controller reported a change during
	// the current update.
	changed map[string]bool
	subs    map[string]subscription
	// rendered caches Markdown output by message id for the current width.
	rendered map[string]string

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model

	focus     focus
	status    string
	statusErr bool
	ticking   bool

	width  int
	height int
	ready  bool

	// ctx ends when the program exits; exchange contexts derive from it.
	ctx  context.Context
	stop context.CancelFunc
}

// New creates a chat model over a.
func New(a *app.App, opts Options) Model {
	cfg := a.Config()
	themeSetting := cfg.UI.Theme
	if opts.Theme != "" {
		themeSetting = opts.Theme
	}
	theme := styles.NewTheme(themeSetting)

	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = 4000
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Cyan)

	ctx, stop := context.WithCancel(context.Background())
	m := Model{
		app:           a,
		theme:         theme,
		themeOverride: opts.Theme,
		keys:          DefaultKeyMap(),
		panels:        cfg.PanelKeys(),
		cursor:        make(map[string]int),
		runs:          make(map[string]*run),
		changed:       make(map[string]bool),
		subs:          make(map[string]subscription),
		rendered:      make(map[string]string),
		viewport:      viewport.New(0, 0),
		input:         ta,
		spinner:       sp,
		help:          help.New(),
		ctx:           ctx,
		stop:          stop,
	}
	if len(m.panels) == 0 {
		m.panels = []string{config.DefaultPanelKey}
	}
	if opts.PanelKey != "" {
		m.selectPanel(opts.PanelKey)
	}
	for _, key := range m.panels {
		m.watch(key)
	}
	return m
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Shutdown cancels every in-flight exchange and history load. It is safe
// to call more than once.
func (m Model) Shutdown() {
	m.stop()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// PanelKey returns the key of the shown panel.
func (m Model) PanelKey() string {
	return m.panels[m.current]
}

// Status returns the status line text.
func (m Model) Status() string {
	return m.status
}

// Busy reports whether the shown panel has an exchange in flight.
func (m Model) Busy() bool {
	_, ok := m.runs[m.PanelKey()]
	return ok
}

func (m Model) controller() *history.Controller {
	return m.watch(m.PanelKey())
}

// watch returns the controller of key, subscribing to its changes. A
// controller replaced after a panel was destroyed is subscribed again.
func (m Model) watch(key string) *history.Controller {
	ctrl := m.app.Controller(key)
	if sub, ok := m.subs[key]; ok {
		if sub.ctrl == ctrl {
			return ctrl
		}
		sub.stop()
	}
	changed := m.changed
	m.subs[key] = subscription{
		ctrl: ctrl,
		stop: ctrl.OnChange(func() { changed[key] = true }),
	}
	return ctrl
}

// unwatch removes the change listener of key.
func (m Model) unwatch(key string) {
	if sub, ok := m.subs[key]; ok {
		sub.stop()
		delete(m.subs, key)
	}
	delete(m.changed, key)
}

// syncChanges re-renders the shown panel when its controller reported a
// change.
func (m *Model) syncChanges() {
	if m.changed[m.PanelKey()] {
		m.refresh(true)
	}
	clear(m.changed)
}

func (m Model) panel() config.PanelConfig {
	return m.app.Panel(m.PanelKey())
}

// selectPanel shows key, adding it when it is not configured.
func (m *Model) selectPanel(key string) {
	for i, k := range m.panels {
		if k == key {
			m.current = i
			return
		}
	}
	m.panels = append(m.panels, key)
	m.current = len(m.panels) - 1
	m.watch(key)
}

// buttonLabel reflects the shown panel's activity.
func (m Model) buttonLabel() string {
	switch {
	case m.Busy():
		return "Sending…"
	case m.controller().Store().IsLoading():
		return "Loading…"
	default:
		return "Send"
	}
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// frameInterval is the frame period from the current configuration.
func (m Model) frameInterval() time.Duration {
	return pacing.FrameInterval(m.app.Config().Render.FPS)
}
