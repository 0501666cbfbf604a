// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/entchat/internal/exchange"
	"github.com/jeranaias/entchat/internal/history"
)

// updateBuffer bounds the reads a pump may run ahead of Update.
const updateBuffer = 16

// =============================================================================
// SUBMIT
// =============================================================================

// submit begins an exchange with the input text on the shown panel.
func (m *Model) submit() tea.Cmd {
	key := m.PanelKey()
	m.watch(key)
	orch := m.app.Orchestrator(key)

	ex, err := orch.Begin(m.input.Value())
	switch {
	case errors.Is(err, exchange.ErrEmptyMessage):
		return nil
	case errors.Is(err, history.ErrBusy):
		m.setStatus("Please wait for the current answer", true)
		return nil
	case err != nil:
		m.setStatus(err.Error(), true)
		return nil
	}

	m.input.Reset()
	m.setStatus("", false)

	var ctx context.Context
	var cancel context.CancelFunc
	if timeout := m.app.Config().Server.StreamTimeout(); timeout > 0 {
		ctx, cancel = context.WithTimeout(m.ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(m.ctx)
	}

	r := &run{
		panel:   key,
		ex:      ex,
		orch:    orch,
		cancel:  cancel,
		updates: make(chan exchange.StreamUpdate, updateBuffer),
		ended:   make(chan struct{}),
	}
	m.runs[key] = r

	// Sends outlive the exchange context so the final update always
	// arrives. They stop once the run has ended or the program exits.
	done := m.ctx.Done()
	go exchange.Pump(ctx, m.app.Client, ex.Request, func(u exchange.StreamUpdate) bool {
		select {
		case r.updates <- u:
			return true
		case <-r.ended:
			return false
		case <-done:
			return false
		}
	})

	m.app.Logger.Debug("exchange started", "panel", key, "entry", ex.EntryID)
	return tea.Batch(waitForUpdate(r), m.startFrames(), m.spinner.Tick)
}

// waitForUpdate delivers the next update of r.
func waitForUpdate(r *run) tea.Cmd {
	return func() tea.Msg {
		select {
		case u := <-r.updates:
			return streamUpdateMsg{run: r, update: u}
		case <-r.ended:
			return nil
		}
	}
}

// =============================================================================
// STREAM UPDATES
// =============================================================================

func (m *Model) handleStreamUpdate(msg streamUpdateMsg) tea.Cmd {
	r := msg.run
	if m.runs[r.panel] != r {
		return nil
	}

	if r.orch.HandleUpdate(r.ex, msg.update) {
		r.cancel()
		m.finish(r, nil)
		return nil
	}
	if msg.update.Done {
		m.finish(r, msg.update.Err)
		return nil
	}
	return waitForUpdate(r)
}

// finish ends r and reports failures on the status line.
func (m *Model) finish(r *run, readErr error) {
	delete(m.runs, r.panel)
	close(r.ended)
	defer r.cancel()

	res := r.orch.Finish(r.ex, readErr)
	switch {
	case errors.Is(res.Err, exchange.ErrCanceled):
		m.setStatus("Answer stopped", false)
	case res.Failed && res.Err != nil:
		m.setStatus("Answer unavailable: "+firstLine(res.Err.Error()), true)
	}
	m.app.Logger.Debug("exchange finished",
		"panel", r.panel, "entry", res.EntryID, "conversation", res.ConversationID, "failed", res.Failed)
}

// cancelCurrent stops the shown panel's exchange. Pump reports the
// cancellation as its final update.
func (m *Model) cancelCurrent() {
	if r, ok := m.runs[m.PanelKey()]; ok {
		r.cancel()
	}
}

// =============================================================================
// FRAMES
// =============================================================================

func (m *Model) startFrames() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return m.frameTick()
}

func (m Model) frameTick() tea.Cmd {
	return tea.Tick(m.frameInterval(), func(time.Time) tea.Msg {
		return frameMsg{}
	})
}

// handleFrame fires the frame queues of every panel with a running
// exchange, keeping panels paced while hidden.
func (m *Model) handleFrame() tea.Cmd {
	rendered := false
	for key, r := range m.runs {
		if r.orch.Frames().Fire() > 0 && key == m.PanelKey() {
			rendered = true
		}
	}
	if rendered {
		m.refresh(false)
	}
	if len(m.runs) == 0 {
		m.ticking = false
		return nil
	}
	return m.frameTick()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
