// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the interactive chat panel for the entchat TUI.

The chat package implements a Bubble Tea model over the history controllers
and send orchestrators of an app.App. Every panel state change happens in
Update; network reads run in goroutines that only forward decoded stream
updates and fetched history back as messages.

# Key Components

## Model (model.go)

The Model holds the widgets (viewport, textarea, spinner, help), the
panel selection, the sidebar cursor and the in-flight exchanges of every
panel.

## Update Loop (update.go)

Keyboard handling, history selection, panel switching and live config
reloads.

## Exchanges (exchange.go)

Submitting a message begins an exchange, starts a pump goroutine and a
frame ticker. Each tick fires the panel's frame queue so streamed text is
revealed at the configured per-frame budget.

## View Rendering (view.go)

Header with panel tabs, history sidebar, conversation viewport, input area
with the send button and status bar. View is a pure projection of state.
*/
package chat
