// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/entchat/internal/config"
	"github.com/jeranaias/entchat/internal/exchange"
	"github.com/jeranaias/entchat/internal/history"
	"github.com/jeranaias/entchat/internal/model"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// streamUpdateMsg delivers the events of one network read.
type streamUpdateMsg struct {
	run    *run
	update exchange.StreamUpdate
}

// frameMsg fires the frame queues of panels with running exchanges.
type frameMsg struct{}

// =============================================================================
// HISTORY MESSAGES
// =============================================================================

// historyLoadedMsg carries the result of a conversation fetch.
type historyLoadedMsg struct {
	panel string
	ctrl  *history.Controller
	plan  history.LoadPlan
	msgs  []*model.Message
	err   error
}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigReloadedMsg installs a reloaded configuration.
type ConfigReloadedMsg struct {
	Config *config.Config
}
