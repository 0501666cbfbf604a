// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history drives a panel's history list on top of a threads.Store:
// creating and renaming entries, deleting with fallback to the default
// thread, and restoring a thread's server-side content at most once per
// resolved conversation id.
//
// # Key Types
//
//   - Controller: history operations for one panel, with change listeners
//   - LoadPlan: outcome of BeginSelect, says whether a fetch is needed
//   - ConversationFetcher: source of stored messages (api.Client)
//   - Registry: explicit per-panel controller map with Get and Destroy
//
// # Usage
//
//	ctrl := history.NewController(store, client, history.Options{UserID: uid})
//	ctrl.OnChange(refresh)
//	if err := ctrl.Select(ctx, entryID); err != nil {
//	    logger.Warn("history load failed", "error", err)
//	}
//
// Hosts with an event loop split Select into BeginSelect (UI goroutine),
// FetchConversation (any goroutine) and CompleteLoad (UI goroutine).
package history
