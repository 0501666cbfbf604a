// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package exchange drives one message exchange on a panel: it resolves the
// history entry, shows the user message, streams the answer through the
// event parser and the render pacer, and finalizes the result against the
// thread store.
//
// # States
//
//	idle -> entryResolved -> userMessageShown -> streaming -> finalized
//	                                                      \-> failed
//
// Both terminal states clear the panel's loading flag.
//
// # Key Types
//
//   - Orchestrator: per-panel driver with Begin / HandleEvent / Finish
//   - Exchange: the in-flight state of one exchange
//   - Result: outcome returned by Finish and Run
//   - StreamUpdate: what Pump delivers for each network read
//
// # Usage
//
// Synchronous hosts (REPL, one-shot commands, tests):
//
//	res, err := orch.Run(ctx, "hello")
//
// Event-loop hosts call Begin, start Pump on a goroutine that forwards
// StreamUpdates back to the loop, feed them to HandleUpdate and call Finish
// once the update is Done. All panel state is touched from the loop only.
package exchange
