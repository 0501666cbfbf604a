// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exchange

// State is a step of an exchange.
type State int

const (
	StateIdle State = iota
	StateEntryResolved
	StateUserMessageShown
	StateStreaming
	StateFinalized
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEntryResolved:
		return "entryResolved"
	case StateUserMessageShown:
		return "userMessageShown"
	case StateStreaming:
		return "streaming"
	case StateFinalized:
		return "finalized"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the exchange has ended.
func (s State) Terminal() bool {
	return s == StateFinalized || s == StateFailed
}
