// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exchange

import (
	"errors"
)

var (
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNetwork wraps request, connection and non-success status failures.
	ErrNetwork = errors.New("network failure")

	// ErrNoCompletion means the stream ended without a done event.
	ErrNoCompletion = errors.New("stream ended without a completion event")

	// ErrMalformedCompletion means the done payload was not valid JSON. The
	// exchange still completes with the accumulated text.
	ErrMalformedCompletion = errors.New("completion record is malformed")

	// ErrCanceled means the exchange was aborted by its context.
	ErrCanceled = errors.New("exchange canceled")
)

// StreamError is an explicit error event sent by the server.
type StreamError struct {
	Message string
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Message == "" {
		return "stream error"
	}
	return "stream error: " + e.Message
}
