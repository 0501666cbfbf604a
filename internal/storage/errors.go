// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
)

// ErrUnavailable means the backing store could not be read or written.
// Callers degrade to in-memory state; it is never fatal.
var ErrUnavailable = errors.New("storage unavailable")

// Error records the failing operation and key.
type Error struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Key == "" {
		return "storage " + e.Op + ": " + e.Err.Error()
	}
	return "storage " + e.Op + " " + e.Key + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports every storage Error as ErrUnavailable.
func (e *Error) Is(target error) bool {
	return target == ErrUnavailable
}
