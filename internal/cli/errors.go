// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for CLI commands.
//
// Commands always return errors; main prints them once and exits with
// GetExitCode.

package cli

import (
	"errors"
	"fmt"

	"github.com/jeranaias/entchat/internal/config"
	"github.com/jeranaias/entchat/internal/exchange"
	"github.com/jeranaias/entchat/internal/history"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitNetworkError = 5
	ExitNotFound     = 7
	ExitTimeout      = 8
	ExitBusy         = 9
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// NotFoundError is returned when a named entry or panel does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ConfigError wraps a configuration load failure.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var notFound *NotFoundError
	var cfgErr *ConfigError
	var verrs config.ValidateErrors
	switch {
	case errors.As(err, &notFound):
		return ExitNotFound
	case errors.As(err, &cfgErr), errors.As(err, &verrs):
		return ExitConfigError
	case errors.Is(err, exchange.ErrEmptyMessage), errors.Is(err, ErrNotInteractive):
		return ExitUsageError
	case errors.Is(err, exchange.ErrCanceled):
		return ExitTimeout
	case errors.Is(err, history.ErrBusy):
		return ExitBusy
	case errors.Is(err, exchange.ErrNetwork):
		return ExitNetworkError
	}
	return ExitGeneralError
}
