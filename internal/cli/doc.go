// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and execution for entchat.
//
// Commands are declared as a kong grammar. Running entchat without a
// command starts the terminal UI.
//
// # Commands Overview
//
//	entchat                         Interactive terminal UI (default)
//	entchat ask <message...>        Send one message and print the answer
//	entchat repl                    Line-oriented chat with history and editing
//	entchat history list            List the panel's conversations
//	entchat history show <id>       Print a conversation, restoring it if needed
//	entchat history delete <id>     Delete a conversation entry
//	entchat whoami                  Show the user identity and session
//	entchat version                 Print version information
//
// # Global Flags
//
//	--config PATH   Config file (default ~/.entchat/config.toml)
//	--panel KEY     Chat panel to use (default: first configured panel)
//	--debug         Debug logging
//	--json          JSON output where supported
package cli
