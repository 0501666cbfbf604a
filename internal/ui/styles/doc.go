// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the entchat TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. The theme setting can force either variant.

# Color System (colors.go)

  - Cyan - Brand color, focus and the user's messages
  - Purple - Assistant messages and the active history entry
  - Amber - Fallback replies and busy states
  - Rose - Errors

# Theme (theme.go)

Theme groups the styles of the chat panel: header, history sidebar,
message labels and bodies, input area, send button states and status bar.

# Markdown (markdown.go)

Finalized assistant answers are rendered with glamour.
*/
package styles
