// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jeranaias/entchat/internal/config"
	"github.com/jeranaias/entchat/internal/history"
	"github.com/jeranaias/entchat/internal/model"
)

// HistoryCmd groups the history subcommands.
type HistoryCmd struct {
	List   HistoryListCmd   `cmd:"" default:"1" help:"List conversations, newest first."`
	Show   HistoryShowCmd   `cmd:"" help:"Select a conversation and print it."`
	Delete HistoryDeleteCmd `cmd:"" help:"Delete a conversation entry."`
}

// HistoryListCmd lists the panel's entries.
type HistoryListCmd struct{}

// HistoryShowCmd selects and prints one entry.
type HistoryShowCmd struct {
	Entry string `arg:"" help:"Entry id or its number from 'history list'."`
}

// HistoryDeleteCmd deletes one entry.
type HistoryDeleteCmd struct {
	Entry string `arg:"" help:"Entry id or its number from 'history list'."`
}

type historyItem struct {
	Index          int    `json:"index"`
	ID             string `json:"id"`
	Title          string `json:"title"`
	ConversationID string `json:"conversationId,omitempty"`
	Active         bool   `json:"active"`
}

func panelController(env *Env) (*history.Controller, config.PanelConfig, error) {
	a, err := env.App()
	if err != nil {
		return nil, config.PanelConfig{}, err
	}
	key, err := env.PanelKey(a)
	if err != nil {
		return nil, config.PanelConfig{}, err
	}
	return a.Controller(key), a.Panel(key), nil
}

// resolveEntry accepts an entry id or a 1-based list position.
func resolveEntry(ctrl *history.Controller, ref string) (model.HistoryEntry, error) {
	entries := ctrl.Store().Entries()
	if e, ok := ctrl.Store().Entry(ref); ok {
		return e, nil
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(entries) {
		return entries[n-1], nil
	}
	return model.HistoryEntry{}, &NotFoundError{Resource: "conversation", ID: ref}
}

// Run implements history list.
func (c *HistoryListCmd) Run(env *Env) error {
	ctrl, _, err := panelController(env)
	if err != nil {
		return err
	}
	store := ctrl.Store()
	entries := store.Entries()

	items := make([]historyItem, 0, len(entries))
	for i, e := range entries {
		items = append(items, historyItem{
			Index:          i + 1,
			ID:             e.ID,
			Title:          e.Title,
			ConversationID: e.ConversationID,
			Active:         e.ID == store.ActiveID(),
		})
	}

	if env.Globals.JSON {
		return json.NewEncoder(env.Out).Encode(items)
	}

	if len(items) == 0 {
		fmt.Fprintln(env.Out, RenderConditional(DimStyle, "No conversations yet"))
		return nil
	}
	for _, it := range items {
		marker := "  "
		if it.Active {
			marker = RenderConditional(AssistantStyle, "* ")
		}
		conv := RenderConditional(DimStyle, "(not started)")
		if it.ConversationID != "" {
			conv = RenderConditional(DimStyle, it.ConversationID)
		}
		fmt.Fprintf(env.Out, "%s%2d. %s  %s  %s\n", marker, it.Index, it.Title, RenderConditional(DimStyle, it.ID), conv)
	}
	return nil
}

// Run implements history show.
func (c *HistoryShowCmd) Run(env *Env) error {
	ctrl, panel, err := panelController(env)
	if err != nil {
		return err
	}
	entry, err := resolveEntry(ctrl, c.Entry)
	if err != nil {
		return err
	}
	if err := ctrl.Select(context.Background(), entry.ID); err != nil {
		return fmt.Errorf("failed to restore %q: %w", entry.Title, err)
	}

	thread := ctrl.Store().ActiveThread()
	if env.Globals.JSON {
		return json.NewEncoder(env.Out).Encode(thread.Messages)
	}
	fmt.Fprintln(env.Out, RenderConditional(TitleStyle, entry.Title))
	printThread(env.Out, thread, panel)
	return nil
}

// Run implements history delete.
func (c *HistoryDeleteCmd) Run(env *Env) error {
	ctrl, _, err := panelController(env)
	if err != nil {
		return err
	}
	entry, err := resolveEntry(ctrl, c.Entry)
	if err != nil {
		return err
	}
	if err := ctrl.Delete(entry.ID); err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "Deleted %q\n", entry.Title)
	return nil
}

// printThread writes every message with the panel's role labels.
func printThread(out io.Writer, thread *model.Thread, panel config.PanelConfig) {
	for _, msg := range thread.Messages {
		printMessage(out, msg, panel)
	}
}

func printMessage(out io.Writer, msg *model.Message, panel config.PanelConfig) {
	label := RenderConditional(AssistantStyle, panel.AssistantLabel+":")
	if msg.Role == model.RoleUser {
		label = RenderConditional(UserStyle, panel.UserLabel+":")
	}
	text := msg.Text
	if msg.Failed {
		text = RenderConditional(WarningStyle, text)
	}
	fmt.Fprintf(out, "%s %s\n", label, text)
}
