// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jeranaias/entchat/internal/api"
	"github.com/jeranaias/entchat/internal/model"
	"github.com/jeranaias/entchat/internal/threads"
)

// ErrBusy is returned when an exchange or history load is already in flight
// on the panel.
var ErrBusy = errors.New("panel is busy")

// ConversationFetcher returns the stored messages of a conversation.
type ConversationFetcher interface {
	FetchHistory(ctx context.Context, conversationID, userID string, limit int) ([]api.HistoryRecord, error)
}

// Options configures a Controller.
type Options struct {
	UserID string
	// FetchLimit is the number of messages restored per conversation.
	FetchLimit int
	Logger     *slog.Logger
}

// LoadPlan describes a selection that needs remote content.
type LoadPlan struct {
	EntryID        string
	ConversationID string
	NeedsFetch     bool
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller runs history operations for one panel. It is not safe for
// concurrent use; only FetchConversation may run on another goroutine.
type Controller struct {
	store   *threads.Store
	fetcher ConversationFetcher
	userID  string
	limit   int
	logger  *slog.Logger

	listeners map[int]func()
	nextID    int
}

// NewController wraps store. fetcher may be nil when remote content is
// never restored.
func NewController(store *threads.Store, fetcher ConversationFetcher, opts Options) *Controller {
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = api.DefaultHistoryLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:     store,
		fetcher:   fetcher,
		userID:    opts.UserID,
		limit:     opts.FetchLimit,
		logger:    logger.With("panel", store.PanelKey()),
		listeners: make(map[int]func()),
	}
}

// Store returns the underlying thread store.
func (c *Controller) Store() *threads.Store {
	return c.store
}

// UserID returns the identity sent with requests.
func (c *Controller) UserID() string {
	return c.userID
}

// OnChange registers fn to run after every state change and returns a
// function that removes it.
func (c *Controller) OnChange(fn func()) func() {
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() { delete(c.listeners, id) }
}

// Notify runs the change listeners.
func (c *Controller) Notify() {
	for _, fn := range c.listeners {
		fn()
	}
}

// =============================================================================
// ENTRY OPERATIONS
// =============================================================================

// NewConversation creates an entry titled "New conversation", clears the
// panel's conversation id and selects it.
func (c *Controller) NewConversation() (string, error) {
	if c.store.IsLoading() {
		return "", ErrBusy
	}
	id := c.store.CreateEntry(model.NewConversation)
	c.activateUnresolved(id)
	c.Notify()
	return id, nil
}

// RecordEntry creates an entry titled from text and makes it active. It
// returns the empty string for empty text. The new entry is unresolved, so
// the panel's conversation id is cleared.
func (c *Controller) RecordEntry(text string) string {
	if text == "" {
		return ""
	}
	id := c.store.CreateEntry(text)
	c.activateUnresolved(id)
	c.Notify()
	return id
}

// UpdateTitle retitles id from text.
func (c *Controller) UpdateTitle(id, text string) {
	if id == "" {
		return
	}
	c.store.RenameEntry(id, text)
	c.Notify()
}

// Delete removes id, falling back to the default thread when it was active
// or when no entries remain.
func (c *Controller) Delete(id string) error {
	if c.store.IsLoading() {
		return ErrBusy
	}
	if c.store.DeleteEntry(id) {
		c.logger.Debug("deleted entry, showing default thread", "entry", id)
	}
	c.Notify()
	return nil
}

func (c *Controller) activateUnresolved(id string) {
	thread := c.store.SetActive(id, true)
	if !thread.HasMessages() {
		c.store.ResetThread(id, true)
	}
	c.store.SetConversationID("")
}

// =============================================================================
// SELECTION
// =============================================================================

// Select activates id, restoring its remote content when it is resolved and
// not already loaded. An empty or unknown id selects the default thread. A
// failed fetch leaves the thread untouched and is returned.
func (c *Controller) Select(ctx context.Context, id string) error {
	plan, err := c.BeginSelect(id)
	if err != nil || !plan.NeedsFetch {
		return err
	}
	msgs, err := c.FetchConversation(ctx, plan)
	return c.CompleteLoad(plan, msgs, err)
}

// BeginSelect performs every local part of a selection. When the returned
// plan needs a fetch the panel is marked loading until CompleteLoad.
func (c *Controller) BeginSelect(id string) (LoadPlan, error) {
	if c.store.IsLoading() {
		return LoadPlan{}, ErrBusy
	}

	entry, ok := c.store.Entry(id)
	if !ok {
		c.store.ResetToDefault()
		c.Notify()
		return LoadPlan{}, nil
	}

	if !entry.Resolved() {
		c.activateUnresolved(entry.ID)
		c.Notify()
		return LoadPlan{}, nil
	}

	c.store.SetActive(entry.ID, false)
	c.store.SetConversationID(entry.ConversationID)
	if c.store.IsLoaded(entry.ID, entry.ConversationID) {
		c.Notify()
		return LoadPlan{}, nil
	}

	c.store.TryBeginLoading()
	c.Notify()
	return LoadPlan{EntryID: entry.ID, ConversationID: entry.ConversationID, NeedsFetch: true}, nil
}

// FetchConversation retrieves the plan's messages. It touches no panel
// state and may run on any goroutine.
func (c *Controller) FetchConversation(ctx context.Context, plan LoadPlan) ([]*model.Message, error) {
	if c.fetcher == nil {
		return nil, errors.New("no conversation fetcher configured")
	}
	records, err := c.fetcher.FetchHistory(ctx, plan.ConversationID, c.userID, c.limit)
	if err != nil {
		return nil, err
	}
	return api.ToMessages(records), nil
}

// CompleteLoad applies a fetch result and clears the loading state. On
// error the thread keeps its previous content and the error is returned.
// The entry stays active and bound either way.
func (c *Controller) CompleteLoad(plan LoadPlan, msgs []*model.Message, err error) error {
	defer c.Notify()
	defer c.store.EndLoading()

	if err != nil {
		c.logger.Warn("failed to load conversation",
			"entry", plan.EntryID, "conversation", plan.ConversationID, "error", err)
		return err
	}

	thread := c.store.EnsureThread(plan.EntryID, false)
	thread.Replace(msgs)
	thread.MarkLoaded(plan.ConversationID)
	c.store.SetConversationID(plan.ConversationID)
	c.store.SetActive(plan.EntryID, false)
	return nil
}
