// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exchange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jeranaias/entchat/internal/api"
	"github.com/jeranaias/entchat/internal/history"
	"github.com/jeranaias/entchat/internal/model"
	"github.com/jeranaias/entchat/internal/pacing"
	"github.com/jeranaias/entchat/internal/sse"
)

// CompletedText is shown when a finished exchange carries no answer text.
const CompletedText = "Conversation completed."

// DefaultReplyTemplate is the fallback shown when an exchange fails.
const DefaultReplyTemplate = `We have recorded your request "{message}" and will prepare matching service suggestions based on your enterprise profile.`

// Streamer opens the streaming send request.
type Streamer interface {
	OpenStream(ctx context.Context, req api.StreamRequest) (io.ReadCloser, error)
}

// Options configures an Orchestrator.
type Options struct {
	// ReplyTemplate is the failure text; "{message}" is replaced by the
	// user's message.
	ReplyTemplate string
	// Budget is the number of runes rendered per frame.
	Budget int
	// StreamTimeout bounds a synchronous Run. Zero means no limit.
	StreamTimeout time.Duration
	// FrameInterval is the frame period used by Run.
	FrameInterval time.Duration
	Logger        *slog.Logger
}

// Result is the outcome of an exchange.
type Result struct {
	EntryID        string
	ConversationID string
	Text           string
	Failed         bool
	Err            error
}

// =============================================================================
// EXCHANGE
// =============================================================================

// Exchange is the state of one in-flight exchange.
type Exchange struct {
	EntryID     string
	Message     string
	Request     api.StreamRequest
	Thread      *model.Thread
	User        *model.Message
	Placeholder *model.Message

	state      State
	pacer      *pacing.Pacer
	answer     strings.Builder
	completion *api.Completion
	streamErr  error
	finished   bool
}

// State returns the exchange's current state.
func (e *Exchange) State() State {
	return e.state
}

// Answer returns the text accumulated from chunk events.
func (e *Exchange) Answer() string {
	return e.answer.String()
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs exchanges for one panel.
type Orchestrator struct {
	ctrl     *history.Controller
	streamer Streamer
	frames   *pacing.FrameQueue
	opts     Options
	logger   *slog.Logger
}

// New creates an orchestrator for the panel managed by ctrl.
func New(ctrl *history.Controller, streamer Streamer, opts Options) *Orchestrator {
	if opts.ReplyTemplate == "" {
		opts.ReplyTemplate = DefaultReplyTemplate
	}
	if opts.Budget <= 0 {
		opts.Budget = pacing.DefaultBudget
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = pacing.FrameInterval(pacing.DefaultFPS)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		ctrl:     ctrl,
		streamer: streamer,
		frames:   pacing.NewFrameQueue(),
		opts:     opts,
		logger:   logger.With("panel", ctrl.Store().PanelKey()),
	}
}

// Frames returns the frame queue the host must fire while exchanges run.
func (o *Orchestrator) Frames() *pacing.FrameQueue {
	return o.frames
}

// Controller returns the panel's history controller.
func (o *Orchestrator) Controller() *history.Controller {
	return o.ctrl
}

// SetBudget changes the per-frame rune budget for later exchanges.
func (o *Orchestrator) SetBudget(budget int) {
	if budget > 0 {
		o.opts.Budget = budget
	}
}

// SetReplyTemplate changes the failure text for later exchanges. An empty
// template restores DefaultReplyTemplate.
func (o *Orchestrator) SetReplyTemplate(tmpl string) {
	if tmpl == "" {
		tmpl = DefaultReplyTemplate
	}
	o.opts.ReplyTemplate = tmpl
}

// Begin validates text, claims the panel, resolves the history entry and
// shows the user message with a pending assistant placeholder. The caller
// must eventually call Finish on the returned exchange.
func (o *Orchestrator) Begin(text string) (*Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	store := o.ctrl.Store()
	if !store.TryBeginLoading() {
		return nil, history.ErrBusy
	}

	ex := &Exchange{Message: text, state: StateIdle}

	// entryResolved
	if _, ok := store.ActiveEntry(); ok {
		ex.EntryID = store.ActiveID()
		o.ctrl.UpdateTitle(ex.EntryID, text)
	} else {
		ex.EntryID = o.ctrl.RecordEntry(text)
	}
	ex.state = StateEntryResolved

	// userMessageShown
	ex.Thread = store.SetActive(ex.EntryID, true)
	ex.User = model.NewUserMessage(text)
	ex.Thread.Add(ex.User)
	ex.state = StateUserMessageShown

	// streaming
	entry, _ := store.Entry(ex.EntryID)
	ex.Request = api.StreamRequest{
		Message:        text,
		UserID:         o.ctrl.UserID(),
		ConversationID: entry.ConversationID,
	}
	ex.Placeholder = model.NewPendingAssistant()
	ex.Thread.Add(ex.Placeholder)
	ex.pacer = pacing.New(o.frames, pacing.TargetFunc(ex.Placeholder.Append), o.opts.Budget)
	ex.state = StateStreaming

	o.logger.Debug("exchange started", "entry", ex.EntryID, "conversation", entry.ConversationID)
	o.ctrl.Notify()
	return ex, nil
}

// HandleEvent applies one decoded event. It returns true when the exchange
// should stop reading because the server reported an error.
func (o *Orchestrator) HandleEvent(ex *Exchange, ev sse.Event) bool {
	if ex.finished {
		return true
	}

	switch ev.Name {
	case sse.EventChunk:
		ex.answer.WriteString(ev.Data)
		ex.pacer.Push(ev.Data)

	case sse.EventDone:
		c, err := api.ParseCompletion(ev.Data)
		if err != nil {
			o.logger.Warn("ignoring malformed completion record",
				"entry", ex.EntryID, "error", fmt.Errorf("%w: %w", ErrMalformedCompletion, err))
		}
		ex.completion = &c

	case sse.EventError:
		ex.streamErr = &StreamError{Message: ev.Data}
		return true
	}
	return false
}

// HandleUpdate applies every event of one network read and reports whether
// reading should stop.
func (o *Orchestrator) HandleUpdate(ex *Exchange, u StreamUpdate) bool {
	for _, ev := range u.Events {
		if o.HandleEvent(ex, ev) {
			return true
		}
	}
	return false
}

// Finish ends the exchange. readErr is the error that ended the stream, nil
// for a clean end. The panel's loading flag is cleared on every path.
func (o *Orchestrator) Finish(ex *Exchange, readErr error) Result {
	store := o.ctrl.Store()
	defer o.ctrl.Notify()
	defer store.EndLoading()

	if ex.finished {
		return Result{EntryID: ex.EntryID, Text: ex.Placeholder.Text, Failed: ex.state == StateFailed}
	}
	ex.finished = true

	res := Result{EntryID: ex.EntryID}

	if err := o.failure(ex, readErr); err != nil {
		if errors.Is(err, ErrCanceled) {
			ex.pacer.Stop()
		} else {
			ex.pacer.FlushAll()
		}
		ex.Placeholder.Fail(strings.Replace(o.opts.ReplyTemplate, "{message}", ex.Message, 1))
		ex.state = StateFailed

		o.logger.Warn("exchange failed", "entry", ex.EntryID, "error", err)
		res.Text = ex.Placeholder.Text
		res.Failed = true
		res.Err = err
		return res
	}

	ex.pacer.FlushAll()

	text := strings.TrimSpace(ex.completion.Answer)
	if text == "" {
		text = strings.TrimSpace(ex.answer.String())
	}
	if text == "" {
		text = CompletedText
	}
	ex.Placeholder.Finalize(text)
	ex.state = StateFinalized

	if conv := ex.completion.ConversationID; conv != "" {
		store.BindConversation(ex.EntryID, conv)
		if store.ActiveID() == ex.EntryID {
			store.SetConversationID(conv)
		}
		store.MarkLoaded(ex.EntryID, conv)
		res.ConversationID = conv
	}

	o.logger.Debug("exchange finalized", "entry", ex.EntryID, "conversation", res.ConversationID)
	res.Text = text
	return res
}

// failure classifies how the exchange ended. A server error event wins over
// everything else.
func (o *Orchestrator) failure(ex *Exchange, readErr error) error {
	switch {
	case ex.streamErr != nil:
		return ex.streamErr
	case errors.Is(readErr, ErrCanceled):
		return readErr
	case errors.Is(readErr, context.Canceled) || errors.Is(readErr, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrCanceled, readErr)
	case readErr != nil:
		return fmt.Errorf("%w: %w", ErrNetwork, readErr)
	case ex.completion == nil:
		return ErrNoCompletion
	}
	return nil
}
