// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/entchat/internal/api"
	"github.com/jeranaias/entchat/internal/history"
	"github.com/jeranaias/entchat/internal/model"
	"github.com/jeranaias/entchat/internal/sse"
	"github.com/jeranaias/entchat/internal/storage"
	"github.com/jeranaias/entchat/internal/threads"
)

const helloStream = "event: chunk\ndata: Hi\n\n" +
	"event: chunk\ndata:  there\n\n" +
	"event: done\ndata: {\"conversationId\":\"c1\",\"answer\":\"Hi there\"}\n\n"

// scriptedStreamer replays a fixed body one byte per read.
type scriptedStreamer struct {
	mu   sync.Mutex
	body string
	err  error
	reqs []api.StreamRequest
}

func (s *scriptedStreamer) OpenStream(ctx context.Context, req api.StreamRequest) (io.ReadCloser, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(iotest.OneByteReader(strings.NewReader(s.body))), nil
}

func (s *scriptedStreamer) requests() []api.StreamRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.StreamRequest(nil), s.reqs...)
}

func newOrchestrator(t *testing.T, streamer Streamer) *Orchestrator {
	t.Helper()
	store := threads.Open(storage.NewMemory(), threads.Options{PanelKey: "main", Greeting: "Welcome"})
	ctrl := history.NewController(store, nil, history.Options{UserID: "web-1-abcdef12"})
	return New(ctrl, streamer, Options{
		ReplyTemplate: "Noted: {message}",
		FrameInterval: time.Millisecond,
	})
}

// =============================================================================
// END-TO-END TESTS
// =============================================================================

func TestRun_HelloOverHTTP(t *testing.T) {
	var got api.StreamRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, block := range strings.SplitAfter(helloStream, "\n\n") {
			io.WriteString(w, block)
			flusher.Flush()
		}
	}))
	defer server.Close()

	o := newOrchestrator(t, api.NewClient(server.URL))
	res, err := o.Run(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "Hi there", res.Text)
	assert.Equal(t, "c1", res.ConversationID)
	assert.False(t, res.Failed)
	assert.Equal(t, "hello", got.Message)
	assert.Equal(t, "web-1-abcdef12", got.UserID)
	assert.Empty(t, got.ConversationID)

	store := o.Controller().Store()
	entry, ok := store.Entry(res.EntryID)
	require.True(t, ok)
	assert.Equal(t, "c1", entry.ConversationID)
	assert.Equal(t, "hello", entry.Title)
	assert.Equal(t, "c1", store.ConversationID())
	assert.True(t, store.IsLoaded(res.EntryID, "c1"))
	assert.False(t, store.IsLoading())

	thread := store.ActiveThread()
	last := thread.Last()
	assert.Equal(t, "Hi there", last.Text)
	assert.False(t, last.Pending)
	assert.False(t, last.Failed)
	assert.Equal(t, []string{"Welcome", "hello", "Hi there"}, texts(thread))
}

func TestRun_ErrorEventFailsWithoutBinding(t *testing.T) {
	streamer := &scriptedStreamer{body: "event: chunk\ndata: partial\n\n" +
		"event: error\ndata: upstream exploded\n\n" +
		"event: done\ndata: {\"conversationId\":\"c9\",\"answer\":\"ignored\"}\n\n"}
	o := newOrchestrator(t, streamer)

	res, err := o.Run(context.Background(), "hello")

	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "upstream exploded", streamErr.Message)
	assert.True(t, res.Failed)
	assert.Empty(t, res.ConversationID)
	assert.Equal(t, "Noted: hello", res.Text)

	store := o.Controller().Store()
	entry, _ := store.Entry(res.EntryID)
	assert.Empty(t, entry.ConversationID)
	assert.Empty(t, store.ConversationID())
	assert.False(t, store.IsLoading())

	last := store.ActiveThread().Last()
	assert.True(t, last.Failed)
	assert.False(t, last.Pending)
}

func TestRun_ErrorAfterDoneStillFails(t *testing.T) {
	o := newOrchestrator(t, &scriptedStreamer{body: helloStream + "event: error\ndata: late\n\n"})

	res, err := o.Run(context.Background(), "hello")
	assert.Error(t, err)
	assert.True(t, res.Failed)
	entry, _ := o.Controller().Store().Entry(res.EntryID)
	assert.Empty(t, entry.ConversationID)
}

func TestRun_NoCompletion(t *testing.T) {
	o := newOrchestrator(t, &scriptedStreamer{body: "event: chunk\ndata: Hi\n\n"})

	res, err := o.Run(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoCompletion)
	assert.True(t, res.Failed)
	assert.Equal(t, "Noted: hello", res.Text)
}

func TestRun_MalformedCompletionUsesAccumulatedText(t *testing.T) {
	o := newOrchestrator(t, &scriptedStreamer{body: "event: chunk\ndata: Hello\n\n" +
		"event: chunk\ndata:  world \n\n" +
		"event: done\ndata: {not json\n\n"})

	res, err := o.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", res.Text)
	assert.Empty(t, res.ConversationID)
}

func TestRun_EmptyCompletionFallsBackToCompletedText(t *testing.T) {
	o := newOrchestrator(t, &scriptedStreamer{body: "event: done\ndata: {}\n\n"})

	res, err := o.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, CompletedText, res.Text)
}

func TestRun_CompletionAnswerWinsOverChunks(t *testing.T) {
	o := newOrchestrator(t, &scriptedStreamer{body: "event: chunk\ndata: draft\n\n" +
		"event: done\ndata: {\"answer\":\"  final  \"}\n\n"})

	res, err := o.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "final", res.Text)
}

func TestRun_UnterminatedFinalBlockIsDecoded(t *testing.T) {
	o := newOrchestrator(t, &scriptedStreamer{body: "event: done\ndata: {\"conversationId\":\"c7\",\"answer\":\"ok\"}"})

	res, err := o.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "c7", res.ConversationID)
}

func TestRun_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	o := newOrchestrator(t, api.NewClient(server.URL))
	res, err := o.Run(context.Background(), "hello")

	assert.ErrorIs(t, err, ErrNetwork)
	var httpErr *api.HTTPError
	assert.ErrorAs(t, err, &httpErr)
	assert.True(t, res.Failed)
	assert.False(t, o.Controller().Store().IsLoading())
}

func TestRun_SecondExchangeReusesEntryAndConversation(t *testing.T) {
	streamer := &scriptedStreamer{body: helloStream}
	o := newOrchestrator(t, streamer)

	first, err := o.Run(context.Background(), "hello")
	require.NoError(t, err)
	second, err := o.Run(context.Background(), "and again")
	require.NoError(t, err)

	assert.Equal(t, first.EntryID, second.EntryID)
	reqs := streamer.requests()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[0].ConversationID)
	assert.Equal(t, "c1", reqs[1].ConversationID)

	entry, _ := o.Controller().Store().Entry(first.EntryID)
	assert.Equal(t, "and again", entry.Title)
	assert.Len(t, o.Controller().Store().Entries(), 1)
}

func TestRun_NewEntryDoesNotInheritPanelConversation(t *testing.T) {
	streamer := &scriptedStreamer{body: helloStream}
	o := newOrchestrator(t, streamer)
	o.Controller().Store().SetConversationID("stale-from-last-run")

	_, err := o.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Empty(t, streamer.requests()[0].ConversationID)
}

func TestRun_Preconditions(t *testing.T) {
	o := newOrchestrator(t, &scriptedStreamer{body: helloStream})

	_, err := o.Run(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, o.Controller().Store().Entries())

	o.Controller().Store().TryBeginLoading()
	_, err = o.Run(context.Background(), "hello")
	assert.ErrorIs(t, err, history.ErrBusy)
}

func TestRun_Cancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	o := newOrchestrator(t, streamerFunc(func(ctx context.Context, req api.StreamRequest) (io.ReadCloser, error) {
		return pr, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		fmt.Fprint(pw, "event: chunk\ndata: Hel\n\n")
		cancel()
	}()

	res, err := o.Run(ctx, "hello")
	assert.ErrorIs(t, err, ErrCanceled)
	assert.True(t, res.Failed)
	assert.False(t, o.Controller().Store().IsLoading())
	assert.Equal(t, 0, o.Frames().Pending())
}

type streamerFunc func(ctx context.Context, req api.StreamRequest) (io.ReadCloser, error)

func (f streamerFunc) OpenStream(ctx context.Context, req api.StreamRequest) (io.ReadCloser, error) {
	return f(ctx, req)
}

// =============================================================================
// STEPWISE TESTS
// =============================================================================

func TestBeginHandleFinish_PacesPlaceholder(t *testing.T) {
	o := newOrchestrator(t, nil)

	ex, err := o.Begin("hello")
	require.NoError(t, err)
	assert.Equal(t, StateStreaming, ex.State())
	assert.True(t, o.Controller().Store().IsLoading())
	assert.True(t, ex.Placeholder.Pending)

	o.HandleEvent(ex, sse.Event{Name: sse.EventChunk, Data: "abcdefghijkl"})
	assert.Empty(t, ex.Placeholder.Text, "nothing renders before a frame")

	o.Frames().Fire()
	assert.Equal(t, "abcdefgh", ex.Placeholder.Text)

	o.HandleEvent(ex, sse.Event{Name: sse.EventDone, Data: `{"conversationId":"c1"}`})
	res := o.Finish(ex, nil)

	assert.Equal(t, StateFinalized, ex.State())
	assert.Equal(t, "abcdefghijkl", res.Text)
	assert.Equal(t, 0, o.Frames().Pending())
	assert.False(t, o.Controller().Store().IsLoading())
}

func TestFinish_Idempotent(t *testing.T) {
	o := newOrchestrator(t, nil)
	ex, err := o.Begin("hello")
	require.NoError(t, err)

	first := o.Finish(ex, nil)
	second := o.Finish(ex, nil)
	assert.True(t, first.Failed)
	assert.Equal(t, first.Text, second.Text)
	assert.True(t, second.Failed)
}

func TestBegin_ActiveEntryIsRenamed(t *testing.T) {
	o := newOrchestrator(t, nil)
	id, err := o.Controller().NewConversation()
	require.NoError(t, err)

	ex, err := o.Begin("  what   now ")
	require.NoError(t, err)
	assert.Equal(t, id, ex.EntryID)
	entry, _ := o.Controller().Store().Entry(id)
	assert.Equal(t, "what now", entry.Title)
	o.Finish(ex, errors.New("x"))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "streaming", StateStreaming.String())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateStreaming.Terminal())
}

func texts(th *model.Thread) []string {
	out := make([]string, 0, len(th.Messages))
	for _, m := range th.Messages {
		out = append(out, m.Text)
	}
	return out
}

func TestRunWithProgress_ReportsGrowingText(t *testing.T) {
	pr, pw := io.Pipe()
	o := newOrchestrator(t, streamerFunc(func(ctx context.Context, req api.StreamRequest) (io.ReadCloser, error) {
		return pr, nil
	}))

	go func() {
		fmt.Fprint(pw, "event: chunk\ndata: "+strings.Repeat("x", 20)+"\n\n")
		// Leave time for a few frames before completing.
		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(pw, "event: done\ndata: {}\n\n")
		pw.Close()
	}()

	var seen []string
	res, err := o.RunWithProgress(context.Background(), "hello", func(ex *Exchange) {
		seen = append(seen, ex.Placeholder.Text)
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 20), res.Text)
	require.NotEmpty(t, seen)
	assert.Equal(t, "xxxxxxxx", seen[0])
}
