// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/entchat/internal/model"
)

// =============================================================================
// STREAM TESTS
// =============================================================================

func TestOpenStream_SendsRequest(t *testing.T) {
	var got StreamRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, DefaultStreamPath, r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "event: chunk\ndata: Hi\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", WithSession(Session{Token: "tok"}))
	body, err := client.OpenStream(context.Background(), StreamRequest{Message: "hello", UserID: "web-1"})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "event: chunk\ndata: Hi\n\n", string(data))
	assert.Equal(t, StreamRequest{Message: "hello", UserID: "web-1"}, got)
}

func TestStreamRequest_OmitsUnresolvedConversation(t *testing.T) {
	data, err := json.Marshal(StreamRequest{Message: "m", UserID: "u"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"m","userId":"u"}`, string(data))

	data, err = json.Marshal(StreamRequest{Message: "m", UserID: "u", ConversationID: "c1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"m","userId":"u","conversationId":"c1"}`, string(data))
}

func TestOpenStream_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	}))
	defer server.Close()

	var calls atomic.Int32
	client := NewClient(server.URL, WithHTTPClient(&http.Client{
		Transport: roundTripCounter{&calls, http.DefaultTransport},
	}))

	_, err := client.OpenStream(context.Background(), StreamRequest{Message: "m"})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.Status)
	assert.Contains(t, httpErr.Error(), "backend down")
	assert.Equal(t, int32(1), calls.Load(), "streams are never retried")
}

func TestOpenStream_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url).OpenStream(context.Background(), StreamRequest{Message: "m"})
	require.Error(t, err)
	var httpErr *HTTPError
	assert.False(t, errors.As(err, &httpErr))
}

type roundTripCounter struct {
	n    *atomic.Int32
	next http.RoundTripper
}

func (r roundTripCounter) RoundTrip(req *http.Request) (*http.Response, error) {
	r.n.Add(1)
	return r.next.RoundTrip(req)
}

// =============================================================================
// COMPLETION TESTS
// =============================================================================

func TestParseCompletion(t *testing.T) {
	c, err := ParseCompletion(`{"conversationId":"c1","answer":"Hi there"}`)
	require.NoError(t, err)
	assert.Equal(t, Completion{ConversationID: "c1", Answer: "Hi there"}, c)

	c, err = ParseCompletion("")
	require.NoError(t, err)
	assert.Equal(t, Completion{}, c)

	_, err = ParseCompletion("{oops")
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestFetchHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultHistoryPath+"/c1", r.URL.Path)
		assert.Equal(t, "web-1", r.URL.Query().Get("userId"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		io.WriteString(w, `{"data":[
			{"role":"USER","query":"hello"},
			{"role":"assistant","content":[{"type":"image"},{"type":"text","text":"Hi there"}]},
			{"role":"bot","content":[{"data":{"text":"nested"}}]},
			{"role":"assistant","answer":"plain answer"}
		]}`)
	}))
	defer server.Close()

	records, err := NewClient(server.URL, WithHistoryRate(0)).FetchHistory(context.Background(), "c1", "web-1", 0)
	require.NoError(t, err)
	require.Len(t, records, 4)

	msgs := ToMessages(records)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hi there", msgs[1].Text)
	assert.Equal(t, model.RoleAssistant, msgs[2].Role)
	assert.Equal(t, "nested", msgs[2].Text)
	assert.Equal(t, "plain answer", msgs[3].Text)
	for _, m := range msgs {
		assert.False(t, m.Pending)
	}
}

func TestFetchHistory_MissingDataIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	records, err := NewClient(server.URL, WithHistoryRate(0)).FetchHistory(context.Background(), "c1", "u", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchHistory_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"data":[{"role":"user","text":"ok"}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithHistoryRate(0), WithMaxRetries(2))
	records, err := client.FetchHistory(context.Background(), "c1", "u", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchHistory_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, WithHistoryRate(0)).FetchHistory(context.Background(), "c1", "u", 10)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchHistory_EmptyConversationID(t *testing.T) {
	_, err := NewClient("http://unused").FetchHistory(context.Background(), "", "u", 10)
	assert.Error(t, err)
}

func TestFetchHistory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient("http://127.0.0.1:1").FetchHistory(ctx, "c1", "u", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, isRetryable(nil))
	assert.False(t, isRetryable(context.Canceled))
	assert.False(t, isRetryable(&HTTPError{Status: 400}))
	assert.True(t, isRetryable(&HTTPError{Status: 502}))
	assert.False(t, isRetryable(&DecodeError{Err: errors.New("x")}))
	assert.True(t, isRetryable(errors.New("connection reset")))
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, retryBaseDelay, calculateBackoff(1))
	assert.Equal(t, 2*retryBaseDelay, calculateBackoff(2))
	assert.Equal(t, retryMaxDelay, calculateBackoff(20))
}
