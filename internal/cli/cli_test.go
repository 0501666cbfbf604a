// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/entchat/internal/config"
	"github.com/jeranaias/entchat/internal/exchange"
	"github.com/jeranaias/entchat/internal/history"
)

// =============================================================================
// HELPERS
// =============================================================================

const helloStream = "event: chunk\ndata: Hi\n\nevent: chunk\ndata:  there\n\n" +
	"event: done\ndata: {\"conversationId\":\"c1\",\"answer\":\"Hi there\"}\n\n"

// chatServer answers every send with helloStream and every history fetch
// with the stored exchange.
func chatServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/chat/history") {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"data":[{"role":"user","text":"hello"},{"role":"assistant","answer":"Hi there"}]}`)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, helloStream)
	}))
	t.Cleanup(server.Close)
	return server
}

// testHome holds the files of one simulated installation.
type testHome struct {
	t       *testing.T
	baseURL string
	dir     string
}

func newTestHome(t *testing.T, baseURL string) *testHome {
	return &testHome{t: t, baseURL: baseURL, dir: t.TempDir()}
}

func (h *testHome) load(string) (*config.Config, error) {
	cfg := config.Default()
	cfg.Server.BaseURL = h.baseURL
	cfg.Storage.Backend = "sqlite"
	cfg.Storage.Path = filepath.Join(h.dir, "entchat.db")
	cfg.Log.File = filepath.Join(h.dir, "entchat.log")
	cfg.Panels = []config.PanelConfig{
		{Key: "main", Title: "Main", Greeting: "Welcome", ReplyTemplate: "Saved {message}"},
		{Key: "services", Title: "Services"},
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}

// run executes one command line as a separate process would.
func (h *testHome) run(in string, args ...string) (string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer

	var c CLI
	parser, err := NewParser(&c, &out, func(int) {})
	require.NoError(h.t, err)
	ctx, err := parser.Parse(args)
	if err != nil {
		return out.String(), err
	}

	env := &Env{
		Globals: &c.Globals,
		In:      strings.NewReader(in),
		Out:     &out,
		Err:     &errOut,
		Load:    h.load,
	}
	defer env.Close()

	err = ctx.Run(env)
	return out.String() + errOut.String(), err
}

// =============================================================================
// VERSION AND WHOAMI
// =============================================================================

func TestVersion(t *testing.T) {
	h := newTestHome(t, "http://localhost:1")

	out, err := h.run("", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "entchat "+Version)

	out, err = h.run("", "version", "--json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info["version"])
}

func TestWhoami_JSON(t *testing.T) {
	h := newTestHome(t, "http://localhost:1")

	out, err := h.run("", "whoami", "--json")
	require.NoError(t, err)

	var info whoamiInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Regexp(t, `^web-\d+-[0-9a-f]{8}$`, info.UserID)
	assert.Equal(t, "sqlite", info.Storage)
	assert.False(t, info.Degraded)
	assert.Equal(t, []string{"main", "services"}, info.Panels)

	// The identity survives restarts.
	again, err := h.run("", "whoami", "--json")
	require.NoError(t, err)
	var second whoamiInfo
	require.NoError(t, json.Unmarshal([]byte(again), &second))
	assert.Equal(t, info.UserID, second.UserID)
}

func TestWhoami_Text(t *testing.T) {
	h := newTestHome(t, "http://localhost:1")
	out, err := h.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "User ID")
	assert.Contains(t, out, "(anonymous)")
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_JSON(t *testing.T) {
	h := newTestHome(t, chatServer(t).URL)

	out, err := h.run("", "ask", "--json", "hello")
	require.NoError(t, err)

	var res askOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Hi there", res.Text)
	assert.Equal(t, "c1", res.ConversationID)
	assert.False(t, res.Failed)
	assert.NotEmpty(t, res.EntryID)
}

func TestAsk_StreamsText(t *testing.T) {
	h := newTestHome(t, chatServer(t).URL)

	out, err := h.run("", "ask", "hello", "world")
	require.NoError(t, err)
	assert.Equal(t, "Hi there\n", out)
}

func TestAsk_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()
	h := newTestHome(t, server.URL)

	out, err := h.run("", "ask", "permits")
	require.ErrorIs(t, err, exchange.ErrNetwork)
	assert.Equal(t, ExitNetworkError, GetExitCode(err))
	assert.Contains(t, out, "Saved permits")
}

func TestAsk_UnknownPanel(t *testing.T) {
	h := newTestHome(t, chatServer(t).URL)

	_, err := h.run("", "ask", "-P", "nope", "hello")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "panel", nf.Resource)
	assert.Equal(t, ExitNotFound, GetExitCode(err))
}

// =============================================================================
// HISTORY
// =============================================================================

func TestHistory_ListShowDelete(t *testing.T) {
	h := newTestHome(t, chatServer(t).URL)

	out, err := h.run("", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations yet")

	_, err = h.run("", "ask", "hello")
	require.NoError(t, err)

	out, err = h.run("", "history", "list", "--json")
	require.NoError(t, err)
	var items []historyItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "hello", items[0].Title)
	assert.Equal(t, "c1", items[0].ConversationID)

	// A fresh process restores the thread from the server.
	out, err = h.run("", "history", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "You: hello")
	assert.Contains(t, out, "Assistant: Hi there")

	// Other panels keep their own history.
	out, err = h.run("", "history", "-P", "services")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations yet")

	out, err = h.run("", "history", "delete", items[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, `Deleted "hello"`)

	out, err = h.run("", "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations yet")
}

func TestHistory_ShowUnknown(t *testing.T) {
	h := newTestHome(t, chatServer(t).URL)

	_, err := h.run("", "history", "show", "3")
	assert.Equal(t, ExitNotFound, GetExitCode(err))
}

// =============================================================================
// REPL
// =============================================================================

func TestRepl_Session(t *testing.T) {
	h := newTestHome(t, chatServer(t).URL)

	script := strings.Join([]string{
		"hello",
		"/list",
		"/new",
		"/open 2",
		"/bogus",
		"/quit",
		"never sent",
	}, "\n") + "\n"

	out, err := h.run(script, "repl")
	require.NoError(t, err)

	assert.Contains(t, out, "Main")
	assert.Contains(t, out, "Assistant: Welcome")
	assert.Contains(t, out, "Assistant: Hi there")
	assert.Contains(t, out, "*  1. hello")
	assert.Contains(t, out, "Started a new conversation.")
	assert.Contains(t, out, "You: hello")
	assert.Contains(t, out, "[Error]")
	assert.NotContains(t, out, "never sent")
}

func TestRepl_EOFEndsSession(t *testing.T) {
	h := newTestHome(t, chatServer(t).URL)
	_, err := h.run("", "repl")
	assert.NoError(t, err)
}

// =============================================================================
// TUI AND ERRORS
// =============================================================================

func TestTUI_RequiresTerminal(t *testing.T) {
	if IsTTY() && IsStdoutTTY() {
		t.Skip("running in a terminal")
	}
	h := newTestHome(t, "http://localhost:1")

	_, err := h.run("", "tui")
	assert.ErrorIs(t, err, ErrNotInteractive)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestConfigLoadFailure(t *testing.T) {
	var c CLI
	parser, err := NewParser(&c, io.Discard, func(int) {})
	require.NoError(t, err)
	ctx, err := parser.Parse([]string{"whoami"})
	require.NoError(t, err)

	env := &Env{
		Globals: &c.Globals,
		Out:     io.Discard,
		Err:     io.Discard,
		Load: func(string) (*config.Config, error) {
			return nil, errors.New("bad toml")
		},
	}
	defer env.Close()

	err = ctx.Run(env)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generic", errors.New("boom"), ExitGeneralError},
		{"not found", &NotFoundError{Resource: "panel", ID: "x"}, ExitNotFound},
		{"config", &ConfigError{Path: "p", Err: errors.New("bad")}, ExitConfigError},
		{"validation", config.ValidateErrors{{Field: "server.base_url", Message: "required"}}, ExitConfigError},
		{"empty message", exchange.ErrEmptyMessage, ExitUsageError},
		{"canceled", fmt.Errorf("%w: deadline", exchange.ErrCanceled), ExitTimeout},
		{"busy", history.ErrBusy, ExitBusy},
		{"network", fmt.Errorf("%w: refused", exchange.ErrNetwork), ExitNetworkError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GetExitCode(tc.err))
		})
	}
}
