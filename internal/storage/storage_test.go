// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns a fresh instance of every persistent KV.
func backends(t *testing.T) map[string]KV {
	t.Helper()
	dir := t.TempDir()

	sq, err := OpenSQLite(filepath.Join(dir, "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	f, err := OpenFile(filepath.Join(dir, "kv.json"))
	require.NoError(t, err)

	return map[string]KV{
		"sqlite": sq,
		"file":   f,
		"memory": NewMemory(),
	}
}

// =============================================================================
// KV CONTRACT TESTS
// =============================================================================

func TestKV_Contract(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := kv.Get("missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, kv.Set("entchat.history:main", `[{"id":"a"}]`))
			require.NoError(t, kv.Set("entchat.history:support", `[]`))
			require.NoError(t, kv.Set("entchat.userId", "web-1-abcdef12"))

			v, ok, err := kv.Get("entchat.history:main")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[{"id":"a"}]`, v)

			require.NoError(t, kv.Set("entchat.history:main", `[]`))
			v, _, _ = kv.Get("entchat.history:main")
			assert.Equal(t, `[]`, v)

			keys, err := kv.Keys(PrefixHistory)
			require.NoError(t, err)
			assert.Equal(t, []string{"entchat.history:main", "entchat.history:support"}, keys)

			require.NoError(t, kv.Delete("entchat.history:main"))
			require.NoError(t, kv.Delete("entchat.history:main"))
			_, ok, _ = kv.Get("entchat.history:main")
			assert.False(t, ok)
		})
	}
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.Set("k", "v"))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	v, ok, err := db.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestSQLite_KeysPrefixIsLiteral(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Set("a%b", "1"))
	require.NoError(t, db.Set("axb", "2"))

	keys, err := db.Keys("a%")
	require.NoError(t, err)
	assert.Equal(t, []string{"a%b"}, keys)
}

func TestFile_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kv.json")

	f, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Set("k", "v"))

	f, err = OpenFile(path)
	require.NoError(t, err)
	v, ok, _ := f.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestFile_CorruptFileIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := OpenFile(path)
	assert.Error(t, err)
}

// =============================================================================
// RESILIENT TESTS
// =============================================================================

// failingKV fails every operation after the first failAfter writes.
type failingKV struct {
	*Memory
	writes    int
	failAfter int
}

var errDisk = errors.New("disk on fire")

func (f *failingKV) Set(key, value string) error {
	f.writes++
	if f.writes > f.failAfter {
		return errDisk
	}
	return f.Memory.Set(key, value)
}

func TestResilient_DegradesOnceAndKeepsData(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	backend := &failingKV{Memory: NewMemory(), failAfter: 1}
	r := NewResilient(backend, logger)

	require.NoError(t, r.Set("a", "1"))
	assert.False(t, r.Degraded())

	require.NoError(t, r.Set("b", "2"))
	require.NoError(t, r.Set("c", "3"))
	assert.True(t, r.Degraded())

	for k, want := range map[string]string{"a": "1", "b": "2", "c": "3"} {
		v, ok, err := r.Get(k)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, want, v)
	}

	assert.Equal(t, 1, strings.Count(logs.String(), "storage unavailable"))
}

// brokenDeleteKV keeps its data but cannot delete.
type brokenDeleteKV struct {
	*Memory
}

func (b *brokenDeleteKV) Delete(string) error {
	return errDisk
}

func TestResilient_FailedDeleteStaysDeleted(t *testing.T) {
	backend := &brokenDeleteKV{Memory: NewMemory()}
	r := NewResilient(backend, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	require.NoError(t, r.Set(ConversationKey("main"), "c1"))
	require.NoError(t, r.Set("other", "kept"))

	require.NoError(t, r.Delete(ConversationKey("main")))
	assert.True(t, r.Degraded())

	_, ok, err := r.Get(ConversationKey("main"))
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := r.Get("other")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "kept", v)
}

func TestOpen_UnknownBackendFallsBackToMemory(t *testing.T) {
	r, err := Open("cloud", "", slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	require.NotNil(t, r)
	assert.True(t, r.Degraded())

	require.NoError(t, r.Set("k", "v"))
	v, ok, _ := r.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{BackendSQLite, BackendFile, BackendMemory} {
		r, err := Open(backend, filepath.Join(dir, backend+".store"), nil)
		require.NoError(t, err, backend)
		assert.False(t, r.Degraded())
		require.NoError(t, r.Close())
	}
}

// =============================================================================
// USER ID TESTS
// =============================================================================

func TestUserID_GeneratedOnceAndReused(t *testing.T) {
	kv := NewMemory()

	first, err := UserID(kv)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^web-\d+-[0-9a-f]{8}$`), first)

	second, err := UserID(kv)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPanelKeys(t *testing.T) {
	kv := NewMemory()
	kv.Set(HistoryKey("main"), "[]")
	kv.Set(HistoryKey("support"), "[]")
	kv.Set(ConversationKey("main"), "c1")

	panels, err := PanelKeys(kv)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "support"}, panels)
}
