// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"context"
	"io"
	"math/rand"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStream = "event: chunk\ndata: Hi\n\n" +
	"event: chunk\ndata:  there\n\n" +
	": keep-alive\n\n" +
	"data: untyped\n\n" +
	"event: chunk\ndata: line one\ndata: line two\n\n" +
	"event: done\ndata: {\"conversationId\":\"c1\",\"answer\":\"Hi there\"}\n\n"

var sampleEvents = []Event{
	{Name: EventChunk, Data: "Hi"},
	{Name: EventChunk, Data: " there"},
	{Name: EventMessage, Data: ""},
	{Name: EventMessage, Data: "untyped"},
	{Name: EventChunk, Data: "line one\nline two"},
	{Name: EventDone, Data: `{"conversationId":"c1","answer":"Hi there"}`},
}

func collect(events *[]Event) Handler {
	return func(ev Event) { *events = append(*events, ev) }
}

func feedAll(parts []string) []Event {
	var got []Event
	var p Parser
	for _, part := range parts {
		p.Feed(part, collect(&got))
	}
	p.Flush(collect(&got))
	return got
}

// =============================================================================
// PROCESS TESTS
// =============================================================================

func TestProcess_CompleteBlocks(t *testing.T) {
	var got []Event
	rest := Process("event: chunk\ndata: a\n\nevent: chunk\ndata: b\n\n", collect(&got))

	assert.Equal(t, "", rest)
	assert.Equal(t, []Event{{EventChunk, "a"}, {EventChunk, "b"}}, got)
}

func TestProcess_ReturnsIncompleteTail(t *testing.T) {
	var got []Event
	rest := Process("event: chunk\ndata: a\n\nevent: chu", collect(&got))

	assert.Equal(t, "event: chu", rest)
	assert.Len(t, got, 1)
}

func TestProcess_NilHandlerKeepsBuffer(t *testing.T) {
	assert.Equal(t, "data: x\n\n", Process("data: x\n\n", nil))
}

func TestProcess_SkipsBlankBlocks(t *testing.T) {
	var got []Event
	Process("\n\n  \n\ndata: x\n\n", collect(&got))
	assert.Equal(t, []Event{{EventMessage, "x"}}, got)
}

func TestProcess_CRLF(t *testing.T) {
	var got []Event
	rest := Process("event: done\r\ndata: {}\r\n\r\n", collect(&got))

	assert.Equal(t, "", rest)
	assert.Equal(t, []Event{{EventDone, "{}"}}, got)
}

func TestProcess_EmptyEventNameFallsBack(t *testing.T) {
	var got []Event
	Process("event:\ndata: x\n\n", collect(&got))
	assert.Equal(t, EventMessage, got[0].Name)
}

func TestProcess_PreservesPayloadSpacing(t *testing.T) {
	var got []Event
	Process("data:   indented \n\n", collect(&got))
	assert.Equal(t, "  indented ", got[0].Data)
}

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestParser_SingleFeed(t *testing.T) {
	assert.Equal(t, sampleEvents, feedAll([]string{sampleStream}))
}

func TestParser_ChunkBoundaryInvariance(t *testing.T) {
	// Every single split point.
	for i := 0; i <= len(sampleStream); i++ {
		got := feedAll([]string{sampleStream[:i], sampleStream[i:]})
		require.Equal(t, sampleEvents, got, "split at %d", i)
	}

	// Byte-at-a-time delivery.
	parts := make([]string, 0, len(sampleStream))
	for i := 0; i < len(sampleStream); i++ {
		parts = append(parts, sampleStream[i:i+1])
	}
	assert.Equal(t, sampleEvents, feedAll(parts))
}

func TestParser_RandomChunking(t *testing.T) {
	crlf := strings.ReplaceAll(sampleStream, "\n", "\r\n")
	rng := rand.New(rand.NewSource(42))

	for _, stream := range []string{sampleStream, crlf} {
		for round := 0; round < 200; round++ {
			var parts []string
			rest := stream
			for len(rest) > 0 {
				n := 1 + rng.Intn(12)
				if n > len(rest) {
					n = len(rest)
				}
				parts = append(parts, rest[:n])
				rest = rest[n:]
			}
			require.Equal(t, sampleEvents, feedAll(parts), "round %d", round)
		}
	}
}

func TestParser_FlushDecodesUnterminatedBlock(t *testing.T) {
	var got []Event
	var p Parser
	p.Feed("event: done\ndata: {}", collect(&got))
	assert.Empty(t, got)
	assert.Greater(t, p.Pending(), 0)

	p.Flush(collect(&got))
	assert.Equal(t, []Event{{EventDone, "{}"}}, got)
	assert.Equal(t, 0, p.Pending())
}

func TestParser_FlushDropsOnlyEmptyTail(t *testing.T) {
	var got []Event
	var p Parser
	p.Feed("data: a\n\n\n", collect(&got))
	p.Flush(collect(&got))
	assert.Equal(t, []Event{{EventMessage, "a"}}, got)
}

func TestParser_Reset(t *testing.T) {
	var got []Event
	var p Parser
	p.Feed("data: partial", collect(&got))
	p.Reset()
	p.Flush(collect(&got))
	assert.Empty(t, got)
}

// =============================================================================
// DECODER TESTS
// =============================================================================

func TestDecoder_OneByteReads(t *testing.T) {
	var got []Event
	err := Decode(context.Background(), iotest.OneByteReader(strings.NewReader(sampleStream)), collect(&got))

	require.NoError(t, err)
	assert.Equal(t, sampleEvents, got)
}

func TestDecoder_MultiByteRuneAcrossReads(t *testing.T) {
	stream := "event: chunk\ndata: 你好，世界\n\n"
	var got []Event
	err := Decode(context.Background(), iotest.OneByteReader(strings.NewReader(stream)), collect(&got))

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "你好，世界", got[0].Data)
}

func TestDecoder_NextReturnsEOFWithFinalEvents(t *testing.T) {
	d := NewDecoder(strings.NewReader("event: done\ndata: {}"))

	var all []Event
	for {
		events, err := d.Next()
		all = append(all, events...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, []Event{{EventDone, "{}"}}, all)

	events, err := d.Next()
	assert.Nil(t, events)
	assert.Equal(t, io.EOF, err)
}

func TestDecoder_ReadError(t *testing.T) {
	boom := io.ErrUnexpectedEOF
	r := io.MultiReader(strings.NewReader("event: chunk\ndata: a\n\n"), iotest.ErrReader(boom))

	var got []Event
	err := Decode(context.Background(), r, collect(&got))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []Event{{EventChunk, "a"}}, got)
}

func TestDecode_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Decode(ctx, strings.NewReader(sampleStream), func(Event) {
		t.Fatal("no events expected after cancel")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
