// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"context"
	"errors"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultReadSize is the size of the buffer handed to each Read.
const DefaultReadSize = 4 * 1024

// Decoder turns a byte stream into events. Every call to Next performs
// exactly one Read on the underlying reader.
type Decoder struct {
	r      io.Reader
	buf    []byte
	parser Parser
	done   bool
}

// NewDecoder wraps r. Bytes are decoded as UTF-8 incrementally, so a rune
// split across two reads is reassembled rather than replaced.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   transform.NewReader(r, unicode.UTF8.NewDecoder()),
		buf: make([]byte, DefaultReadSize),
	}
}

// Next reads once and returns the events completed by that read. When the
// stream ends the pending tail is flushed and the final events are returned
// together with io.EOF. Any other read error is returned as-is with the
// events decoded so far.
func (d *Decoder) Next() ([]Event, error) {
	if d.done {
		return nil, io.EOF
	}

	var events []Event
	collect := func(ev Event) { events = append(events, ev) }

	n, err := d.r.Read(d.buf)
	if n > 0 {
		d.parser.Feed(string(d.buf[:n]), collect)
	}

	if errors.Is(err, io.EOF) {
		d.parser.Flush(collect)
		d.done = true
		return events, io.EOF
	}
	return events, err
}

// Decode reads r until it ends, calling handle for every event. It returns
// nil on a clean end of stream.
func Decode(ctx context.Context, r io.Reader, handle Handler) error {
	d := NewDecoder(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		events, err := d.Next()
		for _, ev := range events {
			handle(ev)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
