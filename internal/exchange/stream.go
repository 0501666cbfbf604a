// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exchange

import (
	"context"
	"errors"
	"io"

	"github.com/jeranaias/entchat/internal/api"
	"github.com/jeranaias/entchat/internal/sse"
)

// StreamUpdate carries the events decoded from one network read. The last
// update of a stream has Done set, with Err nil on a clean end.
type StreamUpdate struct {
	Events []sse.Event
	Err    error
	Done   bool
}

// Pump opens the stream and calls send once per network read, then once
// more with Done set. It stops early when send returns false or ctx ends.
// Pump performs no panel state changes and is meant to run on its own
// goroutine.
func Pump(ctx context.Context, s Streamer, req api.StreamRequest, send func(StreamUpdate) bool) {
	body, err := s.OpenStream(ctx, req)
	if err != nil {
		send(StreamUpdate{Err: err, Done: true})
		return
	}
	defer body.Close()

	// Closing the body unblocks a pending Read when ctx ends.
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()

	dec := sse.NewDecoder(body)
	for {
		events, err := dec.Next()
		if errors.Is(err, io.EOF) {
			send(StreamUpdate{Events: events, Done: true})
			return
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			send(StreamUpdate{Events: events, Err: err, Done: true})
			return
		}
		if len(events) == 0 {
			continue
		}
		if !send(StreamUpdate{Events: events}) {
			return
		}
	}
}
