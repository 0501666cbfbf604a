// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package exchange

import (
	"context"
	"time"
)

// Run performs a whole exchange and returns when it has ended. Network
// reads happen on a separate goroutine; events, frames and all panel state
// changes are handled on the calling goroutine. The returned error is the
// precondition failure from Begin, or the exchange failure also found in
// Result.Err.
func (o *Orchestrator) Run(ctx context.Context, text string) (Result, error) {
	return o.RunWithProgress(ctx, text, nil)
}

// RunWithProgress is Run with a callback invoked on the calling goroutine
// after every frame that rendered text into the placeholder.
func (o *Orchestrator) RunWithProgress(ctx context.Context, text string, progress func(*Exchange)) (Result, error) {
	ex, err := o.Begin(text)
	if err != nil {
		return Result{}, err
	}

	var cancel context.CancelFunc
	if o.opts.StreamTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, o.opts.StreamTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	// Panics still end the exchange so the panel is never left loading.
	done := false
	defer func() {
		if !done {
			o.Finish(ex, ErrCanceled)
		}
	}()

	updates := make(chan StreamUpdate)
	go Pump(ctx, o.streamer, ex.Request, func(u StreamUpdate) bool {
		select {
		case updates <- u:
			return true
		case <-ctx.Done():
			return false
		}
	})

	ticker := time.NewTicker(o.opts.FrameInterval)
	defer ticker.Stop()

	finish := func(readErr error) (Result, error) {
		done = true
		res := o.Finish(ex, readErr)
		return res, res.Err
	}

	for {
		select {
		case u := <-updates:
			if o.HandleUpdate(ex, u) {
				cancel()
				return finish(nil)
			}
			if u.Done {
				return finish(u.Err)
			}
		case <-ticker.C:
			if o.frames.Fire() > 0 && progress != nil {
				progress(ex)
			}
		case <-ctx.Done():
			return finish(ctx.Err())
		}
	}
}
