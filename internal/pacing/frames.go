// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pacing

import (
	"time"
)

// =============================================================================
// FRAME SCHEDULING
// =============================================================================

// FrameID identifies a requested frame callback. Zero is never issued.
type FrameID uint64

// Frames is the host's frame-pacing primitive.
type Frames interface {
	// RequestFrame schedules fn for the next frame.
	RequestFrame(fn func()) FrameID
	// CancelFrame drops a scheduled callback. Unknown ids are ignored.
	CancelFrame(id FrameID)
}

// DefaultFPS is the frame rate hosts tick at when none is configured.
const DefaultFPS = 60

// FrameInterval converts a frame rate into the period between frames.
// Non-positive or absurd rates fall back to DefaultFPS.
func FrameInterval(fps int) time.Duration {
	if fps <= 0 || fps > 240 {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

type frameRequest struct {
	id FrameID
	fn func()
}

// FrameQueue collects frame requests until the host calls Fire. It is not
// safe for concurrent use.
type FrameQueue struct {
	next    FrameID
	pending []frameRequest
}

// NewFrameQueue returns an empty queue.
func NewFrameQueue() *FrameQueue {
	return &FrameQueue{}
}

// RequestFrame implements Frames.
func (q *FrameQueue) RequestFrame(fn func()) FrameID {
	q.next++
	q.pending = append(q.pending, frameRequest{id: q.next, fn: fn})
	return q.next
}

// CancelFrame implements Frames.
func (q *FrameQueue) CancelFrame(id FrameID) {
	for i, req := range q.pending {
		if req.id == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

// Fire runs every callback requested before this call, in request order.
// Callbacks requested while firing wait for the next Fire. It returns the
// number of callbacks run.
func (q *FrameQueue) Fire() int {
	batch := q.pending
	q.pending = nil
	for _, req := range batch {
		req.fn()
	}
	return len(batch)
}

// Pending reports how many callbacks are waiting for the next frame.
func (q *FrameQueue) Pending() int {
	return len(q.pending)
}
