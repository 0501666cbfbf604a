// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pacing

// =============================================================================
// PACER
// =============================================================================

// DefaultBudget is the number of runes released per frame.
const DefaultBudget = 8

// Target receives text released by a Pacer, in push order.
type Target interface {
	Append(text string)
}

// TargetFunc adapts a function to Target.
type TargetFunc func(text string)

// Append implements Target.
func (f TargetFunc) Append(text string) { f(text) }

// Pacer queues pushed text and releases it frame by frame. Content is never
// reordered, and only Stop discards it.
type Pacer struct {
	frames Frames
	target Target
	budget int

	queue     []rune
	scheduled bool
	frameID   FrameID
}

// New creates a Pacer. A budget below 1 is raised to 1.
func New(frames Frames, target Target, budget int) *Pacer {
	p := &Pacer{frames: frames, target: target}
	p.SetBudget(budget)
	return p
}

// SetBudget changes the per-frame rune budget. Values below 1 become 1.
func (p *Pacer) SetBudget(budget int) {
	if budget < 1 {
		budget = 1
	}
	p.budget = budget
}

// Budget returns the per-frame rune budget.
func (p *Pacer) Budget() int {
	return p.budget
}

// Push enqueues text and schedules a frame if none is pending.
func (p *Pacer) Push(text string) {
	if text == "" {
		return
	}
	p.queue = append(p.queue, []rune(text)...)
	p.schedule()
}

// FlushAll releases every queued rune before returning and cancels the
// pending frame, if any.
func (p *Pacer) FlushAll() {
	p.cancel()
	if len(p.queue) == 0 {
		return
	}
	text := string(p.queue)
	p.queue = p.queue[:0]
	p.target.Append(text)
}

// Stop cancels the pending frame and discards queued runes.
func (p *Pacer) Stop() {
	p.cancel()
	p.queue = p.queue[:0]
}

// Pending returns the number of queued runes.
func (p *Pacer) Pending() int {
	return len(p.queue)
}

// Scheduled reports whether a frame is waiting to fire.
func (p *Pacer) Scheduled() bool {
	return p.scheduled
}

func (p *Pacer) schedule() {
	if p.scheduled {
		return
	}
	p.scheduled = true
	p.frameID = p.frames.RequestFrame(p.frame)
}

func (p *Pacer) cancel() {
	if !p.scheduled {
		return
	}
	p.frames.CancelFrame(p.frameID)
	p.scheduled = false
	p.frameID = 0
}

// frame releases up to budget runes and reschedules while runes remain.
func (p *Pacer) frame() {
	p.scheduled = false
	p.frameID = 0

	n := min(p.budget, len(p.queue))
	if n == 0 {
		return
	}
	text := string(p.queue[:n])
	p.queue = p.queue[n:]
	p.target.Append(text)

	if len(p.queue) > 0 {
		p.schedule()
	}
}
