// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pacing releases streamed text onto a display at a bounded number
// of runes per frame, so rendering cadence follows the display instead of
// network bursts.
//
// # Key Types
//
//   - Pacer: queues runes and flushes at most Budget runes per frame
//   - Target: receives released text
//   - Frames: host frame-scheduling primitive (request / cancel)
//   - FrameQueue: Frames implementation driven by calling Fire
//
// # Usage
//
//	frames := pacing.NewFrameQueue()
//	p := pacing.New(frames, target, pacing.DefaultBudget)
//	p.Push("Hello")
//	frames.Fire()   // target receives up to 8 runes
//	p.FlushAll()    // drain the rest now, cancel the pending frame
//
// A Pacer is owned by one goroutine. Hosts call FrameQueue.Fire from that
// same goroutine (a bubbletea tick message, a time.Ticker case in a select
// loop, or directly in tests).
package pacing
