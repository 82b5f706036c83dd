// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package burner provides the calibrated busy-wait utility used to
// simulate fixed amounts of CPU-bound work: calibrate once against a
// wall-clock window, then busy-spin for the duration requested.
package burner

import (
	"context"
	"time"
)

// calibrationWindow is the wall-clock interval Calibrate spins across to
// measure loop throughput.
const calibrationWindow = 100 * time.Millisecond

// Calibrate measures how many busy-loop iterations this machine executes
// per millisecond and returns the rate for use by Burn.
func Calibrate() uint64 {
	var iterations uint64
	deadline := time.Now().Add(calibrationWindow)
	for time.Now().Before(deadline) {
		iterations++
	}
	return iterations / uint64(calibrationWindow.Milliseconds())
}

// sink defeats dead-code elimination of the busy-spin below; its value is
// never read for anything but itself.
var sink uint64

// Burn busy-spins for approximately d, checking ctx between chunks so the
// KILL policy's cooperative-cancellation emulation has a safe point to
// observe and return early. loopsPerMs (normally Calibrate's return value)
// is accepted but unused: this implementation spins against the wall clock
// directly rather than a loop count, since Go goroutines are preempted at
// arbitrary points and a fixed iteration count would not reliably cover d.
func Burn(ctx context.Context, d time.Duration, loopsPerMs uint64) {
	_ = loopsPerMs

	const chunk = time.Millisecond
	deadline := time.Now().Add(d)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		now := time.Now()
		if !now.Before(deadline) {
			return
		}

		chunkDeadline := now.Add(chunk)
		if chunkDeadline.After(deadline) {
			chunkDeadline = deadline
		}
		for time.Now().Before(chunkDeadline) {
			sink++
		}
	}
}
