// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package jobs is the registered table of periodic job bodies the
// supervisor releases: a name-keyed lookup the bootstrap layer resolves
// TaskSpec.Body against when building TaskConfig.
package jobs

import (
	"context"
	"time"

	"github.com/sk-pkg/logger"

	"github.com/rtlabs/ptl/internal/ptl"
	"github.com/rtlabs/ptl/internal/ptl/burner"
)

// Arg is the opaque argument every registered body receives: a logger for
// diagnostic output and the calibrated busy-wait rate used to simulate a
// fixed amount of CPU-bound work.
type Arg struct {
	Logger     *logger.Manager
	LoopsPerMs uint64
	Work       time.Duration
}

// Table maps a TaskSpec.Body key to its JobBody implementation.
var Table = map[string]ptl.JobBody{
	"busy":      Busy,
	"telemetry": Telemetry,
	"watchdog":  Watchdog,
}

// Busy simulates a fixed amount of CPU-bound work by busy-spinning for
// Arg.Work, so demo task tables can force overruns deterministically.
func Busy(ctx context.Context, arg any) {
	a, ok := arg.(*Arg)
	if !ok {
		return
	}
	burner.Burn(ctx, a.Work, a.LoopsPerMs)
}

// Telemetry is a short, well-behaved periodic job: it never overruns its
// deadline under normal load and exists to exercise the nominal release
// path alongside the overrun-policy demo tasks.
func Telemetry(ctx context.Context, arg any) {
	a, ok := arg.(*Arg)
	if !ok {
		return
	}
	burner.Burn(ctx, a.Work, a.LoopsPerMs)
	if a.Logger != nil {
		a.Logger.Info(ctx, "[PTL] telemetry sample collected")
	}
}

// Watchdog is a lightweight, short-period job, given the highest priority
// in the demo task table. simkernel ignores priorities, so it runs
// alongside longer-running jobs rather than preempting them.
func Watchdog(ctx context.Context, arg any) {
	a, ok := arg.(*Arg)
	if !ok {
		return
	}
	burner.Burn(ctx, a.Work, a.LoopsPerMs)
}
