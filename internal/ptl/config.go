// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package ptl

import (
	"context"

	"github.com/rtlabs/ptl/internal/ptl/kernel"
)

// JobBody is the entry point invoked once per released instance. It
// receives the task's opaque argument plus a context the body should poll
// at safe points: under KILL, canceling this context is how forced
// termination is emulated.
type JobBody func(ctx context.Context, arg any)

// TaskConfig describes one periodic job. It is immutable after
// Registry.Init copies it into the task's TaskObject slot.
type TaskConfig struct {
	// Name identifies the task in logs, the trace, and diagnostics output.
	Name string
	// Period is the nominal inter-release interval in ticks. Must be > 0.
	Period kernel.Tick
	// Deadline is the relative deadline in ticks. Zero normalizes to Period;
	// otherwise must satisfy 0 < Deadline <= Period.
	Deadline kernel.Tick
	// Priority is the task's static priority. Must be strictly below the
	// supervisor's priority.
	Priority int
	// StackWords is carried for configuration-shape fidelity with the
	// collaborator interface; simkernel does not size real goroutine stacks.
	StackWords int
	// Body is the job's entry function.
	Body JobBody
	// Arg is the opaque argument passed to Body on every release.
	Arg any
	// Policy selects the overrun policy, or UseGlobal to defer to
	// GlobalConfig.DefaultPolicy.
	Policy OverrunPolicy
}

// GlobalConfig holds process-wide PTL settings.
type GlobalConfig struct {
	// DefaultPolicy is applied to tasks whose Policy is UseGlobal.
	DefaultPolicy OverrunPolicy
	// TracingEnabled gates the supervisor's and wrappers' event appends.
	// Idle records from the supervisor's idle tracking are written
	// regardless.
	TracingEnabled bool
	// MaxTasks is the declared ceiling on registered task count. Must be
	// >= the number of registered tasks and <= the compile-time cap.
	MaxTasks int
}
