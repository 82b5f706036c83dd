// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package kernel declares the collaborator interface the PTL core consumes
// from the underlying RTOS: task lifecycle, one-count notifications, a
// monotonic tick clock, absolute-time delay, and priority-preserving
// critical sections. The core never talks to a concrete scheduler; it talks
// to this interface, so simkernel.Kernel (goroutines) and
// simkernel.ManualKernel (stepped clock, for tests) are interchangeable
// collaborators.
package kernel

import "context"

// Tick is one quantum of the monotonic kernel clock. The reference
// configuration treats one tick as one millisecond.
type Tick uint64

// TaskHandle is an opaque reference to a running task, analogous to an
// RTOS task handle.
type TaskHandle uint64

// Entry is the function a created task runs. It receives its own handle so
// a task can identify itself to the kernel (e.g. for NotifyTake), and a
// context canceled by DeleteTask. A goroutine cannot be killed from
// outside, so forced termination is emulated by cooperative cancellation:
// the entry (and, through it, the job body) must poll ctx at safe points.
type Entry func(self TaskHandle, ctx context.Context)

// Kernel is the RTOS collaborator interface. The core only ever depends on
// this interface, never on a concrete scheduler.
type Kernel interface {
	// CreateTask creates and starts a new task running entry. stackWords and
	// priority are informational for simulated kernels and carried for
	// configuration fidelity.
	CreateTask(name string, stackWords, priority int, entry Entry) (TaskHandle, error)

	// DeleteTask reclaims a task's resources. No finalizer is guaranteed to
	// run — callers must not rely on cleanup happening.
	DeleteTask(h TaskHandle)

	// NotifyGive increments the task's one-count notification. Giving twice
	// before a Take is idempotent: the count saturates at one.
	NotifyGive(h TaskHandle)

	// NotifyTake blocks until the task's notification count is > 0 (then
	// clears it and returns true) or until ctx is canceled (returns false).
	// The wait is otherwise unbounded; ctx exists purely so a KILLed task's
	// orphaned wrapper goroutine can unblock and exit instead of spinning
	// forever once its handle has been deleted and recreated under a new
	// one.
	NotifyTake(h TaskHandle, ctx context.Context) bool

	// Now returns the current tick.
	Now() Tick

	// DelayUntil advances *last by period and blocks until that tick
	// arrives, using absolute-time scheduling so repeated calls do not
	// accumulate drift the way a relative sleep would.
	DelayUntil(last *Tick, period Tick)

	// Critical runs fn with the kernel's priority-preserving critical
	// section held. Used for ordinary (non-ISR) cross-task state.
	Critical(fn func())

	// CriticalISR is the ISR-safe variant, used by trace-ring appends that
	// may be called from kernel trace points.
	CriticalISR(fn func())

	// StartScheduler hands control to the kernel scheduler. It blocks until
	// ctx is canceled; a real RTOS scheduler.start() never returns at all,
	// but tests need a way to tear the simulated kernel down.
	StartScheduler(ctx context.Context)
}
