// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package simkernel is the production Kernel: a goroutine-per-task
// scheduler driven by a real wall clock, standing in for the preemptive
// fixed-priority RTOS the PTL core is written against. Priority and
// stack-size arguments are accepted for configuration fidelity but do not
// affect Go's cooperative goroutine scheduling.
package simkernel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rtlabs/ptl/internal/ptl/kernel"
)

// Kernel is the goroutine-based Kernel implementation.
type Kernel struct {
	tickPeriod    time.Duration
	stackOverflow func(name string)
	switchHook    func(name string, in bool, tick kernel.Tick)

	mu        sync.Mutex
	critISR   sync.Mutex
	now       kernel.Tick
	nextID    kernel.TaskHandle
	names     map[kernel.TaskHandle]string
	notifiers map[kernel.TaskHandle]chan struct{}
	cancels   map[kernel.TaskHandle]context.CancelFunc
}

// Option configures a Kernel at construction.
type Option func(*Kernel)

// WithStackOverflowHook installs the kernel trace-point hook invoked when
// a task goroutine panics — this simulation's analogue of an RTOS
// stack-overflow hook, since Go goroutines have growable stacks and no
// real overflow fault.
func WithStackOverflowHook(fn func(name string)) Option {
	return func(k *Kernel) { k.stackOverflow = fn }
}

// WithSwitchHook installs the kernel trace-point hook fired when a task
// yields the CPU by blocking on its notification (in=false) and when it
// resumes after a give (in=true) — this simulation's observable analogue of
// an RTOS context-switch trace point.
func WithSwitchHook(fn func(name string, in bool, tick kernel.Tick)) Option {
	return func(k *Kernel) { k.switchHook = fn }
}

// New creates a Kernel whose tick advances by one for each tickPeriod slept
// inside DelayUntil; the clock does not move while no task is in
// DelayUntil. tickPeriod is the simulated-kernel analogue of the hardware
// tick timer's period (reference configuration: 1ms).
func New(tickPeriod time.Duration, opts ...Option) *Kernel {
	k := &Kernel{
		tickPeriod: tickPeriod,
		names:      make(map[kernel.TaskHandle]string),
		notifiers:  make(map[kernel.TaskHandle]chan struct{}),
		cancels:    make(map[kernel.TaskHandle]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// CreateTask starts entry in a new goroutine. stackWords and priority are
// accepted to satisfy the Kernel interface; this implementation does not
// use them.
func (k *Kernel) CreateTask(name string, _, _ int, entry kernel.Entry) (kernel.TaskHandle, error) {
	if entry == nil {
		return 0, fmt.Errorf("simkernel: nil entry for task %q", name)
	}

	k.mu.Lock()
	k.nextID++
	h := k.nextID
	ctx, cancel := context.WithCancel(context.Background())
	k.names[h] = name
	k.cancels[h] = cancel
	k.notifiers[h] = make(chan struct{}, 1)
	k.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				// A goroutine panic is this simulation's closest analogue
				// to a hardware stack-overflow fault: the task is gone and
				// cannot be resumed. The handle stays registered and the
				// supervisor is not told; the stack-overflow hook is the
				// only report of the fault.
				if k.stackOverflow != nil {
					k.stackOverflow(name)
				}
			}
		}()
		entry(h, ctx)
	}()

	return h, nil
}

// DeleteTask cancels the task's context. No finalizer is guaranteed to
// run.
func (k *Kernel) DeleteTask(h kernel.TaskHandle) {
	k.mu.Lock()
	cancel, ok := k.cancels[h]
	delete(k.cancels, h)
	delete(k.notifiers, h)
	delete(k.names, h)
	k.mu.Unlock()

	if ok {
		cancel()
	}
}

// NotifyGive increments the task's one-count notification, saturating at
// one (idempotent within one count).
func (k *Kernel) NotifyGive(h kernel.TaskHandle) {
	k.mu.Lock()
	ch := k.notifiers[h]
	k.mu.Unlock()
	if ch == nil {
		return
	}

	select {
	case ch <- struct{}{}:
	default:
	}
}

// NotifyTake blocks until the task's notification count is > 0 or ctx is
// canceled. The switch hook sees the task leave the CPU when it blocks and
// re-enter when the give arrives.
func (k *Kernel) NotifyTake(h kernel.TaskHandle, ctx context.Context) bool {
	k.mu.Lock()
	ch := k.notifiers[h]
	name := k.names[h]
	now := k.now
	k.mu.Unlock()
	if ch == nil {
		return false
	}

	if k.switchHook != nil {
		k.switchHook(name, false, now)
	}

	select {
	case <-ch:
		if k.switchHook != nil {
			k.switchHook(name, true, k.Now())
		}
		return true
	case <-ctx.Done():
		return false
	}
}

// Now returns the current simulated tick.
func (k *Kernel) Now() kernel.Tick {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.now
}

// DelayUntil advances *last by period and sleeps in real time until that
// tick, using absolute-time scheduling so repeated calls do not drift.
func (k *Kernel) DelayUntil(last *kernel.Tick, period kernel.Tick) {
	target := *last + period
	*last = target

	for {
		now := k.Now()
		if now >= target {
			return
		}
		time.Sleep(k.tickPeriod)
		k.mu.Lock()
		k.now++
		k.mu.Unlock()
	}
}

// Critical runs fn with the kernel's non-ISR critical section held.
func (k *Kernel) Critical(fn func()) {
	k.mu.Lock()
	defer k.mu.Unlock()
	fn()
}

// CriticalISR runs fn with the ISR-safe critical section held. A dedicated
// mutex keeps ISR-context callers (ring.AppendISR from trace points) from contending
// with the larger non-ISR critical section used for task-state updates.
func (k *Kernel) CriticalISR(fn func()) {
	k.critISR.Lock()
	defer k.critISR.Unlock()
	fn()
}

// StartScheduler blocks until ctx is canceled. A real scheduler.start()
// never returns; tests cancel ctx to tear the simulated kernel down.
func (k *Kernel) StartScheduler(ctx context.Context) {
	<-ctx.Done()
}
