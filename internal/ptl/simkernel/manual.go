// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package simkernel

import (
	"context"
	"fmt"
	"sync"

	"github.com/rtlabs/ptl/internal/ptl/kernel"
)

// ManualKernel is a Kernel whose clock is stepped explicitly by tests via
// Advance instead of by wall-clock sleep, so the supervisor and wrapper
// suites run deterministically and fast.
type ManualKernel struct {
	mu        sync.Mutex
	cond      *sync.Cond
	now       kernel.Tick
	nextID    kernel.TaskHandle
	notifiers map[kernel.TaskHandle]chan struct{}
	cancels   map[kernel.TaskHandle]context.CancelFunc
}

// NewManual creates a ManualKernel starting at tick 0.
func NewManual() *ManualKernel {
	k := &ManualKernel{
		notifiers: make(map[kernel.TaskHandle]chan struct{}),
		cancels:   make(map[kernel.TaskHandle]context.CancelFunc),
	}
	k.cond = sync.NewCond(&k.mu)
	return k
}

// Advance moves the clock forward by n ticks and wakes any DelayUntil
// waiters whose target tick has now arrived.
func (k *ManualKernel) Advance(n kernel.Tick) {
	k.mu.Lock()
	k.now += n
	k.mu.Unlock()
	k.cond.Broadcast()
}

func (k *ManualKernel) CreateTask(name string, _, _ int, entry kernel.Entry) (kernel.TaskHandle, error) {
	if entry == nil {
		return 0, fmt.Errorf("manualkernel: nil entry for task %q", name)
	}

	k.mu.Lock()
	k.nextID++
	h := k.nextID
	ctx, cancel := context.WithCancel(context.Background())
	k.cancels[h] = cancel
	k.notifiers[h] = make(chan struct{}, 1)
	k.mu.Unlock()

	go func() {
		entry(h, ctx)
	}()

	return h, nil
}

func (k *ManualKernel) DeleteTask(h kernel.TaskHandle) {
	k.mu.Lock()
	cancel, ok := k.cancels[h]
	delete(k.cancels, h)
	delete(k.notifiers, h)
	k.mu.Unlock()
	if ok {
		cancel()
	}
}

func (k *ManualKernel) NotifyGive(h kernel.TaskHandle) {
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

func (k *ManualKernel) NotifyTake(h kernel.TaskHandle, ctx context.Context) bool {
	k.mu.Lock()
	ch := k.notifiers[h]
	k.mu.Unlock()
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}

func (k *ManualKernel) Now() kernel.Tick {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.now
}

// DelayUntil advances *last by period and blocks until Advance has pushed
// the clock to or past that tick.
func (k *ManualKernel) DelayUntil(last *kernel.Tick, period kernel.Tick) {
	target := *last + period
	*last = target

	k.mu.Lock()
	for k.now < target {
		k.cond.Wait()
	}
	k.mu.Unlock()
}

func (k *ManualKernel) Critical(fn func()) {
	k.mu.Lock()
	defer k.mu.Unlock()
	fn()
}

func (k *ManualKernel) CriticalISR(fn func()) {
	k.Critical(fn)
}

// StartScheduler blocks until ctx is canceled.
func (k *ManualKernel) StartScheduler(ctx context.Context) {
	<-ctx.Done()
}
