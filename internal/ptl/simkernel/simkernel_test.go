// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package simkernel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rtlabs/ptl/internal/ptl/kernel"
)

// TestKernel_NotifyGiveSaturates validates the one-count contract: two
// gives before a take still deliver exactly one wake-up.
func TestKernel_NotifyGiveSaturates(t *testing.T) {
	k := New(time.Millisecond)

	// The task only starts taking after both gives have landed, so the
	// saturation (not scheduling timing) decides how many wakes arrive.
	startGate := make(chan struct{})
	woke := make(chan struct{}, 2)
	h, err := k.CreateTask("t", 0, 1, func(self kernel.TaskHandle, ctx context.Context) {
		<-startGate
		for k.NotifyTake(self, ctx) {
			woke <- struct{}{}
		}
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	k.NotifyGive(h)
	k.NotifyGive(h)
	close(startGate)

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("first wake never arrived")
	}

	select {
	case <-woke:
		t.Fatal("second give was not absorbed by the saturating count")
	case <-time.After(20 * time.Millisecond):
	}

	k.DeleteTask(h)
}

// TestKernel_DeleteUnblocksTake validates that DeleteTask cancels a
// blocked NotifyTake so the orphaned goroutine exits.
func TestKernel_DeleteUnblocksTake(t *testing.T) {
	k := New(time.Millisecond)

	done := make(chan bool, 1)
	h, err := k.CreateTask("t", 0, 1, func(self kernel.TaskHandle, ctx context.Context) {
		done <- k.NotifyTake(self, ctx)
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	k.DeleteTask(h)

	select {
	case took := <-done:
		if took {
			t.Fatal("NotifyTake returned true after DeleteTask, want false")
		}
	case <-time.After(time.Second):
		t.Fatal("NotifyTake still blocked after DeleteTask")
	}
}

// TestKernel_SwitchHook validates that blocking on and waking from a
// notification fire the switch trace point with the task's name.
func TestKernel_SwitchHook(t *testing.T) {
	var mu sync.Mutex
	type event struct {
		name string
		in   bool
	}
	var events []event

	k := New(time.Millisecond, WithSwitchHook(func(name string, in bool, _ kernel.Tick) {
		mu.Lock()
		events = append(events, event{name, in})
		mu.Unlock()
	}))

	completed := make(chan struct{}, 1)
	h, err := k.CreateTask("worker", 0, 1, func(self kernel.TaskHandle, ctx context.Context) {
		if k.NotifyTake(self, ctx) {
			completed <- struct{}{}
		}
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	k.NotifyGive(h)

	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("task never woke")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) < 2 {
		t.Fatalf("len(events) = %d, want >= 2 (out then in)", len(events))
	}
	if events[0].name != "worker" || events[0].in {
		t.Fatalf("events[0] = %+v, want worker switch-out", events[0])
	}
	last := events[len(events)-1]
	if last.name != "worker" || !last.in {
		t.Fatalf("last event = %+v, want worker switch-in", last)
	}
}
