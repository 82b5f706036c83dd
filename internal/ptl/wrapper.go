// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package ptl

import (
	"context"

	"github.com/rtlabs/ptl/internal/ptl/kernel"
	"github.com/rtlabs/ptl/internal/ptl/ring"
)

// wrapperEntry builds the per-task Job Wrapper loop bound to one
// TaskObject. It is passed to kernel.CreateTask as the task's entry.
func wrapperEntry(reg *Registry, obj *TaskObject) kernel.Entry {
	return func(self kernel.TaskHandle, ctx context.Context) {
		for {
			// (a) Block on the single-count release notification, or exit
			// if this instance was KILLed and its handle replaced.
			if !reg.kernel.NotifyTake(self, ctx) {
				return
			}

			// (b) Mark active and record the start.
			var startTime kernel.Tick
			reg.kernel.Critical(func() {
				obj.IsActive = true
			})
			startTime = reg.kernel.Now()
			if reg.TracingEnabled() {
				reg.ring.Append(obj.Config.Name, ring.Start, startTime)
			}

			// (c) Invoke the user body.
			obj.Config.Body(ctx, obj.Config.Arg)

			// A canceled context here means this instance was KILLed while
			// the body ran: the supervisor already reset the task state and
			// handed the next release to a recreated instance, so exiting
			// without recording a completion keeps the killed instance from
			// clobbering its successor.
			select {
			case <-ctx.Done():
				return
			default:
			}

			// (d) Record completion.
			endTime := reg.kernel.Now()
			if reg.TracingEnabled() {
				reg.ring.Append(obj.Config.Name, ring.Complete, endTime)
			}

			// (e) Self-audit: catch a deadline crossed after the
			// supervisor's own audit window but before the next release.
			reg.kernel.Critical(func() {
				deadlineAbs := obj.CurrentRelease + obj.Config.Deadline
				if endTime > deadlineAbs && !obj.DeadlineMissed {
					obj.DeadlineMissed = true
					obj.DeadlineMisses++
					if reg.TracingEnabled() {
						reg.ring.Append(obj.Config.Name, ring.DeadlineMiss, endTime)
					}
				}
			})

			// (f) Mark inactive and count the completion.
			reg.kernel.Critical(func() {
				obj.IsActive = false
				obj.JobsCompleted++
			})
		}
	}
}
