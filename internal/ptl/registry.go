// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package ptl

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/sk-pkg/logger"
	"go.uber.org/zap"

	"github.com/rtlabs/ptl/internal/ptl/kernel"
	"github.com/rtlabs/ptl/internal/ptl/ring"
)

// MaxTaskCap is the compile-time ceiling on registered task count
// (reference value 8).
const MaxTaskCap = 8

// SupervisorPriority is a sentinel strictly above any task priority this
// registry will accept, standing in for "kernel-max priority" on a platform
// without a fixed priority ceiling.
const SupervisorPriority = int(^uint(0) >> 1)

// supervisorTaskName carries the "SYS:" prefix the trace dump's output
// filter matches on when suppressing the supervisor's own switch records.
const supervisorTaskName = "SYS:Supervisor"

// TaskObject is the mutable runtime state for one registered task: its
// normalized config, kernel handle, release timing, activity flags, and
// per-policy counters. All cross-writer fields are only ever touched inside
// a Kernel critical section.
type TaskObject struct {
	Config TaskConfig

	Handle         kernel.TaskHandle
	NextRelease    kernel.Tick
	CurrentRelease kernel.Tick
	IsActive       bool
	DeadlineMissed bool

	JobsCompleted   uint64
	DeadlineMisses  uint64
	OverrunSkips    uint64
	OverrunKills    uint64
	OverrunCatchUps uint64
}

// TaskStats is the read-only snapshot returned by Registry.GetTaskStats.
type TaskStats struct {
	Name            string
	IsActive        bool
	JobsCompleted   uint64
	DeadlineMisses  uint64
	OverrunSkips    uint64
	OverrunKills    uint64
	OverrunCatchUps uint64
}

// Registry owns the static task table, the shared trace ring, and the
// global PTL configuration. It is a process-wide singleton with a strict
// lifecycle: initialized exactly once before the scheduler starts, never
// re-initialized, never torn down.
type Registry struct {
	kernel kernel.Kernel
	ring   *ring.Ring
	logger *logger.Manager

	mu          sync.Mutex
	initialized bool
	global      GlobalConfig
	tasks       []*TaskObject
}

// NewRegistry creates a Registry bound to a Kernel and a Trace Ring.
func NewRegistry(k kernel.Kernel, tr *ring.Ring, log *logger.Manager) *Registry {
	return &Registry{kernel: k, ring: tr, logger: log}
}

// Ring returns the registry's trace ring, for diagnostics handlers and the
// supervisor's idle-tracking hooks.
func (r *Registry) Ring() *ring.Ring { return r.ring }

// Init validates the task table and creates one kernel task per entry
// running the Job Wrapper. It copies each config into a TaskObject slot,
// normalizes Deadline, zeroes counters, and returns success only if every
// task creation succeeds; on the first creation failure it rolls back
// tasks already created and returns the error without leaving the registry
// usable.
func (r *Registry) Init(ctx context.Context, global *GlobalConfig, configs []TaskConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return ErrAlreadyInitialized
	}
	if global == nil {
		return ErrNilGlobalConfig
	}

	count := len(configs)
	maxCap := MaxTaskCap
	if global.MaxTasks > 0 && global.MaxTasks < maxCap {
		maxCap = global.MaxTasks
	}
	if count == 0 {
		return ErrNoTasks
	}
	if count > maxCap {
		return ErrTooManyTasks
	}

	normalized := make([]TaskConfig, count)
	for i, c := range configs {
		if c.Body == nil {
			return ErrNilTaskBody
		}
		if c.Period == 0 {
			return ErrInvalidPeriod
		}
		if c.Deadline == 0 {
			c.Deadline = c.Period
		}
		if c.Deadline > c.Period {
			return ErrInvalidDeadline
		}
		if c.Priority >= SupervisorPriority {
			return errors.Errorf("ptl: task %q priority must be strictly below the supervisor's", c.Name)
		}
		normalized[i] = c
	}

	if r.logger != nil {
		r.logger.Info(ctx, fmt.Sprintf("[PTL] Initializing %d tasks...", count))
	}

	tasks := make([]*TaskObject, count)
	for i, c := range normalized {
		obj := &TaskObject{Config: c}
		tasks[i] = obj

		entry := wrapperEntry(r, obj)
		h, err := r.kernel.CreateTask(c.Name, c.StackWords, c.Priority, entry)
		if err != nil {
			// Roll back every task created so far.
			for j := 0; j < i; j++ {
				r.kernel.DeleteTask(tasks[j].Handle)
			}
			return errors.Wrapf(ErrTaskCreateFailed, "task %q: %v", c.Name, err)
		}

		obj.Handle = h
		if r.logger != nil {
			r.logger.Info(ctx, fmt.Sprintf("[PTL] Created: %s", c.Name))
		}
	}

	r.global = *global
	r.tasks = tasks
	r.initialized = true

	if r.logger != nil {
		r.logger.Info(ctx, "[PTL] Init complete", zap.Int("taskCount", count))
	}

	return nil
}

// Start creates the supervisor task at SupervisorPriority and hands control
// to the kernel scheduler. It blocks until ctx is canceled.
func (r *Registry) Start(ctx context.Context, sup *Supervisor) error {
	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		return errors.New("ptl: Start called before Init")
	}
	r.mu.Unlock()

	_, err := r.kernel.CreateTask(supervisorTaskName, 0, SupervisorPriority, func(self kernel.TaskHandle, _ context.Context) {
		sup.Run(ctx)
	})
	if err != nil {
		return errors.Wrap(err, "ptl: supervisor task creation failed")
	}

	r.kernel.StartScheduler(ctx)
	return nil
}

// GetEffectivePolicy resolves a task's overrun policy: the task's own
// policy when it is Skip/Kill/CatchUp, otherwise the global default. A nil
// task yields the global default.
func (r *Registry) GetEffectivePolicy(t *TaskObject) OverrunPolicy {
	r.mu.Lock()
	defaultPolicy := r.global.DefaultPolicy
	r.mu.Unlock()

	if t == nil {
		return defaultPolicy
	}
	switch t.Config.Policy {
	case Skip, Kill, CatchUp:
		return t.Config.Policy
	default:
		return defaultPolicy
	}
}

// GetTaskList returns the normalized configuration of every registered
// task, in registration order.
func (r *Registry) GetTaskList() []TaskConfig {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TaskConfig, len(r.tasks))
	for i, t := range r.tasks {
		out[i] = t.Config
	}
	return out
}

// GetTaskStats returns a critical-section-protected snapshot of one task's
// counters.
func (r *Registry) GetTaskStats(name string) (TaskStats, bool) {
	obj := r.find(name)
	if obj == nil {
		return TaskStats{}, false
	}

	var snap TaskStats
	r.kernel.Critical(func() {
		snap = TaskStats{
			Name:            obj.Config.Name,
			IsActive:        obj.IsActive,
			JobsCompleted:   obj.JobsCompleted,
			DeadlineMisses:  obj.DeadlineMisses,
			OverrunSkips:    obj.OverrunSkips,
			OverrunKills:    obj.OverrunKills,
			OverrunCatchUps: obj.OverrunCatchUps,
		}
	})
	return snap, true
}

// AllTaskStats returns GetTaskStats for every registered task, in
// registration order.
func (r *Registry) AllTaskStats() []TaskStats {
	r.mu.Lock()
	tasks := make([]*TaskObject, len(r.tasks))
	copy(tasks, r.tasks)
	r.mu.Unlock()

	out := make([]TaskStats, 0, len(tasks))
	for _, t := range tasks {
		if s, ok := r.GetTaskStats(t.Config.Name); ok {
			out = append(out, s)
		}
	}
	return out
}

// TracingEnabled reports whether the trace ring should record events.
func (r *Registry) TracingEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.global.TracingEnabled
}

func (r *Registry) find(name string) *TaskObject {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.Config.Name == name {
			return t
		}
	}
	return nil
}

// taskObjects returns the live TaskObject slice in registration order, for
// the supervisor's per-tick scan.
func (r *Registry) taskObjects() []*TaskObject {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*TaskObject, len(r.tasks))
	copy(out, r.tasks)
	return out
}
