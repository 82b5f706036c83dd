// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package ptl

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sk-pkg/logger"
	"go.uber.org/zap"

	"github.com/rtlabs/ptl/internal/ptl/burner"
	"github.com/rtlabs/ptl/internal/ptl/kernel"
	"github.com/rtlabs/ptl/internal/ptl/ring"
)

// FatalHook is invoked when the kill procedure fails to recreate a task.
// The production hook logs and then blocks forever, because the release
// contract cannot be honored without the affected task; tests may install a
// recording hook instead.
type FatalHook func(ctx context.Context, reason string)

// DefaultFatalHook returns the production FatalHook: log at error level,
// then block forever. Halting only the supervisor goroutine (rather than
// the whole process) lets the diagnostics HTTP surface keep serving the
// last known trace and stats for forensic inspection.
func DefaultFatalHook(log *logger.Manager) FatalHook {
	return func(ctx context.Context, reason string) {
		if log != nil {
			log.Error(ctx, "[PTL] FATAL", zap.String("reason", reason))
		}
		select {}
	}
}

// Supervisor is the highest-priority, one-tick periodic state machine that
// owns release timing, deadline auditing, overrun classification, and the
// create/terminate/recreate lifecycle of managed tasks.
type Supervisor struct {
	reg    *Registry
	period kernel.Tick
	fatal  FatalHook

	idleOpen bool
}

// NewSupervisor creates a Supervisor bound to a Registry. period is the
// tick period of the delay-until loop (reference: 1 tick).
func NewSupervisor(reg *Registry, period kernel.Tick, fatal FatalHook) *Supervisor {
	if period == 0 {
		period = 1
	}
	if fatal == nil {
		fatal = DefaultFatalHook(nil)
	}
	return &Supervisor{reg: reg, period: period, fatal: fatal}
}

// Run calibrates the busy-wait utility, aligns every task to a synchronous
// start, and enters the delay-until loop. It returns when ctx is canceled.
func (s *Supervisor) Run(ctx context.Context) {
	rate := burner.Calibrate()
	if s.reg.logger != nil {
		s.reg.logger.Info(ctx, "[PTL] Calibrated", zap.Uint64("loopsPerMs", rate))
	}

	lastWake := s.reg.kernel.Now()
	for _, t := range s.reg.taskObjects() {
		obj := t
		s.reg.kernel.Critical(func() {
			obj.NextRelease = lastWake
			obj.CurrentRelease = lastWake
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.reg.kernel.DelayUntil(&lastWake, s.period)
		now := s.reg.kernel.Now()

		tracing := s.reg.TracingEnabled()
		if tracing {
			s.reg.Ring().AppendISR(supervisorTaskName, ring.SwitchIn, now)
		}

		anyActive := false
		for _, t := range s.reg.taskObjects() {
			s.tick(ctx, t, now)

			var active bool
			s.reg.kernel.Critical(func() { active = t.IsActive })
			anyActive = anyActive || active
		}

		s.trackIdle(now, anyActive)

		if tracing {
			s.reg.Ring().AppendISR(supervisorTaskName, ring.SwitchOut, now)
		}
	}
}

func (s *Supervisor) trackIdle(now kernel.Tick, anyActive bool) {
	r := s.reg.Ring()
	switch {
	case !anyActive && !s.idleOpen:
		s.idleOpen = true
		r.IdleEnter(now)
	case anyActive && s.idleOpen:
		s.idleOpen = false
		r.IdleExit(now)
	}
}

// tick runs the deadline audit and then the release decision for one task
// at the current tick.
func (s *Supervisor) tick(ctx context.Context, t *TaskObject, now kernel.Tick) {
	tracing := s.reg.TracingEnabled()
	r := s.reg.Ring()

	// (A) Deadline audit.
	missed := false
	s.reg.kernel.Critical(func() {
		deadlineAbs := t.CurrentRelease + t.Config.Deadline
		if now >= deadlineAbs && t.IsActive && !t.DeadlineMissed {
			t.DeadlineMissed = true
			t.DeadlineMisses++
			missed = true
		}
	})
	if missed && tracing {
		r.Append(t.Config.Name, ring.DeadlineMiss, now)
	}

	// (B) Release decision.
	var due bool
	s.reg.kernel.Critical(func() { due = now >= t.NextRelease })
	if !due {
		return
	}

	var wasActive bool
	s.reg.kernel.Critical(func() {
		wasActive = t.IsActive
		t.DeadlineMissed = false
	})

	if !wasActive {
		if tracing {
			r.Append(t.Config.Name, ring.Release, now)
		}
		s.reg.kernel.Critical(func() {
			t.CurrentRelease = t.NextRelease
			t.NextRelease += t.Config.Period
		})
		s.reg.kernel.NotifyGive(t.Handle)
		return
	}

	s.applyOverrun(ctx, t, now, tracing)
}

// applyOverrun dispatches the overrun case on the task's effective policy.
func (s *Supervisor) applyOverrun(ctx context.Context, t *TaskObject, now kernel.Tick, tracing bool) {
	r := s.reg.Ring()
	policy := s.reg.GetEffectivePolicy(t)

	switch policy {
	case Skip:
		s.reg.kernel.Critical(func() { t.OverrunSkips++ })
		if tracing {
			r.Append(t.Config.Name, ring.OverrunSkip, now)
		}
		s.reg.kernel.Critical(func() { t.NextRelease += t.Config.Period })

	case CatchUp:
		s.reg.kernel.Critical(func() {
			t.OverrunCatchUps++
			t.DeadlineMisses++
			t.DeadlineMissed = true
			t.IsActive = false
		})
		if tracing {
			r.Append(t.Config.Name, ring.OverrunCatchUp, now)
			r.Append(t.Config.Name, ring.Release, now)
		}
		s.reg.kernel.Critical(func() {
			t.CurrentRelease = t.NextRelease
			t.NextRelease += t.Config.Period
		})
		s.reg.kernel.NotifyGive(t.Handle)

	case Kill:
		s.reg.kernel.Critical(func() { t.OverrunKills++ })
		if tracing {
			r.Append(t.Config.Name, ring.OverrunKill, now)
			r.Append(t.Config.Name, ring.Release, now)
		}
		s.killProcedure(ctx, t)
		s.reg.kernel.Critical(func() {
			t.CurrentRelease = t.NextRelease
			t.NextRelease += t.Config.Period
		})
		s.reg.kernel.NotifyGive(t.Handle)

	default:
		// Reached when the global default is itself UseGlobal (or unknown):
		// the release is discarded without counting an overrun.
		s.reg.kernel.Critical(func() { t.NextRelease += t.Config.Period })
	}
}

// killProcedure deletes the running instance, resets state, and recreates
// the task from its stored config. Recreation failure is fatal: the
// guarantee that the task exists is foundational.
func (s *Supervisor) killProcedure(ctx context.Context, t *TaskObject) {
	oldHandle := t.Handle
	s.reg.kernel.DeleteTask(oldHandle)

	s.reg.kernel.Critical(func() {
		t.IsActive = false
		t.DeadlineMissed = false
	})

	newHandle, err := s.reg.kernel.CreateTask(t.Config.Name, t.Config.StackWords, t.Config.Priority, wrapperEntry(s.reg, t))
	if err != nil {
		s.fatal(ctx, errors.Wrapf(ErrKillRecreateFailed, "task %q: %v", t.Config.Name, err).Error())
		return
	}

	s.reg.kernel.Critical(func() {
		t.Handle = newHandle
	})
}
