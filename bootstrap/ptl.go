// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sk-pkg/logger"
	"go.uber.org/zap"

	"github.com/rtlabs/ptl/internal/config"
	"github.com/rtlabs/ptl/internal/jobs"
	"github.com/rtlabs/ptl/internal/ptl"
	"github.com/rtlabs/ptl/internal/ptl/burner"
	"github.com/rtlabs/ptl/internal/ptl/kernel"
	"github.com/rtlabs/ptl/internal/ptl/ring"
)

// parsePolicy maps a config string onto an ptl.OverrunPolicy, defaulting to
// Skip when the value is empty or unrecognized — the least surprising
// default for an operator who forgot to set it.
func parsePolicy(s string) ptl.OverrunPolicy {
	switch s {
	case "kill":
		return ptl.Kill
	case "catch_up":
		return ptl.CatchUp
	case "use_global":
		return ptl.UseGlobal
	default:
		return ptl.Skip
	}
}

// buildTaskConfigs resolves each config.TaskSpec into a ptl.TaskConfig by
// looking its Body key up in the registered jobs.Table. It calibrates the
// busy-wait utility once up front and hands every task body the same rate.
func buildTaskConfigs(specs []config.TaskSpec, log *logger.Manager) ([]ptl.TaskConfig, error) {
	rate := burner.Calibrate()

	out := make([]ptl.TaskConfig, 0, len(specs))

	for _, spec := range specs {
		body, ok := jobs.Table[spec.Body]
		if !ok {
			return nil, errors.Errorf("bootstrap: unknown job body %q for task %q", spec.Body, spec.Name)
		}

		out = append(out, ptl.TaskConfig{
			Name:       spec.Name,
			Period:     kernel.Tick(spec.PeriodTicks),
			Deadline:   kernel.Tick(spec.DeadlineTicks),
			Priority:   spec.Priority,
			StackWords: spec.StackWords,
			Body:       body,
			Arg: &jobs.Arg{
				Logger:     log,
				LoopsPerMs: rate,
				Work:       time.Duration(spec.WorkMs) * time.Millisecond,
			},
			Policy: parsePolicy(spec.OverrunPolicy),
		})
	}

	return out, nil
}

// startSupervisor starts the PTL supervisor and blocks until the process
// receives its shutdown signal.
func (a *App) startSupervisor(ctx context.Context) {
	fatal := ptl.DefaultFatalHook(a.Logger)
	sup := ptl.NewSupervisor(a.Registry, kernel.Tick(1), fatal)

	a.Logger.Info(ctx, "PTL supervisor starting")

	if err := a.Registry.Start(ctx, sup); err != nil {
		a.Logger.Fatal(ctx, "PTL supervisor startup err", zap.Error(err))
	}
}

// onTaskSwitch returns the kernel trace-point hook recording SWITCH_IN /
// SWITCH_OUT events for tasks as they block on and wake from their release
// notifications. The hook may fire from the kernel's own context, so it
// appends through the ring's ISR-safe path; the dump routine later filters
// the supervisor's own switch records out of the printed trace.
func (a *App) onTaskSwitch() func(name string, in bool, tick kernel.Tick) {
	return func(name string, in bool, tick kernel.Tick) {
		if a.Ring == nil || !a.Config.PTL.TracingEnabled {
			return
		}

		event := ring.SwitchOut
		if in {
			event = ring.SwitchIn
		}
		a.Ring.AppendISR(name, event, tick)
	}
}

// onStackOverflow returns the kernel trace-point hook invoked when a task
// goroutine panics (simkernel's analogue of an RTOS stack-overflow hook).
// It only logs: sk-pkg/monitor alerts through its Gin panic middleware,
// so fatal classes arising outside a request are surfaced through the
// structured logger instead.
func (a *App) onStackOverflow(ctx context.Context) func(name string) {
	return func(name string) {
		a.Logger.Error(ctx, fmt.Sprintf("[PTL] FATAL: stack overflow in task %q", name))
	}
}
