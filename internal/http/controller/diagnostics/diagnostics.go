// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package diagnostics exposes a read-only HTTP view over the running
// supervisor: the trace dump, reduced statistics, and the task table.
package diagnostics

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sk-pkg/i18n"

	"github.com/rtlabs/ptl/internal/pkg/e"
	"github.com/rtlabs/ptl/internal/ptl"
	"github.com/rtlabs/ptl/internal/ptl/kernel"
	"github.com/rtlabs/ptl/internal/ptl/ring"
)

// taskInfo is the JSON-safe view of one registered task: its normalized
// configuration joined with a snapshot of its live counters. TaskConfig
// itself carries the job's entry function and opaque argument, which have
// no JSON representation.
type taskInfo struct {
	Name            string      `json:"name"`
	Period          kernel.Tick `json:"period_ticks"`
	Deadline        kernel.Tick `json:"deadline_ticks"`
	Priority        int         `json:"priority"`
	StackWords      int         `json:"stack_words"`
	Policy          string      `json:"policy"`
	IsActive        bool        `json:"is_active"`
	JobsCompleted   uint64      `json:"jobs_completed"`
	DeadlineMisses  uint64      `json:"deadline_misses"`
	OverrunSkips    uint64      `json:"overrun_skips"`
	OverrunKills    uint64      `json:"overrun_kills"`
	OverrunCatchUps uint64      `json:"overrun_catch_ups"`
}

// Controller serves the diagnostics endpoints.
type Controller struct {
	reg  *ptl.Registry
	i18n *i18n.Manager
}

// New creates a Controller bound to the running Registry.
func New(reg *ptl.Registry, i18n *i18n.Manager) *Controller {
	return &Controller{reg: reg, i18n: i18n}
}

// Trace dumps the current trace ring in its "===== PTL TRACE ====="
// text form.
func (ctrl *Controller) Trace(c *gin.Context) {
	records := ctrl.reg.Ring().Snapshot()
	c.String(http.StatusOK, ring.Dump(records))
}

// Stats returns the statistics reducer's output as the formatted
// statistics block, including the overhead pass/fail verdict.
func (ctrl *Controller) Stats(c *gin.Context) {
	records := ctrl.reg.Ring().Snapshot()
	stats := ring.Reduce(records, ctrl.reg.Ring().IdleTime())
	c.String(http.StatusOK, ring.FormatStats(stats))
}

// Tasks lists every registered task's normalized configuration together
// with its counters, in registration order.
func (ctrl *Controller) Tasks(c *gin.Context) {
	configs := ctrl.reg.GetTaskList()
	stats := ctrl.reg.AllTaskStats()

	out := make([]taskInfo, 0, len(configs))
	for i, cfg := range configs {
		info := taskInfo{
			Name:       cfg.Name,
			Period:     cfg.Period,
			Deadline:   cfg.Deadline,
			Priority:   cfg.Priority,
			StackWords: cfg.StackWords,
			Policy:     cfg.Policy.String(),
		}
		if i < len(stats) {
			info.IsActive = stats[i].IsActive
			info.JobsCompleted = stats[i].JobsCompleted
			info.DeadlineMisses = stats[i].DeadlineMisses
			info.OverrunSkips = stats[i].OverrunSkips
			info.OverrunKills = stats[i].OverrunKills
			info.OverrunCatchUps = stats[i].OverrunCatchUps
		}
		out = append(out, info)
	}

	ctrl.i18n.JSON(c, e.SUCCESS, out, nil)
}

// TaskByName returns one task's counters snapshot.
func (ctrl *Controller) TaskByName(c *gin.Context) {
	name := c.Param("name")

	stats, ok := ctrl.reg.GetTaskStats(name)
	if !ok {
		ctrl.i18n.JSON(c, e.TaskNotFound, nil, nil)
		return
	}

	ctrl.i18n.JSON(c, e.SUCCESS, stats, nil)
}
