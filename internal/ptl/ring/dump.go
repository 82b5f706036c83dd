// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package ring

import (
	"fmt"
	"strings"

	"github.com/sk-pkg/util"
)

// overheadPassThreshold is the pass/fail bound on supervision overhead:
// overhead (1 - utilization) must be <= 10.00% for the verdict to read
// PASS, and the verdict is only meaningful once utilization >= 50%.
const overheadPassThreshold = 10.00

// Dump renders records in oldest-to-newest order as
//
//	===== PTL TRACE =====
//	[<ticks>] <name> <event>
//	...
//	======================================
//
// SWITCH_IN/SWITCH_OUT records belonging to the supervisor itself are
// suppressed to cut its self-noise from the printed trace.
func Dump(records []Record) string {
	var b strings.Builder
	b.WriteString("===== PTL TRACE =====\n")

	for _, rec := range records {
		if isSupervisorSwitch(rec) {
			continue
		}
		b.WriteString(fmt.Sprintf("[%4d] %s %s\n", rec.Timestamp, displayName(rec), rec.Event))
	}

	b.WriteString("======================================\n")
	return b.String()
}

// displayName resolves the printed task-name column: the task's name, "SYS"
// for nameless system events, and "IDLE" for the idle bracket.
func displayName(rec Record) string {
	if rec.Event == IdleStart || rec.Event == IdleEnd {
		return "IDLE"
	}
	if rec.Name == "" {
		return "SYS"
	}
	return rec.Name
}

// FormatStats renders a statistics block matching the dump's overhead
// pass/fail verdict.
func FormatStats(s Stats) string {
	utilPct := s.CPUUtilization * 100
	overhead := 100 - utilPct

	verdict := "N/A"
	if s.CPUUtilization >= 0.5 {
		if overhead <= overheadPassThreshold {
			verdict = "PASS"
		} else {
			verdict = "FAIL"
		}
	}

	return util.SpliceStr(
		"===== PTL STATISTICS =====\n",
		fmt.Sprintf("Releases:      %d\n", s.TotalReleases),
		fmt.Sprintf("Completions:   %d\n", s.TotalCompletions),
		fmt.Sprintf("DeadlineMisses: %d\n", s.TotalDeadlineMiss),
		fmt.Sprintf("Overruns:      %d\n", s.TotalOverruns),
		fmt.Sprintf("IdleTime:      %d ticks\n", s.IdleTime),
		fmt.Sprintf("TotalRuntime:  %d ticks\n", s.TotalRuntime),
		fmt.Sprintf("CPU Utilization: %05.2f%%\n", utilPct),
		fmt.Sprintf("Overhead:      %05.2f%% (%s)\n", overhead, verdict),
		"======================================\n",
	)
}
