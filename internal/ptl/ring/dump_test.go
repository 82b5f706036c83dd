// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package ring

import (
	"strings"
	"testing"
)

// TestDump_Grammar validates the trace dump's line grammar, the SYS/IDLE
// name resolution, and the supervisor switch-record suppression.
func TestDump_Grammar(t *testing.T) {
	records := []Record{
		{Name: "SYS:Supervisor", Event: SwitchIn, Timestamp: 1},
		{Name: "worker", Event: Release, Timestamp: 2},
		{Name: "worker", Event: Start, Timestamp: 2},
		{Name: "", Event: IdleStart, Timestamp: 5},
		{Name: "", Event: IdleEnd, Timestamp: 9},
		{Name: "SYS:Supervisor", Event: SwitchOut, Timestamp: 10},
	}

	out := Dump(records)

	if !strings.HasPrefix(out, "===== PTL TRACE =====\n") {
		t.Fatalf("missing header: %q", out)
	}
	if !strings.HasSuffix(out, "======================================\n") {
		t.Fatalf("missing footer: %q", out)
	}

	wantLines := []string{
		"[   2] worker RELEASE",
		"[   2] worker START",
		"[   5] IDLE IDLE_START",
		"[   9] IDLE IDLE_END",
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing line %q in:\n%s", want, out)
		}
	}

	if strings.Contains(out, "SWITCH_IN") || strings.Contains(out, "SWITCH_OUT") {
		t.Errorf("supervisor switch records not suppressed:\n%s", out)
	}
}

// TestDump_NonSupervisorSwitchRetained validates that the filter only cuts
// the supervisor's own switch noise, not other tasks' switch records.
func TestDump_NonSupervisorSwitchRetained(t *testing.T) {
	out := Dump([]Record{{Name: "worker", Event: SwitchIn, Timestamp: 3}})
	if !strings.Contains(out, "[   3] worker SWITCH_IN") {
		t.Fatalf("worker switch record missing:\n%s", out)
	}
}

// TestDump_SystemEventName validates the "SYS" fallback for nameless
// non-idle records.
func TestDump_SystemEventName(t *testing.T) {
	out := Dump([]Record{{Name: "", Event: Release, Timestamp: 7}})
	if !strings.Contains(out, "[   7] SYS RELEASE") {
		t.Fatalf("SYS fallback missing:\n%s", out)
	}
}
