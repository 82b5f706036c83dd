// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package ring

import "testing"

// TestReduce validates the statistics reducer against a small synthetic
// trace covering every counted event class.
func TestReduce(t *testing.T) {
	records := []Record{
		{Name: "a", Event: Release, Timestamp: 0},
		{Name: "a", Event: Start, Timestamp: 0},
		{Name: "a", Event: Complete, Timestamp: 2},
		{Name: "b", Event: Release, Timestamp: 10},
		{Name: "b", Event: DeadlineMiss, Timestamp: 20},
		{Name: "b", Event: OverrunSkip, Timestamp: 20},
		{Name: "c", Event: OverrunKill, Timestamp: 30},
	}

	got := Reduce(records, 5)

	if got.TotalReleases != 2 {
		t.Errorf("TotalReleases = %d, want 2", got.TotalReleases)
	}
	if got.TotalCompletions != 1 {
		t.Errorf("TotalCompletions = %d, want 1", got.TotalCompletions)
	}
	if got.TotalDeadlineMiss != 1 {
		t.Errorf("TotalDeadlineMiss = %d, want 1", got.TotalDeadlineMiss)
	}
	if got.TotalOverruns != 2 {
		t.Errorf("TotalOverruns = %d, want 2", got.TotalOverruns)
	}
	if got.TotalRuntime != 30 {
		t.Errorf("TotalRuntime = %d, want 30", got.TotalRuntime)
	}
	if got.IdleTime != 5 {
		t.Errorf("IdleTime = %d, want 5", got.IdleTime)
	}

	wantUtil := float64(30-5) / float64(30)
	if got.CPUUtilization != wantUtil {
		t.Errorf("CPUUtilization = %f, want %f", got.CPUUtilization, wantUtil)
	}
}

// TestReduce_Pure validates that the reducer is a pure function over a
// frozen snapshot: two successive calls produce identical outputs.
func TestReduce_Pure(t *testing.T) {
	records := []Record{
		{Name: "a", Event: Release, Timestamp: 0},
		{Name: "a", Event: Complete, Timestamp: 8},
		{Name: "a", Event: OverrunCatchUp, Timestamp: 10},
	}

	first := Reduce(records, 2)
	second := Reduce(records, 2)
	if first != second {
		t.Fatalf("Reduce not pure: first=%+v second=%+v", first, second)
	}
}

// TestReduce_EmptyTrace validates the zero-runtime edge case does not
// divide by zero.
func TestReduce_EmptyTrace(t *testing.T) {
	got := Reduce(nil, 0)
	if got.CPUUtilization != 0 {
		t.Errorf("CPUUtilization = %f, want 0", got.CPUUtilization)
	}
}

// TestFormatStats_Verdict validates the PASS/FAIL/N-A overhead verdict
// boundaries.
func TestFormatStats_Verdict(t *testing.T) {
	tests := []struct {
		name string
		s    Stats
		want string
	}{
		{"below utilization floor", Stats{CPUUtilization: 0.2}, "N/A"},
		{"passes at boundary", Stats{CPUUtilization: 0.9}, "PASS"},
		{"fails above threshold", Stats{CPUUtilization: 0.5}, "FAIL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FormatStats(tt.s)
			if !contains(out, tt.want) {
				t.Fatalf("FormatStats() = %q, want substring %q", out, tt.want)
			}
		})
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
