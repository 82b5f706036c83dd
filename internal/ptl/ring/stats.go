// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package ring

import "github.com/rtlabs/ptl/internal/ptl/kernel"

// Stats is the output of the statistics reducer.
type Stats struct {
	TotalReleases     int
	TotalCompletions  int
	TotalDeadlineMiss int
	TotalOverruns     int
	TotalRuntime      kernel.Tick // timestamp of the last record
	IdleTime          kernel.Tick
	CPUUtilization    float64 // (TotalRuntime - IdleTime) / TotalRuntime, in [0, 1]
}

// Reduce walks a frozen snapshot once and computes Stats. It is a pure
// function: repeated calls over the same snapshot produce identical output.
func Reduce(records []Record, idleTime kernel.Tick) Stats {
	var s Stats
	s.IdleTime = idleTime

	for _, rec := range records {
		switch rec.Event {
		case Release:
			s.TotalReleases++
		case Complete:
			s.TotalCompletions++
		case DeadlineMiss:
			s.TotalDeadlineMiss++
		case OverrunSkip, OverrunKill, OverrunCatchUp:
			s.TotalOverruns++
		}
		if rec.Timestamp > s.TotalRuntime {
			s.TotalRuntime = rec.Timestamp
		}
	}

	if s.TotalRuntime > 0 {
		busy := s.TotalRuntime - s.IdleTime
		s.CPUUtilization = float64(busy) / float64(s.TotalRuntime)
	}

	return s
}
