// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package ptl implements the Periodic Task Layer: a hard-real-time
// supervisor that releases, audits, and recreates a static set of
// periodic jobs on top of a Kernel collaborator.
package ptl

// OverrunPolicy selects how the supervisor reacts when a release instant
// arrives while the previous instance of the same task is still running.
type OverrunPolicy int

const (
	// UseGlobal defers to GlobalConfig.DefaultPolicy.
	UseGlobal OverrunPolicy = iota
	// Skip discards the new release; the running instance keeps going.
	Skip
	// Kill forcibly terminates the running instance and starts fresh.
	Kill
	// CatchUp declares the running instance lost and starts fresh.
	CatchUp
)

// String returns the human-readable policy name used in logs and the trace
// dump.
func (p OverrunPolicy) String() string {
	switch p {
	case Skip:
		return "SKIP"
	case Kill:
		return "KILL"
	case CatchUp:
		return "CATCH_UP"
	case UseGlobal:
		return "USE_GLOBAL"
	default:
		return "UNKNOWN"
	}
}
