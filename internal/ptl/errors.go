// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package ptl

import "github.com/pkg/errors"

// Init-time configuration errors. Init returns one of these (ErrTaskCreateFailed
// wrapped with the task name), or an unnamed error for a task whose priority
// is not below the supervisor's; they surface once, to the caller, as a plain
// error.
var (
	ErrAlreadyInitialized = errors.New("ptl: registry already initialized")
	ErrNilGlobalConfig    = errors.New("ptl: global config is nil")
	ErrNoTasks            = errors.New("ptl: task count must be > 0")
	ErrTooManyTasks       = errors.New("ptl: task count exceeds the declared or compile-time cap")
	ErrNilTaskBody        = errors.New("ptl: task body must not be nil")
	ErrInvalidPeriod      = errors.New("ptl: task period must be > 0")
	ErrInvalidDeadline    = errors.New("ptl: task deadline must satisfy 0 < D <= T after normalization")
	ErrTaskCreateFailed   = errors.New("ptl: kernel task creation failed")
)

// ErrKillRecreateFailed is the fatal error raised when the kill procedure
// cannot recreate a task. It reaches the FatalHook as the wrapped reason;
// the default hook then halts the supervisor, and with it the supervision
// of every task. It is never returned to a caller.
var ErrKillRecreateFailed = errors.New("ptl: kill-recreate failed")
