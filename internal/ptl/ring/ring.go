// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package ring implements the Trace Ring: a fixed-capacity, ISR-safe
// circular event log and the statistics reducer that walks it.
package ring

import (
	"strings"
	"sync"

	"github.com/rtlabs/ptl/internal/ptl/kernel"
)

// EventType is the closed set of trace events the PTL core can emit. The
// human-readable names are an implementation detail of the dump routine.
type EventType int

const (
	Release EventType = iota
	Start
	Complete
	DeadlineMiss
	OverrunSkip
	OverrunKill
	OverrunCatchUp
	SwitchIn
	SwitchOut
	IdleStart
	IdleEnd
)

var eventNames = [...]string{
	"RELEASE",
	"START",
	"COMPLETE",
	"DEADLINE_MISS",
	"OVERRUN_SKIP",
	"OVERRUN_KILL",
	"OVERRUN_CATCHUP",
	"SWITCH_IN",
	"SWITCH_OUT",
	"IDLE_START",
	"IDLE_END",
}

// String returns the dump-format event name.
func (e EventType) String() string {
	if int(e) < 0 || int(e) >= len(eventNames) {
		return "UNKNOWN"
	}
	return eventNames[e]
}

// Record is one trace entry. Name is empty for system events (rendered as
// "SYS" in the dump, or "IDLE" for the two idle events).
type Record struct {
	Name      string
	Event     EventType
	Timestamp kernel.Tick
}

// DefaultCapacity is the reference ring size.
const DefaultCapacity = 1024

// supervisorNamePrefix identifies the supervisor's own SWITCH_IN/SWITCH_OUT
// records so the dump's output filter can suppress them.
const supervisorNamePrefix = "SYS:"

// Ring is a fixed-capacity circular event log. Append never blocks and
// never allocates after construction; on overflow it overwrites the oldest
// record. It also tracks idle-time accounting through the IdleEnter /
// IdleExit hooks.
type Ring struct {
	isrGuard func(func())

	mu           sync.Mutex
	buf          []Record
	writeIndex   int
	wrapped      bool
	idleAccum    kernel.Tick
	lastIdleTick kernel.Tick
	idleOpen     bool
}

// Option configures a Ring at construction.
type Option func(*Ring)

// WithISRGuard installs the kernel's ISR-safe critical-section primitive.
// AppendISR masks preemption through it around appends arriving from
// kernel trace points.
func WithISRGuard(guard func(func())) Option {
	return func(r *Ring) { r.isrGuard = guard }
}

// New creates a Ring with the given capacity. A capacity <= 0 falls back to
// DefaultCapacity.
func New(capacity int, opts ...Option) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	r := &Ring{buf: make([]Record, capacity)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Append writes a record at the current write index, advances the index
// modulo capacity, and sets the wrapped flag on first wrap. Append takes
// only the ring's own mutex; callers running from a trace point should use
// AppendISR, which additionally goes through the installed ISR guard.
func (r *Ring) Append(name string, event EventType, ts kernel.Tick) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendLocked(name, event, ts)
}

// AppendISR is the ISR-safe variant called from kernel trace points. When
// an ISR guard is installed it masks preemption around the append; the
// ring's own mutex still serializes the record write against Snapshot and
// non-ISR appends. Without a guard it degrades to Append.
func (r *Ring) AppendISR(name string, event EventType, ts kernel.Tick) {
	if r.isrGuard == nil {
		r.Append(name, event, ts)
		return
	}
	r.isrGuard(func() { r.Append(name, event, ts) })
}

func (r *Ring) appendLocked(name string, event EventType, ts kernel.Tick) {
	r.buf[r.writeIndex] = Record{Name: name, Event: event, Timestamp: ts}
	r.writeIndex++
	if r.writeIndex == len(r.buf) {
		r.writeIndex = 0
		r.wrapped = true
	}
}

// Snapshot returns an oldest-to-newest copy of the currently retained
// records under the ring's critical section.
func (r *Ring) Snapshot() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.wrapped {
		out := make([]Record, r.writeIndex)
		copy(out, r.buf[:r.writeIndex])
		return out
	}

	out := make([]Record, len(r.buf))
	n := copy(out, r.buf[r.writeIndex:])
	copy(out[n:], r.buf[:r.writeIndex])
	return out
}

// IdleEnter marks the start of an idle interval at tick t and emits
// IDLE_START.
func (r *Ring) IdleEnter(t kernel.Tick) {
	r.mu.Lock()
	r.lastIdleTick = t
	r.idleOpen = true
	r.appendLocked("", IdleStart, t)
	r.mu.Unlock()
}

// IdleExit closes the current idle interval at tick t, adding
// max(0, t-lastIdleEnter) to the idle accumulator, and emits IDLE_END.
func (r *Ring) IdleExit(t kernel.Tick) {
	r.mu.Lock()
	if r.idleOpen && t > r.lastIdleTick {
		r.idleAccum += t - r.lastIdleTick
	}
	r.idleOpen = false
	r.appendLocked("", IdleEnd, t)
	r.mu.Unlock()
}

// IdleTime returns the accumulated idle time in ticks.
func (r *Ring) IdleTime() kernel.Tick {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idleAccum
}

// isSupervisorSwitch reports whether a record is a SWITCH_IN/SWITCH_OUT
// event for the supervisor task itself, identified by name prefix.
func isSupervisorSwitch(rec Record) bool {
	if rec.Event != SwitchIn && rec.Event != SwitchOut {
		return false
	}
	return strings.HasPrefix(rec.Name, supervisorNamePrefix)
}
