// control.go: Trace subsystem lifecycle and poller coordination flags
// ============================================================================
// LIFECYCLE ORCHESTRATION
// ============================================================================
//
// Control tracks where the trace subsystem is in its lifecycle and carries
// the stop/hot flags that pinned capture pollers watch.
//
// Lifecycle:
//   UNINITIALIZED ──Activate──▶ ACTIVE ──Shutdown──▶ OFF
//                                  ▲                  │
//                                  └────Reactivate────┘  (only when allowed)
//
// Threading model:
//   • Transitions are single CAS operations; losers observe the winner's state
//   • Emitters read the state with one atomic load per frame
//   • Poller flags are plain words exposed by pointer, as pollers spin on them

package control

import (
	"errors"
	"sync/atomic"
	"time"
)

// ============================================================================
// LIFECYCLE STATE
// ============================================================================

// State is the trace subsystem lifecycle position.
type State uint32

const (
	StateUninitialized State = iota
	StateActive
	StateOff
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateActive:
		return "ACTIVE"
	case StateOff:
		return "OFF"
	}
	return "UNKNOWN"
}

var (
	ErrAlreadyActive = errors.New("control: trace already initialized")
	ErrNotOff        = errors.New("control: trace is not off")
	ErrNoReinit      = errors.New("control: reinitialization not permitted")
)

// Lifecycle is the state machine owned by one tracer. The zero value is
// UNINITIALIZED.
type Lifecycle struct {
	state       atomic.Uint32
	allowReinit bool
}

// NewLifecycle returns an UNINITIALIZED lifecycle. allowReinit permits the
// OFF → ACTIVE transition.
func NewLifecycle(allowReinit bool) *Lifecycle {
	return &Lifecycle{allowReinit: allowReinit}
}

// State returns the current position.
//
//go:nosplit
//go:inline
func (l *Lifecycle) State() State { return State(l.state.Load()) }

// Active reports whether emission is currently permitted.
//
//go:nosplit
//go:inline
func (l *Lifecycle) Active() bool { return l.state.Load() == uint32(StateActive) }

// Activate performs UNINITIALIZED → ACTIVE.
func (l *Lifecycle) Activate() error {
	if l.state.CompareAndSwap(uint32(StateUninitialized), uint32(StateActive)) {
		return nil
	}
	return ErrAlreadyActive
}

// Shutdown moves any state to OFF and reports whether the call changed it.
// Calling it again is harmless.
func (l *Lifecycle) Shutdown() bool {
	return l.state.Swap(uint32(StateOff)) != uint32(StateOff)
}

// Reactivate performs OFF → ACTIVE when the lifecycle allows it.
func (l *Lifecycle) Reactivate() error {
	if !l.allowReinit {
		return ErrNoReinit
	}
	if l.state.CompareAndSwap(uint32(StateOff), uint32(StateActive)) {
		return nil
	}
	return ErrNotOff
}

// ============================================================================
// POLLER COORDINATION FLAGS
// ============================================================================

var (
	hot  uint32 // 1 while a capture source reported fresh data
	stop uint32 // 1 once pollers should exit

	lastHot    int64
	cooldownNs = int64(1 * time.Second)
)

// SignalActivity marks the capture source as active. Called by watchers when
// the backing file or mailbox changes.
//
//go:norace
//go:nosplit
func SignalActivity() {
	atomic.StoreUint32(&hot, 1)
	atomic.StoreInt64(&lastHot, time.Now().UnixNano())
}

// PollCooldown clears the hot flag after a second without activity.
//
//go:norace
//go:nosplit
func PollCooldown() {
	if atomic.LoadUint32(&hot) == 1 && time.Now().UnixNano()-atomic.LoadInt64(&lastHot) > cooldownNs {
		atomic.StoreUint32(&hot, 0)
	}
}

// Stop asks every poller to exit.
//
//go:norace
//go:nosplit
func Stop() { atomic.StoreUint32(&stop, 1) }

// Reset clears both poller flags so a new poll session can start.
func Reset() {
	atomic.StoreUint32(&stop, 0)
	atomic.StoreUint32(&hot, 0)
	atomic.StoreInt64(&lastHot, 0)
}

// Flags returns the stop and hot words for pollers that spin on them.
//
//go:norace
//go:nosplit
//go:inline
func Flags() (*uint32, *uint32) {
	return &stop, &hot
}
