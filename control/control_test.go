// ════════════════════════════════════════════════════════════════════════════════════════════════
// 🧪 TEST SUITE: TRACE LIFECYCLE & POLLER FLAGS
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Control
//
// Test Coverage:
//   - Lifecycle transitions, including refused ones
//   - Racing activations: exactly one winner
//   - Poller flags: pointer stability, activity, cooldown, stop/reset
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package control

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ============================================================================
// HELPERS
// ============================================================================

func resetFlags() {
	Reset()
	cooldownNs = int64(1 * time.Second)
}

// ============================================================================
// LIFECYCLE TRANSITIONS
// ============================================================================

func TestLifecycle_ZeroValueUninitialized(t *testing.T) {
	var l Lifecycle
	if l.State() != StateUninitialized || l.Active() {
		t.Fatalf("state = %v", l.State())
	}
}

func TestLifecycle_ActivateShutdown(t *testing.T) {
	l := NewLifecycle(false)
	if err := l.Activate(); err != nil {
		t.Fatal(err)
	}
	if !l.Active() {
		t.Fatal("not active after Activate")
	}
	if err := l.Activate(); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("second Activate: %v", err)
	}
	if !l.Shutdown() {
		t.Fatal("Shutdown reported no change")
	}
	if l.Shutdown() {
		t.Fatal("repeated Shutdown reported a change")
	}
	if l.State() != StateOff || l.Active() {
		t.Fatalf("state = %v", l.State())
	}
}

func TestLifecycle_Reactivate(t *testing.T) {
	tests := []struct {
		name  string
		allow bool
		setup func(*Lifecycle)
		want  error
	}{
		{"refused by policy", false, func(l *Lifecycle) { l.Activate(); l.Shutdown() }, ErrNoReinit},
		{"allowed from off", true, func(l *Lifecycle) { l.Activate(); l.Shutdown() }, nil},
		{"not off yet", true, func(l *Lifecycle) { l.Activate() }, ErrNotOff},
		{"never initialized", true, func(*Lifecycle) {}, ErrNotOff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle(tt.allow)
			tt.setup(l)
			err := l.Reactivate()
			if !errors.Is(err, tt.want) && !(err == nil && tt.want == nil) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if tt.want == nil && !l.Active() {
				t.Fatal("not active after Reactivate")
			}
		})
	}
}

func TestLifecycle_ConcurrentActivate(t *testing.T) {
	const racers = 32
	l := NewLifecycle(false)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Activate() == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("%d activations succeeded", wins.Load())
	}
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{
		StateUninitialized: "UNINITIALIZED",
		StateActive:        "ACTIVE",
		StateOff:           "OFF",
		State(9):           "UNKNOWN",
	} {
		if s.String() != want {
			t.Errorf("%d.String() = %q", s, s.String())
		}
	}
}

// ============================================================================
// POLLER FLAGS
// ============================================================================

func TestFlags_PointerStability(t *testing.T) {
	resetFlags()
	s1, h1 := Flags()
	s2, h2 := Flags()
	if s1 != s2 || h1 != h2 {
		t.Fatal("flag pointers moved")
	}
	if s1 != &stop || h1 != &hot {
		t.Fatal("flag pointers do not reference the globals")
	}
}

func TestFlags_ActivityAndCooldown(t *testing.T) {
	resetFlags()
	_, hotp := Flags()

	SignalActivity()
	if atomic.LoadUint32(hotp) != 1 {
		t.Fatal("SignalActivity did not set hot")
	}
	PollCooldown()
	if atomic.LoadUint32(hotp) != 1 {
		t.Fatal("hot cleared inside the cooldown window")
	}

	cooldownNs = 0
	atomic.StoreInt64(&lastHot, time.Now().Add(-time.Millisecond).UnixNano())
	PollCooldown()
	if atomic.LoadUint32(hotp) != 0 {
		t.Fatal("hot not cleared after cooldown")
	}
	resetFlags()
}

func TestFlags_StopReset(t *testing.T) {
	resetFlags()
	stopp, _ := Flags()
	Stop()
	if atomic.LoadUint32(stopp) != 1 {
		t.Fatal("Stop did not set the flag")
	}
	Reset()
	if atomic.LoadUint32(stopp) != 0 {
		t.Fatal("Reset did not clear the flag")
	}
}

// ============================================================================
// BENCHMARKS
// ============================================================================

func BenchmarkLifecycle_Active(b *testing.B) {
	l := NewLifecycle(false)
	l.Activate()
	var n int
	for i := 0; i < b.N; i++ {
		if l.Active() {
			n++
		}
	}
	_ = n
}

func BenchmarkPollCooldown(b *testing.B) {
	resetFlags()
	SignalActivity()
	for i := 0; i < b.N; i++ {
		PollCooldown()
	}
}
