// ════════════════════════════════════════════════════════════════════════════════════════════════
// ⚡ CORE-PINNED MAILBOX POLLER
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Live host-side reader
//
// Description:
//   Goroutine bound to one CPU core that watches a mapped mailbox and hands every
//   newly committed frame to a handler, in sequence order. Frames overwritten
//   before the poller saw them simply never arrive; the decoder reports the gap.
//
// Adaptive Behavior:
//   - Hot mode: continuous polling while frames arrive or a watcher signals activity
//   - Cool mode: CPU relaxation after spinBudget idle polls
//   - Settle: delivery held while a claimed slot has not committed yet
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package capture

import (
	"runtime"
	"sync/atomic"
	"time"

	"firmtrace/control"
	"firmtrace/mailbox"
	"firmtrace/ring"
	"firmtrace/types"
)

const (
	// hotWindow keeps the poller spinning after the last new frame.
	hotWindow = 5 * time.Second

	// spinBudget is the number of idle polls between relax hints.
	spinBudget = 224

	// idleSleep is the pause once the poller has cooled down.
	idleSleep = time.Millisecond

	// settleTimeout bounds how long delivery is held for a claimed slot that
	// has not committed. Past it the frames already committed are delivered
	// and the late one follows whenever it appears.
	settleTimeout = 50 * time.Millisecond
)

// Poll starts a poller pinned to core. It returns immediately; done is
// closed once the poller has observed a non-zero *stop and exited. Frames
// already in the mailbox when Poll starts are not delivered. While a claimed
// slot is still being written, delivery is held so frames reach handler in
// sequence order.
func Poll(
	core int,
	m *mailbox.Mailbox,
	stop *uint32,
	hot *uint32,
	handler func(types.Frame),
	done chan<- struct{},
) {
	r := m.Ring()
	cursor := r.Cursor()
	seen := make(map[uint32]struct{}, r.Capacity())
	for _, f := range r.Snapshot() {
		seen[f.Seq] = struct{}{}
	}

	go func() {
		runtime.LockOSThread()
		setAffinity(core)

		defer func() {
			runtime.UnlockOSThread()
			close(done)
		}()

		var (
			holding   bool
			holdStart time.Time
			miss      int
		)
		fresh := make(map[uint32]struct{}, r.Capacity())
		lastHit := time.Now()
		for {
			if atomic.LoadUint32(stop) != 0 {
				return
			}

			if c := r.Cursor(); c != cursor || holding {
				cursor = c
				if r.Pending(cursor) > 0 {
					if !holding {
						holding, holdStart = true, time.Now()
					}
					if time.Since(holdStart) < settleTimeout {
						ring.Relax()
						continue
					}
				}
				holding = false

				// Snapshot is in sequence order. Anything in it not delivered
				// on an earlier pass is new, including a late commit.
				clear(fresh)
				for _, f := range r.Snapshot() {
					fresh[f.Seq] = struct{}{}
					if _, ok := seen[f.Seq]; !ok {
						handler(f)
					}
				}
				seen, fresh = fresh, seen
				miss = 0
				lastHit = time.Now()
				continue
			}

			if atomic.LoadUint32(hot) == 1 || time.Since(lastHit) <= hotWindow {
				if miss++; miss >= spinBudget {
					miss = 0
					ring.Relax()
				}
				continue
			}
			control.PollCooldown()
			time.Sleep(idleSleep)
		}
	}()
}
