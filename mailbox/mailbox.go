// ════════════════════════════════════════════════════════════════════════════════════════════════
// Shared Mailbox Sink
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Host-visible frame window
//
// Description:
//   A drop-oldest ring whose region is visible to the host (a shared mapping or a
//   platform mailbox window). Several cores may mirror frames into it, so writes are
//   serialised by a spinlock word living in the region header itself.
//
// Arbitration:
//   - Try-lock only: CAS 0→1 on the header lock word, at most MailboxSpinBudget
//     attempts with a CPU relax hint between them
//   - On failure the mailbox write is skipped and counted; the caller's ring write
//     has already happened and is never undone
//   - The lock is released with a plain atomic store of 0
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package mailbox

import (
	"errors"
	"sync/atomic"

	"firmtrace/constants"
	"firmtrace/ring"
	"firmtrace/types"
)

// ErrUnsupported is returned by Map on targets without shared mappings.
var ErrUnsupported = errors.New("mailbox: shared mapping not supported on this target")

// Mailbox is a ring region plus its cross-core try-lock.
type Mailbox struct {
	ring  *ring.Ring
	lock  *uint32
	spin  int
	unmap func() error
}

// defaultCapacity maps a zero capacity to constants.MailboxCapacity.
func defaultCapacity(capacity int) int {
	if capacity == 0 {
		return constants.MailboxCapacity
	}
	return capacity
}

// New allocates a heap-backed mailbox. Zero capacity takes the default.
func New(capacity int) (*Mailbox, error) {
	r, err := ring.New(defaultCapacity(capacity))
	if err != nil {
		return nil, err
	}
	return wrap(r, nil), nil
}

// Attach formats caller-provided memory (a platform mailbox window) as a mailbox.
func Attach(words []uint32, capacity int) (*Mailbox, error) {
	r, err := ring.Attach(words, capacity)
	if err != nil {
		return nil, err
	}
	return wrap(r, nil), nil
}

func wrap(r *ring.Ring, unmap func() error) *Mailbox {
	return &Mailbox{
		ring:  r,
		lock:  r.LockWord(),
		spin:  constants.MailboxSpinBudget,
		unmap: unmap,
	}
}

// SetSpinBudget overrides the number of lock attempts before skipping.
// Values below 1 mean a single attempt.
func (m *Mailbox) SetSpinBudget(n int) {
	if n < 1 {
		n = 1
	}
	m.spin = n
}

// Ring exposes the underlying region for snapshots and export.
func (m *Mailbox) Ring() *ring.Ring { return m.ring }

// Skipped returns frames not mirrored because the lock was contended, plus
// any slot-level drops.
func (m *Mailbox) Skipped() uint32 { return m.ring.Dropped() }

// TryLock attempts the header lock within the spin budget.
func (m *Mailbox) TryLock() bool {
	for i := 0; i < m.spin; i++ {
		if atomic.CompareAndSwapUint32(m.lock, 0, 1) {
			return true
		}
		ring.Relax()
	}
	return false
}

// Unlock releases the header lock.
func (m *Mailbox) Unlock() { atomic.StoreUint32(m.lock, 0) }

// TryAppend mirrors one frame. It returns false, after counting the skip,
// if the lock could not be taken within the spin budget.
func (m *Mailbox) TryAppend(ref, seq, p0, p1, p2 uint32) bool {
	if !m.TryLock() {
		m.ring.CountDrop()
		return false
	}
	ok := m.ring.Append(ref, seq, p0, p1, p2)
	m.Unlock()
	return ok
}

// Snapshot returns the committed frames in sequence order.
func (m *Mailbox) Snapshot() []types.Frame { return m.ring.Snapshot() }

// Close releases a shared mapping. Heap-backed mailboxes have nothing to release.
func (m *Mailbox) Close() error {
	if m.unmap == nil {
		return nil
	}
	err := m.unmap()
	m.unmap = nil
	return err
}
