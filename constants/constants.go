// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: constants.go: Trace Sink Sizing & Contention Budgets
//
// Purpose:
//   - Defines sink capacities, slot geometry and spin budgets for emission.
//   - Shared by the emitting side and the capture/decoder side.
//
// Notes:
//   - Capacities are powers of two so slot selection is a mask, not a modulo.
//   - Spin budgets bound every retry loop on the emission path; nothing waits
//     longer than a budget before dropping.
//
// ⚠️ No runtime logic here; all values must be compile-time resolvable
// ─────────────────────────────────────────────────────────────────────────────

package constants

// ───────────────────────────── Sink Geometry ──────────────────────────────

const (
	// RingCapacity is the default local trace buffer size in frames.
	// 1024 slots × 24 bytes = 24 KiB, the size of a typical DSP trace window.
	RingCapacity = 1 << 10

	// MailboxCapacity is the default host-visible mailbox size in frames.
	// The mailbox window is small; only mirrored frames land here.
	MailboxCapacity = 1 << 8

	// MaxCapacity caps any sink. Keeps the slot index inside 24 bits.
	MaxCapacity = 1 << 24

	// HeaderWords is the number of u32 words preceding the first slot.
	HeaderWords = 8

	// SlotWords is the u32 width of one slot: state, ref, seq, param[3].
	SlotWords = 6

	// SinkMagic opens every sink region ("TRCF" little-endian).
	SinkMagic = 0x46435254

	// SinkVersion is stamped in the layout word next to SlotWords.
	SinkVersion = 1
)

// ─────────────────────────── Contention Budgets ────────────────────────────

const (
	// SlotSpinBudget bounds retries when a lapping writer holds the target slot.
	// Only reachable when more writers than slots are in flight at once.
	SlotSpinBudget = 64

	// MailboxSpinBudget bounds attempts on the cross-core mailbox lock before
	// the mailbox write is skipped. The ring write has already happened.
	MailboxSpinBudget = 128

	// ReadRetries bounds seqlock re-reads of one slot while snapshotting.
	ReadRetries = 8
)

// ───────────────────────────── Site Numbering ─────────────────────────────

const (
	// FirstSiteID is the first ID handed to generated call sites. IDs below it
	// are reserved for built-in sites shipped with the trace package.
	FirstSiteID = 16
)

// ───────────────────────────── Boot Recorder ──────────────────────────────

const (
	// BootBufferSize is the early checkpoint buffer, usable before any sink.
	BootBufferSize = 16
)
