// ============================================================================
// DROP-OLDEST TRACE RING
// ============================================================================
//
// Fixed-capacity frame ring laid out over a raw u32 word region so the same
// bytes can live on the heap, in a shared mapping, or in a capture file.
//
// Region layout (u32 words, host byte order while live):
//
//   header[8]: magic, layout(slot words | version<<16), capacity, cursor,
//              lock, dropped, build id, state
//   slot[capacity][6]: state, ref, seq, param0, param1, param2
//
// Core capabilities:
//   - Multi-producer append: cursor claimed by atomic fetch-and-increment
//   - Drop-oldest: slot = cursor & mask, the newest write evicts the oldest
//   - Per-slot seqlock: odd state = write in progress, even non-zero = committed;
//     the committed value encodes the lap of the claim that wrote it
//   - Bounded: a writer that finds its slot busy retries SlotSpinBudget times
//     then drops the frame, never waits on another context
//   - A stalled writer whose slot already holds a later lap drops its frame
//
// Safety model:
//   - Every word access goes through sync/atomic, so interrupt-safe and
//     standard writers may interleave freely on one ring
//   - Snapshots validate each slot against its seqlock word and skip torn slots
//   - Sequence numbers come from the caller; gaps reveal overwrites and drops

package ring

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"
	"sync/atomic"
	"unsafe"

	"firmtrace/constants"
	"firmtrace/types"
)

// ============================================================================
// REGION GEOMETRY
// ============================================================================

// Header word offsets.
const (
	hdrMagic = iota
	hdrLayout
	hdrCapacity
	hdrCursor
	hdrLock
	hdrDropped
	hdrBuildID
	hdrState
)

// Slot word offsets.
const (
	slotState = iota
	slotRef
	slotSeq
	slotParam0
)

// Sink states stamped in the header for external readers.
const (
	StateIdle   uint32 = 0
	StateActive uint32 = 1
	StateOff    uint32 = 2
)

var (
	ErrBadCapacity = errors.New("ring: capacity must be a power of two in [1, MaxCapacity]")
	ErrBadRegion   = errors.New("ring: malformed region")
	ErrShortRegion = errors.New("ring: region too small for capacity")
)

// WordsFor returns the region size in u32 words for a capacity.
//
//go:nosplit
//go:inline
func WordsFor(capacity int) int {
	return constants.HeaderWords + capacity*constants.SlotWords
}

// BytesFor returns the region size in bytes for a capacity.
func BytesFor(capacity int) int { return 4 * WordsFor(capacity) }

// WordsOf views a 4-byte aligned byte region (e.g. a shared mapping) as words.
// The caller keeps b alive and unmoved for the lifetime of the view.
func WordsOf(b []byte) []uint32 {
	if len(b) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), len(b)/4)
}

func validCapacity(capacity int) bool {
	return capacity > 0 && capacity <= constants.MaxCapacity && capacity&(capacity-1) == 0
}

// ============================================================================
// RING
// ============================================================================

// Ring is a handle on a sink region. The struct holds only derived values;
// all shared state lives in words.
type Ring struct {
	words []uint32
	mask  uint32
	shift uint32 // log2(cap): pos >> shift is the lap
	cap   int
}

func newRing(words []uint32, capacity int) *Ring {
	return &Ring{
		words: words,
		mask:  uint32(capacity - 1),
		shift: uint32(bits.TrailingZeros32(uint32(capacity))),
		cap:   capacity,
	}
}

// New allocates a heap-backed ring.
func New(capacity int) (*Ring, error) {
	if !validCapacity(capacity) {
		return nil, fmt.Errorf("%w: %d", ErrBadCapacity, capacity)
	}
	return Attach(make([]uint32, WordsFor(capacity)), capacity)
}

// Attach formats words as an empty ring of the given capacity.
func Attach(words []uint32, capacity int) (*Ring, error) {
	if !validCapacity(capacity) {
		return nil, fmt.Errorf("%w: %d", ErrBadCapacity, capacity)
	}
	if len(words) < WordsFor(capacity) {
		return nil, fmt.Errorf("%w: %d words, need %d", ErrShortRegion, len(words), WordsFor(capacity))
	}
	words = words[:WordsFor(capacity)]
	for i := range words {
		atomic.StoreUint32(&words[i], 0)
	}
	words[hdrLayout] = constants.SlotWords | constants.SinkVersion<<16
	words[hdrCapacity] = uint32(capacity)
	atomic.StoreUint32(&words[hdrMagic], constants.SinkMagic)
	return newRing(words, capacity), nil
}

// Open adopts an already formatted region, e.g. a mailbox mapped by a reader.
func Open(words []uint32) (*Ring, error) {
	if len(words) < constants.HeaderWords {
		return nil, ErrShortRegion
	}
	if atomic.LoadUint32(&words[hdrMagic]) != constants.SinkMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrBadRegion)
	}
	if words[hdrLayout]&0xffff != constants.SlotWords {
		return nil, fmt.Errorf("%w: slot width %d", ErrBadRegion, words[hdrLayout]&0xffff)
	}
	capacity := int(words[hdrCapacity])
	if !validCapacity(capacity) {
		return nil, fmt.Errorf("%w: %d", ErrBadCapacity, capacity)
	}
	if len(words) < WordsFor(capacity) {
		return nil, ErrShortRegion
	}
	return newRing(words[:WordsFor(capacity)], capacity), nil
}

// Capacity returns the number of slots.
func (r *Ring) Capacity() int { return r.cap }

// Words exposes the raw region; used by the mailbox for its lock word.
func (r *Ring) Words() []uint32 { return r.words }

// Cursor returns the number of slots claimed since formatting.
func (r *Ring) Cursor() uint32 { return atomic.LoadUint32(&r.words[hdrCursor]) }

// Dropped returns the number of frames abandoned under slot contention or,
// for a mailbox, skipped under lock contention.
func (r *Ring) Dropped() uint32 { return atomic.LoadUint32(&r.words[hdrDropped]) }

// CountDrop records one abandoned frame.
func (r *Ring) CountDrop() { atomic.AddUint32(&r.words[hdrDropped], 1) }

// SetBuildID stamps the descriptor table fingerprint.
func (r *Ring) SetBuildID(id uint32) { atomic.StoreUint32(&r.words[hdrBuildID], id) }

// BuildID returns the stamped descriptor table fingerprint.
func (r *Ring) BuildID() uint32 { return atomic.LoadUint32(&r.words[hdrBuildID]) }

// SetState publishes the owner's lifecycle state for external readers.
func (r *Ring) SetState(s uint32) { atomic.StoreUint32(&r.words[hdrState], s) }

// State returns the published lifecycle state.
func (r *Ring) State() uint32 { return atomic.LoadUint32(&r.words[hdrState]) }

// LockWord returns the address of the header lock word.
func (r *Ring) LockWord() *uint32 { return &r.words[hdrLock] }

// ============================================================================
// PRODUCER
// ============================================================================

// Append writes one frame. It claims the next slot, overwriting whatever the
// slot held, and returns false if the slot stayed busy for the whole spin
// budget or already holds a frame from a later lap. Either way the frame is
// counted dropped.
func (r *Ring) Append(ref, seq, p0, p1, p2 uint32) bool {
	pos := atomic.AddUint32(&r.words[hdrCursor], 1) - 1
	base := constants.HeaderWords + int(pos&r.mask)*constants.SlotWords
	s := r.words[base : base+constants.SlotWords : base+constants.SlotWords]

	mine := r.committed(pos)
	for spin := 0; ; spin++ {
		st := atomic.LoadUint32(&s[slotState])
		if st&1 == 0 && st != 0 && int32(st-mine) > 0 {
			r.CountDrop()
			return false
		}
		if st&1 == 0 && atomic.CompareAndSwapUint32(&s[slotState], st, st+1) {
			atomic.StoreUint32(&s[slotRef], ref)
			atomic.StoreUint32(&s[slotSeq], seq)
			atomic.StoreUint32(&s[slotParam0], p0)
			atomic.StoreUint32(&s[slotParam0+1], p1)
			atomic.StoreUint32(&s[slotParam0+2], p2)

			atomic.StoreUint32(&s[slotState], mine)
			return true
		}
		if spin >= constants.SlotSpinBudget {
			r.CountDrop()
			return false
		}
		Relax()
	}
}

// committed is the state word a slot holds once the claim at pos has
// committed: the claim's lap, doubled to keep it even.
func (r *Ring) committed(pos uint32) uint32 {
	st := (pos>>r.shift + 1) << 1
	if st == 0 {
		st = 2 // 0 is reserved for never-written
	}
	return st
}

// ============================================================================
// CONSUMER (SNAPSHOT)
// ============================================================================

// Pending returns how many slots have a claim below cursor that has not
// committed yet, either mid-write or claimed and not started. A reader that
// snapshots after Pending(cursor) reports 0 sees every claim below cursor
// that has not been overwritten since.
func (r *Ring) Pending(cursor uint32) int {
	claimed := r.cap
	if cursor < uint32(r.cap) {
		claimed = int(cursor)
	}
	n := 0
	for i := 0; i < claimed; i++ {
		last := cursor - 1 - ((cursor - 1 - uint32(i)) & r.mask)
		st := atomic.LoadUint32(&r.words[constants.HeaderWords+i*constants.SlotWords+slotState])
		if st&1 != 0 || int32(st-r.committed(last)) < 0 {
			n++
		}
	}
	return n
}

// readSlot copies slot i if it holds a committed frame and stays stable for
// the duration of the copy.
func (r *Ring) readSlot(i int) (types.Frame, uint32, bool) {
	base := constants.HeaderWords + i*constants.SlotWords
	s := r.words[base : base+constants.SlotWords : base+constants.SlotWords]
	for try := 0; try < constants.ReadRetries; try++ {
		st := atomic.LoadUint32(&s[slotState])
		if st == 0 {
			return types.Frame{}, 0, false
		}
		if st&1 != 0 {
			Relax()
			continue
		}
		f := types.Frame{
			Ref: atomic.LoadUint32(&s[slotRef]),
			Seq: atomic.LoadUint32(&s[slotSeq]),
			N:   types.MaxParams,
		}
		f.Params[0] = atomic.LoadUint32(&s[slotParam0])
		f.Params[1] = atomic.LoadUint32(&s[slotParam0+1])
		f.Params[2] = atomic.LoadUint32(&s[slotParam0+2])
		if atomic.LoadUint32(&s[slotState]) == st {
			return f, st, true
		}
	}
	return types.Frame{}, 0, false
}

// Snapshot returns every committed frame ordered by sequence number. Slots
// being rewritten during the copy are left out. Frames carry all three slot
// parameters; the descriptor's params_num says how many are meaningful.
func (r *Ring) Snapshot() []types.Frame {
	out := make([]types.Frame, 0, r.cap)
	for i := 0; i < r.cap; i++ {
		if f, _, ok := r.readSlot(i); ok {
			out = append(out, f)
		}
	}
	SortBySeq(out)
	return out
}

// SortBySeq orders frames by sequence using wrap-aware comparison.
func SortBySeq(frames []types.Frame) {
	sort.Slice(frames, func(i, j int) bool {
		return int32(frames[i].Seq-frames[j].Seq) < 0
	})
}
