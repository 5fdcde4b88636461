package ring

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"firmtrace/constants"
	"firmtrace/types"
)

// Header is the decoded sink header of a live or captured region.
type Header struct {
	Capacity int
	Version  uint32
	Cursor   uint32
	Dropped  uint32
	BuildID  uint32
	State    uint32
}

// Export copies the region into little-endian bytes suitable for a capture.
// Each slot is copied under its seqlock; a slot that cannot be read stably
// is exported as never-written so the capture holds no torn frames.
func (r *Ring) Export() []byte {
	le := binary.LittleEndian
	out := make([]byte, 0, 4*len(r.words))
	for i := 0; i < constants.HeaderWords; i++ {
		v := atomic.LoadUint32(&r.words[i])
		if i == hdrLock {
			v = 0
		}
		out = le.AppendUint32(out, v)
	}
	for i := 0; i < r.cap; i++ {
		f, st, ok := r.readSlot(i)
		if !ok {
			out = append(out, make([]byte, 4*constants.SlotWords)...)
			continue
		}
		out = le.AppendUint32(out, st)
		out = le.AppendUint32(out, f.Ref)
		out = le.AppendUint32(out, f.Seq)
		for _, p := range f.Params {
			out = le.AppendUint32(out, p)
		}
	}
	return out
}

// Parse decodes a region image produced by Export or copied raw from live
// memory. The byte order is taken from the magic word.
func Parse(b []byte) (Header, []types.Frame, error) {
	var h Header
	if len(b) < 4*constants.HeaderWords {
		return h, nil, ErrShortRegion
	}

	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(b) == constants.SinkMagic:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(b) == constants.SinkMagic:
		order = binary.BigEndian
	default:
		return h, nil, fmt.Errorf("%w: bad magic %#x", ErrBadRegion, binary.LittleEndian.Uint32(b))
	}
	word := func(i int) uint32 { return order.Uint32(b[4*i:]) }

	layout := word(hdrLayout)
	if layout&0xffff != constants.SlotWords {
		return h, nil, fmt.Errorf("%w: slot width %d", ErrBadRegion, layout&0xffff)
	}
	h = Header{
		Capacity: int(word(hdrCapacity)),
		Version:  layout >> 16,
		Cursor:   word(hdrCursor),
		Dropped:  word(hdrDropped),
		BuildID:  word(hdrBuildID),
		State:    word(hdrState),
	}
	if !validCapacity(h.Capacity) {
		return h, nil, fmt.Errorf("%w: %d", ErrBadCapacity, h.Capacity)
	}
	if len(b) < BytesFor(h.Capacity) {
		return h, nil, fmt.Errorf("%w: %d bytes, need %d", ErrShortRegion, len(b), BytesFor(h.Capacity))
	}

	frames := make([]types.Frame, 0, h.Capacity)
	for i := 0; i < h.Capacity; i++ {
		base := constants.HeaderWords + i*constants.SlotWords
		st := word(base + slotState)
		if st == 0 || st&1 != 0 {
			continue
		}
		f := types.Frame{
			Ref: word(base + slotRef),
			Seq: word(base + slotSeq),
			N:   types.MaxParams,
		}
		for p := 0; p < types.MaxParams; p++ {
			f.Params[p] = word(base + slotParam0 + p)
		}
		frames = append(frames, f)
	}
	SortBySeq(frames)
	return h, frames, nil
}
