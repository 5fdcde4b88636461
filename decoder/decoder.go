// ════════════════════════════════════════════════════════════════════════════════════════════════
// Trace Decoder
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Frames + descriptor table → records
//
// Description:
//   Joins captured frames with the descriptor table of the image that produced
//   them. Frames are ordered by sequence number; every discontinuity is reported
//   as a Gap instead of being papered over. A frame whose reference is not in the
//   table becomes an explicit unknown record.
//
// Gap accounting:
//   - Leading: a fresh Decoder expects sequence 0, so frames overwritten before
//     the capture show up as a gap starting at 0
//   - Internal: any jump between consecutive sequence numbers
//   - Frames at or below the last decoded sequence are treated as already seen
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package decoder

import (
	"firmtrace/descriptor"
	"firmtrace/ring"
	"firmtrace/types"
)

// Record is one decoded frame.
type Record struct {
	Seq       uint32
	Ref       uint32
	Known     bool // descriptor found
	Level     types.Level
	Component types.ComponentID
	File      string
	Line      uint32
	Format    string
	Params    []uint32 // params_num values from the descriptor
	Text      string   // format with params substituted
}

// Class returns the record's subsystem tag.
func (r *Record) Class() types.Class { return r.Component.Class() }

// Gap is a run of sequence numbers that never reached the decoder.
type Gap struct {
	From  uint32 // first missing sequence
	Count uint32
}

// To returns the last missing sequence.
func (g Gap) To() uint32 { return g.From + g.Count - 1 }

// Result is the outcome of a one-shot decode.
type Result struct {
	Records []Record
	Gaps    []Gap
}

// Lost sums the frames missing across all gaps.
func (r *Result) Lost() uint64 {
	var n uint64
	for _, g := range r.Gaps {
		n += uint64(g.Count)
	}
	return n
}

// Decoder turns frame batches into records, remembering the next expected
// sequence number across batches.
type Decoder struct {
	reg     *descriptor.Registry
	filter  Filter
	next    uint32
	started bool
}

// New returns a decoder that expects sequence 0 first.
func New(reg *descriptor.Registry, filter Filter) *Decoder {
	return &Decoder{reg: reg, filter: filter, started: true}
}

// Resync forgets the expected sequence; the next frame seen starts a new run
// with no leading gap. Used when attaching to a live sink mid-stream.
func (d *Decoder) Resync() { d.started = false }

// Feed decodes one batch. Frames need not be sorted. Gaps are computed on
// the unfiltered stream; records are filtered afterwards.
func (d *Decoder) Feed(frames []types.Frame) ([]Record, []Gap) {
	sorted := append([]types.Frame(nil), frames...)
	ring.SortBySeq(sorted)

	var (
		recs []Record
		gaps []Gap
	)
	for i := range sorted {
		f := &sorted[i]
		if d.started {
			delta := int32(f.Seq - d.next)
			if delta < 0 {
				continue
			}
			if delta > 0 {
				gaps = append(gaps, Gap{From: d.next, Count: uint32(delta)})
			}
		}
		d.next = f.Seq + 1
		d.started = true

		rec := d.record(f)
		if d.filter.Match(&rec) {
			recs = append(recs, rec)
		}
	}
	return recs, gaps
}

func (d *Decoder) record(f *types.Frame) Record {
	rec := Record{Seq: f.Seq, Ref: f.Ref}
	desc, ok := d.reg.Lookup(f.Ref)
	if !ok {
		rec.Text = unknownText(f)
		return rec
	}
	rec.Known = true
	rec.Level = desc.Level
	rec.Component = desc.Component
	rec.File = desc.File
	rec.Line = desc.Line
	rec.Format = desc.Format

	n := int(desc.ParamsNum)
	if n > types.MaxParams {
		n = types.MaxParams
	}
	rec.Params = append([]uint32(nil), f.Params[:n]...)
	rec.Text = Substitute(desc.Format, rec.Params)
	return rec
}

// Decode is the one-shot form: sort, join, report gaps from sequence 0.
func Decode(frames []types.Frame, reg *descriptor.Registry, filter Filter) Result {
	recs, gaps := New(reg, filter).Feed(frames)
	return Result{Records: recs, Gaps: gaps}
}

// DecodeWire decodes a packed wire stream (ref, seq, params...) where each
// frame's length comes from its descriptor's params_num.
func DecodeWire(b []byte, reg *descriptor.Registry, filter Filter) (Result, error) {
	var frames []types.Frame
	for len(b) > 0 {
		f, n, err := types.ReadWire(b, reg.Arity)
		if err != nil {
			return Result{}, err
		}
		frames = append(frames, f)
		b = b[n:]
	}
	return Decode(frames, reg, filter), nil
}
