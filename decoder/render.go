package decoder

import (
	"bufio"
	"io"
	"strconv"

	"github.com/sugawarayuuta/sonnet"

	"firmtrace/types"
)

// ANSI colours cycled by class.
const (
	red     = "\033[0;31m"
	green   = "\033[0;32m"
	yellow  = "\033[1;33m"
	blue    = "\033[0;34m"
	magenta = "\033[0;35m"
	cyan    = "\033[0;36m"
	bold    = "\033[1m"
	dim     = "\033[2m"
	reset   = "\033[0m"
)

var classPalette = [...]string{green, yellow, blue, magenta, cyan}

// classColour picks a stable colour per class; CRITICAL records are red.
func classColour(rec *Record) string {
	if !rec.Known {
		return dim
	}
	if rec.Level == types.LevelCritical {
		return red
	}
	return classPalette[int(rec.Class())%len(classPalette)]
}

// Format selects the output encoding.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// ParseFormat accepts "text" and "json".
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "", "text":
		return FormatText, true
	case "json":
		return FormatJSON, true
	}
	return 0, false
}

// Renderer writes records and gaps to an output stream.
type Renderer struct {
	w      *bufio.Writer
	format Format
	colour bool
	buf    []byte
}

// NewRenderer wraps w. Call Flush when done.
func NewRenderer(w io.Writer, format Format, colour bool) *Renderer {
	return &Renderer{w: bufio.NewWriter(w), format: format, colour: colour && format == FormatText}
}

// AppendText appends the one-line text form:
//
//	[seq] CLASS/LEVEL file:line text
func AppendText(b []byte, rec *Record) []byte {
	b = append(b, '[')
	b = strconv.AppendUint(b, uint64(rec.Seq), 10)
	b = append(b, "] "...)
	if !rec.Known {
		return append(b, rec.Text...)
	}
	b = append(b, rec.Class().String()...)
	b = append(b, '/')
	b = append(b, rec.Level.String()...)
	b = append(b, ' ')
	b = append(b, rec.File...)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(rec.Line), 10)
	b = append(b, ' ')
	return append(b, rec.Text...)
}

// jsonRecord is the JSON-lines shape of a record.
type jsonRecord struct {
	Seq       uint32   `json:"seq"`
	Ref       uint32   `json:"ref"`
	Known     bool     `json:"known"`
	Class     string   `json:"class,omitempty"`
	Level     string   `json:"level,omitempty"`
	Component uint32   `json:"component_id"`
	File      string   `json:"file,omitempty"`
	Line      uint32   `json:"line,omitempty"`
	Params    []uint32 `json:"params"`
	Text      string   `json:"text"`
}

type jsonGap struct {
	Gap   bool   `json:"gap"`
	From  uint32 `json:"from"`
	Count uint32 `json:"count"`
}

// Record writes one record.
func (r *Renderer) Record(rec *Record) error {
	if r.format == FormatJSON {
		jr := jsonRecord{
			Seq:       rec.Seq,
			Ref:       rec.Ref,
			Known:     rec.Known,
			Component: uint32(rec.Component),
			File:      rec.File,
			Line:      rec.Line,
			Params:    rec.Params,
			Text:      rec.Text,
		}
		if jr.Params == nil {
			jr.Params = []uint32{}
		}
		if rec.Known {
			jr.Class = rec.Class().String()
			jr.Level = rec.Level.String()
		}
		return r.json(&jr)
	}

	r.buf = r.buf[:0]
	if r.colour {
		r.buf = append(r.buf, classColour(rec)...)
	}
	r.buf = AppendText(r.buf, rec)
	if r.colour {
		r.buf = append(r.buf, reset...)
	}
	r.buf = append(r.buf, '\n')
	_, err := r.w.Write(r.buf)
	return err
}

// Gap writes one gap marker.
func (r *Renderer) Gap(g Gap) error {
	if r.format == FormatJSON {
		return r.json(&jsonGap{Gap: true, From: g.From, Count: g.Count})
	}
	r.buf = r.buf[:0]
	if r.colour {
		r.buf = append(r.buf, bold...)
	}
	r.buf = append(r.buf, "--- lost "...)
	r.buf = strconv.AppendUint(r.buf, uint64(g.Count), 10)
	r.buf = append(r.buf, " frames (seq "...)
	r.buf = strconv.AppendUint(r.buf, uint64(g.From), 10)
	r.buf = append(r.buf, ".."...)
	r.buf = strconv.AppendUint(r.buf, uint64(g.To()), 10)
	r.buf = append(r.buf, ") ---"...)
	if r.colour {
		r.buf = append(r.buf, reset...)
	}
	r.buf = append(r.buf, '\n')
	_, err := r.w.Write(r.buf)
	return err
}

func (r *Renderer) json(v any) error {
	out, err := sonnet.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := r.w.Write(out); err != nil {
		return err
	}
	return r.w.WriteByte('\n')
}

// Batch writes gaps and records interleaved in sequence order.
func (r *Renderer) Batch(recs []Record, gaps []Gap) error {
	gi := 0
	for i := range recs {
		for gi < len(gaps) && int32(gaps[gi].From-recs[i].Seq) < 0 {
			if err := r.Gap(gaps[gi]); err != nil {
				return err
			}
			gi++
		}
		if err := r.Record(&recs[i]); err != nil {
			return err
		}
	}
	for ; gi < len(gaps); gi++ {
		if err := r.Gap(gaps[gi]); err != nil {
			return err
		}
	}
	return nil
}

// Flush drains buffered output.
func (r *Renderer) Flush() error { return r.w.Flush() }
