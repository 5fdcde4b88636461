// ════════════════════════════════════════════════════════════════════════════════════════════════
// Log Entry Descriptors
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Descriptor Registry - Call Site Metadata
//
// Description:
//   One immutable descriptor per trace call site. Descriptors never travel in the trace
//   stream: frames carry only the site reference, and the decoder rebuilds text from the
//   descriptor table extracted from the same build.
//
// Layout (one descriptor, little-endian, 4-byte aligned):
//   level:u32 component_id:u32 params_num:u32 source_line:u32
//   file_name_len:u32 file_name[file_name_len] (NUL terminated, zero padded to 4)
//   format_text_len:u32 format_text[format_text_len] (NUL terminated, zero padded to 4)
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package descriptor

import (
	"encoding/binary"
	"errors"
	"fmt"

	"firmtrace/types"
)

var (
	ErrShort     = errors.New("descriptor: truncated record")
	ErrBadArity  = errors.New("descriptor: params_num out of range")
	ErrBadString = errors.New("descriptor: string not NUL terminated")
)

// Descriptor describes one call site. ID is the stable reference frames carry;
// it lives in the region envelope, not in the descriptor layout.
type Descriptor struct {
	ID        uint32
	Level     types.Level
	Component types.ComponentID
	ParamsNum uint32
	Line      uint32
	File      string
	Format    string
}

// fixedWords is the number of u32 fields preceding file_name.
const fixedWords = 5

// pad4 rounds n up to the next multiple of four.
//
//go:nosplit
//go:inline
func pad4(n int) int { return (n + 3) &^ 3 }

// EncodedSize returns the number of bytes AppendBinary writes.
func (d *Descriptor) EncodedSize() int {
	return 4*fixedWords + pad4(len(d.File)+1) + 4 + pad4(len(d.Format)+1)
}

// AppendBinary appends the bit-exact descriptor layout to b.
func (d *Descriptor) AppendBinary(b []byte) []byte {
	le := binary.LittleEndian
	b = le.AppendUint32(b, uint32(d.Level))
	b = le.AppendUint32(b, uint32(d.Component))
	b = le.AppendUint32(b, d.ParamsNum)
	b = le.AppendUint32(b, d.Line)
	b = appendText(b, d.File)
	b = appendText(b, d.Format)
	return b
}

// appendText writes len:u32 then the NUL-terminated bytes padded to 4.
func appendText(b []byte, s string) []byte {
	n := len(s) + 1
	b = binary.LittleEndian.AppendUint32(b, uint32(n))
	b = append(b, s...)
	for i := len(s); i < pad4(n); i++ {
		b = append(b, 0)
	}
	return b
}

// Decode parses one descriptor from b and returns the bytes consumed.
func Decode(b []byte, order binary.ByteOrder) (Descriptor, int, error) {
	var d Descriptor
	if len(b) < 4*fixedWords {
		return d, 0, ErrShort
	}
	d.Level = types.Level(order.Uint32(b))
	d.Component = types.ComponentID(order.Uint32(b[4:]))
	d.ParamsNum = order.Uint32(b[8:])
	d.Line = order.Uint32(b[12:])
	if d.ParamsNum > types.MaxParams {
		return d, 0, fmt.Errorf("%w: %d", ErrBadArity, d.ParamsNum)
	}

	off := 16
	file, n, err := readText(b[off:], order)
	if err != nil {
		return d, 0, fmt.Errorf("file_name: %w", err)
	}
	off += n
	format, n, err := readText(b[off:], order)
	if err != nil {
		return d, 0, fmt.Errorf("format_text: %w", err)
	}
	off += n

	d.File, d.Format = file, format
	return d, off, nil
}

func readText(b []byte, order binary.ByteOrder) (string, int, error) {
	if len(b) < 4 {
		return "", 0, ErrShort
	}
	n := int(order.Uint32(b))
	if n == 0 || 4+pad4(n) > len(b) {
		return "", 0, ErrShort
	}
	raw := b[4 : 4+n]
	if raw[n-1] != 0 {
		return "", 0, ErrBadString
	}
	return string(raw[:n-1]), 4 + pad4(n), nil
}

// Validate checks the invariants the decoder relies on without re-checking
// at runtime: arity within range and matching the format's conversions.
func (d *Descriptor) Validate() error {
	if d.ParamsNum > types.MaxParams {
		return fmt.Errorf("%w: %s:%d declares %d", ErrBadArity, d.File, d.Line, d.ParamsNum)
	}
	if n := CountVerbs(d.Format); n != int(d.ParamsNum) {
		return fmt.Errorf("descriptor: %s:%d format %q has %d conversions, params_num %d",
			d.File, d.Line, d.Format, n, d.ParamsNum)
	}
	return nil
}
