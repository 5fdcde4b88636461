package descriptor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"firmtrace/types"
	"firmtrace/utils"
)

// ============================================================================
// LEVEL-NAMED REGIONS
// ============================================================================
//
// A region groups every descriptor of one level. Each region is generated into
// its own source file behind the level's build tag, so stripping a level
// removes the whole region from the image. The envelope is:
//
//   magic[8] level:u32 count:u32 body_len:u32 { id:u32 descriptor }*count
//
// The decoder finds regions by scanning the built image for Magic.

// Magic opens every region envelope.
const Magic = "\x89SLOG\r\n\x1a"

// headerSize is magic + level + count + body_len.
const headerSize = len(Magic) + 12

var (
	ErrNoMagic   = errors.New("descriptor: region magic not found")
	ErrBadRegion = errors.New("descriptor: malformed region")
)

// Region is the decoded content of one level-named storage region.
type Region struct {
	Level   types.Level
	Entries []Descriptor
}

// Name returns the region's storage name, e.g. ".static_log.verbose".
func (r *Region) Name() string { return r.Level.RegionName() }

// Encode renders the region envelope in little-endian byte order.
// Entries are written in ascending ID order.
func (r *Region) Encode() []byte {
	entries := append([]Descriptor(nil), r.Entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	body := make([]byte, 0, 64*len(entries))
	for i := range entries {
		body = binary.LittleEndian.AppendUint32(body, entries[i].ID)
		body = entries[i].AppendBinary(body)
	}

	out := make([]byte, 0, headerSize+len(body))
	out = append(out, Magic...)
	out = binary.LittleEndian.AppendUint32(out, uint32(r.Level))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(entries)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(body)))
	return append(out, body...)
}

// ParseRegion decodes a region envelope starting at b[0]. The byte order is
// inferred from body_len: the order under which it fits the buffer wins.
// It returns the region and the total bytes consumed.
func ParseRegion(b []byte) (Region, int, error) {
	var r Region
	if len(b) < headerSize {
		return r, 0, ErrShort
	}
	if utils.B2s(b[:len(Magic)]) != Magic {
		return r, 0, ErrNoMagic
	}

	hdr := b[len(Magic):headerSize]
	var order binary.ByteOrder = binary.LittleEndian
	if int(order.Uint32(hdr[8:])) > len(b)-headerSize {
		order = binary.BigEndian
	}
	r.Level = types.Level(order.Uint32(hdr))
	count := int(order.Uint32(hdr[4:]))
	bodyLen := int(order.Uint32(hdr[8:]))
	if bodyLen > len(b)-headerSize || count > bodyLen/4 {
		return r, 0, fmt.Errorf("%w: body %d bytes, %d entries, %d available",
			ErrBadRegion, bodyLen, count, len(b)-headerSize)
	}

	body := b[headerSize : headerSize+bodyLen]
	r.Entries = make([]Descriptor, 0, count)
	off := 0
	for i := 0; i < count; i++ {
		if off+4 > len(body) {
			return r, 0, fmt.Errorf("%w: entry %d: %v", ErrBadRegion, i, ErrShort)
		}
		id := order.Uint32(body[off:])
		d, n, err := Decode(body[off+4:], order)
		if err != nil {
			return r, 0, fmt.Errorf("%w: entry %d: %v", ErrBadRegion, i, err)
		}
		if d.Level != r.Level {
			return r, 0, fmt.Errorf("%w: entry %d level %s in %s region",
				ErrBadRegion, i, d.Level, r.Level)
		}
		d.ID = id
		r.Entries = append(r.Entries, d)
		off += 4 + n
	}
	if off != bodyLen {
		return r, 0, fmt.Errorf("%w: %d trailing bytes", ErrBadRegion, bodyLen-off)
	}
	return r, headerSize + bodyLen, nil
}

// ScanRegions finds every well-formed region inside an arbitrary byte image.
// Candidates that fail to parse are skipped, so stray copies of Magic (for
// example this package's own constant) do not abort the scan.
func ScanRegions(image []byte) []Region {
	var out []Region
	magic := []byte(Magic)
	for off := 0; off < len(image); {
		i := bytes.Index(image[off:], magic)
		if i < 0 {
			break
		}
		start := off + i
		r, n, err := ParseRegion(image[start:])
		if err != nil {
			off = start + 1
			continue
		}
		out = append(out, r)
		off = start + n
	}
	return out
}
