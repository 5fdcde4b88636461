// ════════════════════════════════════════════════════════════════════════════════════════════════
// Sink Capture Files
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Offline hand-off between a live sink and the decoder
//
// Layout (little-endian):
//
//   magic[8] "TRCCAP01"
//   version:u16  flags:u16
//   session:[16] (UUID identifying one trace session)
//   source:u32   (ring or mailbox)
//   body_len:u32
//   body[body_len]  (exported region bytes, zstd-compressed when FlagZstd)
//
// A raw region image (a copied mailbox file) is also accepted by Load; it is
// wrapped as an uncompressed mailbox capture with a nil session.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package capture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"firmtrace/constants"
	"firmtrace/ring"
	"firmtrace/types"
	"firmtrace/utils"
)

// Magic opens every capture file.
const Magic = "TRCCAP01"

// Version is the current capture format version.
const Version uint16 = 1

// FlagZstd marks a zstd-compressed body.
const FlagZstd uint16 = 1 << 0

const headerSize = len(Magic) + 2 + 2 + 16 + 4 + 4

// maxBody caps the body a reader will accept; the largest legal region.
const maxBody = 4 * (constants.HeaderWords + constants.MaxCapacity*constants.SlotWords)

// Source identifies which sink a capture was taken from.
type Source uint32

const (
	SourceRing    Source = 1
	SourceMailbox Source = 2
)

func (s Source) String() string {
	switch s {
	case SourceRing:
		return "ring"
	case SourceMailbox:
		return "mailbox"
	}
	return "unknown"
}

var (
	ErrBadMagic   = errors.New("capture: bad magic")
	ErrBadVersion = errors.New("capture: unsupported version")
	ErrTooLarge   = errors.New("capture: body exceeds largest sink region")
)

// Capture is one decoded capture file.
type Capture struct {
	Version uint16
	Flags   uint16
	Session uuid.UUID
	Source  Source
	Region  []byte // uncompressed region bytes as produced by ring.Export
}

// Options control how a capture is written.
type Options struct {
	Compress bool
	Session  uuid.UUID // uuid.Nil draws a fresh random session id
}

// New wraps exported region bytes.
func New(src Source, region []byte, session uuid.UUID) *Capture {
	return &Capture{Version: Version, Source: src, Region: region, Session: session}
}

// Frames parses the region into its header and committed frames.
func (c *Capture) Frames() (ring.Header, []types.Frame, error) {
	return ring.Parse(c.Region)
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// ENCODE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

var (
	encoder, _ = zstd.NewWriter(nil)
	decoder    = newDecoder(maxBody)
)

// newDecoder returns a zstd decoder that refuses output beyond limit bytes.
func newDecoder(limit uint64) *zstd.Decoder {
	d, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(limit))
	return d
}

// Write serialises a capture of region to w.
func Write(w io.Writer, src Source, region []byte, opts Options) error {
	session := opts.Session
	if session == uuid.Nil {
		session = uuid.New()
	}
	var flags uint16
	body := region
	if opts.Compress {
		flags |= FlagZstd
		body = encoder.EncodeAll(region, make([]byte, 0, len(region)/4))
	}

	hdr := make([]byte, 0, headerSize)
	hdr = append(hdr, Magic...)
	hdr = binary.LittleEndian.AppendUint16(hdr, Version)
	hdr = binary.LittleEndian.AppendUint16(hdr, flags)
	hdr = append(hdr, session[:]...)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(src))
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(body)))

	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("capture: write header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("capture: write body: %w", err)
	}
	return nil
}

// WriteRing exports r and writes it as a ring capture.
func WriteRing(w io.Writer, r *ring.Ring, opts Options) error {
	return Write(w, SourceRing, r.Export(), opts)
}

// WriteFile writes a capture to path, replacing any existing file.
func WriteFile(path string, src Source, region []byte, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, src, region, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// DECODE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Read parses one capture from r.
func Read(r io.Reader) (*Capture, error) {
	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("capture: read header: %w", err)
	}
	if utils.B2s(hdr[:len(Magic)]) != Magic {
		return nil, ErrBadMagic
	}
	p := hdr[len(Magic):]
	c := &Capture{
		Version: binary.LittleEndian.Uint16(p),
		Flags:   binary.LittleEndian.Uint16(p[2:]),
	}
	if c.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, c.Version)
	}
	copy(c.Session[:], p[4:20])
	c.Source = Source(binary.LittleEndian.Uint32(p[20:]))
	n := binary.LittleEndian.Uint32(p[24:])
	if uint64(n) > maxBody {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("capture: read body: %w", err)
	}
	if c.Flags&FlagZstd != 0 {
		raw, err := decoder.DecodeAll(body, nil)
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, fmt.Errorf("%w: decompressed body", ErrTooLarge)
		}
		if err != nil {
			return nil, fmt.Errorf("capture: decompress: %w", err)
		}
		body = raw
	}
	c.Region = body
	return c, nil
}

// Parse decodes either a capture file or a raw region image held in b.
func Parse(b []byte) (*Capture, error) {
	if len(b) >= len(Magic) && utils.B2s(b[:len(Magic)]) == Magic {
		return Read(bytes.NewReader(b))
	}
	if _, _, err := ring.Parse(b); err != nil {
		return nil, fmt.Errorf("capture: neither a capture nor a sink region: %w", err)
	}
	return &Capture{Version: Version, Source: SourceMailbox, Region: b}, nil
}

// Load reads path as a capture file or a raw region image.
func Load(path string) (*Capture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}
