package types

import (
	"encoding/binary"
	"errors"
	"strconv"
	"strings"

	"firmtrace/utils"
)

// ============================================================================
// SEVERITY LEVELS
// ============================================================================

// Level is the severity carried by every descriptor. Values match the
// firmware logging ABI so descriptors extracted from an image decode as-is.
type Level uint32

const (
	LevelCritical Level = 1 // error family (trace_error)
	LevelVerbose  Level = 2 // event and verbose families
)

// String returns the upper-case level tag used in rendered records.
func (l Level) String() string {
	switch l {
	case LevelCritical:
		return "CRITICAL"
	case LevelVerbose:
		return "VERBOSE"
	}
	return "LEVEL(" + utils.Itoa(int(l)) + ")"
}

// RegionName returns the storage region that holds descriptors of this level.
func (l Level) RegionName() string {
	switch l {
	case LevelCritical:
		return ".static_log.critical"
	case LevelVerbose:
		return ".static_log.verbose"
	}
	return ".static_log." + utils.Itoa(int(l))
}

// ParseLevel accepts "critical"/"error" and "verbose" in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "critical", "error", "err":
		return LevelCritical, nil
	case "verbose", "event":
		return LevelVerbose, nil
	}
	return 0, errors.New("types: unknown level " + strconv.Quote(s))
}

// ============================================================================
// TRACE CLASSES - HIGH BYTE OF COMPONENT ID
// ============================================================================

// Class is the subsystem tag packed into the top byte of a ComponentID.
type Class uint8

const (
	ClassNone   Class = 0
	ClassIRQ    Class = 1
	ClassIPC    Class = 2
	ClassPipe   Class = 3
	ClassHost   Class = 4
	ClassDAI    Class = 5
	ClassDMA    Class = 6
	ClassSSP    Class = 7
	ClassComp   Class = 8
	ClassWait   Class = 9
	ClassLock   Class = 10
	ClassMem    Class = 11
	ClassMixer  Class = 12
	ClassBuffer Class = 13
	ClassVolume Class = 14
	ClassSwitch Class = 15
	ClassMux    Class = 16
	ClassSRC    Class = 17
	ClassTone   Class = 18
	ClassEQFIR  Class = 19
	ClassEQIIR  Class = 20
	ClassSA     Class = 21
	ClassDMIC   Class = 22
	ClassPower  Class = 23
	ClassIDC    Class = 24
	ClassCPU    Class = 25
)

// classShift positions the class tag in the high byte.
const classShift = 24

var classNames = [...]string{
	ClassNone:   "NONE",
	ClassIRQ:    "IRQ",
	ClassIPC:    "IPC",
	ClassPipe:   "PIPE",
	ClassHost:   "HOST",
	ClassDAI:    "DAI",
	ClassDMA:    "DMA",
	ClassSSP:    "SSP",
	ClassComp:   "COMP",
	ClassWait:   "WAIT",
	ClassLock:   "LOCK",
	ClassMem:    "MEM",
	ClassMixer:  "MIXER",
	ClassBuffer: "BUFFER",
	ClassVolume: "VOLUME",
	ClassSwitch: "SWITCH",
	ClassMux:    "MUX",
	ClassSRC:    "SRC",
	ClassTone:   "TONE",
	ClassEQFIR:  "EQ_FIR",
	ClassEQIIR:  "EQ_IIR",
	ClassSA:     "SA",
	ClassDMIC:   "DMIC",
	ClassPower:  "POWER",
	ClassIDC:    "IDC",
	ClassCPU:    "CPU",
}

// MaxClass is the highest class tag assigned by the build.
const MaxClass = ClassCPU

// String returns the class tag name, or CLASS(n) for unassigned values.
func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "CLASS(" + utils.Itoa(int(c)) + ")"
}

// Component returns the ComponentID for a subsystem-specific code in this class.
// Codes wider than 24 bits are truncated.
//
//go:nosplit
//go:inline
func (c Class) Component(code uint32) ComponentID {
	return ComponentID(uint32(c)<<classShift | code&codeMask)
}

// ParseClass resolves a class name ("ipc", "EQ_FIR", "eq-fir").
func ParseClass(s string) (Class, error) {
	norm := strings.ReplaceAll(strings.ToUpper(s), "-", "_")
	for i, name := range classNames {
		if name == norm {
			return Class(i), nil
		}
	}
	return 0, errors.New("types: unknown class " + strconv.Quote(s))
}

// Classes lists every assigned class tag in numeric order.
func Classes() []Class {
	out := make([]Class, 0, len(classNames)-1)
	for i := 1; i < len(classNames); i++ {
		out = append(out, Class(i))
	}
	return out
}

// ============================================================================
// COMPONENT ID
// ============================================================================

// ComponentID packs a Class into bits 31..24 and a subsystem code into 23..0.
type ComponentID uint32

const codeMask = 1<<classShift - 1

// Class extracts the high-byte class tag.
//
//go:nosplit
//go:inline
func (id ComponentID) Class() Class { return Class(uint32(id) >> classShift) }

// Code extracts the subsystem-assigned low bits.
//
//go:nosplit
//go:inline
func (id ComponentID) Code() uint32 { return uint32(id) & codeMask }

// ============================================================================
// ARITY-TYPED CALL SITE IDENTIFIERS
// ============================================================================

// Site0..Site3 are stable descriptor references. The generator declares one
// constant per call site, typed by the number of parameters the site passes,
// so handing a Site2 to a one-parameter emitter does not compile.
type (
	Site0 uint32
	Site1 uint32
	Site2 uint32
	Site3 uint32
)

// MaxParams is the largest arity an emission routine accepts.
const MaxParams = 3

// ============================================================================
// ROUTING
// ============================================================================

// Destination selects the sink set a frame is written to.
type Destination uint8

const (
	BufferOnly Destination = iota
	BufferAndMailbox
)

func (d Destination) String() string {
	if d == BufferAndMailbox {
		return "buffer+mailbox"
	}
	return "buffer"
}

// Safety selects how the emission path protects the sink indices.
type Safety uint8

const (
	Standard      Safety = iota // brief local interrupt mask around the append
	InterruptSafe               // lock-free append only, callable from IRQ context
)

func (s Safety) String() string {
	if s == InterruptSafe {
		return "interrupt-safe"
	}
	return "standard"
}

// ============================================================================
// FRAME
// ============================================================================

// Frame is one emitted record as recovered from a sink. N is not part of the
// wire format; sinks keep it so in-process readers need no registry lookup.
type Frame struct {
	Ref    uint32 // descriptor reference (site ID)
	Seq    uint32 // global emission sequence
	N      uint8  // parameters carried
	Params [MaxParams]uint32
}

// WireSize returns the encoded size of a frame with n parameters.
//
//go:nosplit
//go:inline
func WireSize(n int) int { return 8 + 4*n }

// AppendWire appends the wire encoding ref, seq, param[0..N-1] (little-endian).
func (f *Frame) AppendWire(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, f.Ref)
	b = binary.LittleEndian.AppendUint32(b, f.Seq)
	for i := 0; i < int(f.N); i++ {
		b = binary.LittleEndian.AppendUint32(b, f.Params[i])
	}
	return b
}

// ErrShortFrame reports a wire buffer too small for the declared arity.
var ErrShortFrame = errors.New("types: short frame")

// ReadWire decodes one frame of arity n from b and returns the bytes consumed.
// The arity comes from the referenced descriptor, never from the wire.
func ReadWire(b []byte, arity func(ref uint32) (int, bool)) (Frame, int, error) {
	if len(b) < 8 {
		return Frame{}, 0, ErrShortFrame
	}
	f := Frame{
		Ref: binary.LittleEndian.Uint32(b),
		Seq: binary.LittleEndian.Uint32(b[4:]),
	}
	n, ok := arity(f.Ref)
	if !ok {
		return f, 0, errors.New("types: unknown descriptor ref " + strconv.FormatUint(uint64(f.Ref), 10))
	}
	if n < 0 || n > MaxParams {
		return f, 0, errors.New("types: bad arity " + utils.Itoa(n))
	}
	if len(b) < WireSize(n) {
		return f, 0, ErrShortFrame
	}
	f.N = uint8(n)
	for i := 0; i < n; i++ {
		f.Params[i] = binary.LittleEndian.Uint32(b[8+4*i:])
	}
	return f, WireSize(n), nil
}
