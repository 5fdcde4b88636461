// ════════════════════════════════════════════════════════════════════════════════════════════════
// Boot Checkpoint Path
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Early boot milestones
//
// Description:
//   Flat integer milestones recorded before the trace subsystem exists. A code is
//   written straight to the platform status signal and into a tiny fixed buffer;
//   there are no descriptors, no sequence numbers and no sinks on this path.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package boot

import (
	"strconv"
	"sync/atomic"

	"firmtrace/constants"
)

// Code is a boot milestone.
type Code uint32

// Loader milestones.
const (
	LoaderEntry        Code = 0x100
	LoaderHPSRAM       Code = 0x110
	LoaderManifest     Code = 0x120
	LoaderJump         Code = 0x150
	LoaderParseModule  Code = 0x210
	LoaderParseSegment Code = 0x220
)

// General init milestones.
const (
	Start    Code = 0x1000
	Arch     Code = 0x2000
	Sys      Code = 0x3000
	Platform Code = 0x4000
)

// System init sub-milestones.
const (
	SysWork    = Sys + 0x100
	SysCPUFreq = Sys + 0x200
	SysHeap    = Sys + 0x300
	SysNote    = Sys + 0x400
	SysSched   = Sys + 0x500
	SysPower   = Sys + 0x600
)

// Platform init sub-milestones.
const (
	PlatformEntry   = Platform + 0x100
	PlatformMbox    = Platform + 0x110
	PlatformShim    = Platform + 0x120
	PlatformPMC     = Platform + 0x130
	PlatformTimer   = Platform + 0x140
	PlatformClock   = Platform + 0x150
	PlatformSSPFreq = Platform + 0x160
	PlatformIPC     = Platform + 0x170
	PlatformDMA     = Platform + 0x180
	PlatformSSP     = Platform + 0x190
	PlatformDMIC    = Platform + 0x1a0
	PlatformIDC     = Platform + 0x1b0
)

var codeNames = map[Code]string{
	LoaderEntry:        "LDR_ENTRY",
	LoaderHPSRAM:       "LDR_HPSRAM",
	LoaderManifest:     "LDR_MANIFEST",
	LoaderJump:         "LDR_JUMP",
	LoaderParseModule:  "LDR_PARSE_MODULE",
	LoaderParseSegment: "LDR_PARSE_SEGMENT",
	Start:              "START",
	Arch:               "ARCH",
	Sys:                "SYS",
	Platform:           "PLATFORM",
	SysWork:            "SYS_WORK",
	SysCPUFreq:         "SYS_CPU_FREQ",
	SysHeap:            "SYS_HEAP",
	SysNote:            "SYS_NOTE",
	SysSched:           "SYS_SCHED",
	SysPower:           "SYS_POWER",
	PlatformEntry:      "PLATFORM_ENTRY",
	PlatformMbox:       "PLATFORM_MBOX",
	PlatformShim:       "PLATFORM_SHIM",
	PlatformPMC:        "PLATFORM_PMC",
	PlatformTimer:      "PLATFORM_TIMER",
	PlatformClock:      "PLATFORM_CLOCK",
	PlatformSSPFreq:    "PLATFORM_SSP_FREQ",
	PlatformIPC:        "PLATFORM_IPC",
	PlatformDMA:        "PLATFORM_DMA",
	PlatformSSP:        "PLATFORM_SSP",
	PlatformDMIC:       "PLATFORM_DMIC",
	PlatformIDC:        "PLATFORM_IDC",
}

// String names well-known milestones and prints others in hex.
func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "0x" + strconv.FormatUint(uint64(c), 16)
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// SIGNALS
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Signal is the platform's minimal early-boot output, typically a status
// register the host can read while the firmware is still coming up.
type Signal interface {
	WriteStatus(code uint32)
}

// Register is a status word usable as a Signal. It can sit in a shared
// mapping so the host observes the last milestone.
type Register struct {
	word *uint32
}

// NewRegister wraps a word; a nil word gets private storage.
func NewRegister(word *uint32) *Register {
	if word == nil {
		word = new(uint32)
	}
	return &Register{word: word}
}

// WriteStatus stores the code.
func (r *Register) WriteStatus(code uint32) { atomic.StoreUint32(r.word, code) }

// Load returns the last written code.
func (r *Register) Load() uint32 { return atomic.LoadUint32(r.word) }

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// RECORDER
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Recorder keeps the newest BootBufferSize milestones and mirrors each one to
// its Signal.
type Recorder struct {
	sig Signal
	n   atomic.Uint32
	buf [constants.BootBufferSize]atomic.Uint32
}

// NewRecorder returns a recorder writing to sig. sig may be nil.
func NewRecorder(sig Signal) *Recorder {
	return &Recorder{sig: sig}
}

// Point records one milestone.
func (r *Recorder) Point(c Code) {
	i := r.n.Add(1) - 1
	r.buf[i%constants.BootBufferSize].Store(uint32(c))
	if r.sig != nil {
		r.sig.WriteStatus(uint32(c))
	}
}

// Last returns the newest milestone, if any.
func (r *Recorder) Last() (Code, bool) {
	n := r.n.Load()
	if n == 0 {
		return 0, false
	}
	return Code(r.buf[(n-1)%constants.BootBufferSize].Load()), true
}

// Count returns how many milestones were recorded in total.
func (r *Recorder) Count() uint32 { return r.n.Load() }

// Codes returns the retained milestones, oldest first.
func (r *Recorder) Codes() []Code {
	n := r.n.Load()
	start := uint32(0)
	if n > constants.BootBufferSize {
		start = n - constants.BootBufferSize
	}
	out := make([]Code, 0, n-start)
	for i := start; i < n; i++ {
		out = append(out, Code(r.buf[i%constants.BootBufferSize].Load()))
	}
	return out
}

// Default is the process recorder used before any tracer exists.
var Default = NewRecorder(nil)

// Point records a milestone on the Default recorder.
func Point(c Code) { Default.Point(c) }
