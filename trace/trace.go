// ════════════════════════════════════════════════════════════════════════════════════════════════
// Trace Emission Core
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Tracer handle and the single emission routine behind every family
//
// Description:
//   A Tracer owns the sinks (local ring, optional mailbox), the global sequence
//   counter and the lifecycle. It exists only once Init has bound the sinks, so
//   descriptor-based emission cannot be reached before initialization; the boot
//   checkpoint path is the only thing available earlier.
//
// Emission:
//   - One atomic sequence claim per frame gives a total order across cores
//   - STANDARD: ring (and mailbox) writes bracketed by the platform IRQ mask
//   - INTERRUPT_SAFE: the same writes with no mask, relying on the lock-free ring
//   - Mailbox mirroring is a try-lock; on contention only the mailbox copy is lost
//   - OFF: every call returns before touching any sink
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package trace

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"firmtrace/boot"
	"firmtrace/capture"
	"firmtrace/constants"
	"firmtrace/control"
	"firmtrace/descriptor"
	"firmtrace/mailbox"
	"firmtrace/ring"
	"firmtrace/types"
)

// Config binds a Tracer to its sinks and platform hooks. Zero fields take
// defaults: a heap ring of constants.RingCapacity, no mailbox, NopIRQ, the
// Default registry and recorder, no re-initialization.
type Config struct {
	RingCapacity int
	Ring         *ring.Ring       // preformatted ring, e.g. in a shared mapping
	Mailbox      *mailbox.Mailbox // nil disables mirroring even under tracem
	IRQ          IRQ
	Registry     *descriptor.Registry
	Boot         *boot.Recorder
	AllowReinit  bool
}

// ErrNoSink is returned when neither a ring nor a usable capacity is given.
var ErrNoSink = errors.New("trace: no ring sink")

// Tracer is the trace subsystem handle passed to anything that emits.
type Tracer struct {
	seq     atomic.Uint32
	life    *control.Lifecycle
	ring    *ring.Ring
	mbox    *mailbox.Mailbox
	irq     IRQ
	reg     *descriptor.Registry
	boot    *boot.Recorder
	buildID uint32
}

// Init binds the sinks and moves the subsystem to ACTIVE.
func Init(cfg Config) (*Tracer, error) {
	r := cfg.Ring
	if r == nil {
		capacity := cfg.RingCapacity
		if capacity == 0 {
			capacity = constants.RingCapacity
		}
		var err error
		if r, err = ring.New(capacity); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoSink, err)
		}
	}
	t := &Tracer{
		life: control.NewLifecycle(cfg.AllowReinit),
		ring: r,
		mbox: cfg.Mailbox,
		irq:  cfg.IRQ,
		reg:  cfg.Registry,
		boot: cfg.Boot,
	}
	if t.irq == nil {
		t.irq = NopIRQ{}
	}
	if t.reg == nil {
		t.reg = descriptor.Default
	}
	if t.boot == nil {
		t.boot = boot.Default
	}

	t.buildID = t.reg.BuildID()
	t.ring.SetBuildID(t.buildID)
	if t.mbox != nil {
		t.mbox.Ring().SetBuildID(t.buildID)
	}
	if err := t.life.Activate(); err != nil {
		return nil, err
	}
	t.publish(ring.StateActive)
	return t, nil
}

// Off stops all emission. Later calls on any family are no-ops.
func (t *Tracer) Off() {
	if t.life.Shutdown() {
		t.publish(ring.StateOff)
	}
}

// Reinit returns an OFF tracer to ACTIVE when Config.AllowReinit was set.
// Sink contents and the sequence counter carry on from where they stopped.
func (t *Tracer) Reinit() error {
	if err := t.life.Reactivate(); err != nil {
		return err
	}
	t.publish(ring.StateActive)
	return nil
}

func (t *Tracer) publish(state uint32) {
	t.ring.SetState(state)
	if t.mbox != nil {
		t.mbox.Ring().SetState(state)
	}
}

// State returns the lifecycle position.
func (t *Tracer) State() control.State { return t.life.State() }

// Ring returns the local trace buffer.
func (t *Tracer) Ring() *ring.Ring { return t.ring }

// Mailbox returns the mirror sink, or nil.
func (t *Tracer) Mailbox() *mailbox.Mailbox { return t.mbox }

// Registry returns the descriptor table this tracer stamped into its sinks.
func (t *Tracer) Registry() *descriptor.Registry { return t.reg }

// BuildID returns the descriptor table fingerprint stamped into the sinks.
func (t *Tracer) BuildID() uint32 { return t.buildID }

// Stats is a point-in-time view of emission counters.
type Stats struct {
	Emitted        uint32 // sequence numbers claimed
	RingDropped    uint32 // frames abandoned under slot contention
	MailboxSkipped uint32 // mirror writes skipped under lock contention
}

// Stats returns the current counters.
func (t *Tracer) Stats() Stats {
	s := Stats{Emitted: t.seq.Load(), RingDropped: t.ring.Dropped()}
	if t.mbox != nil {
		s.MailboxSkipped = t.mbox.Skipped()
	}
	return s
}

// Point records a boot-style checkpoint through the tracer's recorder.
// Compiled out with the master switch.
func (t *Tracer) Point(c boot.Code) {
	if traceOn {
		t.boot.Point(c)
	}
}

// Flush writes a capture of the local ring to w.
func (t *Tracer) Flush(w io.Writer) error {
	return capture.WriteRing(w, t.ring, capture.Options{})
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// EMISSION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// emit produces one frame. Unused parameter slots are passed as zero; the
// descriptor's params_num says how many the decoder reads.
func (t *Tracer) emit(ref uint32, dest types.Destination, safety types.Safety, p0, p1, p2 uint32) {
	if !t.life.Active() {
		return
	}
	var flags uint32
	if safety == types.Standard {
		flags = t.irq.LocalDisable()
	}

	seq := t.seq.Add(1) - 1
	t.ring.Append(ref, seq, p0, p1, p2)
	if dest == types.BufferAndMailbox && t.mbox != nil {
		t.mbox.TryAppend(ref, seq, p0, p1, p2)
	}

	if safety == types.Standard {
		t.irq.LocalRestore(flags)
	}
}
