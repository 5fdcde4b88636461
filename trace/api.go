// ════════════════════════════════════════════════════════════════════════════════════════════════
// Arity Dispatch
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Closed set of emission methods
//
// Description:
//   One method per (family, safety, arity). The site ID type carries the arity, so
//   a site declared with two parameters only fits Event2/EventAtomic2 and friends,
//   and there is no method taking four. Each body is guarded by the family's filter
//   constant; a disabled family compiles to empty methods.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package trace

import "firmtrace/types"

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// EVENT FAMILY
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Event family: VERBOSE level, always compiled in with the master switch.

// Event0 emits a parameterless frame with a brief local interrupt mask.
func (t *Tracer) Event0(id types.Site0) {
	if traceOn {
		t.emit(uint32(id), eventDest, types.Standard, 0, 0, 0)
	}
}

func (t *Tracer) Event1(id types.Site1, p0 uint32) {
	if traceOn {
		t.emit(uint32(id), eventDest, types.Standard, p0, 0, 0)
	}
}

func (t *Tracer) Event2(id types.Site2, p0, p1 uint32) {
	if traceOn {
		t.emit(uint32(id), eventDest, types.Standard, p0, p1, 0)
	}
}

func (t *Tracer) Event3(id types.Site3, p0, p1, p2 uint32) {
	if traceOn {
		t.emit(uint32(id), eventDest, types.Standard, p0, p1, p2)
	}
}

// EventAtomic0 is callable from interrupt context; it never masks interrupts.
func (t *Tracer) EventAtomic0(id types.Site0) {
	if traceOn {
		t.emit(uint32(id), eventDest, types.InterruptSafe, 0, 0, 0)
	}
}

func (t *Tracer) EventAtomic1(id types.Site1, p0 uint32) {
	if traceOn {
		t.emit(uint32(id), eventDest, types.InterruptSafe, p0, 0, 0)
	}
}

func (t *Tracer) EventAtomic2(id types.Site2, p0, p1 uint32) {
	if traceOn {
		t.emit(uint32(id), eventDest, types.InterruptSafe, p0, p1, 0)
	}
}

func (t *Tracer) EventAtomic3(id types.Site3, p0, p1, p2 uint32) {
	if traceOn {
		t.emit(uint32(id), eventDest, types.InterruptSafe, p0, p1, p2)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// VERBOSE FAMILY
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Verbose family: VERBOSE level, compiled in only with -tags tracev.

func (t *Tracer) Verbose0(id types.Site0) {
	if traceOn && verboseOn {
		t.emit(uint32(id), eventDest, types.Standard, 0, 0, 0)
	}
}

func (t *Tracer) Verbose1(id types.Site1, p0 uint32) {
	if traceOn && verboseOn {
		t.emit(uint32(id), eventDest, types.Standard, p0, 0, 0)
	}
}

func (t *Tracer) Verbose2(id types.Site2, p0, p1 uint32) {
	if traceOn && verboseOn {
		t.emit(uint32(id), eventDest, types.Standard, p0, p1, 0)
	}
}

func (t *Tracer) Verbose3(id types.Site3, p0, p1, p2 uint32) {
	if traceOn && verboseOn {
		t.emit(uint32(id), eventDest, types.Standard, p0, p1, p2)
	}
}

func (t *Tracer) VerboseAtomic0(id types.Site0) {
	if traceOn && verboseOn {
		t.emit(uint32(id), eventDest, types.InterruptSafe, 0, 0, 0)
	}
}

func (t *Tracer) VerboseAtomic1(id types.Site1, p0 uint32) {
	if traceOn && verboseOn {
		t.emit(uint32(id), eventDest, types.InterruptSafe, p0, 0, 0)
	}
}

func (t *Tracer) VerboseAtomic2(id types.Site2, p0, p1 uint32) {
	if traceOn && verboseOn {
		t.emit(uint32(id), eventDest, types.InterruptSafe, p0, p1, 0)
	}
}

func (t *Tracer) VerboseAtomic3(id types.Site3, p0, p1, p2 uint32) {
	if traceOn && verboseOn {
		t.emit(uint32(id), eventDest, types.InterruptSafe, p0, p1, p2)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// ERROR FAMILY
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Error family: CRITICAL level, removed with -tags notracee. Error frames
// stay in the local buffer regardless of mailbox mirroring.

func (t *Tracer) Error0(id types.Site0) {
	if traceOn && errorOn {
		t.emit(uint32(id), types.BufferOnly, types.Standard, 0, 0, 0)
	}
}

func (t *Tracer) Error1(id types.Site1, p0 uint32) {
	if traceOn && errorOn {
		t.emit(uint32(id), types.BufferOnly, types.Standard, p0, 0, 0)
	}
}

func (t *Tracer) Error2(id types.Site2, p0, p1 uint32) {
	if traceOn && errorOn {
		t.emit(uint32(id), types.BufferOnly, types.Standard, p0, p1, 0)
	}
}

func (t *Tracer) Error3(id types.Site3, p0, p1, p2 uint32) {
	if traceOn && errorOn {
		t.emit(uint32(id), types.BufferOnly, types.Standard, p0, p1, p2)
	}
}

func (t *Tracer) ErrorAtomic0(id types.Site0) {
	if traceOn && errorOn {
		t.emit(uint32(id), types.BufferOnly, types.InterruptSafe, 0, 0, 0)
	}
}

func (t *Tracer) ErrorAtomic1(id types.Site1, p0 uint32) {
	if traceOn && errorOn {
		t.emit(uint32(id), types.BufferOnly, types.InterruptSafe, p0, 0, 0)
	}
}

func (t *Tracer) ErrorAtomic2(id types.Site2, p0, p1 uint32) {
	if traceOn && errorOn {
		t.emit(uint32(id), types.BufferOnly, types.InterruptSafe, p0, p1, 0)
	}
}

func (t *Tracer) ErrorAtomic3(id types.Site3, p0, p1, p2 uint32) {
	if traceOn && errorOn {
		t.emit(uint32(id), types.BufferOnly, types.InterruptSafe, p0, p1, p2)
	}
}
