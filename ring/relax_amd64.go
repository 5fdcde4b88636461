// ════════════════════════════════════════════════════════════════════════════════════════════════
// CPU Relaxation - AMD64 Architecture
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Slot and mailbox lock back-off
//
// Description:
//   PAUSE hint for the bounded spin loops on the emission path: a writer waiting out a
//   lapping writer on its slot, or a core retrying the shared mailbox lock.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

//go:build amd64 && cgo && !noasm

package ring

/*
#ifdef __x86_64__
static inline void cpu_pause() {
    __asm__ __volatile__("pause" ::: "memory");
}
#else
#error "This file requires x86-64 architecture"
#endif
*/
import "C"

// Relax executes one PAUSE instruction.
func Relax() {
	C.cpu_pause()
}
