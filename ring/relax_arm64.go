// ════════════════════════════════════════════════════════════════════════════════════════════════
// CPU Relaxation - ARM64 Architecture
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Slot and mailbox lock back-off
//
// Description:
//   YIELD hint for the bounded spin loops on the emission path. Cores sharing the
//   mailbox region are typically ARM64 or DSP clusters with a YIELD equivalent.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

//go:build arm64 && cgo && !noasm

package ring

/*
#ifdef __aarch64__
static inline void cpu_yield() {
    __asm__ __volatile__("yield" ::: "memory");
}
#else
#error "This file requires ARM64 architecture"
#endif
*/
import "C"

// Relax executes one YIELD instruction.
func Relax() {
	C.cpu_yield()
}
