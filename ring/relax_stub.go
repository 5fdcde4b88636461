// relax_stub.go: Fallback back-off for targets without a spin-wait hint
//
// Covers RISC-V, WASM, TinyGo, cgo-less builds and the noasm tag. The body is
// empty so the bounded spin loops still terminate on their budget.
//
//go:build (!amd64 && !arm64) || !cgo || noasm

package ring

// Relax is a no-op on this target.
//
//go:nosplit
//go:inline
func Relax() {}
