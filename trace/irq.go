package trace

// IRQ is the platform's local interrupt mask. STANDARD emission brackets its
// sink writes with LocalDisable/LocalRestore so the sequence claim and slot
// write are not split by a handler on the same core. INTERRUPT_SAFE emission
// never calls it.
type IRQ interface {
	LocalDisable() (flags uint32)
	LocalRestore(flags uint32)
}

// NopIRQ is used where there is no interrupt controller to mask, such as a
// hosted build. The ring's lock-free append keeps STANDARD writes safe there.
type NopIRQ struct{}

func (NopIRQ) LocalDisable() uint32 { return 0 }
func (NopIRQ) LocalRestore(uint32)  {}

// IRQFuncs adapts a pair of platform hooks to IRQ.
type IRQFuncs struct {
	Disable func() uint32
	Restore func(uint32)
}

func (f IRQFuncs) LocalDisable() uint32      { return f.Disable() }
func (f IRQFuncs) LocalRestore(flags uint32) { f.Restore(flags) }
