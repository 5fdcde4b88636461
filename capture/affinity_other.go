//go:build !linux

package capture

// setAffinity is a no-op where thread affinity is not exposed.
func setAffinity(cpu int) {}
