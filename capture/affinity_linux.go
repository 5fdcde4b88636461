//go:build linux

package capture

import "golang.org/x/sys/unix"

// setAffinity pins the calling OS thread to cpu. Out-of-range or refused
// requests leave the thread unpinned.
func setAffinity(cpu int) {
	if cpu < 0 {
		return
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	_ = unix.SchedSetaffinity(0, &set)
}
