//go:build unix

package mailbox

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"firmtrace/ring"
)

// Map creates (or truncates) path to the region size for capacity, maps it
// shared and formats it as an empty mailbox. A host-side reader maps the same
// file with OpenMapped. Zero capacity takes the default.
func Map(path string, capacity int) (*Mailbox, error) {
	capacity = defaultCapacity(capacity)
	size := ring.BytesFor(capacity)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mailbox: open %s: %w", path, err)
	}
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		return nil, fmt.Errorf("mailbox: size %s: %w", path, err)
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mailbox: mmap %s: %w", path, err)
	}

	r, err := ring.Attach(ring.WordsOf(mem), capacity)
	if err != nil {
		_ = unix.Munmap(mem)
		return nil, err
	}
	return wrap(r, func() error { return unix.Munmap(mem) }), nil
}

// OpenMapped maps an existing mailbox file without reformatting it. The
// mapping is writable so the reader can observe the lock word atomically.
func OpenMapped(path string) (*Mailbox, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("mailbox: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("mailbox: stat %s: %w", path, err)
	}
	size := int(info.Size()) &^ 3
	if size == 0 {
		return nil, fmt.Errorf("mailbox: %s is empty", path)
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mailbox: mmap %s: %w", path, err)
	}

	r, err := ring.Open(ring.WordsOf(mem))
	if err != nil {
		_ = unix.Munmap(mem)
		return nil, err
	}
	return wrap(r, func() error { return unix.Munmap(mem) }), nil
}
