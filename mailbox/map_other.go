//go:build !unix

package mailbox

// Map is unavailable without POSIX shared mappings; use New or Attach.
func Map(path string, capacity int) (*Mailbox, error) { return nil, ErrUnsupported }

// OpenMapped is unavailable without POSIX shared mappings.
func OpenMapped(path string) (*Mailbox, error) { return nil, ErrUnsupported }
