package utils

import (
	"os"
	"unsafe"
)

///////////////////////////////////////////////////////////////////////////////
// Conversion Utilities: Zero-Alloc Casts
///////////////////////////////////////////////////////////////////////////////

// B2s converts a []byte to a string **without** allocation.
// ⚠️ Caller must ensure the input slice remains valid and unchanged.
// Used for rendered-record print paths.
//
//go:nosplit
//go:inline
func B2s(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// Itoa formats n in decimal with a single allocation for the result.
func Itoa(n int) string {
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	u := uint64(n)
	if neg {
		u = uint64(-n)
	}
	for {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
		if u == 0 {
			break
		}
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

///////////////////////////////////////////////////////////////////////////////
// Diagnostics Output
///////////////////////////////////////////////////////////////////////////////

// PrintWarning writes msg to stderr unbuffered. Errors are ignored; there is
// nowhere left to report them.
func PrintWarning(msg string) {
	if len(msg) == 0 {
		return
	}
	_, _ = os.Stderr.WriteString(msg)
}

///////////////////////////////////////////////////////////////////////////////
// Number Parsing: Component codes, refs and IDs from CLI and config
///////////////////////////////////////////////////////////////////////////////

// ParseHexN parses arbitrary-length hex input into a uint64. Non-nibble bytes
// contribute zero.
//
//go:nosplit
//go:inline
func ParseHexN(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= uint64(c - '0')
		case c >= 'a' && c <= 'f':
			v |= uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= uint64(c-'A') + 10
		}
	}
	return v
}

// ParseU32 parses a decimal or 0x-prefixed hex literal into a uint32.
// It reports false on empty input, stray characters or overflow.
func ParseU32(s string) (uint32, bool) {
	if len(s) == 0 {
		return 0, false
	}
	if len(s) > 2 && s[0] == '0' && (s[1]|0x20) == 'x' {
		h := s[2:]
		if len(h) > 8 {
			return 0, false
		}
		for i := 0; i < len(h); i++ {
			c := h[i] | 0x20
			if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
				return 0, false
			}
		}
		return uint32(ParseHexN([]byte(h))), true
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + uint64(c-'0')
		if v > 0xffffffff {
			return 0, false
		}
	}
	return uint32(v), true
}
