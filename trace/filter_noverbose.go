//go:build !tracev

package trace

const verboseOn = false
