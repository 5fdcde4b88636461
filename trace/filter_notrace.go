//go:build notrace

package trace

const traceOn = false
