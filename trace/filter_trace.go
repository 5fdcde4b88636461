//go:build !notrace

package trace

// traceOn is the master switch. Building with -tags notrace empties every
// emission method and drops every generated region file.
const traceOn = true
