//go:build !notracee

package trace

// errorOn enables the Error family. Building with -tags notracee removes it.
const errorOn = true
