//go:build tracev

package trace

// verboseOn enables the Verbose family. It is off unless built with -tags tracev.
const verboseOn = true
