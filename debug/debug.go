// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: debug.go: Cold-path diagnostics for tools and watchers
//
// Purpose:
//   - Logs infrequent error paths without fmt or a logging framework.
//   - Used by capture watchers, pollers and the CLIs; never by emission.
//
// Notes:
//   - Avoids fmt.Sprintf to keep the footprint small.
//   - Output goes straight to stderr via utils.PrintWarning.
//   - Quiet() silences everything, for tests and --quiet runs.
//
// ⚠️ Never invoke on the emission path.
// ─────────────────────────────────────────────────────────────────────────────

package debug

import (
	"sync/atomic"

	"firmtrace/utils"
)

var quiet atomic.Bool

// Quiet enables or disables all diagnostics output.
func Quiet(on bool) { quiet.Store(on) }

// DropError logs prefix and err. A nil err logs the prefix alone, which is
// how tagged warnings are written.
func DropError(prefix string, err error) {
	if quiet.Load() {
		return
	}
	if err != nil {
		utils.PrintWarning(prefix + ": " + err.Error() + "\n")
		return
	}
	utils.PrintWarning(prefix + "\n")
}

// DropMessage logs a cold-path status line such as "capture: reloaded".
func DropMessage(prefix, message string) {
	if quiet.Load() {
		return
	}
	utils.PrintWarning(prefix + ": " + message + "\n")
}
