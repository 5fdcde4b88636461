//go:build tracem

package trace

import "firmtrace/types"

// eventDest is where the Event and Verbose families write. With -tags tracem
// every such frame is mirrored to the mailbox as well.
const eventDest = types.BufferAndMailbox
