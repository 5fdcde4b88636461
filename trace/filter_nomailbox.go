//go:build !tracem

package trace

import "firmtrace/types"

const eventDest = types.BufferOnly
