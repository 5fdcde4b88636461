// Package tracegen turns annotated emission calls into descriptor tables.
//
// Each call site carries a one-line directive naming its class, subsystem
// code and format text:
//
//	//trace:dma 3 "ch %d len %d"
//	t.Event2(siteDMALen, ch, n)
//
// For every package with sites the generator writes zz_trace_sites.go, which
// declares each site constant with the arity-typed ID matching its call, and
// one zz_region_<family>.go per emission family holding that family's
// descriptor region behind the family's build constraint. IDs are unique
// across the module and stay stable between runs.
package tracegen
