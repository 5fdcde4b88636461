package trace

// The value helpers are built-in call sites with reserved IDs below
// constants.FirstSiteID, so every image carries them at the same reference.

// Value emits a single number with the format "value %d".
func (t *Tracer) Value(x uint32) {
	//trace:none 0 "value %d" id=1
	t.Event1(siteValue, x)
}

// ValueAtomic is Value for interrupt context.
func (t *Tracer) ValueAtomic(x uint32) {
	//trace:none 0 "value %d" id=2
	t.EventAtomic1(siteValueAtomic, x)
}

// VerboseValue is Value in the Verbose family.
func (t *Tracer) VerboseValue(x uint32) {
	//trace:none 0 "value %d" id=3
	t.Verbose1(siteVerboseValue, x)
}

// VerboseValueAtomic is VerboseValue for interrupt context.
func (t *Tracer) VerboseValueAtomic(x uint32) {
	//trace:none 0 "value %d" id=4
	t.VerboseAtomic1(siteVerboseValueAtomic, x)
}

// ErrorValue emits a number at CRITICAL level.
func (t *Tracer) ErrorValue(x uint32) {
	//trace:none 0 "value %d" id=5
	t.Error1(siteErrorValue, x)
}

// ErrorValueAtomic is ErrorValue for interrupt context.
func (t *Tracer) ErrorValueAtomic(x uint32) {
	//trace:none 0 "value %d" id=6
	t.ErrorAtomic1(siteErrorValueAtomic, x)
}
