package decoder

import (
	"firmtrace/types"
)

// Filter selects records by class and level. Empty sets match everything.
// Unknown records carry no class or level and pass unless HideUnknown is set.
type Filter struct {
	Classes     map[types.Class]bool
	Levels      map[types.Level]bool
	HideUnknown bool
}

// NewFilter builds a filter from class and level names as accepted by
// types.ParseClass and types.ParseLevel.
func NewFilter(classes, levels []string) (Filter, error) {
	var f Filter
	for _, name := range classes {
		c, err := types.ParseClass(name)
		if err != nil {
			return f, err
		}
		if f.Classes == nil {
			f.Classes = map[types.Class]bool{}
		}
		f.Classes[c] = true
	}
	for _, name := range levels {
		l, err := types.ParseLevel(name)
		if err != nil {
			return f, err
		}
		if f.Levels == nil {
			f.Levels = map[types.Level]bool{}
		}
		f.Levels[l] = true
	}
	return f, nil
}

// Match reports whether rec passes the filter.
func (f *Filter) Match(rec *Record) bool {
	if !rec.Known {
		return !f.HideUnknown
	}
	if len(f.Classes) > 0 && !f.Classes[rec.Class()] {
		return false
	}
	if len(f.Levels) > 0 && !f.Levels[rec.Level] {
		return false
	}
	return true
}
