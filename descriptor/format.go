package descriptor

// Verb is one printf conversion found in a format text.
type Verb struct {
	Start, End int    // byte span in the format, End exclusive
	Flags      string // flags, width and precision between '%' and the length modifier
	Conv       byte   // conversion character
}

// Verbs scans format for printf conversions. "%%" is a literal and is skipped;
// a trailing lone '%' is ignored. Length modifiers (h, l, ll, z, j, t) are
// accepted and dropped since every parameter is 32 bits wide.
func Verbs(format string) []Verb {
	var out []Verb
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		start := i
		i++
		if i >= len(format) {
			break
		}
		if format[i] == '%' {
			continue
		}
		flagStart := i
		for i < len(format) && isFlag(format[i]) {
			i++
		}
		flagEnd := i
		for i < len(format) && isLength(format[i]) {
			i++
		}
		if i >= len(format) {
			break
		}
		out = append(out, Verb{
			Start: start,
			End:   i + 1,
			Flags: format[flagStart:flagEnd],
			Conv:  format[i],
		})
	}
	return out
}

// CountVerbs returns the number of conversions in format.
func CountVerbs(format string) int {
	return len(Verbs(format))
}

//go:nosplit
//go:inline
func isFlag(c byte) bool {
	return c == '-' || c == '+' || c == '#' || c == ' ' || c == '.' || (c >= '0' && c <= '9')
}

//go:nosplit
//go:inline
func isLength(c byte) bool {
	return c == 'h' || c == 'l' || c == 'z' || c == 'j' || c == 't' || c == 'L' || c == 'q'
}
