package decoder

import (
	"strconv"
	"strings"

	"firmtrace/descriptor"
	"firmtrace/types"
)

// Substitute renders format with params in place of its conversions. Signed
// conversions reinterpret the 32-bit value as int32. Conversions without a
// matching parameter are left as written; surplus parameters are ignored.
func Substitute(format string, params []uint32) string {
	verbs := descriptor.Verbs(format)
	if len(verbs) == 0 {
		return strings.ReplaceAll(format, "%%", "%")
	}

	var b strings.Builder
	b.Grow(len(format) + 8*len(params))
	last := 0
	for i, v := range verbs {
		b.WriteString(unescape(format[last:v.Start]))
		if i < len(params) {
			b.WriteString(convert(v, params[i]))
		} else {
			b.WriteString(format[v.Start:v.End])
		}
		last = v.End
	}
	b.WriteString(unescape(format[last:]))
	return b.String()
}

func unescape(s string) string {
	if strings.Contains(s, "%%") {
		return strings.ReplaceAll(s, "%%", "%")
	}
	return s
}

// convert renders one parameter under one conversion. Width and the '-' and
// '0' flags are honoured; '#' adds the radix prefix for x, X and o.
func convert(v descriptor.Verb, p uint32) string {
	var s string
	switch v.Conv {
	case 'd', 'i':
		s = strconv.FormatInt(int64(int32(p)), 10)
		if strings.ContainsRune(v.Flags, '+') && int32(p) >= 0 {
			s = "+" + s
		}
	case 'u':
		s = strconv.FormatUint(uint64(p), 10)
	case 'x':
		s = strconv.FormatUint(uint64(p), 16)
		if strings.ContainsRune(v.Flags, '#') {
			s = "0x" + s
		}
	case 'X':
		s = strings.ToUpper(strconv.FormatUint(uint64(p), 16))
		if strings.ContainsRune(v.Flags, '#') {
			s = "0X" + s
		}
	case 'o':
		s = strconv.FormatUint(uint64(p), 8)
		if strings.ContainsRune(v.Flags, '#') {
			s = "0" + s
		}
	case 'c':
		s = string(rune(byte(p)))
	case 'p':
		return "0x" + pad(strconv.FormatUint(uint64(p), 16), 8, '0', false)
	default:
		// %s and friends cannot be carried in a 32-bit slot.
		return "<" + string(v.Conv) + ":0x" + strconv.FormatUint(uint64(p), 16) + ">"
	}
	return applyWidth(v.Flags, s)
}

func applyWidth(flags, s string) string {
	left := strings.ContainsRune(flags, '-')
	width := 0
	zero := false
	digits := strings.TrimLeft(flags, "-+# ")
	if strings.HasPrefix(digits, "0") {
		zero = true
		digits = strings.TrimLeft(digits, "0")
	}
	if dot := strings.IndexByte(digits, '.'); dot >= 0 {
		digits = digits[:dot]
	}
	if digits != "" {
		width, _ = strconv.Atoi(digits)
	}
	if zero && !left {
		return pad(s, width, '0', false)
	}
	return pad(s, width, ' ', left)
}

// pad widens s to width with fill; zero fill goes after any sign or prefix.
func pad(s string, width int, fill byte, left bool) string {
	if len(s) >= width {
		return s
	}
	fillStr := strings.Repeat(string(fill), width-len(s))
	if left {
		return s + fillStr
	}
	if fill == '0' {
		prefix := 0
		if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
			prefix = 1
		}
		if len(s) > prefix+1 && s[prefix] == '0' && (s[prefix+1]|0x20) == 'x' {
			prefix += 2
		}
		return s[:prefix] + fillStr + s[prefix:]
	}
	return fillStr + s
}

func unknownText(f *types.Frame) string {
	return "<unknown descriptor 0x" + strconv.FormatUint(uint64(f.Ref), 16) +
		" params 0x" + strconv.FormatUint(uint64(f.Params[0]), 16) +
		" 0x" + strconv.FormatUint(uint64(f.Params[1]), 16) +
		" 0x" + strconv.FormatUint(uint64(f.Params[2]), 16) + ">"
}
