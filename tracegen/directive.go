package tracegen

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"firmtrace/types"
	"firmtrace/utils"
)

// directivePrefix opens a call-site annotation. The comment sits on the line
// directly above the emission call it describes:
//
//	//trace:ipc 0x05 "msg %d" id=40
//	t.Event1(siteIPCMsg, id)
const directivePrefix = "//trace:"

// maxCode is the widest subsystem code a ComponentID can carry.
const maxCode = 1<<24 - 1

// Directive is the parsed content of one annotation.
type Directive struct {
	Class  types.Class
	Code   uint32
	Format string
	ID     uint32 // pinned reference; 0 lets the generator choose
}

// ParseDirective parses a comment of the form
// //trace:<class> <code> "<format>" [id=N].
func ParseDirective(text string) (Directive, error) {
	var d Directive
	rest, ok := strings.CutPrefix(text, directivePrefix)
	if !ok {
		return d, errors.New("not a trace directive")
	}

	className, rest, _ := strings.Cut(rest, " ")
	c, err := types.ParseClass(className)
	if err != nil {
		return d, err
	}
	d.Class = c

	rest = strings.TrimLeft(rest, " \t")
	codeText, rest, _ := strings.Cut(rest, " ")
	code, ok := utils.ParseU32(codeText)
	if !ok || code > maxCode {
		return d, errors.New("bad component code " + strconv.Quote(codeText))
	}
	d.Code = code

	rest = strings.TrimLeft(rest, " \t")
	quoted, err := strconv.QuotedPrefix(rest)
	if err != nil {
		return d, errors.New("format must be a quoted string")
	}
	if d.Format, err = strconv.Unquote(quoted); err != nil {
		return d, err
	}

	for _, opt := range strings.Fields(rest[len(quoted):]) {
		key, val, _ := strings.Cut(opt, "=")
		switch key {
		case "id":
			id, ok := utils.ParseU32(val)
			if !ok || id == 0 {
				return d, errors.New("bad id " + strconv.Quote(val))
			}
			d.ID = id
		default:
			return d, errors.New("unknown option " + strconv.Quote(opt))
		}
	}
	return d, nil
}

// Family is the emission family a call belongs to.
type Family int

const (
	FamilyEvent Family = iota
	FamilyVerbose
	FamilyError
	numFamilies
)

var familyNames = [numFamilies]string{"event", "verbose", "error"}

func (f Family) String() string { return familyNames[f] }

// Level is the descriptor level the family's sites are stored under.
func (f Family) Level() types.Level {
	if f == FamilyError {
		return types.LevelCritical
	}
	return types.LevelVerbose
}

// buildTag is the constraint under which the family's region is linked. It
// mirrors the family switches in the trace package.
func (f Family) buildTag() string {
	switch f {
	case FamilyVerbose:
		return "!notrace && tracev"
	case FamilyError:
		return "!notrace && !notracee"
	}
	return "!notrace"
}

var callPattern = regexp.MustCompile(`^(Event|Verbose|Error)(Atomic)?([0-9]+)$`)

// parseMethod maps an emission method name to its family and arity. Arity
// is reported as written, so Event4 parses and is rejected by the caller.
func parseMethod(name string) (Family, int, bool) {
	m := callPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	n, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, 0, false
	}
	switch m[1] {
	case "Verbose":
		return FamilyVerbose, n, true
	case "Error":
		return FamilyError, n, true
	}
	return FamilyEvent, n, true
}
