package key

import (
	"fmt"
	"strconv"
	"strings"
)

var modWrappers = []struct {
	prefix string
	mod    Mods
}{
	{"C", ModCtrl},
	{"A", ModLAlt},
	{"RA", ModRAlt},
	{"S", ModShift},
	{"G", ModGUI},
}

var layerOps = map[string]LayerOp{
	"shiftto": ShiftTo,
	"lockto":  LockTo,
	"moveto":  MoveTo,
}

var byName map[string]Key

func init() {
	byName = make(map[string]Key, len(codeNames)+len(consumerNames)+len(systemNames)+4)
	for c, n := range codeNames {
		byName[strings.ToLower(n)] = Code(c)
	}
	for c, n := range consumerNames {
		byName[strings.ToLower(n)] = ConsumerKey(c)
	}
	for c, n := range systemNames {
		byName[strings.ToLower(n)] = SystemKey(c)
	}
	byName["___"] = Transparent
	byName["transparent"] = Transparent
	byName["xxx"] = NoKey
	byName["nokey"] = NoKey
}

// Parse converts a key name as used in keymap files into a Key.
//
// Accepted forms: plain names ("A", "LShift", "Mute"), modifier wrappers
// ("S(1)", "C(A(Delete))"), layer keys ("ShiftTo(1)", "LockTo(2)",
// "MoveTo(0)"), "___" for Transparent, "XXX" for NoKey and raw 16-bit values
// ("0x2004").
func Parse(name string) (Key, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return NoKey, fmt.Errorf("unknown key: %q", name)
	}
	if k, ok := byName[strings.ToLower(s)]; ok {
		return k, nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		raw, err := strconv.ParseUint(s[2:], 16, 16)
		if err != nil {
			return NoKey, fmt.Errorf("invalid raw key %q: %w", name, err)
		}
		return FromRaw(uint16(raw)), nil
	}

	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return NoKey, fmt.Errorf("unknown key: %q", name)
	}
	fn, arg := s[:open], s[open+1:len(s)-1]

	if op, ok := layerOps[strings.ToLower(fn)]; ok {
		n, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 8)
		if err != nil || n > layerIndexMask {
			return NoKey, fmt.Errorf("invalid layer in %q", name)
		}
		return LayerKey(op, uint8(n)), nil
	}

	for _, w := range modWrappers {
		if !strings.EqualFold(fn, w.prefix) {
			continue
		}
		inner, err := Parse(arg)
		if err != nil {
			return NoKey, err
		}
		if inner.Category != Keyboard || inner == NoKey {
			return NoKey, fmt.Errorf("modifier flags need a keyboard key: %q", name)
		}
		return inner.WithMods(w.mod), nil
	}
	return NoKey, fmt.Errorf("unknown key: %q", name)
}
