// Package hid turns key presses into USB HID reports and sends them through
// a Transport only when they change.
package hid

import (
	"fmt"
	"io"
	"strings"

	"github.com/Alia5/keypipe/key"
)

// Modifier byte bitmasks.
const (
	ModLeftCtrl   = 0x01
	ModLeftShift  = 0x02
	ModLeftAlt    = 0x04
	ModLeftGUI    = 0x08
	ModRightCtrl  = 0x10
	ModRightShift = 0x20
	ModRightAlt   = 0x40
	ModRightGUI   = 0x80
)

const (
	// ErrorRollOver fills every boot report slot when more than six keys
	// are down.
	ErrorRollOver = 0x01

	BootReportSize     = 8
	BootKeySlots       = 6
	NKROReportSize     = 34
	ConsumerReportSize = 2
	SystemReportSize   = 1
)

// ReportKind identifies which HID interface a report belongs to.
type ReportKind uint8

const (
	KindKeyboard ReportKind = iota
	KindConsumer
	KindSystem
)

func (k ReportKind) String() string {
	switch k {
	case KindKeyboard:
		return "keyboard"
	case KindConsumer:
		return "consumer"
	case KindSystem:
		return "system"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Protocol selects the keyboard report format.
type Protocol uint8

const (
	// Boot is the 6-key rollover report every BIOS understands.
	Boot Protocol = iota
	// NKRO is the 256-bit bitmap report.
	NKRO
)

func (p Protocol) String() string {
	if p == NKRO {
		return "nkro"
	}
	return "boot"
}

// ParseProtocol accepts "boot" and "nkro" in any case. Empty means Boot.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "boot":
		return Boot, nil
	case "nkro":
		return NKRO, nil
	}
	return Boot, fmt.Errorf("unknown protocol %q", s)
}

// modifierBits maps key modifier flags to the report's modifier byte.
func modifierBits(m key.Mods) uint8 {
	var b uint8
	if m&key.ModCtrl != 0 {
		b |= ModLeftCtrl
	}
	if m&key.ModShift != 0 {
		b |= ModLeftShift
	}
	if m&key.ModLAlt != 0 {
		b |= ModLeftAlt
	}
	if m&key.ModGUI != 0 {
		b |= ModLeftGUI
	}
	if m&key.ModRAlt != 0 {
		b |= ModRightAlt
	}
	return b
}

// KeyboardReport is the keyboard state a report is built from. Modifier keys
// live in Modifiers only; KeyBitmap holds every other usage.
type KeyboardReport struct {
	Modifiers uint8
	KeyBitmap [32]uint8
}

func (r *KeyboardReport) Set(code uint8)   { r.KeyBitmap[code/8] |= 1 << (code % 8) }
func (r *KeyboardReport) Clear(code uint8) { r.KeyBitmap[code/8] &^= 1 << (code % 8) }

func (r KeyboardReport) Has(code uint8) bool {
	return r.KeyBitmap[code/8]&(1<<(code%8)) != 0
}

// Codes returns the usages in the bitmap in ascending order.
func (r KeyboardReport) Codes() []uint8 {
	var codes []uint8
	for i := 0; i < 256; i++ {
		if r.Has(uint8(i)) {
			codes = append(codes, uint8(i))
		}
	}
	return codes
}

// Build encodes the report for protocol p.
func (r KeyboardReport) Build(p Protocol) []byte {
	if p == NKRO {
		return r.BuildNKRO()
	}
	return r.BuildBoot()
}

// BuildBoot encodes the 8-byte boot report:
//
//	Byte 0: Modifiers
//	Byte 1: Reserved (0x00)
//	Bytes 2-7: up to six usages, or ErrorRollOver in all six
func (r KeyboardReport) BuildBoot() []byte {
	b := make([]byte, BootReportSize)
	b[0] = r.Modifiers
	codes := r.Codes()
	if len(codes) > BootKeySlots {
		for i := 2; i < BootReportSize; i++ {
			b[i] = ErrorRollOver
		}
		return b
	}
	copy(b[2:], codes)
	return b
}

// BuildNKRO encodes the 34-byte bitmap report:
//
//	Byte 0: Modifiers
//	Byte 1: Reserved (0x00)
//	Bytes 2-33: usage bitmap
func (r KeyboardReport) BuildNKRO() []byte {
	b := make([]byte, NKROReportSize)
	b[0] = r.Modifiers
	copy(b[2:], r.KeyBitmap[:])
	return b
}

// UnmarshalBinary decodes a boot or NKRO report, told apart by length.
func (r *KeyboardReport) UnmarshalBinary(data []byte) error {
	*r = KeyboardReport{}
	switch len(data) {
	case BootReportSize:
		r.Modifiers = data[0]
		for _, c := range data[2:] {
			if c > ErrorRollOver {
				r.Set(c)
			}
		}
	case NKROReportSize:
		r.Modifiers = data[0]
		copy(r.KeyBitmap[:], data[2:])
	default:
		return io.ErrUnexpectedEOF
	}
	return nil
}

var modifierNames = [8]string{"LCtrl", "LShift", "LAlt", "LGUI", "RCtrl", "RShift", "RAlt", "RGUI"}

// Describe renders a transmitted report for humans, e.g.
// "keyboard LShift+A,B" or "consumer VolUp".
func Describe(kind ReportKind, data []byte) string {
	switch kind {
	case KindKeyboard:
		var r KeyboardReport
		if err := r.UnmarshalBinary(data); err != nil {
			return fmt.Sprintf("keyboard <%d bytes>", len(data))
		}
		var parts []string
		for i, name := range modifierNames {
			if r.Modifiers&(1<<i) != 0 {
				parts = append(parts, name)
			}
		}
		var keys []string
		for _, c := range r.Codes() {
			keys = append(keys, key.Code(c).String())
		}
		if len(data) == BootReportSize && data[2] == ErrorRollOver {
			keys = []string{"ErrorRollOver"}
		}
		s := strings.Join(parts, "+")
		if len(keys) > 0 {
			if s != "" {
				s += "+"
			}
			s += strings.Join(keys, ",")
		}
		if s == "" {
			s = "(none)"
		}
		return "keyboard " + s
	case KindConsumer:
		if len(data) < ConsumerReportSize {
			return "consumer <short>"
		}
		usage := uint16(data[0]) | uint16(data[1])<<8
		if usage == 0 {
			return "consumer (none)"
		}
		return "consumer " + key.ConsumerKey(uint8(usage)).String()
	case KindSystem:
		if len(data) < SystemReportSize {
			return "system <short>"
		}
		if data[0] == 0 {
			return "system (none)"
		}
		return "system " + key.SystemKey(data[0]).String()
	}
	return fmt.Sprintf("%s <%d bytes>", kind, len(data))
}
