// Package key defines the logical key values and matrix addresses shared by
// every stage of the event pipeline.
package key

import "fmt"

// Category says which subsystem a Key belongs to.
type Category uint8

const (
	Keyboard Category = iota
	Consumer
	SystemControl
	Internal
	Layer
	Reserved Category = 7
)

func (c Category) String() string {
	switch c {
	case Keyboard:
		return "keyboard"
	case Consumer:
		return "consumer"
	case SystemControl:
		return "system"
	case Internal:
		return "internal"
	case Layer:
		return "layer"
	case Reserved:
		return "reserved"
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// Mods are modifier flags carried by a keyboard key (e.g. Shift+1 for '!').
type Mods uint8

const (
	ModCtrl Mods = 1 << iota
	ModLAlt
	ModRAlt
	ModShift
	ModGUI

	modMask = ModCtrl | ModLAlt | ModRAlt | ModShift | ModGUI
)

// LayerOp is the action of a layer key.
type LayerOp uint8

const (
	// ShiftTo activates a layer while the key is held.
	ShiftTo LayerOp = iota
	// LockTo toggles a layer on or off on each press.
	LockTo
	// MoveTo replaces the default layer and commits it to storage.
	MoveTo
)

func (op LayerOp) String() string {
	switch op {
	case ShiftTo:
		return "ShiftTo"
	case LockTo:
		return "LockTo"
	case MoveTo:
		return "MoveTo"
	}
	return fmt.Sprintf("LayerOp(%d)", uint8(op))
}

// Key is a logical key value.
type Key struct {
	Category Category
	Code     uint8
	Mods     Mods
}

var (
	// NoKey emits nothing.
	NoKey = Key{}
	// Transparent defers to the next lower active layer.
	Transparent = Key{Category: Reserved, Code: 0xff}
)

// Code returns an ordinary keyboard key for the HID usage c.
func Code(c uint8) Key {
	return Key{Category: Keyboard, Code: c}
}

// WithMods returns k with extra modifier flags.
func (k Key) WithMods(m Mods) Key {
	k.Mods |= m & modMask
	return k
}

// ConsumerKey returns a consumer control key.
func ConsumerKey(usage uint8) Key {
	return Key{Category: Consumer, Code: usage}
}

// SystemKey returns a system control key.
func SystemKey(usage uint8) Key {
	return Key{Category: SystemControl, Code: usage}
}

const (
	layerIndexMask = 0x1f
	layerOpShift   = 5
)

// LayerKey returns a key performing op on layer. Layers are limited to 0-31.
func LayerKey(op LayerOp, layer uint8) Key {
	return Key{Category: Layer, Code: uint8(op)<<layerOpShift | layer&layerIndexMask}
}

// LayerTarget decodes a layer key. ok is false for other categories.
func (k Key) LayerTarget() (op LayerOp, layer uint8, ok bool) {
	if k.Category != Layer {
		return 0, 0, false
	}
	return LayerOp(k.Code >> layerOpShift), k.Code & layerIndexMask, true
}

// IsLayer reports whether k switches layers.
func (k Key) IsLayer() bool { return k.Category == Layer }

// IsTransparent reports whether k defers to a lower layer.
func (k Key) IsTransparent() bool { return k == Transparent }

// IsNoKey reports whether k is the empty key.
func (k Key) IsNoKey() bool { return k == NoKey }

// IsModifier reports whether k is one of the eight keyboard modifier keys.
func (k Key) IsModifier() bool {
	return k.Category == Keyboard && k.Code >= CodeLeftCtrl && k.Code <= CodeRightGUI
}

// IsReportable reports whether k produces HID output.
func (k Key) IsReportable() bool {
	switch k.Category {
	case Keyboard:
		return k.Code != 0
	case Consumer, SystemControl:
		return true
	}
	return false
}

// Raw packs k into the 16-bit keymap storage form.
func (k Key) Raw() uint16 {
	return uint16(k.Category&0x7)<<13 | uint16(k.Mods&modMask)<<8 | uint16(k.Code)
}

// FromRaw unpacks the 16-bit keymap storage form.
func FromRaw(raw uint16) Key {
	return Key{
		Category: Category(raw >> 13),
		Mods:     Mods(raw>>8) & modMask,
		Code:     uint8(raw),
	}
}

func (k Key) String() string {
	switch {
	case k == NoKey:
		return "NoKey"
	case k == Transparent:
		return "Transparent"
	}
	var name string
	switch k.Category {
	case Keyboard:
		name = codeNames[k.Code]
	case Consumer:
		name = consumerNames[k.Code]
	case SystemControl:
		name = systemNames[k.Code]
	case Layer:
		op, layer, _ := k.LayerTarget()
		return fmt.Sprintf("%s(%d)", op, layer)
	}
	if name == "" {
		name = fmt.Sprintf("0x%04x", k.Raw())
	}
	for _, w := range modWrappers {
		if k.Mods&w.mod != 0 {
			name = w.prefix + "(" + name + ")"
		}
	}
	return name
}
