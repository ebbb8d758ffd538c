// Package keyswitch tracks the two-sample history of every switch in the
// matrix and classifies each position as steady or toggled.
package keyswitch

// State is the 2-bit history of one switch: bit 0 is the current sample,
// bit 1 the previous one.
type State uint8

const (
	Pressed    State = 1 << 0
	WasPressed State = 1 << 1
)

// Phase is the classification of a State.
type Phase uint8

const (
	SteadyOff Phase = iota
	ToggledOn
	ToggledOff
	SteadyOn
)

func (p Phase) String() string {
	switch p {
	case SteadyOff:
		return "steady-off"
	case ToggledOn:
		return "toggled-on"
	case ToggledOff:
		return "toggled-off"
	case SteadyOn:
		return "steady-on"
	}
	return "unknown"
}

// Phase returns the classification of s.
func (s State) Phase() Phase {
	switch s & (Pressed | WasPressed) {
	case Pressed:
		return ToggledOn
	case WasPressed:
		return ToggledOff
	case Pressed | WasPressed:
		return SteadyOn
	}
	return SteadyOff
}

func (s State) IsPressed() bool  { return s&Pressed != 0 }
func (s State) WasPressed() bool { return s&WasPressed != 0 }
func (s State) ToggledOn() bool  { return s.Phase() == ToggledOn }
func (s State) ToggledOff() bool { return s.Phase() == ToggledOff }

// Next shifts the current sample into the history and records raw.
func (s State) Next(raw bool) State {
	n := (s & Pressed) << 1
	if raw {
		n |= Pressed
	}
	return n
}

func (s State) String() string { return s.Phase().String() }
