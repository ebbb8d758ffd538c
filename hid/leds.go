package hid

import (
	"io"
	"strings"
)

// LED bitmasks of the host's keyboard output report.
const (
	LEDNumLock    = 0x01
	LEDCapsLock   = 0x02
	LEDScrollLock = 0x04
	LEDCompose    = 0x08
	LEDKana       = 0x10
)

// LEDState is the lock-light state the host reports back.
type LEDState struct {
	NumLock    bool
	CapsLock   bool
	ScrollLock bool
	Compose    bool
	Kana       bool
}

// UnmarshalBinary decodes the 1-byte LED output report.
func (st *LEDState) UnmarshalBinary(data []byte) error {
	if len(data) < 1 {
		return io.ErrUnexpectedEOF
	}
	b := data[0]
	st.NumLock = b&LEDNumLock != 0
	st.CapsLock = b&LEDCapsLock != 0
	st.ScrollLock = b&LEDScrollLock != 0
	st.Compose = b&LEDCompose != 0
	st.Kana = b&LEDKana != 0
	return nil
}

func (st LEDState) String() string {
	var on []string
	for _, l := range []struct {
		set  bool
		name string
	}{
		{st.NumLock, "NumLock"},
		{st.CapsLock, "CapsLock"},
		{st.ScrollLock, "ScrollLock"},
		{st.Compose, "Compose"},
		{st.Kana, "Kana"},
	} {
		if l.set {
			on = append(on, l.name)
		}
	}
	if len(on) == 0 {
		return "(none)"
	}
	return strings.Join(on, ",")
}
