package hid

import (
	"bytes"
	"log/slog"

	"github.com/Alia5/keypipe/key"
)

// Transport delivers report bytes to the host. Delivery is best effort; any
// retrying belongs to the transport.
type Transport interface {
	Transmit(kind ReportKind, data []byte) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(kind ReportKind, data []byte) error

func (f TransportFunc) Transmit(kind ReportKind, data []byte) error { return f(kind, data) }

// maxFlagged bounds how many held keys are remembered for their flags. The
// oldest is forgotten when more are held.
const maxFlagged = 16

type flagged struct {
	code  uint8
	mods  uint8
	valid bool
}

// Assembler keeps the live report state and the last transmitted copy of
// each report. It implements the pipeline's reporter.
type Assembler struct {
	out      Transport
	logger   *slog.Logger
	protocol Protocol

	// counts tracks how many live keys hold each usage, modifier keys
	// included.
	counts [256]uint8

	// held lists the held non-modifier keys in the order they were toggled
	// on, most recent last. Only the flags of the most recent one reach the
	// report.
	held  [maxFlagged]flagged
	nheld int
	// toggled is the usage toggled on since the previous Send.
	toggled flagged
	// fresh marks usages pressed since the previous Send. Releasing one of
	// them sends first, so a tap inside one cycle still reaches the host.
	fresh         KeyboardReport
	freshConsumer bool
	freshSystem   bool

	consumer uint16
	system   uint8
	leds     LEDState

	shadow         []byte
	shadowConsumer []byte
	shadowSystem   []byte
}

// NewAssembler returns an assembler producing protocol p reports on out.
func NewAssembler(out Transport, p Protocol, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Assembler{out: out, logger: logger, protocol: p}
	a.clearShadows()
	return a
}

// clearShadows records idle reports as transmitted, so an idle keyboard
// sends nothing.
func (a *Assembler) clearShadows() {
	var empty KeyboardReport
	a.shadow = empty.Build(a.protocol)
	a.shadowConsumer = make([]byte, ConsumerReportSize)
	a.shadowSystem = make([]byte, SystemReportSize)
}

// Protocol returns the active keyboard report format.
func (a *Assembler) Protocol() Protocol { return a.protocol }

// SetProtocol switches the keyboard report format. The next Send transmits
// a full report in the new format.
func (a *Assembler) SetProtocol(p Protocol) {
	if p == a.protocol {
		return
	}
	a.logger.Info("hid protocol changed", "from", a.protocol, "to", p)
	a.protocol = p
	a.shadow = nil
}

// Press adds k to the live report.
func (a *Assembler) Press(k key.Key) {
	switch k.Category {
	case key.Keyboard:
		if k.Code == 0 {
			return
		}
		a.counts[k.Code]++
		a.fresh.Set(k.Code)
		if k.IsModifier() {
			a.holdFlagModifiers(k.Mods, 1)
			return
		}
		f := flagged{code: k.Code, mods: modifierBits(k.Mods), valid: true}
		a.pushHeld(f)
		a.toggled = f
	case key.Consumer:
		a.consumer = uint16(k.Code)
		a.freshConsumer = true
	case key.SystemControl:
		a.system = k.Code
		a.freshSystem = true
	}
}

// Release removes k from the live report.
func (a *Assembler) Release(k key.Key) {
	switch k.Category {
	case key.Keyboard:
		if k.Code == 0 || a.counts[k.Code] == 0 {
			return
		}
		if a.counts[k.Code] == 1 && a.fresh.Has(k.Code) {
			a.Send()
		}
		a.counts[k.Code]--
		if k.IsModifier() {
			a.holdFlagModifiers(k.Mods, -1)
			return
		}
		if a.counts[k.Code] > 0 {
			return
		}
		a.dropHeld(k.Code)
	case key.Consumer:
		if a.consumer == uint16(k.Code) {
			if a.freshConsumer {
				a.Send()
			}
			a.consumer = 0
		}
	case key.SystemControl:
		if a.system == k.Code {
			if a.freshSystem {
				a.Send()
			}
			a.system = 0
		}
	}
}

// pushHeld makes f the most recent held key. A usage held twice keeps the
// flags of its latest press.
func (a *Assembler) pushHeld(f flagged) {
	a.dropHeld(f.code)
	if a.nheld == len(a.held) {
		copy(a.held[:], a.held[1:])
		a.nheld--
	}
	a.held[a.nheld] = f
	a.nheld++
}

func (a *Assembler) dropHeld(code uint8) {
	for i := 0; i < a.nheld; i++ {
		if a.held[i].code == code {
			copy(a.held[i:a.nheld], a.held[i+1:a.nheld])
			a.nheld--
			a.held[a.nheld] = flagged{}
			return
		}
	}
}

// recent returns the i-th most recent held key, counting from 0.
func (a *Assembler) recent(i int) flagged {
	if i >= a.nheld {
		return flagged{}
	}
	return a.held[a.nheld-1-i]
}

// holdFlagModifiers holds the modifier keys named by flags on a modifier
// key, e.g. C(LShift), as if they were pressed too.
func (a *Assembler) holdFlagModifiers(m key.Mods, delta int) {
	bits := modifierBits(m)
	for i := 0; i < 8; i++ {
		if bits&(1<<i) == 0 {
			continue
		}
		code := key.CodeLeftCtrl + uint8(i)
		if delta > 0 {
			a.counts[code]++
		} else if a.counts[code] > 0 {
			a.counts[code]--
		}
	}
}

// Report returns the live keyboard report.
func (a *Assembler) Report() KeyboardReport {
	return a.report(a.recent(0))
}

func (a *Assembler) report(flags flagged) KeyboardReport {
	var r KeyboardReport
	for i := 0; i < 8; i++ {
		if a.counts[key.CodeLeftCtrl+i] > 0 {
			r.Modifiers |= 1 << i
		}
	}
	if flags.valid {
		r.Modifiers |= flags.mods
	}
	for c := 1; c < 256; c++ {
		code := uint8(c)
		if a.counts[code] > 0 && !key.Code(code).IsModifier() {
			r.Set(code)
		}
	}
	return r
}

// Send transmits every report that differs from its last transmitted copy.
// It runs once per cycle and whenever a key is released in the same cycle
// it was pressed. When a key was toggled on since the previous Send, a
// report without that key goes out first so the host never sees the key
// and a modifier change in the same report.
func (a *Assembler) Send() {
	a.fresh = KeyboardReport{}
	a.freshConsumer, a.freshSystem = false, false
	a.sendKeyboard()
	a.sendConsumer()
	a.sendSystem()
}

func (a *Assembler) sendKeyboard() {
	toggled := a.toggled
	a.toggled = flagged{}

	live := a.report(a.recent(0))
	final := live.Build(a.protocol)
	if bytes.Equal(final, a.shadow) {
		return
	}

	if toggled.valid && live.Has(toggled.code) {
		inter := a.report(a.recent(1))
		inter.Clear(toggled.code)
		if b := inter.Build(a.protocol); !bytes.Equal(b, a.shadow) {
			a.transmit(KindKeyboard, b)
			a.shadow = b
		}
	}
	a.transmit(KindKeyboard, final)
	a.shadow = final
}

func (a *Assembler) sendConsumer() {
	b := []byte{byte(a.consumer), byte(a.consumer >> 8)}
	if bytes.Equal(b, a.shadowConsumer) {
		return
	}
	a.transmit(KindConsumer, b)
	a.shadowConsumer = b
}

func (a *Assembler) sendSystem() {
	b := []byte{a.system}
	if bytes.Equal(b, a.shadowSystem) {
		return
	}
	a.transmit(KindSystem, b)
	a.shadowSystem = b
}

func (a *Assembler) transmit(kind ReportKind, data []byte) {
	if err := a.out.Transmit(kind, data); err != nil {
		a.logger.Warn("report transmit failed", "kind", kind, "error", err)
	}
}

// HandleOutput takes the host's LED output report.
func (a *Assembler) HandleOutput(data []byte) error {
	var st LEDState
	if err := st.UnmarshalBinary(data); err != nil {
		return err
	}
	if st != a.leds {
		a.logger.Debug("host leds changed", "leds", st)
	}
	a.leds = st
	return nil
}

// LEDs returns the last LED state the host reported.
func (a *Assembler) LEDs() LEDState { return a.leds }

// Reset drops every live key. The next Send reports the release of anything
// the host still sees.
func (a *Assembler) Reset() {
	a.counts = [256]uint8{}
	a.held, a.nheld, a.toggled = [maxFlagged]flagged{}, 0, flagged{}
	a.fresh = KeyboardReport{}
	a.consumer, a.system = 0, 0
	a.freshConsumer, a.freshSystem = false, false
}
