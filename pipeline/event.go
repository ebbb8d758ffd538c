// Package pipeline runs key events through an ordered chain of hooks before
// they reach the HID report.
package pipeline

import (
	"log/slog"

	"github.com/Alia5/keypipe/key"
	"github.com/Alia5/keypipe/keyswitch"
)

// Event is one key toggle travelling through the pipeline. An injected event
// whose Key is Transparent is resolved when it is processed rather than when
// it is injected: a press takes the key mapped at that moment, a release the
// key its press delivered.
type Event struct {
	Key      key.Key
	Addr     key.Addr
	State    keyswitch.State
	Injected bool
}

// Phase returns the toggle classification of the event.
func (e Event) Phase() keyswitch.Phase { return e.State.Phase() }

// Press and Release build injected events for k at addr.
func Press(k key.Key, addr key.Addr) Event {
	return Event{Key: k, Addr: addr, State: keyswitch.Pressed, Injected: true}
}

func Release(k key.Key, addr key.Addr) Event {
	return Event{Key: k, Addr: addr, State: keyswitch.WasPressed, Injected: true}
}

// Replay builds an injected event for addr whose key is looked up when the
// event is processed.
func Replay(addr key.Addr, state keyswitch.State) Event {
	return Event{Key: key.Transparent, Addr: addr, State: state, Injected: true}
}

// Result tells the pipeline whether to keep offering an event to hooks.
type Result uint8

const (
	// Continue passes the (possibly modified) event to the next hook.
	Continue Result = iota
	// Consumed stops the chain. Nothing further happens for the event.
	Consumed
)

// Hook sees every event in registration order.
type Hook interface {
	Name() string
	HandleEvent(d Dispatcher, ev *Event) Result
}

// Ticker is implemented by hooks that need to run once at the start of
// every cycle, before any key event.
type Ticker interface {
	Tick(d Dispatcher)
}

// Flusher is implemented by hooks that hold events back. Flush must resolve
// everything that is pending before it returns.
type Flusher interface {
	Pending() bool
	Flush(d Dispatcher)
}

// Dispatcher is the view of the pipeline handed to hooks.
type Dispatcher interface {
	// Now returns the millisecond timestamp of the current cycle.
	Now() uint32
	// Inject queues ev, marked as injected, to be processed right after the
	// event currently being handled.
	Inject(ev Event)
	// Lookup returns the key currently mapped at addr.
	Lookup(addr key.Addr) key.Key
	// ResolvedLayer returns the layer currently supplying addr's key.
	ResolvedLayer(addr key.Addr) uint8
	// FlushPending asks every Flusher to resolve its pending events now.
	FlushPending()
	Logger() *slog.Logger
}
