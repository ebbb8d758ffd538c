package pipeline

import (
	"errors"
	"log/slog"

	"github.com/Alia5/keypipe/key"
	"github.com/Alia5/keypipe/keyswitch"
	"github.com/Alia5/keypipe/layer"
)

const (
	// MaxHooks is the capacity of the hook chain.
	MaxHooks = 16
	// MaxInjectDepth bounds how deep injected events may nest.
	MaxInjectDepth = 8
	// StackSize is the capacity of the pending event stack.
	StackSize = 64
)

var ErrTooManyHooks = errors.New("hook chain is full")

// Reporter receives the events that survive the hook chain.
type Reporter interface {
	Press(k key.Key)
	Release(k key.Key)
}

// Stats counts what the pipeline has processed.
type Stats struct {
	Events   uint64
	Injected uint64
	Consumed uint64
	Dropped  uint64
}

type frame struct {
	ev    Event
	depth int
	// flushed marks a layer key event that was re-queued after its flush.
	flushed bool
}

// Pipeline dispatches events to hooks in registration order. Injected events
// go through an explicit stack instead of recursive calls; every frame
// carries its nesting depth so the bound is checked in one place.
type Pipeline struct {
	layers *layer.State
	out    Reporter
	logger *slog.Logger

	hooks  [MaxHooks]Hook
	nhooks int

	live []key.Key

	stack [StackSize]frame
	sp    int
	batch [StackSize]frame
	nb    int

	depth    int
	draining bool
	now      uint32
	stats    Stats
}

// New returns an empty pipeline resolving keys through layers and sending
// surviving events to out.
func New(layers *layer.State, out Reporter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		layers: layers,
		out:    out,
		logger: logger,
		live:   make([]key.Key, layers.Keymap().Geometry().Size()),
	}
}

// Register appends h to the end of the hook chain.
func (p *Pipeline) Register(h Hook) error {
	if p.nhooks == MaxHooks {
		return ErrTooManyHooks
	}
	p.hooks[p.nhooks] = h
	p.nhooks++
	p.logger.Debug("registered hook", "hook", h.Name(), "position", p.nhooks-1)
	return nil
}

// Hooks returns the registered hooks in order.
func (p *Pipeline) Hooks() []Hook {
	return p.hooks[:p.nhooks]
}

// Layers returns the layer state the pipeline resolves keys against.
func (p *Pipeline) Layers() *layer.State { return p.layers }

// Stats returns the processing counters.
func (p *Pipeline) Stats() Stats { return p.stats }

func (p *Pipeline) Now() uint32          { return p.now }
func (p *Pipeline) Logger() *slog.Logger { return p.logger }

func (p *Pipeline) Lookup(addr key.Addr) key.Key { return p.layers.Lookup(addr) }

func (p *Pipeline) ResolvedLayer(addr key.Addr) uint8 { return p.layers.ResolvedLayer(addr) }

// LiveKey returns the key that addr is currently holding down, or NoKey.
func (p *Pipeline) LiveKey(addr key.Addr) key.Key {
	if i, ok := p.index(addr); ok {
		return p.live[i]
	}
	return key.NoKey
}

// BeginCycle stamps the cycle time and runs every Ticker.
func (p *Pipeline) BeginCycle(now uint32) {
	p.now = now
	for _, h := range p.Hooks() {
		if t, ok := h.(Ticker); ok {
			p.run(func() { t.Tick(p) })
		}
	}
}

// HandleKeyswitch turns a toggled switch into an event and processes it to
// completion. Steady states are ignored.
func (p *Pipeline) HandleKeyswitch(addr key.Addr, state keyswitch.State) {
	ev := Event{Addr: addr, State: state}
	switch state.Phase() {
	case keyswitch.ToggledOn:
		ev.Key = p.layers.Lookup(addr)
	case keyswitch.ToggledOff:
		ev.Key = p.LiveKey(addr)
		if ev.Key.IsNoKey() {
			ev.Key = p.layers.Lookup(addr)
		}
	default:
		return
	}
	p.Dispatch(ev)
}

// Dispatch processes ev and everything it injects before returning. Called
// from inside a hook it behaves like Inject.
func (p *Pipeline) Dispatch(ev Event) {
	if p.draining {
		p.Inject(ev)
		return
	}
	p.push(frame{ev: ev})
	p.drain()
}

// Inject queues ev to run right after the event currently being handled.
// Events nested deeper than MaxInjectDepth are dropped.
func (p *Pipeline) Inject(ev Event) {
	ev.Injected = true
	depth := p.depth + 1
	if depth > MaxInjectDepth {
		p.stats.Dropped++
		p.logger.Warn("dropping injected event, nesting too deep", "key", ev.Key, "addr", ev.Addr, "depth", depth)
		return
	}
	p.queue(frame{ev: ev, depth: depth})
}

// FlushPending resolves everything held back by Flusher hooks. Inside a hook
// the resolved events run right after the current event; outside they run
// before FlushPending returns.
func (p *Pipeline) FlushPending() {
	if p.draining {
		p.flushHooks()
		return
	}
	p.run(p.flushHooks)
}

func (p *Pipeline) flushHooks() {
	for _, h := range p.Hooks() {
		if f, ok := h.(Flusher); ok && f.Pending() {
			p.logger.Debug("flushing hook", "hook", h.Name())
			f.Flush(p)
		}
	}
}

func (p *Pipeline) pending() bool {
	for _, h := range p.Hooks() {
		if f, ok := h.(Flusher); ok && f.Pending() {
			return true
		}
	}
	return false
}

// run executes fn outside of event processing and drains whatever it
// injected.
func (p *Pipeline) run(fn func()) {
	if p.draining {
		fn()
		return
	}
	p.draining = true
	p.depth = 0
	p.nb = 0
	fn()
	p.pushBatch()
	p.draining = false
	p.drain()
}

func (p *Pipeline) drain() {
	p.draining = true
	defer func() { p.draining = false }()

	for p.sp > 0 {
		p.sp--
		f := p.stack[p.sp]
		p.depth = f.depth
		p.nb = 0
		p.process(f)
		p.pushBatch()
	}
}

func (p *Pipeline) queue(f frame) {
	if p.nb == len(p.batch) {
		p.stats.Dropped++
		p.logger.Warn("dropping injected event, batch full", "key", f.ev.Key, "addr", f.ev.Addr)
		return
	}
	p.batch[p.nb] = f
	p.nb++
}

// pushBatch moves the current batch onto the stack so that its first event
// is popped next.
func (p *Pipeline) pushBatch() {
	for i := p.nb - 1; i >= 0; i-- {
		p.push(p.batch[i])
	}
	p.nb = 0
}

func (p *Pipeline) push(f frame) {
	if p.sp == len(p.stack) {
		p.stats.Dropped++
		p.logger.Warn("dropping event, stack full", "key", f.ev.Key, "addr", f.ev.Addr)
		return
	}
	p.stack[p.sp] = f
	p.sp++
}

func (p *Pipeline) process(f frame) {
	ev := f.ev
	if !f.flushed {
		p.stats.Events++
		if ev.Injected {
			p.stats.Injected++
		}
	}

	if ev.Injected && ev.Key.IsTransparent() {
		ev.Key = p.deferredKey(ev)
	}

	if lk, ok := p.layerKey(ev); ok {
		if !ev.Injected && !f.flushed && p.pending() {
			// Resolve held-back events under the current layers first, then
			// run this event again.
			p.flushHooks()
			f.flushed = true
			p.queue(f)
			return
		}
		ev.Key = lk
		p.layers.HandleKey(lk, ev.Addr, ev.Phase())
	}

	for _, h := range p.Hooks() {
		if h.HandleEvent(p, &ev) == Consumed {
			p.stats.Consumed++
			return
		}
	}
	p.finish(ev)
}

// deferredKey resolves an injected Transparent placeholder: presses take
// the key mapped now, releases the key their press delivered.
func (p *Pipeline) deferredKey(ev Event) key.Key {
	if ev.Phase() == keyswitch.ToggledOff {
		if k := p.LiveKey(ev.Addr); !k.IsNoKey() {
			return k
		}
	}
	return p.layers.Lookup(ev.Addr)
}

// layerKey returns the layer key governing ev, looking at the base layer
// entry first so layer keys keep working whatever is stacked above them.
func (p *Pipeline) layerKey(ev Event) (key.Key, bool) {
	if !ev.Injected && ev.Addr.IsValid() {
		if base := p.layers.Base(ev.Addr); base.IsLayer() {
			return base, true
		}
	}
	if ev.Key.IsLayer() {
		return ev.Key, true
	}
	return ev.Key, false
}

func (p *Pipeline) finish(ev Event) {
	i, tracked := p.index(ev.Addr)
	switch ev.Phase() {
	case keyswitch.ToggledOn:
		if tracked {
			p.live[i] = ev.Key
		}
		if ev.Key.IsReportable() {
			p.out.Press(ev.Key)
		}
	case keyswitch.ToggledOff:
		if tracked {
			p.live[i] = key.NoKey
		}
		if ev.Key.IsReportable() {
			p.out.Release(ev.Key)
		}
	}
}

func (p *Pipeline) index(addr key.Addr) (int, bool) {
	geo := p.layers.Keymap().Geometry()
	if !geo.Contains(addr) {
		return 0, false
	}
	return geo.Index(addr), true
}
