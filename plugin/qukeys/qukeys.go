// Package qukeys implements dual-use keys: a key that means one thing when
// tapped and another when held, decided by hold time and by how it overlaps
// with the keys pressed after it.
package qukeys

import (
	"log/slog"

	"github.com/Alia5/keypipe/key"
	"github.com/Alia5/keypipe/keyswitch"
	"github.com/Alia5/keypipe/pipeline"
)

const (
	DefaultHoldTimeout      = 250
	DefaultOverlapThreshold = 80
	DefaultQueueSize        = 8

	// AnyLayer makes a definition match whichever layer supplies the key.
	AnyLayer = 0xff
)

// Definition declares a dual-use key at Addr on Layer.
type Definition struct {
	Layer     uint8
	Addr      key.Addr
	Primary   key.Key
	Alternate key.Key
}

// Config holds the timing parameters and the dual-use key table.
type Config struct {
	// HoldTimeout is the time in milliseconds after which a held qukey
	// takes its alternate value.
	HoldTimeout uint32
	// OverlapThreshold is the percentage of the next key's press duration
	// that must overlap the qukey for it to count as held.
	OverlapThreshold uint8
	// QueueSize bounds how many presses can wait for resolution.
	QueueSize int
	Keys      []Definition
}

// Outcome is the value a queued key resolves to.
type Outcome uint8

const (
	Primary Outcome = iota
	Alternate
)

func (o Outcome) String() string {
	if o == Alternate {
		return "alternate"
	}
	return "primary"
}

type entry struct {
	addr     key.Addr
	def      int
	seq      uint32
	pressed  uint32
	released uint32
	relSeq   uint32
	isUp     bool
}

// release is a key-up held back until every press that happened before it
// has reached the host.
type release struct {
	addr key.Addr
	key  key.Key
	seq  uint32
}

// Qukeys is a pipeline hook. While anything is queued, every new press is
// queued behind it so the host sees presses in the order they happened.
type Qukeys struct {
	geo    key.Geometry
	logger *slog.Logger

	holdTimeout uint32
	threshold   uint8
	defs        []Definition
	active      bool

	buf  []entry
	head int
	n    int
	seq  uint32

	releases []release
}

// New validates cfg against geo and returns the hook. Malformed definitions
// are dropped with a warning.
func New(geo key.Geometry, cfg Config, logger *slog.Logger) *Qukeys {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HoldTimeout == 0 {
		cfg.HoldTimeout = DefaultHoldTimeout
	}
	if cfg.OverlapThreshold > 100 {
		logger.Warn("qukeys overlap threshold above 100%, clamping", "threshold", cfg.OverlapThreshold)
		cfg.OverlapThreshold = 100
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	q := &Qukeys{
		geo:         geo,
		logger:      logger,
		holdTimeout: cfg.HoldTimeout,
		threshold:   cfg.OverlapThreshold,
		active:      true,
		buf:         make([]entry, cfg.QueueSize),
		releases:    make([]release, 0, 2*cfg.QueueSize),
	}
	for _, d := range cfg.Keys {
		if err := q.validate(d); err != "" {
			logger.Warn("dropping qukey definition", "addr", d.Addr, "layer", d.Layer, "reason", err)
			continue
		}
		q.defs = append(q.defs, d)
	}
	return q
}

func (q *Qukeys) validate(d Definition) string {
	switch {
	case !q.geo.Contains(d.Addr):
		return "address outside matrix"
	case d.Primary.IsTransparent() || d.Primary.IsNoKey():
		return "primary key is empty"
	case d.Alternate.IsTransparent() || d.Alternate.IsNoKey():
		return "alternate key is empty"
	}
	for _, o := range q.defs {
		if o.Addr == d.Addr && o.Layer == d.Layer {
			return "duplicate definition"
		}
	}
	return ""
}

func (q *Qukeys) Name() string { return "qukeys" }

// Definitions returns the accepted dual-use keys.
func (q *Qukeys) Definitions() []Definition { return q.defs }

// SetActive turns dual-use handling on or off. Anything still queued when
// it is turned off is flushed on the next tick.
func (q *Qukeys) SetActive(active bool) { q.active = active }

// Active reports whether dual-use handling is on.
func (q *Qukeys) Active() bool { return q.active }

// Len returns the number of queued presses.
func (q *Qukeys) Len() int { return q.n }

// Masked reports whether addr is waiting in the queue.
func (q *Qukeys) Masked(addr key.Addr) bool {
	for i := 0; i < q.n; i++ {
		if q.at(i).addr == addr {
			return true
		}
	}
	return false
}

// HandleEvent queues ambiguous presses and the presses that follow them.
// Releases are held back while anything pressed before them is queued.
func (q *Qukeys) HandleEvent(d pipeline.Dispatcher, ev *pipeline.Event) pipeline.Result {
	if ev.Injected || !q.geo.Contains(ev.Addr) || !q.active {
		return pipeline.Continue
	}
	now := d.Now()

	switch ev.Phase() {
	case keyswitch.ToggledOn:
		if ev.Key.IsLayer() {
			return pipeline.Continue
		}
		def := q.match(d.ResolvedLayer(ev.Addr), ev.Addr)
		if def < 0 && q.n == 0 {
			return pipeline.Continue
		}
		if q.n == len(q.buf) {
			q.logger.Debug("qukeys queue full, forcing head", "addr", q.at(0).addr)
			q.resolveHead(d, Primary)
			q.resolveReady(d, now)
		}
		q.seq++
		q.push(entry{addr: ev.Addr, def: def, seq: q.seq, pressed: now})
		q.resolveReady(d, now)
		return pipeline.Consumed

	case keyswitch.ToggledOff:
		if q.n == 0 {
			return pipeline.Continue
		}
		q.seq++
		if i := q.find(ev.Addr); i >= 0 {
			e := q.ptr(i)
			e.isUp = true
			e.released = now
			e.relSeq = q.seq
		} else {
			q.deferRelease(d, release{addr: ev.Addr, key: key.Transparent, seq: q.seq})
		}
		q.resolveReady(d, now)
		return pipeline.Consumed
	}
	return pipeline.Continue
}

// Tick resolves heads whose hold timeout expired since the last cycle.
func (q *Qukeys) Tick(d pipeline.Dispatcher) {
	if !q.active {
		if q.n > 0 {
			q.Flush(d)
		}
		return
	}
	q.resolveReady(d, d.Now())
}

// Pending reports whether any press is waiting.
func (q *Qukeys) Pending() bool { return q.n > 0 }

// Flush resolves the whole queue at once. Entries that can already be
// decided are; of the rest, held keys take their alternate value and
// released keys their primary.
func (q *Qukeys) Flush(d pipeline.Dispatcher) {
	now := d.Now()
	for q.n > 0 {
		out, ok := q.decide(now)
		if !ok {
			out = Primary
			if !q.at(0).isUp {
				out = Alternate
			}
		}
		q.resolveHead(d, out)
	}
}

func (q *Qukeys) match(layer uint8, addr key.Addr) int {
	for i, d := range q.defs {
		if d.Addr == addr && (d.Layer == layer || d.Layer == AnyLayer) {
			return i
		}
	}
	return -1
}

// resolveReady resolves heads for as long as they can be decided. A key is
// only eligible once everything queued before it has been resolved.
func (q *Qukeys) resolveReady(d pipeline.Dispatcher, now uint32) {
	for q.n > 0 {
		out, ok := q.decide(now)
		if !ok {
			return
		}
		q.resolveHead(d, out)
	}
}

// decide classifies the head of the queue, or reports that it cannot be
// classified yet.
func (q *Qukeys) decide(now uint32) (Outcome, bool) {
	h := q.at(0)
	if h.def < 0 {
		return Primary, true
	}

	if !h.isUp {
		if now-h.pressed >= q.holdTimeout {
			return Alternate, true
		}
		for i := 1; i < q.n; i++ {
			if q.at(i).isUp {
				// a later key went down and up inside the hold
				return Alternate, true
			}
		}
		return Primary, false
	}

	if h.released-h.pressed >= q.holdTimeout {
		return Alternate, true
	}
	for i := 1; i < q.n; i++ {
		if e := q.at(i); e.isUp && e.released-h.pressed <= h.released-h.pressed {
			return Alternate, true
		}
	}
	if q.n < 2 {
		return Primary, true
	}

	next := q.at(1)
	if next.pressed-h.pressed >= h.released-h.pressed {
		return Primary, true
	}
	overlap := h.released - next.pressed
	if next.isUp {
		return q.overlapOutcome(overlap, next.released-next.pressed), true
	}
	// The next key is still down. Its duration only grows, so once the
	// overlap falls below the threshold it can never reach it again.
	if q.overlapOutcome(overlap, now-next.pressed) == Primary {
		return Primary, true
	}
	return Primary, false
}

// overlapOutcome compares overlap against threshold percent of duration in
// integer arithmetic, so there is no rounding step.
func (q *Qukeys) overlapOutcome(overlap, duration uint32) Outcome {
	if uint64(overlap)*100 >= uint64(q.threshold)*uint64(duration) {
		return Alternate
	}
	return Primary
}

// resolveHead pops the head and replays its press with the chosen value.
// If it was already released, the release follows once the presses that
// came before it have been replayed.
func (q *Qukeys) resolveHead(d pipeline.Dispatcher, out Outcome) {
	h := q.pop()
	k := key.Transparent
	if h.def >= 0 {
		def := q.defs[h.def]
		k = def.Primary
		if out == Alternate {
			k = def.Alternate
		}
		q.logger.Debug("qukey resolved", "addr", h.addr, "outcome", out, "key", k)
	}
	d.Inject(pipeline.Event{Key: k, Addr: h.addr, State: keyswitch.Pressed, Injected: true})
	if h.isUp {
		q.insertRelease(d, release{addr: h.addr, key: k, seq: h.relSeq})
	}
	q.emitReleases(d)
}

// deferRelease holds back the release of a key that is not queued itself.
// When the buffer is full the head is forced to make room.
func (q *Qukeys) deferRelease(d pipeline.Dispatcher, r release) {
	for len(q.releases) >= 2*len(q.buf) && q.n > 0 {
		q.resolveHead(d, Primary)
	}
	if q.n == 0 {
		q.emitReleases(d)
		d.Inject(pipeline.Release(r.key, r.addr))
		return
	}
	q.insertRelease(d, r)
}

// insertRelease adds r in sequence order. The list never grows past its
// capacity: when full, the earliest release goes out immediately.
func (q *Qukeys) insertRelease(d pipeline.Dispatcher, r release) {
	if len(q.releases) == cap(q.releases) {
		if len(q.releases) == 0 || r.seq < q.releases[0].seq {
			q.logger.Debug("qukeys release list full, sending release early", "addr", r.addr)
			d.Inject(pipeline.Release(r.key, r.addr))
			return
		}
		first := q.releases[0]
		q.logger.Debug("qukeys release list full, sending release early", "addr", first.addr)
		d.Inject(pipeline.Release(first.key, first.addr))
		q.releases = append(q.releases[:0], q.releases[1:]...)
	}
	i := len(q.releases)
	q.releases = append(q.releases, r)
	for i > 0 && q.releases[i-1].seq > r.seq {
		q.releases[i] = q.releases[i-1]
		i--
	}
	q.releases[i] = r
}

// emitReleases replays held-back releases that happened before the press at
// the head of the queue.
func (q *Qukeys) emitReleases(d pipeline.Dispatcher) {
	n := 0
	for _, r := range q.releases {
		if q.n > 0 && r.seq > q.at(0).seq {
			break
		}
		d.Inject(pipeline.Release(r.key, r.addr))
		n++
	}
	if n > 0 {
		q.releases = append(q.releases[:0], q.releases[n:]...)
	}
}

func (q *Qukeys) find(addr key.Addr) int {
	for i := q.n - 1; i >= 0; i-- {
		if e := q.at(i); e.addr == addr && !e.isUp {
			return i
		}
	}
	return -1
}

func (q *Qukeys) at(i int) entry { return q.buf[(q.head+i)%len(q.buf)] }

func (q *Qukeys) ptr(i int) *entry { return &q.buf[(q.head+i)%len(q.buf)] }

func (q *Qukeys) push(e entry) {
	q.buf[(q.head+q.n)%len(q.buf)] = e
	q.n++
}

func (q *Qukeys) pop() entry {
	e := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return e
}
