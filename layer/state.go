package layer

import (
	"log/slog"
	"math/bits"

	"github.com/Alia5/keypipe/key"
	"github.com/Alia5/keypipe/keyswitch"
)

const noLayer = 0xff

// DefaultLayerSaver persists the default layer when a MoveTo key commits it.
type DefaultLayerSaver interface {
	SaveDefaultLayer(layer uint8) error
}

// State is the set of active layers plus the per-position cache of the
// winning layer. The cache is rebuilt only when the active set changes.
type State struct {
	km     *Keymap
	logger *slog.Logger
	saver  DefaultLayerSaver

	locked       uint32
	holds        [MaxLayers]uint8
	defaultLayer uint8
	highest      uint8

	resolved  []uint8
	momentary []uint8
}

// Option configures a State.
type Option func(*State)

// WithLogger sets the logger used for layer change messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *State) { s.logger = l }
}

// WithSaver sets where MoveTo keys commit the new default layer.
func WithSaver(saver DefaultLayerSaver) Option {
	return func(s *State) { s.saver = saver }
}

// New returns a State with only defaultLayer active. A default layer outside
// the keymap falls back to layer 0.
func New(km *Keymap, defaultLayer uint8, opts ...Option) *State {
	s := &State{
		km:        km,
		logger:    slog.Default(),
		resolved:  make([]uint8, km.geo.Size()),
		momentary: make([]uint8, km.geo.Size()),
	}
	for _, o := range opts {
		o(s)
	}
	if int(defaultLayer) >= km.Layers() {
		s.logger.Warn("default layer out of range, using layer 0", "layer", defaultLayer, "layers", km.Layers())
		defaultLayer = 0
	}
	s.defaultLayer = defaultLayer
	for i := range s.momentary {
		s.momentary[i] = noLayer
	}
	s.update()
	return s
}

// Keymap returns the keymap the state resolves against.
func (s *State) Keymap() *Keymap { return s.km }

// Active returns the bitset of active layers.
func (s *State) Active() uint32 {
	active := s.locked | uint32(1)<<s.defaultLayer
	for l, n := range s.holds {
		if n > 0 {
			active |= 1 << l
		}
	}
	return active
}

// IsActive reports whether layer is in the active set.
func (s *State) IsActive(layer uint8) bool {
	return layer < MaxLayers && s.Active()&(1<<layer) != 0
}

// Default returns the default layer.
func (s *State) Default() uint8 { return s.defaultLayer }

// Highest returns the highest active layer.
func (s *State) Highest() uint8 { return s.highest }

// Activate locks layer on. Layers at or beyond MaxLayers are rejected.
func (s *State) Activate(layer uint8) bool {
	if layer >= MaxLayers {
		return false
	}
	s.locked |= 1 << layer
	s.update()
	return true
}

// Deactivate clears the lock on layer. Momentary holds on the same layer
// keep it active until they are released.
func (s *State) Deactivate(layer uint8) bool {
	if layer >= MaxLayers {
		return false
	}
	s.locked &^= 1 << layer
	s.update()
	return true
}

// SetDefault replaces the default layer and clears all locks.
func (s *State) SetDefault(layer uint8) bool {
	if int(layer) >= s.km.Layers() {
		return false
	}
	s.defaultLayer = layer
	s.locked = 0
	s.update()
	return true
}

// ResolvedLayer returns the layer that currently supplies addr's key.
func (s *State) ResolvedLayer(addr key.Addr) uint8 {
	if !s.km.geo.Contains(addr) {
		return s.defaultLayer
	}
	return s.resolved[s.km.geo.Index(addr)]
}

// Lookup returns the effective key at addr.
func (s *State) Lookup(addr key.Addr) key.Key {
	if !s.km.geo.Contains(addr) {
		return key.NoKey
	}
	return s.km.Key(s.resolved[s.km.geo.Index(addr)], addr)
}

// Base returns the default layer's entry at addr.
func (s *State) Base(addr key.Addr) key.Key {
	return s.km.Key(s.defaultLayer, addr)
}

// Recompute rebuilds the resolved-layer cache. Each position takes the
// highest active layer whose entry is not Transparent, falling back to the
// default layer.
func (s *State) Recompute() {
	active := s.Active()
	for i := range s.resolved {
		addr := s.km.geo.AddrAt(i)
		winner := s.defaultLayer
		for l := int(s.highest); l > int(s.defaultLayer); l-- {
			if active&(1<<l) == 0 {
				continue
			}
			if !s.km.Key(uint8(l), addr).IsTransparent() {
				winner = uint8(l)
				break
			}
		}
		s.resolved[i] = winner
	}
}

// HandleKey applies a layer key event. It returns false when k is not a
// layer key.
func (s *State) HandleKey(k key.Key, addr key.Addr, phase keyswitch.Phase) bool {
	op, layer, ok := k.LayerTarget()
	if !ok {
		return false
	}
	switch op {
	case key.ShiftTo:
		switch phase {
		case keyswitch.ToggledOn:
			s.hold(addr, layer)
		case keyswitch.ToggledOff:
			s.unhold(addr, layer)
		}
	case key.LockTo:
		if phase == keyswitch.ToggledOn {
			if s.locked&(1<<layer) != 0 {
				s.Deactivate(layer)
			} else {
				s.Activate(layer)
			}
		}
	case key.MoveTo:
		if phase == keyswitch.ToggledOn && s.SetDefault(layer) && s.saver != nil {
			if err := s.saver.SaveDefaultLayer(layer); err != nil {
				s.logger.Warn("failed to save default layer", "layer", layer, "error", err)
			}
		}
	}
	return true
}

// hold records which layer the key at addr engaged so the matching release
// undoes exactly that hold.
func (s *State) hold(addr key.Addr, layer uint8) {
	if s.km.geo.Contains(addr) {
		i := s.km.geo.Index(addr)
		if s.momentary[i] != noLayer {
			return
		}
		s.momentary[i] = layer
	}
	s.holds[layer]++
	s.update()
}

func (s *State) unhold(addr key.Addr, layer uint8) {
	if s.km.geo.Contains(addr) {
		i := s.km.geo.Index(addr)
		layer = s.momentary[i]
		if layer == noLayer {
			return
		}
		s.momentary[i] = noLayer
	}
	if s.holds[layer] == 0 {
		return
	}
	s.holds[layer]--
	s.update()
}

func (s *State) update() {
	active := s.Active()
	s.highest = uint8(bits.Len32(active) - 1)
	s.Recompute()
	s.logger.Debug("layer state changed", "active", active, "highest", s.highest, "default", s.defaultLayer)
}
