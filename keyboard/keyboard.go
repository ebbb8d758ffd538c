// Package keyboard wires the core together and runs one scan cycle at a
// time: sample, debounce, resolve layers, run hooks, send reports.
package keyboard

import (
	"fmt"
	"log/slog"

	"github.com/Alia5/keypipe/hid"
	"github.com/Alia5/keypipe/key"
	"github.com/Alia5/keypipe/keyswitch"
	"github.com/Alia5/keypipe/layer"
	"github.com/Alia5/keypipe/pipeline"
	"github.com/Alia5/keypipe/settings"
)

// Scanner reports the raw state of one switch. It is called once per
// position per cycle, in row-major order.
type Scanner interface {
	Pressed(addr key.Addr) bool
}

// ScannerFunc adapts a function to Scanner.
type ScannerFunc func(addr key.Addr) bool

func (f ScannerFunc) Pressed(addr key.Addr) bool { return f(addr) }

// PluginSpec names a registered plugin and its configuration section.
type PluginSpec struct {
	Name   string
	Config map[string]any
}

type Options struct {
	// Geometry is the matrix the firmware is built for. The keymap must
	// match it.
	Geometry  key.Geometry
	Layers    [][][]key.Key
	Protocol  hid.Protocol
	Transport hid.Transport
	// Store holds the default layer. Nil means layer 0 and MoveTo keys
	// are not persisted.
	Store settings.Store
	// Plugins are built from the registry and registered in order, before
	// Hooks.
	Plugins []PluginSpec
	Hooks   []pipeline.Hook
	Logger  *slog.Logger
}

type Keyboard struct {
	geo    key.Geometry
	logger *slog.Logger

	table  *keyswitch.Table
	layers *layer.State
	pipe   *pipeline.Pipeline
	hid    *hid.Assembler

	now    uint32
	cycles uint64
}

var discard = hid.TransportFunc(func(hid.ReportKind, []byte) error { return nil })

// New validates opts and builds the keyboard. A keymap that does not fit
// the geometry is an error; a bad stored default layer or malformed qukey
// definitions only produce warnings.
func New(opts Options) (*Keyboard, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	km, err := layer.NewKeymap(opts.Geometry, opts.Layers)
	if err != nil {
		return nil, fmt.Errorf("keymap: %w", err)
	}

	def := settings.DefaultLayer(opts.Store, km.Layers(), logger)
	layerOpts := []layer.Option{layer.WithLogger(logger)}
	if opts.Store != nil {
		layerOpts = append(layerOpts, layer.WithSaver(opts.Store))
	}
	layers := layer.New(km, def, layerOpts...)

	out := opts.Transport
	if out == nil {
		out = discard
	}
	asm := hid.NewAssembler(out, opts.Protocol, logger)
	pipe := pipeline.New(layers, asm, logger)

	for _, p := range opts.Plugins {
		h, err := pipeline.NewPlugin(p.Name, pipeline.PluginContext{
			Geometry: opts.Geometry,
			Logger:   logger.With("plugin", p.Name),
			Config:   p.Config,
		})
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", p.Name, err)
		}
		if err := pipe.Register(h); err != nil {
			return nil, fmt.Errorf("plugin %s: %w", p.Name, err)
		}
	}
	for _, h := range opts.Hooks {
		if err := pipe.Register(h); err != nil {
			return nil, fmt.Errorf("hook %s: %w", h.Name(), err)
		}
	}

	logger.Info("keyboard ready",
		"rows", opts.Geometry.Rows,
		"cols", opts.Geometry.Cols,
		"layers", km.Layers(),
		"defaultLayer", layers.Default(),
		"protocol", opts.Protocol,
		"hooks", len(pipe.Hooks()),
	)
	return &Keyboard{
		geo:    opts.Geometry,
		logger: logger,
		table:  keyswitch.NewTable(opts.Geometry),
		layers: layers,
		pipe:   pipe,
		hid:    asm,
	}, nil
}

// Cycle runs one full scan cycle at time now (milliseconds, monotonic).
func (k *Keyboard) Cycle(now uint32, s Scanner) {
	k.now = now
	k.cycles++
	k.pipe.BeginCycle(now)
	for i := 0; i < k.geo.Size(); i++ {
		addr := k.geo.AddrAt(i)
		st := k.table.Sample(addr, s.Pressed(addr))
		switch st.Phase() {
		case keyswitch.ToggledOn, keyswitch.ToggledOff:
			k.pipe.HandleKeyswitch(addr, st)
		}
	}
	k.hid.Send()
}

func (k *Keyboard) Geometry() key.Geometry       { return k.geo }
func (k *Keyboard) Layers() *layer.State         { return k.layers }
func (k *Keyboard) Pipeline() *pipeline.Pipeline { return k.pipe }
func (k *Keyboard) HID() *hid.Assembler          { return k.hid }
func (k *Keyboard) Switches() *keyswitch.Table   { return k.table }

// Now returns the time of the last cycle.
func (k *Keyboard) Now() uint32 { return k.now }

// Cycles returns how many cycles have run.
func (k *Keyboard) Cycles() uint64 { return k.cycles }

// Hook returns the registered hook called name, or nil.
func (k *Keyboard) Hook(name string) pipeline.Hook {
	for _, h := range k.pipe.Hooks() {
		if h.Name() == name {
			return h
		}
	}
	return nil
}
