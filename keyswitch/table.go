package keyswitch

import (
	"fmt"

	"github.com/Alia5/keypipe/key"
)

// Table holds the State of every position in a matrix. It is sized once at
// construction and never grows.
type Table struct {
	geo    key.Geometry
	states []State
}

// NewTable returns a table for the given geometry with every switch off.
func NewTable(geo key.Geometry) *Table {
	return &Table{geo: geo, states: make([]State, geo.Size())}
}

// Geometry returns the matrix dimensions.
func (t *Table) Geometry() key.Geometry { return t.geo }

// Sample records one raw reading for addr and returns the updated State.
// Out-of-range addresses are ignored unless built with the keydebug tag.
func (t *Table) Sample(addr key.Addr, raw bool) State {
	if !t.geo.Contains(addr) {
		outOfRange(addr, t.geo)
		return 0
	}
	i := t.geo.Index(addr)
	t.states[i] = t.states[i].Next(raw)
	return t.states[i]
}

// State returns the last recorded State for addr.
func (t *Table) State(addr key.Addr) State {
	if !t.geo.Contains(addr) {
		outOfRange(addr, t.geo)
		return 0
	}
	return t.states[t.geo.Index(addr)]
}

// Each calls fn for every position in row-major order.
func (t *Table) Each(fn func(addr key.Addr, s State)) {
	for i, s := range t.states {
		fn(t.geo.AddrAt(i), s)
	}
}

// Reset clears the whole history.
func (t *Table) Reset() {
	for i := range t.states {
		t.states[i] = 0
	}
}

func outOfRange(addr key.Addr, geo key.Geometry) {
	if strictBounds {
		panic(fmt.Sprintf("keyswitch: address %s outside %dx%d matrix", addr, geo.Rows, geo.Cols))
	}
}
