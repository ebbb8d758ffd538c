// Package layer resolves matrix positions to logical keys through a stack of
// keymap layers.
package layer

import (
	"errors"
	"fmt"

	"github.com/Alia5/keypipe/key"
)

// MaxLayers is the width of the active-layer bitset.
const MaxLayers = 32

var (
	ErrGeometryMismatch = errors.New("keymap does not match matrix geometry")
	ErrTooManyLayers    = errors.New("too many layers")
	ErrNoLayers         = errors.New("keymap has no layers")
)

// Keymap is a read-only table of keys indexed by (layer, position).
type Keymap struct {
	geo    key.Geometry
	layers [][]key.Key
}

// NewKeymap validates layers against geo. Every layer must hold exactly
// geo.Rows rows of geo.Cols keys.
func NewKeymap(geo key.Geometry, layers [][][]key.Key) (*Keymap, error) {
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}
	if len(layers) > MaxLayers {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyLayers, len(layers), MaxLayers)
	}
	m := &Keymap{geo: geo, layers: make([][]key.Key, len(layers))}
	for l, rows := range layers {
		if len(rows) != int(geo.Rows) {
			return nil, fmt.Errorf("%w: layer %d has %d rows, want %d", ErrGeometryMismatch, l, len(rows), geo.Rows)
		}
		flat := make([]key.Key, 0, geo.Size())
		for r, row := range rows {
			if len(row) != int(geo.Cols) {
				return nil, fmt.Errorf("%w: layer %d row %d has %d keys, want %d", ErrGeometryMismatch, l, r, len(row), geo.Cols)
			}
			flat = append(flat, row...)
		}
		m.layers[l] = flat
	}
	return m, nil
}

// Geometry returns the matrix dimensions the keymap was built for.
func (m *Keymap) Geometry() key.Geometry { return m.geo }

// Layers returns the number of layers.
func (m *Keymap) Layers() int { return len(m.layers) }

// Key returns the entry at (layer, addr). Layers beyond the keymap read as
// Transparent, positions outside the matrix as NoKey.
func (m *Keymap) Key(layer uint8, addr key.Addr) key.Key {
	if !m.geo.Contains(addr) {
		return key.NoKey
	}
	if int(layer) >= len(m.layers) {
		return key.Transparent
	}
	return m.layers[layer][m.geo.Index(addr)]
}
