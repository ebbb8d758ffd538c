// Package settings persists the one byte of state that survives a power
// cycle: the selected default layer.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Erased is the value of an unwritten EEPROM cell.
const Erased = 0xff

var ErrNotStored = errors.New("default layer not stored")

// Store loads and saves the default layer byte. It satisfies
// layer.DefaultLayerSaver.
type Store interface {
	LoadDefaultLayer() (uint8, error)
	SaveDefaultLayer(layer uint8) error
}

// DefaultLayer loads the stored default layer and validates it against the
// number of layers in the keymap. Anything unusable yields layer 0.
func DefaultLayer(s Store, layers int, logger *slog.Logger) uint8 {
	if logger == nil {
		logger = slog.Default()
	}
	if s == nil {
		return 0
	}
	l, err := s.LoadDefaultLayer()
	switch {
	case errors.Is(err, ErrNotStored):
		logger.Debug("no stored default layer, using 0")
		return 0
	case err != nil:
		logger.Warn("failed to load default layer, using 0", "error", err)
		return 0
	case int(l) >= layers:
		logger.Warn("stored default layer out of range, using 0", "layer", l, "layers", layers)
		return 0
	}
	return l
}

// MemStore keeps the byte in an EEPROM-like image, erased cells reading
// as 0xff.
type MemStore struct {
	image  []byte
	offset int
}

// NewMemStore returns an erased image of size bytes with the default layer
// stored at offset.
func NewMemStore(size, offset int) (*MemStore, error) {
	if offset < 0 || offset >= size {
		return nil, fmt.Errorf("offset %d outside %d byte image", offset, size)
	}
	img := make([]byte, size)
	for i := range img {
		img[i] = Erased
	}
	return &MemStore{image: img, offset: offset}, nil
}

func (m *MemStore) LoadDefaultLayer() (uint8, error) {
	b := m.image[m.offset]
	if b == Erased {
		return 0, ErrNotStored
	}
	return b, nil
}

func (m *MemStore) SaveDefaultLayer(layer uint8) error {
	if layer == Erased {
		return fmt.Errorf("layer %d cannot be stored", layer)
	}
	m.image[m.offset] = layer
	return nil
}

// Image returns the backing image.
func (m *MemStore) Image() []byte { return m.image }

// FileStore keeps the byte in a one-byte file.
type FileStore struct {
	Path string
}

func (f FileStore) LoadDefaultLayer() (uint8, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, ErrNotStored
	}
	if err != nil {
		return 0, err
	}
	if len(data) == 0 || data[0] == Erased {
		return 0, ErrNotStored
	}
	return data[0], nil
}

// SaveDefaultLayer writes through a temporary file so a crash never leaves
// a truncated file behind.
func (f FileStore) SaveDefaultLayer(layer uint8) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte{layer}, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
