package keyboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keypipe/hid"
	_ "github.com/Alia5/keypipe/internal/registry"
	"github.com/Alia5/keypipe/key"
	"github.com/Alia5/keypipe/keyboard"
	"github.com/Alia5/keypipe/layer"
	"github.com/Alia5/keypipe/plugin/qukeys"
	"github.com/Alia5/keypipe/settings"
)

var geo = key.Geometry{Rows: 2, Cols: 2}

type recorder struct {
	reports []string
}

func (r *recorder) Transmit(kind hid.ReportKind, data []byte) error {
	r.reports = append(r.reports, hid.Describe(kind, data))
	return nil
}

// matrix is a scanner backed by a set of pressed positions.
type matrix map[key.Addr]bool

func (m matrix) Pressed(addr key.Addr) bool { return m[addr] }

func keymap() [][][]key.Key {
	return [][][]key.Key{
		{
			{key.Code(key.CodeA).WithMods(key.ModShift), key.Code(key.CodeB)},
			{key.LayerKey(key.ShiftTo, 1), key.LayerKey(key.MoveTo, 1)},
		},
		{
			{key.Code(key.CodeX), key.Transparent},
			{key.Transparent, key.LayerKey(key.MoveTo, 0)},
		},
	}
}

func TestGeometryMismatchIsFatal(t *testing.T) {
	_, err := keyboard.New(keyboard.Options{
		Geometry: key.Geometry{Rows: 3, Cols: 2},
		Layers:   keymap(),
	})
	assert.ErrorIs(t, err, layer.ErrGeometryMismatch)
}

func TestUnknownPluginIsFatal(t *testing.T) {
	_, err := keyboard.New(keyboard.Options{
		Geometry: geo,
		Layers:   keymap(),
		Plugins:  []keyboard.PluginSpec{{Name: "macros"}},
	})
	assert.Error(t, err)
}

func TestStoredDefaultLayerOutOfRange(t *testing.T) {
	store, err := settings.NewMemStore(8, 0)
	require.NoError(t, err)
	require.NoError(t, store.SaveDefaultLayer(7))

	kb, err := keyboard.New(keyboard.Options{Geometry: geo, Layers: keymap(), Store: store})
	require.NoError(t, err)
	assert.Equal(t, uint8(0), kb.Layers().Default())
}

func TestCycleSplitsSimultaneousShiftedKey(t *testing.T) {
	rec := &recorder{}
	kb, err := keyboard.New(keyboard.Options{Geometry: geo, Layers: keymap(), Transport: rec})
	require.NoError(t, err)

	m := matrix{}
	kb.Cycle(0, m)
	assert.Empty(t, rec.reports)

	m[key.At(0, 0)] = true
	m[key.At(0, 1)] = true
	kb.Cycle(1, m)
	assert.Equal(t, []string{"keyboard LShift+A", "keyboard A,B"}, rec.reports)

	kb.Cycle(2, m)
	assert.Len(t, rec.reports, 2, "steady keys send nothing")

	delete(m, key.At(0, 0))
	delete(m, key.At(0, 1))
	kb.Cycle(3, m)
	assert.Equal(t, "keyboard (none)", rec.reports[len(rec.reports)-1])
	assert.Equal(t, uint64(4), kb.Cycles())
	assert.Equal(t, uint32(3), kb.Now())
}

func TestMomentaryLayerAndLiveKey(t *testing.T) {
	rec := &recorder{}
	kb, err := keyboard.New(keyboard.Options{Geometry: geo, Layers: keymap(), Transport: rec})
	require.NoError(t, err)

	m := matrix{key.At(1, 0): true}
	kb.Cycle(0, m)
	m[key.At(0, 0)] = true
	kb.Cycle(1, m)
	assert.Equal(t, []string{"keyboard X"}, rec.reports)

	// Dropping the layer while X is held must still release X.
	delete(m, key.At(1, 0))
	kb.Cycle(2, m)
	delete(m, key.At(0, 0))
	kb.Cycle(3, m)
	assert.Equal(t, []string{"keyboard X", "keyboard (none)"}, rec.reports)
	assert.False(t, kb.Layers().IsActive(1))
}

func TestMoveToCommitsDefaultLayer(t *testing.T) {
	store, err := settings.NewMemStore(1, 0)
	require.NoError(t, err)
	kb, err := keyboard.New(keyboard.Options{Geometry: geo, Layers: keymap(), Store: store})
	require.NoError(t, err)

	m := matrix{key.At(1, 1): true}
	kb.Cycle(0, m)
	assert.Equal(t, uint8(1), kb.Layers().Default())

	stored, err := store.LoadDefaultLayer()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), stored)

	again, err := keyboard.New(keyboard.Options{Geometry: geo, Layers: keymap(), Store: store})
	require.NoError(t, err)
	assert.Equal(t, uint8(1), again.Layers().Default())
}

func TestQukeysPlugin(t *testing.T) {
	rec := &recorder{}
	kb, err := keyboard.New(keyboard.Options{
		Geometry:  geo,
		Layers:    keymap(),
		Transport: rec,
		Plugins: []keyboard.PluginSpec{{
			Name: "qukeys",
			Config: map[string]any{
				"holdTimeout": 200,
				"keys": []any{
					map[string]any{"row": 0, "col": 1, "primary": "B", "alternate": "LCtrl"},
					map[string]any{"row": 9, "col": 9, "primary": "B", "alternate": "LCtrl"},
				},
			},
		}, {Name: "eventlog"}},
	})
	require.NoError(t, err)

	q, ok := kb.Hook("qukeys").(*qukeys.Qukeys)
	require.True(t, ok)
	assert.Len(t, q.Definitions(), 1, "malformed definition dropped")
	assert.NotNil(t, kb.Hook("eventlog"))

	m := matrix{key.At(0, 1): true}
	kb.Cycle(0, m)
	kb.Cycle(100, m)
	assert.Empty(t, rec.reports)

	kb.Cycle(200, m)
	assert.Equal(t, []string{"keyboard LCtrl"}, rec.reports)

	delete(m, key.At(0, 1))
	kb.Cycle(210, m)
	assert.Equal(t, []string{"keyboard LCtrl", "keyboard (none)"}, rec.reports)
}
