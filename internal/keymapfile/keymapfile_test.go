package keymapfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keypipe/hid"
	"github.com/Alia5/keypipe/key"
)

const yamlKeymap = `
name: split
rows: 2
cols: 3
protocol: nkro
layers:
  - name: base
    keys:
      - "A    S(1)  ShiftTo(1)"
      - "Mute XXX   LCtrl"
  - keys:
      - "B ___ ___"
      - "___ ___ MoveTo(0)"
plugins:
  - name: qukeys
    config:
      holdTimeout: 180
      keys:
        - {row: 0, col: 0, primary: A, alternate: LShift}
`

const tomlKeymap = `
name = "tiny"
rows = 1
cols = 2

[[layers]]
name = "base"
keys = ["A ShiftTo(1)"]

[[layers]]
keys = ["B ___"]

[[plugins]]
name = "qukeys"

  [plugins.config]
  holdTimeout = 180
`

const jsonKeymap = `{
  "rows": 1,
  "cols": 2,
  "layers": [{"keys": ["VolUp Sleep"]}]
}`

func TestParseYAML(t *testing.T) {
	km, err := Parse([]byte(yamlKeymap), "yaml")
	require.NoError(t, err)

	assert.Equal(t, "split", km.Name)
	assert.Equal(t, key.Geometry{Rows: 2, Cols: 3}, km.Geometry)
	assert.Equal(t, hid.NKRO, km.Protocol)
	assert.Equal(t, []string{"base", "layer1"}, km.LayerNames)
	require.Len(t, km.Layers, 2)
	assert.Equal(t, key.Code(key.Code1).WithMods(key.ModShift), km.Layers[0][0][1])
	assert.Equal(t, key.LayerKey(key.ShiftTo, 1), km.Layers[0][0][2])
	assert.Equal(t, key.ConsumerKey(key.ConsumerMute), km.Layers[0][1][0])
	assert.Equal(t, key.NoKey, km.Layers[0][1][1])
	assert.Equal(t, key.Transparent, km.Layers[1][0][1])

	require.Len(t, km.Plugins, 1)
	assert.Equal(t, "qukeys", km.Plugins[0].Name)
	assert.EqualValues(t, 180, km.Plugins[0].Config["holdTimeout"])

	opts := km.Options()
	assert.Equal(t, km.Geometry, opts.Geometry)
	assert.Len(t, opts.Plugins, 1)
}

func TestParseTOML(t *testing.T) {
	km, err := Parse([]byte(tomlKeymap), "toml")
	require.NoError(t, err)
	assert.Equal(t, "tiny", km.Name)
	assert.Equal(t, hid.Boot, km.Protocol)
	assert.Equal(t, key.Code(key.CodeB), km.Layers[1][0][0])
	require.Len(t, km.Plugins, 1)
	assert.Contains(t, km.Plugins[0].Config, "holdTimeout")
}

func TestParseJSON(t *testing.T) {
	km, err := Parse([]byte(jsonKeymap), "json")
	require.NoError(t, err)
	assert.Equal(t, key.SystemKey(key.SystemSleep), km.Layers[0][0][1])
	assert.Empty(t, km.Plugins)
}

func TestParseReportsEveryBadKey(t *testing.T) {
	_, err := Parse([]byte(`{"rows":1,"cols":3,"layers":[{"keys":["A Bogus Nope"]}]}`), "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Bogus"`)
	assert.Contains(t, err.Error(), `"Nope"`)
}

func TestParseGeometryErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no size", `{"layers":[{"keys":["A"]}]}`},
		{"no layers", `{"rows":1,"cols":1}`},
		{"row count", `{"rows":2,"cols":1,"layers":[{"keys":["A"]}]}`},
		{"col count", `{"rows":1,"cols":2,"layers":[{"keys":["A"]}]}`},
		{"protocol", `{"rows":1,"cols":1,"protocol":"usb3","layers":[{"keys":["A"]}]}`},
		{"plugin name", `{"rows":1,"cols":1,"layers":[{"keys":["A"]}],"plugins":[{}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "json")
			assert.Error(t, err)
		})
	}
}

func TestFormat(t *testing.T) {
	for path, want := range map[string]string{
		"a.yml": "yaml", "a.YAML": "yaml", "b.toml": "toml", "c.json": "json",
	} {
		got, err := Format(path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}
	_, err := Format("keymap.txt")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlKeymap), 0o644))

	km, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "split", km.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExampleCompiles(t *testing.T) {
	for _, format := range []string{"yaml", "json"} {
		data, err := Encode(Example(), format)
		require.NoError(t, err)
		km, err := Parse(data, format)
		require.NoError(t, err, format)
		assert.Len(t, km.Layers, 3)
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "board.json")
	require.NoError(t, os.WriteFile(path, []byte(jsonKeymap), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, err := Watch(ctx, path, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"edited","rows":1,"cols":1,"layers":[{"keys":["Z"]}]}`), 0o644))

	select {
	case u := <-updates:
		require.NoError(t, u.Err)
		assert.Equal(t, "edited", u.Keymap.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
	}

	require.NoError(t, os.WriteFile(path, []byte(`{"rows":1}`), 0o644))
	select {
	case u := <-updates:
		assert.Error(t, u.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
	}

	cancel()
	for range updates {
	}
}
