// Package keymapfile reads keymap descriptions: matrix size, layers written
// as rows of key names, report protocol and the plugin chain. YAML, TOML and
// JSON are accepted.
package keymapfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/keypipe/hid"
	"github.com/Alia5/keypipe/key"
	"github.com/Alia5/keypipe/keyboard"
)

var ErrUnknownFormat = errors.New("unknown keymap format")

// Description is the on-disk form.
type Description struct {
	Name     string   `json:"name" yaml:"name" toml:"name"`
	Rows     uint8    `json:"rows" yaml:"rows" toml:"rows"`
	Cols     uint8    `json:"cols" yaml:"cols" toml:"cols"`
	Protocol string   `json:"protocol,omitempty" yaml:"protocol,omitempty" toml:"protocol,omitempty"`
	Layers   []Layer  `json:"layers" yaml:"layers" toml:"layers"`
	Plugins  []Plugin `json:"plugins,omitempty" yaml:"plugins,omitempty" toml:"plugins,omitempty"`
}

// Layer holds one row per matrix row; keys in a row are separated by
// whitespace.
type Layer struct {
	Name string   `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Keys []string `json:"keys" yaml:"keys" toml:"keys"`
}

type Plugin struct {
	Name   string         `json:"name" yaml:"name" toml:"name"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty" toml:"config,omitempty"`
}

// Keymap is a parsed and validated description.
type Keymap struct {
	Name       string
	Geometry   key.Geometry
	Protocol   hid.Protocol
	LayerNames []string
	Layers     [][][]key.Key
	Plugins    []keyboard.PluginSpec
}

// Options returns keyboard options for the keymap. The caller adds the
// transport, store and logger.
func (k *Keymap) Options() keyboard.Options {
	return keyboard.Options{
		Geometry: k.Geometry,
		Layers:   k.Layers,
		Protocol: k.Protocol,
		Plugins:  k.Plugins,
	}
}

// Format returns the description format for path, from its extension.
func Format(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".toml":
		return "toml", nil
	case ".json":
		return "json", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Load reads and parses the description at path.
func Load(path string) (*Keymap, error) {
	format, err := Format(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	km, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return km, nil
}

// Decode unmarshals data in the given format without validating it.
func Decode(data []byte, format string) (*Description, error) {
	var d Description
	var err error
	switch format {
	case "yaml":
		err = yaml.Unmarshal(data, &d)
	case "toml":
		err = toml.Unmarshal(data, &d)
	case "json":
		err = json.Unmarshal(data, &d)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	return &d, nil
}

// Encode marshals d in the given format.
func Encode(d *Description, format string) ([]byte, error) {
	switch format {
	case "yaml":
		return yaml.Marshal(d)
	case "toml":
		return toml.Marshal(*d)
	case "json":
		return json.MarshalIndent(d, "", "  ")
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Parse decodes and validates a description. Every bad key name is
// reported, not only the first.
func Parse(data []byte, format string) (*Keymap, error) {
	d, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	return d.Compile()
}

// Compile validates d and resolves its key names.
func (d *Description) Compile() (*Keymap, error) {
	if d.Rows == 0 || d.Cols == 0 {
		return nil, fmt.Errorf("matrix must have rows and cols, got %dx%d", d.Rows, d.Cols)
	}
	if len(d.Layers) == 0 {
		return nil, errors.New("no layers")
	}
	proto, err := hid.ParseProtocol(d.Protocol)
	if err != nil {
		return nil, err
	}

	km := &Keymap{
		Name:     d.Name,
		Geometry: key.Geometry{Rows: d.Rows, Cols: d.Cols},
		Protocol: proto,
	}
	var errs []error
	for l, layer := range d.Layers {
		name := layer.Name
		if name == "" {
			name = fmt.Sprintf("layer%d", l)
		}
		km.LayerNames = append(km.LayerNames, name)

		if len(layer.Keys) != int(d.Rows) {
			errs = append(errs, fmt.Errorf("layer %s: %d rows, want %d", name, len(layer.Keys), d.Rows))
			continue
		}
		rows := make([][]key.Key, len(layer.Keys))
		for r, line := range layer.Keys {
			names := strings.Fields(line)
			if len(names) != int(d.Cols) {
				errs = append(errs, fmt.Errorf("layer %s row %d: %d keys, want %d", name, r, len(names), d.Cols))
				continue
			}
			rows[r] = make([]key.Key, len(names))
			for c, n := range names {
				k, err := key.Parse(n)
				if err != nil {
					errs = append(errs, fmt.Errorf("layer %s row %d col %d: %w", name, r, c, err))
					continue
				}
				rows[r][c] = k
			}
		}
		km.Layers = append(km.Layers, rows)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	for _, p := range d.Plugins {
		if p.Name == "" {
			return nil, errors.New("plugin without a name")
		}
		km.Plugins = append(km.Plugins, keyboard.PluginSpec{Name: p.Name, Config: p.Config})
	}
	return km, nil
}

// Example returns a small description used by config init.
func Example() *Description {
	return &Description{
		Name:     "example",
		Rows:     2,
		Cols:     4,
		Protocol: "boot",
		Layers: []Layer{
			{Name: "base", Keys: []string{"A S D F", "ShiftTo(1) LCtrl Space MoveTo(2)"}},
			{Name: "fn", Keys: []string{"1 2 3 4", "___ ___ ___ ___"}},
			{Name: "media", Keys: []string{"VolDown VolUp Mute PlayPause", "___ ___ ___ MoveTo(0)"}},
		},
		Plugins: []Plugin{
			{Name: "qukeys", Config: map[string]any{
				"holdTimeout":      250,
				"overlapThreshold": 80,
				"keys": []any{
					map[string]any{"row": 0, "col": 3, "primary": "F", "alternate": "LShift"},
				},
			}},
		},
	}
}
