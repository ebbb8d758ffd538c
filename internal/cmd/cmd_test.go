package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keypipe/hid"
	"github.com/Alia5/keypipe/internal/keymapfile"
	"github.com/Alia5/keypipe/internal/log"
	_ "github.com/Alia5/keypipe/internal/registry"
	"github.com/Alia5/keypipe/settings"
)

const tapScript = `
interval: 1
tail: 10
steps:
  - at: 0
    press: [[0, 1]]
  - at: 30
    release: [[0, 1]]
`

func writeKeymap(t *testing.T, dir string) string {
	t.Helper()
	data, err := keymapfile.Encode(keymapfile.Example(), "yaml")
	require.NoError(t, err)
	path := filepath.Join(dir, "board.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestRunPrintsReports(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "tap.yaml")
	require.NoError(t, os.WriteFile(script, []byte(tapScript), 0o644))

	var out, raw bytes.Buffer
	r := &Run{Keymap: writeKeymap(t, dir), Script: script, Format: "text", Stats: true, Out: &out}
	require.NoError(t, r.Run(quietLogger(), log.NewReportLogger(&raw)))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "keyboard S")
	assert.Contains(t, lines[1], "keyboard (none)")
	assert.Contains(t, lines[2], "reports=2")
	assert.Contains(t, raw.String(), "00 00 16 00 00 00 00 00")
}

func TestRunHexFormat(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "tap.yaml")
	require.NoError(t, os.WriteFile(script, []byte(tapScript), 0o644))

	var out bytes.Buffer
	r := &Run{Keymap: writeKeymap(t, dir), Script: script, Format: "auto", Out: &out}
	require.NoError(t, r.Run(quietLogger(), log.NewReportLogger(nil)))
	assert.Contains(t, out.String(), "keyboard 00 00 16 00 00 00 00 00")
}

func TestRunProtocolOverride(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "tap.yaml")
	require.NoError(t, os.WriteFile(script, []byte(tapScript), 0o644))

	var out bytes.Buffer
	r := &Run{Keymap: writeKeymap(t, dir), Script: script, Format: "hex", Board: Board{Protocol: "nkro"}, Out: &out}
	require.NoError(t, r.Run(quietLogger(), log.NewReportLogger(nil)))

	first := strings.Fields(strings.SplitN(out.String(), "\n", 2)[0])
	assert.Len(t, first[2:], hid.NKROReportSize)
}

func TestRunRejectsBadScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(script, []byte("steps:\n  - at: 0\n    press: [[9, 9]]\n"), 0o644))

	r := &Run{Keymap: writeKeymap(t, dir), Script: script, Format: "text", Out: &bytes.Buffer{}}
	assert.Error(t, r.Run(quietLogger(), log.NewReportLogger(nil)))
}

func TestBoardStateFile(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(dir, "state")
	require.NoError(t, settings.FileStore{Path: state}.SaveDefaultLayer(1))

	km, err := keymapfile.Load(writeKeymap(t, dir))
	require.NoError(t, err)
	kb, err := Board{State: state}.New(km, hid.TransportFunc(func(hid.ReportKind, []byte) error { return nil }), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, uint8(1), kb.Layers().Default())
}

func TestBoardBadProtocol(t *testing.T) {
	km, err := keymapfile.Load(writeKeymap(t, t.TempDir()))
	require.NoError(t, err)
	_, err = Board{Protocol: "6kro"}.New(km, nil, quietLogger())
	assert.Error(t, err)
}

func TestLiveServe(t *testing.T) {
	var out bytes.Buffer
	l := &Live{
		Keymap:   writeKeymap(t, t.TempDir()),
		Interval: time.Millisecond,
		Format:   "text",
		In:       strings.NewReader("press 0 1\nwait 50\nrelease 0 1\nwait 50\nbogus\npress 7 7\nleds 2\nquit\n"),
		Out:      &out,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Serve(ctx, quietLogger(), log.NewReportLogger(nil)))

	got := out.String()
	assert.Contains(t, got, "keyboard S")
	assert.Contains(t, got, "keyboard (none)")
	assert.Contains(t, got, `error: unknown command "bogus"`)
	assert.Contains(t, got, "outside matrix")
	assert.Contains(t, got, "leds CapsLock")
}

func TestLiveStopsOnContext(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	l := &Live{Keymap: writeKeymap(t, t.TempDir()), Interval: time.Millisecond, Format: "text", In: r, Out: &bytes.Buffer{}}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, l.Serve(ctx, quietLogger(), log.NewReportLogger(nil)))
}

func TestLiveRejectsZeroInterval(t *testing.T) {
	l := &Live{Keymap: writeKeymap(t, t.TempDir()), In: strings.NewReader(""), Out: &bytes.Buffer{}}
	assert.Error(t, l.Serve(context.Background(), quietLogger(), log.NewReportLogger(nil)))
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeKeymap(t, dir)
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("rows: 1\ncols: 1\nlayers:\n  - keys: [\"Nope\"]\n"), 0o644))

	var out bytes.Buffer
	c := &Check{Keymaps: []string{good, bad}, Out: &out}
	err := c.Run(quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
	assert.Contains(t, out.String(), `board.yaml: ok ("example", 2x4, 3 layers, 1 plugins)`)
	assert.Contains(t, out.String(), "bad.yaml: FAIL")
}

func TestPluginList(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&PluginList{Out: &out}).Run())
	assert.Equal(t, "eventlog\nqukeys\n", out.String())
}

func TestConfigInitKeymap(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "sub", "board.yaml")
	c := &ConfigInit{Command: "keymap", Format: "yaml", Output: dest}
	require.NoError(t, c.Run())

	km, err := keymapfile.Load(dest)
	require.NoError(t, err)
	assert.Equal(t, "example", km.Name)

	assert.Error(t, c.Run(), "existing file needs --force")
	c.Force = true
	assert.NoError(t, c.Run())
}

func TestConfigInitCommand(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "live.json")
	require.NoError(t, (&ConfigInit{Command: "live", Format: "json", Output: dest}).Run())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "keymap", got["protocol"])
	assert.Equal(t, "1ms", got["interval"])
	assert.Equal(t, "auto", got["format"])
	assert.NotContains(t, got, "keymap")
	assert.NotContains(t, got, "in")
}

func TestConfigInitRejectsFormat(t *testing.T) {
	assert.Error(t, (&ConfigInit{Command: "run", Format: "ini", Output: filepath.Join(t.TempDir(), "x")}).Run())
}
