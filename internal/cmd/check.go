package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Alia5/keypipe/hid"
	"github.com/Alia5/keypipe/internal/keymapfile"
	"github.com/Alia5/keypipe/pipeline"
)

// Check validates keymap descriptions by building a keyboard from each.
type Check struct {
	Keymaps []string `arg:"" help:"Keymap descriptions to validate"`
	Board   Board    `embed:""`

	Out io.Writer `kong:"-"`
}

// Run is called by Kong when the check command is executed.
func (c *Check) Run(logger *slog.Logger) error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	var errs []error
	for _, path := range c.Keymaps {
		km, err := keymapfile.Load(path)
		if err == nil {
			_, err = c.Board.New(km, hid.TransportFunc(func(hid.ReportKind, []byte) error { return nil }), logger)
		}
		if err != nil {
			_, _ = fmt.Fprintf(out, "%s: FAIL\n", path)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		_, _ = fmt.Fprintf(out, "%s: ok (%q, %dx%d, %d layers, %d plugins)\n",
			path, km.Name, km.Geometry.Rows, km.Geometry.Cols, len(km.Layers), len(km.Plugins))
	}
	return errors.Join(errs...)
}

// PluginList prints the names of the registered pipeline plugins.
type PluginList struct {
	Out io.Writer `kong:"-"`
}

// Run is called by Kong when the plugins command is executed.
func (p *PluginList) Run() error {
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	for _, n := range pipeline.Plugins() {
		_, _ = fmt.Fprintln(out, n)
	}
	return nil
}
