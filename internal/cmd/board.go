package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/Alia5/keypipe/hid"
	"github.com/Alia5/keypipe/internal/keymapfile"
	"github.com/Alia5/keypipe/internal/log"
	"github.com/Alia5/keypipe/internal/sim"
	"github.com/Alia5/keypipe/keyboard"
	"github.com/Alia5/keypipe/settings"
)

// Board holds the flags shared by commands that build a keyboard.
type Board struct {
	Protocol string `help:"Report protocol; keymap uses the keymap's setting" enum:"keymap,boot,nkro" default:"keymap" env:"KEYPIPE_PROTOCOL"`
	State    string `help:"File holding the default layer; kept in memory when empty" type:"path" env:"KEYPIPE_STATE"`
}

// New builds a keyboard for km sending reports to out.
func (b Board) New(km *keymapfile.Keymap, out hid.Transport, logger *slog.Logger) (*keyboard.Keyboard, error) {
	opts := km.Options()
	opts.Transport = out
	opts.Logger = logger

	if b.Protocol != "" && b.Protocol != "keymap" {
		p, err := hid.ParseProtocol(b.Protocol)
		if err != nil {
			return nil, err
		}
		opts.Protocol = p
	}

	if b.State != "" {
		opts.Store = settings.FileStore{Path: b.State}
	} else {
		store, err := settings.NewMemStore(1, 0)
		if err != nil {
			return nil, err
		}
		opts.Store = store
	}
	return keyboard.New(opts)
}

// reportFormat is how reports are printed: decoded text or hex bytes.
type reportFormat string

const (
	formatAuto reportFormat = "auto"
	formatText reportFormat = "text"
	formatHex  reportFormat = "hex"
)

// resolve picks text for terminals and hex for pipes.
func (f reportFormat) resolve(w io.Writer) reportFormat {
	if f != formatAuto && f != "" {
		return f
	}
	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return formatText
	}
	return formatHex
}

func printReport(w io.Writer, f reportFormat, r sim.Report) {
	if f == formatHex {
		_, _ = fmt.Fprintf(w, "%8dms %-8s %s\n", r.At, r.Kind, log.Hex(r.Data))
		return
	}
	_, _ = fmt.Fprintln(w, r.String())
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
