package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Alia5/keypipe/internal/keymapfile"
	"github.com/Alia5/keypipe/internal/log"
	"github.com/Alia5/keypipe/internal/sim"
	"github.com/Alia5/keypipe/keyboard"
)

// Run replays a scan script through a keymap and prints every report.
type Run struct {
	Keymap string `arg:"" type:"existingfile" help:"Keymap description (.yaml, .toml or .json)"`
	Script string `arg:"" type:"existingfile" help:"Scan script (.yaml)"`
	Board  Board  `embed:""`
	Format string `help:"Report output format" enum:"auto,text,hex" default:"auto"`
	Stats  bool   `help:"Print pipeline counters at the end"`

	Out io.Writer `kong:"-"`
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, raw log.ReportLogger) error {
	km, err := keymapfile.Load(r.Keymap)
	if err != nil {
		return err
	}
	script, err := sim.LoadScript(r.Script)
	if err != nil {
		return fmt.Errorf("%s: %w", r.Script, err)
	}

	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	format := reportFormat(r.Format).resolve(out)

	var kb *keyboard.Keyboard
	rec := sim.NewRecorder(func() uint32 { return kb.Now() }, raw)
	rec.OnReport(func(rep sim.Report) { printReport(out, format, rep) })
	kb, err = r.Board.New(km, rec, logger)
	if err != nil {
		return err
	}

	logger.Debug("replaying script", "script", r.Script, "steps", len(script.Steps), "end", script.End())
	if err := sim.Play(kb, script); err != nil {
		return err
	}

	if r.Stats {
		st := kb.Pipeline().Stats()
		_, _ = fmt.Fprintf(out, "cycles=%d events=%d injected=%d consumed=%d dropped=%d reports=%d\n",
			kb.Cycles(), st.Events, st.Injected, st.Consumed, st.Dropped, len(rec.Reports()))
	}
	return nil
}
