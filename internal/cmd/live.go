package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alia5/keypipe/hid"
	"github.com/Alia5/keypipe/internal/keymapfile"
	"github.com/Alia5/keypipe/internal/log"
	"github.com/Alia5/keypipe/internal/server"
	"github.com/Alia5/keypipe/internal/sim"
	"github.com/Alia5/keypipe/keyboard"
)

// Live scans continuously while switch changes are typed on stdin.
type Live struct {
	Keymap   string        `arg:"" type:"existingfile" help:"Keymap description (.yaml, .toml or .json)"`
	Board    Board         `embed:""`
	Interval time.Duration `help:"Scan period" default:"1ms"`
	Watch    bool          `help:"Reload the keymap when the file changes"`
	Format   string        `help:"Report output format" enum:"auto,text,hex" default:"auto"`
	Listen   string        `help:"Also stream reports to TCP clients on this address" placeholder:"HOST:PORT"`

	In  io.Reader `kong:"-"`
	Out io.Writer `kong:"-"`
}

// Run is called by Kong when the live command is executed.
func (l *Live) Run(logger *slog.Logger, raw log.ReportLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return l.Serve(ctx, logger, raw)
}

// Serve runs the scan loop until ctx is done, the input ends or a quit
// command arrives. The keyboard is only touched from this goroutine.
func (l *Live) Serve(ctx context.Context, logger *slog.Logger, raw log.ReportLogger) error {
	in, w := l.In, l.Out
	if in == nil {
		in = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	if l.Interval <= 0 {
		return fmt.Errorf("scan interval must be positive, got %s", l.Interval)
	}
	format := reportFormat(l.Format).resolve(w)
	interactive := isTerminal(in)

	km, err := keymapfile.Load(l.Keymap)
	if err != nil {
		return err
	}

	start := time.Now()
	var now uint32
	rec := sim.NewRecorder(func() uint32 { return now }, raw)
	rec.KeepLast(1)
	rec.OnReport(func(rep sim.Report) { printReport(w, format, rep) })

	var out hid.Transport = rec
	var leds <-chan uint8
	if l.Listen != "" {
		srv := server.New(l.Listen, nil, logger)
		if err := srv.Start(); err != nil {
			return err
		}
		defer srv.Close()
		leds = srv.LEDs()
		out = hid.TransportFunc(func(kind hid.ReportKind, data []byte) error {
			err := rec.Transmit(kind, data)
			_ = srv.Transmit(kind, data)
			return err
		})
	}

	kb, err := l.Board.New(km, out, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var updates <-chan keymapfile.Update
	if l.Watch {
		if updates, err = keymapfile.Watch(ctx, l.Keymap, logger); err != nil {
			return err
		}
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	prompt := func() {
		if interactive {
			_, _ = fmt.Fprint(w, "> ")
		}
	}
	prompt()

	matrix := sim.NewMatrix()
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	input := lines
	var resume <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			now = uint32(time.Since(start).Milliseconds())
			kb.Cycle(now, matrix)

		case b := <-leds:
			_ = kb.HID().HandleOutput([]byte{b})

		case <-resume:
			input, resume = lines, nil
			prompt()

		case line, ok := <-input:
			if !ok {
				return nil
			}
			if line == "" {
				prompt()
				continue
			}
			c, err := sim.ParseCommand(line)
			if err != nil {
				_, _ = fmt.Fprintln(w, "error:", err)
				prompt()
				continue
			}
			switch c.Op {
			case sim.OpPress, sim.OpRelease:
				if !kb.Geometry().Contains(c.Addr) {
					_, _ = fmt.Fprintf(w, "error: %s outside matrix\n", c.Addr)
					break
				}
				matrix.Set(c.Addr, c.Op == sim.OpPress)
			case sim.OpLEDs:
				_ = kb.HID().HandleOutput([]byte{c.LEDs})
				_, _ = fmt.Fprintln(w, "leds", kb.HID().LEDs())
			case sim.OpWait:
				input, resume = nil, time.After(c.Wait)
				continue
			case sim.OpReset:
				matrix.Clear()
			case sim.OpQuit:
				return nil
			}
			prompt()

		case u, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if u.Err != nil {
				logger.Error("keymap reload failed, keeping the current one", "error", u.Err)
				continue
			}
			next, err := l.reload(kb, u.Keymap, out, logger)
			if err != nil {
				logger.Error("keymap reload failed, keeping the current one", "error", err)
				continue
			}
			kb = next
		}
	}
}

// reload swaps in a keyboard for km. Everything the old one held is
// released first so the host is not left with stuck keys.
func (l *Live) reload(old *keyboard.Keyboard, km *keymapfile.Keymap, out hid.Transport, logger *slog.Logger) (*keyboard.Keyboard, error) {
	next, err := l.Board.New(km, out, logger)
	if err != nil {
		return nil, err
	}
	old.HID().Reset()
	old.HID().Send()
	logger.Info("keymap reloaded", "name", km.Name, "layers", len(km.Layers))
	return next, nil
}
