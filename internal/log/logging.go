// Package log builds the slog.Logger used by the commands and the hex
// logger for transmitted reports.
//
// Without a log file, records below Error go to stdout and errors to
// stderr. With a log file, the console only gets warnings and errors so
// report output on stdout stays readable.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below Debug and is used for per-event tracing.
const LevelTrace slog.Level = -8

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MultiHandler fans records out to several handlers.
type MultiHandler struct{ hs []slog.Handler }

func (m MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.hs {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.hs {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (m MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		out[i] = h.WithAttrs(attrs)
	}
	return MultiHandler{hs: out}
}

func (m MultiHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		out[i] = h.WithGroup(name)
	}
	return MultiHandler{hs: out}
}

// LevelFilter passes only the levels accepted by pass to h.
type LevelFilter struct {
	pass func(slog.Level) bool
	h    slog.Handler
}

func (f LevelFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return f.pass(level) && f.h.Enabled(ctx, level)
}

func (f LevelFilter) Handle(ctx context.Context, r slog.Record) error {
	if !f.pass(r.Level) {
		return nil
	}
	return f.h.Handle(ctx, r)
}

func (f LevelFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return LevelFilter{pass: f.pass, h: f.h.WithAttrs(attrs)}
}

func (f LevelFilter) WithGroup(name string) slog.Handler {
	return LevelFilter{pass: f.pass, h: f.h.WithGroup(name)}
}

// Options configures SetupLogger.
type Options struct {
	Level string
	File  string
	// JSON switches the file handler to slog's JSON format.
	JSON bool
}

// SetupLogger builds a logger from opts. The returned closers must be closed
// by the caller once logging is done.
func SetupLogger(opts Options) (*slog.Logger, []io.Closer, error) {
	return setup(opts, os.Stdout, os.Stderr)
}

func setup(opts Options, stdout, stderr io.Writer) (*slog.Logger, []io.Closer, error) {
	level := ParseLevel(opts.Level)
	var handlers []slog.Handler
	var closers []io.Closer

	if opts.File == "" {
		out := slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: level})
		handlers = append(handlers, LevelFilter{pass: func(l slog.Level) bool { return l < slog.LevelError }, h: out})
	} else {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, f)
		fileOpts := &slog.HandlerOptions{Level: level}
		if opts.JSON {
			handlers = append(handlers, slog.NewJSONHandler(f, fileOpts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(f, fileOpts))
		}
		warn := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
		handlers = append(handlers, LevelFilter{pass: func(l slog.Level) bool { return l < slog.LevelError }, h: warn})
	}
	errs := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelError})
	handlers = append(handlers, LevelFilter{pass: func(l slog.Level) bool { return l >= slog.LevelError }, h: errs})

	return slog.New(MultiHandler{hs: handlers}), closers, nil
}
