// Package eventlog traces every event it sees at trace level. It never
// changes or consumes events, so its position in the chain decides which
// stage of processing it shows.
package eventlog

import (
	"context"
	"log/slog"

	"github.com/Alia5/keypipe/internal/log"
	"github.com/Alia5/keypipe/pipeline"
)

func init() {
	pipeline.RegisterPlugin("eventlog", func(ctx pipeline.PluginContext) (pipeline.Hook, error) {
		var cfg struct {
			Label string `json:"label"`
		}
		if err := ctx.Decode(&cfg); err != nil {
			return nil, err
		}
		return New(ctx.Logger, cfg.Label), nil
	})
}

type EventLog struct {
	logger *slog.Logger
	label  string
	seen   uint64
}

// New returns a tracing hook. label distinguishes several instances in the
// same chain.
func New(logger *slog.Logger, label string) *EventLog {
	if logger == nil {
		logger = slog.Default()
	}
	if label == "" {
		label = "eventlog"
	}
	return &EventLog{logger: logger, label: label}
}

func (e *EventLog) Name() string { return e.label }

// Seen returns how many events passed the hook.
func (e *EventLog) Seen() uint64 { return e.seen }

func (e *EventLog) HandleEvent(d pipeline.Dispatcher, ev *pipeline.Event) pipeline.Result {
	e.seen++
	e.logger.Log(context.Background(), log.LevelTrace, "key event",
		"hook", e.label,
		"at", d.Now(),
		"addr", ev.Addr,
		"key", ev.Key,
		"phase", ev.Phase(),
		"injected", ev.Injected,
	)
	return pipeline.Continue
}
