package qukeys

import (
	"log/slog"

	"github.com/Alia5/keypipe/key"
	"github.com/Alia5/keypipe/pipeline"
)

func init() {
	pipeline.RegisterPlugin("qukeys", newFromConfig)
}

// fileConfig is the qukeys section of a keymap description.
type fileConfig struct {
	HoldTimeout      uint32  `json:"holdTimeout"`
	OverlapThreshold *uint8  `json:"overlapThreshold"`
	QueueSize        int     `json:"queueSize"`
	Keys             []qukey `json:"keys"`
}

type qukey struct {
	// Layer is omitted for definitions that apply on every layer.
	Layer     *uint8 `json:"layer"`
	Row       uint8  `json:"row"`
	Col       uint8  `json:"col"`
	Primary   string `json:"primary"`
	Alternate string `json:"alternate"`
}

func newFromConfig(ctx pipeline.PluginContext) (pipeline.Hook, error) {
	if ctx.Logger == nil {
		ctx.Logger = slog.Default()
	}
	var fc fileConfig
	if err := ctx.Decode(&fc); err != nil {
		return nil, err
	}
	cfg := Config{
		HoldTimeout:      fc.HoldTimeout,
		OverlapThreshold: DefaultOverlapThreshold,
		QueueSize:        fc.QueueSize,
	}
	if fc.OverlapThreshold != nil {
		cfg.OverlapThreshold = *fc.OverlapThreshold
	}
	for _, k := range fc.Keys {
		primary, err := key.Parse(k.Primary)
		if err != nil {
			ctx.Logger.Warn("dropping qukey definition", "row", k.Row, "col", k.Col, "error", err)
			continue
		}
		alternate, err := key.Parse(k.Alternate)
		if err != nil {
			ctx.Logger.Warn("dropping qukey definition", "row", k.Row, "col", k.Col, "error", err)
			continue
		}
		layer := uint8(AnyLayer)
		if k.Layer != nil {
			layer = *k.Layer
		}
		cfg.Keys = append(cfg.Keys, Definition{
			Layer:     layer,
			Addr:      key.At(k.Row, k.Col),
			Primary:   primary,
			Alternate: alternate,
		})
	}
	return New(ctx.Geometry, cfg, ctx.Logger), nil
}
