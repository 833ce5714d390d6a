package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// leveledCore overrides the level of a wrapped core.
// It lets a single command raise verbosity for one component
// without touching the shared atomic level.
type leveledCore struct {
	zapcore.Core

	// minLevel is the minimum level this core accepts.
	minLevel zapcore.Level
}

// Enabled reports whether entries at l pass the override.
func (c *leveledCore) Enabled(l zapcore.Level) bool {
	return c.minLevel.Enabled(l)
}

// Check registers the core on the entry when its level is enabled.
//
//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *leveledCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}

	return ce.AddCore(ent, c)
}

// With keeps the override on derived cores.
//
//nolint:ireturn,nolintlint // Returning zapcore.Core is required by zap.
func (c *leveledCore) With(fields []zapcore.Field) zapcore.Core {
	return &leveledCore{
		Core:     c.Core.With(fields),
		minLevel: c.minLevel,
	}
}

// WithLevel returns a zap option that replaces the logger level with lvl.
//
//nolint:ireturn,nolintlint // Returning zap.Option is required by zap.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &leveledCore{
			Core:     core,
			minLevel: lvl,
		}
	})
}
