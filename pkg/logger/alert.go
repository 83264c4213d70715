package logger

import (
	"signalcrawler/pkg/common"

	"go.uber.org/zap/zapcore"
)

// AlertHook receives entries flagged with the send_alert field.
// Hooks run synchronously and must not block.
type AlertHook func(entry zapcore.Entry, fields map[string]interface{})

type AlertCore struct {
	core     zapcore.Core
	minLevel zapcore.Level
	hooks    []AlertHook
}

func NewAlertCore(core zapcore.Core, minLevel zapcore.Level, hooks ...AlertHook) *AlertCore {
	return &AlertCore{core: core, minLevel: minLevel, hooks: hooks}
}

func (a *AlertCore) Enabled(lvl zapcore.Level) bool {
	return a.core.Enabled(lvl)
}

func (a *AlertCore) With(fields []zapcore.Field) zapcore.Core {
	return &AlertCore{
		core:     a.core.With(fields),
		minLevel: a.minLevel,
		hooks:    a.hooks,
	}
}

func (a *AlertCore) Check(entry zapcore.Entry, checkedEntry *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(entry.Level) {
		return checkedEntry.AddCore(entry, a)
	}
	return checkedEntry
}

func (a *AlertCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	shouldSend := false
	for _, f := range fields {
		if f.Key == common.KEY_LOG_HOOK_SEND_ALERT && f.Type == zapcore.BoolType && f.Integer == 1 {
			shouldSend = true
			break
		}
	}
	if entry.Level >= a.minLevel && shouldSend {
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range fields {
			f.AddTo(enc)
		}
		for _, hook := range a.hooks {
			hook(entry, enc.Fields)
		}
	}
	return a.core.Write(entry, fields)
}

func (a *AlertCore) Sync() error {
	return a.core.Sync()
}
