package logger

import "log/slog"

// Component returns base tagged with a component name. A nil base discards everything.
func Component(base *slog.Logger, component string) *slog.Logger {
	if base == nil {
		return slog.New(slog.DiscardHandler)
	}
	return base.With("component", component)
}
