package liftoff

import "log/slog"

// orDefault returns logger, or slog.Default() if logger is nil. The
// library never constructs its own handler (per the teacher's
// manager.go, which always takes a *slog.Logger from its caller) —
// callers that want structured output wire their own handler in and
// pass it down; this is only a safety net for zero-value Devices.
func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
