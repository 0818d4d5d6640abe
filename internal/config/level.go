package config

import "log/slog"

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Level returns the slog level named by LogLevel, or warn.
func (r Run) Level() slog.Level {
	if l, ok := logLevels[r.LogLevel]; ok {
		return l
	}
	return slog.LevelWarn
}
