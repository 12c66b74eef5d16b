package ffmpeg

import (
	"log/slog"
	"strings"
)

// ParseLogLine maps a line printed with -loglevel level+info to a slog level
// and the message without its level tag. Lines may carry a component prefix,
// as in "[libx264 @ 0x5581] [info] frame I:1", which is kept in the message.
// Untagged lines are reported at info.
func ParseLogLine(line string) (slog.Level, string) {
	prefix, rest := "", line
	if strings.HasPrefix(rest, "[") && strings.Contains(rest, " @ ") {
		end := strings.Index(rest, "] ")
		if end == -1 {
			return slog.LevelInfo, line
		}
		prefix, rest = rest[:end+2], rest[end+2:]
	}

	if !strings.HasPrefix(rest, "[") {
		return slog.LevelInfo, line
	}
	end := strings.Index(rest, "] ")
	if end == -1 {
		return slog.LevelInfo, line
	}
	level, ok := logLevels[rest[1:end]]
	if !ok {
		return slog.LevelInfo, line
	}
	return level, prefix + rest[end+2:]
}

var logLevels = map[string]slog.Level{
	"panic":   slog.LevelError,
	"fatal":   slog.LevelError,
	"error":   slog.LevelError,
	"warning": slog.LevelWarn,
	"info":    slog.LevelInfo,
	"verbose": slog.LevelDebug,
	"debug":   slog.LevelDebug,
	"trace":   slog.LevelDebug,
}
