package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// LevelTrace sits below [slog.LevelDebug] and is used for wire-level
// detail: raw LLM request/response bodies, IMAP literals, CalDAV
// reports. The value -8 follows the common slog extension convention.
//
// Trace output is extremely verbose; enable it only when chasing a
// provider-specific problem.
const LevelTrace = slog.Level(-8)

// ParseLogLevel maps the config file's log_level string to an
// [slog.Level]. Matching is case-insensitive and ignores surrounding
// whitespace; the empty string means info. Valid values are trace,
// debug, info, warn (or warning), and error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (valid: trace, debug, info, warn, error)", s)
	}
}

// ReplaceLogLevelNames is an [slog.HandlerOptions.ReplaceAttr] function
// that renders [LevelTrace] as "TRACE". slog does not know about custom
// levels and would otherwise print it as "DEBUG-4".
func ReplaceLogLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level, ok := a.Value.Any().(slog.Level)
		if ok && level == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}
