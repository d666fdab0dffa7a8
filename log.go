package easyav1

import "log"

// defaultLogLevel is the module-level fallback used by any Session that
// hasn't been told otherwise — the same "global logging" carry-over spec.md
// §9 describes, implemented the way the teacher logs: plain stdlib log,
// package-level default, no hidden state that survives process exit.
var defaultLogLevel = LogWarning

// SetLogLevel changes the module-level default log level for future
// Sessions that don't set one explicitly in their Settings.
func SetLogLevel(level LogLevel) {
	defaultLogLevel = level
}

func (s *Session) logf(level LogLevel, format string, args ...any) {
	if level > s.settings.LogLevel {
		return
	}
	prefix := "INFO"
	switch level {
	case LogError:
		prefix = "ERROR"
	case LogWarning:
		prefix = "WARN"
	}
	log.Printf("easyav1: %s: "+format, append([]any{prefix}, args...)...)
}
