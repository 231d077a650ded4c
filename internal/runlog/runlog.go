// Package runlog holds the per-run, append-only log that is shown to the user
// when a run finishes.
package runlog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"fjacquet/budget-sync/internal/logging"
)

const redacted = "[REDACTED]"

// Log is an ordered, timestamped list of lines. Every line is also written to
// the application logger. Registered secrets are replaced before a line is stored.
type Log struct {
	mu      sync.Mutex
	lines   []string
	secrets []string
	forget  []func()
	logger  logging.Logger
	now     func() time.Time
}

// New returns an empty run log that mirrors lines to logger.
func New(logger logging.Logger) *Log {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Log{logger: logger, now: time.Now}
}

// Redact registers a value that must never appear in the log. When the
// application logger is a logging.Redactor the value is masked there too
// until Release is called.
func (l *Log) Redact(secret string) {
	if secret == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.secrets = append(l.secrets, secret)
	if r, ok := l.logger.(logging.Redactor); ok {
		l.forget = append(l.forget, r.Redact(secret))
	}
}

// Release drops the secrets registered with the application logger. Lines
// already recorded stay redacted.
func (l *Log) Release() {
	l.mu.Lock()
	forget := l.forget
	l.forget = nil
	l.mu.Unlock()
	for _, f := range forget {
		f()
	}
}

// Printf appends a formatted line.
func (l *Log) Printf(format string, args ...interface{}) {
	l.append(fmt.Sprintf(format, args...), false)
}

// Warnf appends a formatted line and mirrors it at warn level.
func (l *Log) Warnf(format string, args ...interface{}) {
	l.append(fmt.Sprintf(format, args...), true)
}

func (l *Log) append(msg string, warn bool) {
	l.mu.Lock()
	for _, s := range l.secrets {
		msg = strings.ReplaceAll(msg, s, redacted)
	}
	line := fmt.Sprintf("[%s] %s", l.now().Format("15:04:05"), msg)
	l.lines = append(l.lines, line)
	l.mu.Unlock()

	if warn {
		l.logger.Warn(msg)
	} else {
		l.logger.Info(msg)
	}
}

// Lines returns a copy of the lines recorded so far.
func (l *Log) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Len returns the number of recorded lines.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}
