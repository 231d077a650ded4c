package logging

import (
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const masked = "[REDACTED]"

// LogrusAdapter implements Logger on top of logrus. Derived loggers share the
// underlying logrus.Logger and its secret mask.
type LogrusAdapter struct {
	logger *logrus.Logger
	entry  *logrus.Entry
	mask   *secretHook
}

// NewLogrusAdapter creates a LogrusAdapter. level is one of debug, info, warn
// or error (case-insensitive, unknown values fall back to info); format is
// "json" or "text".
func NewLogrusAdapter(level, format string) Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return newAdapter(logger)
}

// NewLogrusAdapterFromLogger wraps an existing logrus.Logger.
func NewLogrusAdapterFromLogger(logger *logrus.Logger) Logger {
	if logger == nil {
		logger = logrus.New()
	}
	return newAdapter(logger)
}

func newAdapter(logger *logrus.Logger) *LogrusAdapter {
	hook := &secretHook{}
	logger.AddHook(hook)
	return &LogrusAdapter{logger: logger, entry: logrus.NewEntry(logger), mask: hook}
}

func (l *LogrusAdapter) derive(entry *logrus.Entry) Logger {
	return &LogrusAdapter{logger: l.logger, entry: entry, mask: l.mask}
}

// SetOutput redirects the underlying logrus output.
func (l *LogrusAdapter) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

// Redact masks secret in messages and string fields until forget is called.
func (l *LogrusAdapter) Redact(secret string) func() {
	return l.mask.add(secret)
}

func (l *LogrusAdapter) Debug(msg string, fields ...Field) {
	l.entry.WithFields(convertFields(fields)).Debug(msg)
}

func (l *LogrusAdapter) Info(msg string, fields ...Field) {
	l.entry.WithFields(convertFields(fields)).Info(msg)
}

func (l *LogrusAdapter) Warn(msg string, fields ...Field) {
	l.entry.WithFields(convertFields(fields)).Warn(msg)
}

func (l *LogrusAdapter) Error(msg string, fields ...Field) {
	l.entry.WithFields(convertFields(fields)).Error(msg)
}

// WithError returns a logger carrying err.
func (l *LogrusAdapter) WithError(err error) Logger {
	return l.derive(l.entry.WithError(err))
}

// WithField returns a logger carrying one extra field.
func (l *LogrusAdapter) WithField(key string, value interface{}) Logger {
	return l.derive(l.entry.WithField(key, value))
}

// WithFields returns a logger carrying extra fields.
func (l *LogrusAdapter) WithFields(fields ...Field) Logger {
	return l.derive(l.entry.WithFields(convertFields(fields)))
}

// Fatalf logs and exits the program.
func (l *LogrusAdapter) Fatalf(msg string, args ...interface{}) {
	l.entry.Fatalf(msg, args...)
}

func convertFields(fields []Field) logrus.Fields {
	logrusFields := make(logrus.Fields, len(fields))
	for _, field := range fields {
		logrusFields[field.Key] = field.Value
	}
	return logrusFields
}

// secretHook rewrites entries before they are formatted.
type secretHook struct {
	mu      sync.RWMutex
	secrets map[string]int
}

func (h *secretHook) add(secret string) func() {
	if secret == "" {
		return func() {}
	}
	h.mu.Lock()
	if h.secrets == nil {
		h.secrets = make(map[string]int)
	}
	h.secrets[secret]++
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.secrets[secret]--; h.secrets[secret] <= 0 {
				delete(h.secrets, secret)
			}
		})
	}
}

func (h *secretHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *secretHook) Fire(entry *logrus.Entry) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.secrets) == 0 {
		return nil
	}
	entry.Message = h.scrub(entry.Message)
	for k, v := range entry.Data {
		switch val := v.(type) {
		case string:
			entry.Data[k] = h.scrub(val)
		case error:
			if s := val.Error(); h.scrub(s) != s {
				entry.Data[k] = h.scrub(s)
			}
		}
	}
	return nil
}

func (h *secretHook) scrub(s string) string {
	for secret := range h.secrets {
		s = strings.ReplaceAll(s, secret, masked)
	}
	return s
}
