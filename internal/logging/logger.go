// Package logging is the structured logging layer. Components receive a Logger
// through their constructors; production code uses LogrusAdapter and tests use
// MockLogger.
package logging

// Logger is the structured logger every component writes to.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithError, WithField and WithFields return a derived logger; the
	// receiver is left unchanged.
	WithError(err error) Logger
	WithField(key string, value interface{}) Logger
	WithFields(fields ...Field) Logger

	// Fatalf logs and exits the process. Only main and command setup call it.
	Fatalf(msg string, args ...interface{})
}

// Redactor is implemented by loggers that can mask a secret in everything they
// write. The returned func forgets the secret again.
type Redactor interface {
	Redact(secret string) (forget func())
}

// Field is one key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// F is shorthand for building a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}
