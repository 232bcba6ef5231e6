package interfaces

import "context"

// Logger is the leveled logging contract used across the conversion pipeline.
// Its method set matches github.com/goliatone/go-logger so a glog logger can be
// adapted without extra plumbing.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// LoggerProvider hands out named loggers, one per pipeline module.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// FieldsLogger is implemented by loggers that can carry structured fields on
// every entry they emit.
type FieldsLogger interface {
	WithFields(fields map[string]any) Logger
}
