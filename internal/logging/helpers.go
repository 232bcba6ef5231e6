package logging

import (
	"maps"

	"github.com/goliatone/go-ghostzola/pkg/interfaces"
)

// WithFields attaches structured fields when the logger supports them. A nil
// logger or an empty field set returns the logger untouched.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}

	if fieldsLogger, ok := logger.(interfaces.FieldsLogger); ok {
		copied := make(map[string]any, len(fields))
		maps.Copy(copied, fields)
		return fieldsLogger.WithFields(copied)
	}

	return logger
}

// Progress reports archive walk progress the way long scans are reported
// elsewhere: Info every 32768 entries and Trace every 8192.
func Progress(logger interfaces.Logger, idx int, verb string) {
	if logger == nil || idx <= 0 {
		return
	}
	switch {
	case idx&0x7fff == 0:
		logger.Info("archive.walk.progress", "verb", verb, "entries", idx)
	case idx&0x1fff == 0:
		logger.Trace("archive.walk.progress", "verb", verb, "entries", idx)
	}
}
