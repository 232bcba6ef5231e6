// Package console provides a dependency-free line logger used by the CLI
// when no go-logger configuration is requested.
package console

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-ghostzola/internal/logging"
	"github.com/goliatone/go-ghostzola/pkg/interfaces"
)

// Level is the severity of an entry.
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "INFO"
	}
}

// ParseLevel maps a configuration level name to a Level. Unknown names map to
// LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Options configures the provider. Zero values write to stderr at INFO.
type Options struct {
	Writer   io.Writer
	TimeFunc func() time.Time
	MinLevel *Level
}

type provider struct {
	writer   io.Writer
	clock    func() time.Time
	minLevel Level
	mu       sync.Mutex
}

// NewProvider returns a console logger provider.
func NewProvider(opts Options) interfaces.LoggerProvider {
	p := &provider{
		writer:   opts.Writer,
		clock:    opts.TimeFunc,
		minLevel: LevelInfo,
	}
	if p.writer == nil {
		p.writer = os.Stderr
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	if opts.MinLevel != nil {
		p.minLevel = *opts.MinLevel
	}
	return p
}

func (p *provider) GetLogger(name string) interfaces.Logger {
	return &consoleLogger{
		provider: p,
		fields:   map[string]any{"logger": name},
	}
}

type consoleLogger struct {
	provider *provider
	fields   map[string]any
	ctx      context.Context
}

var (
	_ interfaces.Logger       = (*consoleLogger)(nil)
	_ interfaces.FieldsLogger = (*consoleLogger)(nil)
)

func (l *consoleLogger) Trace(msg string, args ...any) { l.log(LevelTrace, msg, args) }
func (l *consoleLogger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args) }
func (l *consoleLogger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args) }
func (l *consoleLogger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args) }
func (l *consoleLogger) Error(msg string, args ...any) { l.log(LevelError, msg, args) }
func (l *consoleLogger) Fatal(msg string, args ...any) { l.log(LevelFatal, msg, args) }

func (l *consoleLogger) WithFields(fields map[string]any) interfaces.Logger {
	if len(fields) == 0 {
		return l
	}
	merged := maps.Clone(l.fields)
	if merged == nil {
		merged = make(map[string]any, len(fields))
	}
	maps.Copy(merged, fields)
	return &consoleLogger{provider: l.provider, fields: merged, ctx: l.ctx}
}

func (l *consoleLogger) WithContext(ctx context.Context) interfaces.Logger {
	return &consoleLogger{provider: l.provider, fields: maps.Clone(l.fields), ctx: ctx}
}

func (l *consoleLogger) log(level Level, msg string, args []any) {
	if l.provider == nil || level < l.provider.minLevel {
		return
	}

	fields := maps.Clone(l.fields)
	if fields == nil {
		fields = map[string]any{}
	}
	maps.Copy(fields, logging.ContextFields(l.ctx))
	for i := 0; i < len(args); i += 2 {
		if i == len(args)-1 {
			fields[fmt.Sprintf("arg_%d", i)] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok || key == "" {
			key = fmt.Sprintf("arg_%d", i)
		}
		fields[key] = args[i+1]
	}

	line := formatEntry(l.provider.clock().UTC(), level, msg, fields)

	l.provider.mu.Lock()
	defer l.provider.mu.Unlock()
	// Best effort: a failing log sink must not fail the conversion.
	_, _ = io.WriteString(l.provider.writer, line+"\n")
}

func formatEntry(ts time.Time, level Level, msg string, fields map[string]any) string {
	var b strings.Builder
	b.WriteString(ts.Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(level.String())
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(formatValue(fields[key]))
	}
	return b.String()
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return quote(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case error:
		return quote(v.Error())
	case fmt.Stringer:
		return quote(v.String())
	case []string:
		return quote(strings.Join(v, ","))
	case bool:
		return strconv.FormatBool(v)
	default:
		return quote(fmt.Sprint(v))
	}
}

func quote(value string) string {
	if value == "" {
		return `""`
	}
	if strings.ContainsFunc(value, func(r rune) bool { return r <= 0x20 || r == '=' || r == '"' }) {
		return strconv.Quote(value)
	}
	return value
}
