// Package gologger adapts github.com/goliatone/go-logger to the pipeline's
// logging contracts.
package gologger

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-ghostzola/internal/logging"
	"github.com/goliatone/go-ghostzola/pkg/interfaces"
)

// Config holds the go-logger options exposed through runtime configuration.
type Config struct {
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

// Provider hands out go-logger child loggers per pipeline module.
type Provider struct {
	root *glog.BaseLogger
}

// NewProvider builds a go-logger root logger from cfg.
func NewProvider(cfg Config) (*Provider, error) {
	options := []glog.Option{}

	if level := levelFor(cfg.Level); level != "" {
		options = append(options, glog.WithLevel(level))
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "console":
		options = append(options, glog.WithLoggerTypeConsole())
	case "json":
		options = append(options, glog.WithLoggerTypeJSON())
	case "pretty":
		options = append(options, glog.WithLoggerTypePretty())
	default:
		return nil, fmt.Errorf("gologger: unsupported format %q", cfg.Format)
	}

	if cfg.AddSource {
		options = append(options, glog.WithAddSource(true))
	}

	root := glog.NewLogger(options...)
	focus := slices.DeleteFunc(slices.Clone(cfg.Focus), func(name string) bool {
		return strings.TrimSpace(name) == ""
	})
	if len(focus) > 0 {
		root.Focus(focus...)
	}

	return &Provider{root: root}, nil
}

// GetLogger implements interfaces.LoggerProvider.
func (p *Provider) GetLogger(name string) interfaces.Logger {
	if p == nil || p.root == nil {
		return logging.NoOp()
	}
	if name = strings.TrimSpace(name); name == "" {
		return wrap(p.root)
	}
	return wrap(p.root.GetLogger(name))
}

func wrap(inner glog.Logger) interfaces.Logger {
	if inner == nil {
		return logging.NoOp()
	}
	return &adapter{inner: inner}
}

type adapter struct {
	inner glog.Logger
}

var (
	_ interfaces.Logger       = (*adapter)(nil)
	_ interfaces.FieldsLogger = (*adapter)(nil)
)

func (l *adapter) Trace(msg string, args ...any) { l.inner.Trace(msg, args...) }
func (l *adapter) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *adapter) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *adapter) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *adapter) Error(msg string, args ...any) { l.inner.Error(msg, args...) }
func (l *adapter) Fatal(msg string, args ...any) { l.inner.Fatal(msg, args...) }

func (l *adapter) WithFields(fields map[string]any) interfaces.Logger {
	if len(fields) == 0 {
		return l
	}
	if with, ok := l.inner.(glog.FieldsLogger); ok {
		return wrap(with.WithFields(maps.Clone(fields)))
	}
	return l
}

func (l *adapter) WithContext(ctx context.Context) interfaces.Logger {
	if ctx == nil {
		return l
	}
	return wrap(l.inner.WithContext(ctx))
}

func levelFor(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return glog.Trace
	case "debug":
		return glog.Debug
	case "info":
		return glog.Info
	case "warn", "warning":
		return glog.Warn
	case "error":
		return glog.Error
	case "fatal":
		return glog.Fatal
	default:
		return ""
	}
}
