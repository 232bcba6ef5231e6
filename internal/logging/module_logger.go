package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-ghostzola/pkg/interfaces"
)

const (
	rootModule      = "ghostzola"
	archiveModule   = "ghostzola.archive"
	locatorModule   = "ghostzola.locator"
	extractModule   = "ghostzola.extract"
	transformModule = "ghostzola.transform"
	mediaModule     = "ghostzola.media"
	outputModule    = "ghostzola.output"
	converterModule = "ghostzola.converter"
)

const (
	fieldArchivePath = "archive_path"
	fieldPrefix      = "prefix"
	fieldPostID      = "post_id"
	fieldSlug        = "slug"
)

// ModuleLogger returns a logger scoped to module, falling back to a no-op
// logger when no provider is configured. Every entry carries a module field.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// ArchiveLogger is used by the sniffer, decompressor and archive index.
func ArchiveLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, archiveModule)
}

// LocatorLogger is used by blog discovery.
func LocatorLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, locatorModule)
}

// ExtractLogger is used by the relational extractor.
func ExtractLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, extractModule)
}

// TransformLogger is used by the content transformer.
func TransformLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, transformModule)
}

// MediaLogger is used by the media materializer.
func MediaLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, mediaModule)
}

// OutputLogger is used by the output writer.
func OutputLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, outputModule)
}

// ConverterLogger is used by the pipeline orchestration.
func ConverterLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, converterModule)
}

// WithRunContext enriches logger with the archive path and prefix of a
// conversion run. Blank values are skipped.
func WithRunContext(logger interfaces.Logger, archivePath, prefix string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(archivePath); trimmed != "" {
		fields[fieldArchivePath] = trimmed
	}
	if trimmed := strings.TrimSpace(prefix); trimmed != "" {
		fields[fieldPrefix] = trimmed
	}
	return WithFields(logger, fields)
}

// WithPost enriches logger with the id and slug of the post being handled.
func WithPost(logger interfaces.Logger, id int64, slug string) interfaces.Logger {
	fields := map[string]any{fieldPostID: id}
	if trimmed := strings.TrimSpace(slug); trimmed != "" {
		fields[fieldSlug] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
