// Package convertcmd exposes conversions as go-command handlers.
package convertcmd

import (
	"context"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-ghostzola/internal/commands"
	"github.com/goliatone/go-ghostzola/internal/converter"
	"github.com/goliatone/go-ghostzola/internal/logging"
	"github.com/goliatone/go-ghostzola/pkg/interfaces"
)

const (
	convertOperation      = "convert.archive"
	listPrefixesOperation = "convert.list_prefixes"
)

var (
	_ command.Commander[ConvertArchiveCommand] = (*ConvertArchiveHandler)(nil)
	_ command.Commander[ListPrefixesCommand]   = (*ListPrefixesHandler)(nil)
)

// ConvertArchiveHandler runs conversions through the shared command handler.
type ConvertArchiveHandler struct {
	inner *commands.Handler[ConvertArchiveCommand]
}

// NewConvertArchiveHandler binds a handler to service. Conversions of large
// archives take as long as they take, so no timeout applies unless one is
// passed in opts.
func NewConvertArchiveHandler(service converter.Service, logger interfaces.Logger, opts ...commands.HandlerOption[ConvertArchiveCommand]) *ConvertArchiveHandler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = logging.NoOp()
	}

	exec := func(ctx context.Context, msg ConvertArchiveCommand) error {
		report, err := service.Convert(ctx, converter.ConvertRequest{
			ArchivePath: msg.ArchivePath,
			ExtractPath: msg.ExtractPath,
			Prefix:      msg.Prefix,
		})
		if err != nil {
			return err
		}
		invokeCallback(msg.ResultCallback, ResultEnvelope{
			Report: report,
			Metadata: map[string]any{
				"operation": convertOperation,
			},
		})
		logging.WithFields(baseLogger, map[string]any{
			"posts":    report.Posts,
			"skipped":  report.Skipped,
			"assets":   report.Assets,
			"warnings": len(report.Warnings),
			"files":    len(report.Files),
		}).Info("convert.command.archive.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[ConvertArchiveCommand]{
		commands.WithLogger[ConvertArchiveCommand](baseLogger),
		commands.WithOperation[ConvertArchiveCommand](convertOperation),
		commands.WithTimeout[ConvertArchiveCommand](0),
		commands.WithMessageFields(func(msg ConvertArchiveCommand) map[string]any {
			fields := map[string]any{
				"archive_path": msg.ArchivePath,
				"extract_path": msg.ExtractPath,
			}
			if msg.Prefix != "" {
				fields["prefix"] = msg.Prefix
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ConvertArchiveCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ConvertArchiveHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[ConvertArchiveCommand].
func (h *ConvertArchiveHandler) Execute(ctx context.Context, msg ConvertArchiveCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CLIHandler satisfies command.CLICommand by returning the handler.
func (h *ConvertArchiveHandler) CLIHandler() any {
	return h
}

// CLIOptions describes the CLI metadata for conversions.
func (h *ConvertArchiveHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"convert"},
		Group:       "convert",
		Description: "Convert a Ghost archive into a static-site content tree",
	}
}

// ListPrefixesHandler lists the blogs inside an archive.
type ListPrefixesHandler struct {
	inner *commands.Handler[ListPrefixesCommand]
}

// NewListPrefixesHandler binds a handler to service.
func NewListPrefixesHandler(service converter.Service, logger interfaces.Logger, opts ...commands.HandlerOption[ListPrefixesCommand]) *ListPrefixesHandler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = logging.NoOp()
	}

	exec := func(ctx context.Context, msg ListPrefixesCommand) error {
		prefixes, err := service.ListPrefixes(ctx, msg.ArchivePath)
		if err != nil {
			return err
		}
		invokeCallback(msg.ResultCallback, ResultEnvelope{
			Prefixes: prefixes,
			Metadata: map[string]any{
				"operation": listPrefixesOperation,
			},
		})
		return nil
	}

	handlerOpts := []commands.HandlerOption[ListPrefixesCommand]{
		commands.WithLogger[ListPrefixesCommand](baseLogger),
		commands.WithOperation[ListPrefixesCommand](listPrefixesOperation),
		commands.WithTimeout[ListPrefixesCommand](0),
		commands.WithMessageFields(func(msg ListPrefixesCommand) map[string]any {
			return map[string]any{"archive_path": msg.ArchivePath}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ListPrefixesCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ListPrefixesHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[ListPrefixesCommand].
func (h *ListPrefixesHandler) Execute(ctx context.Context, msg ListPrefixesCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CLIHandler satisfies command.CLICommand by returning the handler.
func (h *ListPrefixesHandler) CLIHandler() any {
	return h
}

// CLIOptions describes the CLI metadata for prefix listing.
func (h *ListPrefixesHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"prefixes"},
		Group:       "convert",
		Description: "List the blog prefixes inside a Ghost archive",
	}
}
