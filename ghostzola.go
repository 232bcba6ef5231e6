// Package ghostzola converts Ghost blog archives into Zola or Hugo content
// trees.
package ghostzola

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-ghostzola/internal/archive"
	"github.com/goliatone/go-ghostzola/internal/converter"
	"github.com/goliatone/go-ghostzola/internal/errs"
	"github.com/goliatone/go-ghostzola/internal/ghostjson"
	"github.com/goliatone/go-ghostzola/internal/locator"
	"github.com/goliatone/go-ghostzola/internal/logging/console"
	"github.com/goliatone/go-ghostzola/internal/logging/gologger"
	"github.com/goliatone/go-ghostzola/internal/output"
	"github.com/goliatone/go-ghostzola/pkg/interfaces"
)

type (
	Report        = converter.Report
	Location      = locator.Location
	Record        = output.Record
	Detection     = archive.Detection
	Format        = archive.Format
	ExportSummary = ghostjson.Summary
	Export        = ghostjson.Export
)

const (
	FormatTar   = archive.FormatTar
	FormatGzip  = archive.FormatGzip
	FormatBzip2 = archive.FormatBzip2
)

var (
	ErrUnsupportedFormat  = errs.ErrUnsupportedFormat
	ErrArchiveCorrupt     = errs.ErrArchiveCorrupt
	ErrBlogNotFound       = errs.ErrBlogNotFound
	ErrAmbiguousBlog      = errs.ErrAmbiguousBlog
	ErrSchemaMismatch     = errs.ErrSchemaMismatch
	ErrQueryFailed        = errs.ErrQueryFailed
	ErrDanglingReference  = errs.ErrDanglingReference
	ErrOutputCollision    = errs.ErrOutputCollision
	ErrMissingMedia       = errs.ErrMissingMedia
	ErrWriteFailed        = errs.ErrWriteFailed
	ErrReadFailed         = errs.ErrReadFailed
	ErrExportInvalid      = ghostjson.ErrExportInvalid
	ErrArchivePathMissing = converter.ErrArchivePathRequired
	ErrExtractPathMissing = converter.ErrExtractPathRequired
)

// Metadata keys attached to conversion errors.
const (
	MetaPath       = errs.MetaPath
	MetaPrefix     = errs.MetaPrefix
	MetaCandidates = errs.MetaCandidates
	MetaTable      = errs.MetaTable
	MetaColumn     = errs.MetaColumn
	MetaPostID     = errs.MetaPostID
	MetaAuthorID   = errs.MetaAuthorID
	MetaSource     = errs.MetaSource
)

// Option tunes a call.
type Option func(*options)

type options struct {
	config   Config
	provider interfaces.LoggerProvider
	prefix   string
}

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithLoggerProvider routes pipeline logs to provider.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// RootPrefix selects the blog at the archive root.
const RootPrefix = locator.RootPrefix

// WithPrefix selects one blog in archives holding several. Any value returned
// by ListPrefixes selects exactly its blog.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

func collect(opts []Option) options {
	o := options{config: DefaultConfig()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Convert converts the blog in archivePath into extractPath.
func Convert(ctx context.Context, archivePath, extractPath string, opts ...Option) (*Report, error) {
	o := collect(opts)
	return converter.NewService(o.config, o.provider).Convert(ctx, converter.ConvertRequest{
		ArchivePath: archivePath,
		ExtractPath: extractPath,
		Prefix:      o.prefix,
	})
}

// ListPrefixes returns the sorted blog prefixes found in archivePath. A blog at
// the archive root is listed as RootPrefix.
func ListPrefixes(ctx context.Context, archivePath string, opts ...Option) ([]string, error) {
	o := collect(opts)
	return converter.NewService(o.config, o.provider).ListPrefixes(ctx, archivePath)
}

// DetectFormat classifies the file at path by content.
func DetectFormat(path string) (Detection, error) {
	return archive.DetectFile(path)
}

// CheckExport validates a Ghost JSON export read from r.
func CheckExport(r io.Reader) (*ExportSummary, error) {
	return ghostjson.Check(r)
}

// ErrorCode returns the stable code of a conversion error, or "".
func ErrorCode(err error) string {
	return errs.Code(err)
}

// ErrorMetadata returns the metadata attached to a conversion error.
func ErrorMetadata(err error) map[string]any {
	return errs.Metadata(err)
}

// IsFatal reports whether err aborts a conversion.
func IsFatal(err error) bool {
	return errs.IsFatal(err)
}

// NewLoggerProvider builds the provider named by cfg. Console output goes to w.
func NewLoggerProvider(cfg LoggingConfig, w io.Writer) (interfaces.LoggerProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "console":
		level := console.ParseLevel(cfg.Level)
		return console.NewProvider(console.Options{Writer: w, MinLevel: &level}), nil
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     cfg.Level,
			Format:    cfg.Format,
			AddSource: cfg.AddSource,
			Focus:     cfg.Focus,
		})
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, cfg.Provider)
	}
}
