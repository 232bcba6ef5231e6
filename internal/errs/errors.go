// Package errs defines the failure taxonomy shared by every pipeline stage.
//
// Each kind has a sentinel (for errors.Is), a go-errors category and a stable
// text code. Errors built with New keep the sentinel and the underlying cause
// in their chain and carry metadata describing what to fix.
package errs

import (
	"errors"
	"fmt"
	"maps"

	goerrors "github.com/goliatone/go-errors"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	ErrArchiveCorrupt    = errors.New("archive corrupt")
	ErrBlogNotFound      = errors.New("blog not found")
	ErrAmbiguousBlog     = errors.New("ambiguous blog")
	ErrSchemaMismatch    = errors.New("schema mismatch")
	ErrQueryFailed       = errors.New("query failed")
	ErrDanglingReference = errors.New("dangling reference")
	ErrOutputCollision   = errors.New("output collision")
	ErrMissingMedia      = errors.New("missing media")
	ErrWriteFailed       = errors.New("write failed")
	ErrReadFailed        = errors.New("read failed")
)

// Metadata keys attached to taxonomy errors.
const (
	MetaPath       = "path"
	MetaPrefix     = "prefix"
	MetaCandidates = "candidates"
	MetaTable      = "table"
	MetaColumn     = "column"
	MetaPostID     = "post_id"
	MetaAuthorID   = "author_id"
	MetaTagID      = "tag_id"
	MetaOtherPost  = "other_post_id"
	MetaSource     = "source"
	MetaMIME       = "mime"
)

type kindSpec struct {
	sentinel error
	category goerrors.Category
	code     string
	fatal    bool
}

var kinds = []kindSpec{
	{ErrUnsupportedFormat, goerrors.CategoryBadInput, "UNSUPPORTED_FORMAT", true},
	{ErrArchiveCorrupt, goerrors.CategoryBadInput, "ARCHIVE_CORRUPT", true},
	{ErrBlogNotFound, goerrors.CategoryNotFound, "BLOG_NOT_FOUND", true},
	{ErrAmbiguousBlog, goerrors.CategoryConflict, "AMBIGUOUS_BLOG", true},
	{ErrSchemaMismatch, goerrors.CategoryBadInput, "SCHEMA_MISMATCH", true},
	{ErrQueryFailed, goerrors.CategoryExternal, "QUERY_FAILED", true},
	{ErrDanglingReference, goerrors.CategoryBadInput, "DANGLING_REFERENCE", true},
	{ErrOutputCollision, goerrors.CategoryConflict, "OUTPUT_COLLISION", true},
	{ErrMissingMedia, goerrors.CategoryNotFound, "MISSING_MEDIA", false},
	{ErrWriteFailed, goerrors.CategoryInternal, "WRITE_FAILED", true},
	{ErrReadFailed, goerrors.CategoryInternal, "READ_FAILED", true},
}

func lookup(sentinel error) (kindSpec, bool) {
	for _, spec := range kinds {
		if spec.sentinel == sentinel {
			return spec, true
		}
	}
	return kindSpec{}, false
}

// New builds a taxonomy error of the given kind. cause may be nil. The
// returned error matches both kind and cause with errors.Is.
func New(kind error, message string, cause error, meta map[string]any) error {
	spec, ok := lookup(kind)
	if !ok {
		panic(fmt.Sprintf("errs: unknown kind %v", kind))
	}

	source := kind
	if cause != nil {
		source = fmt.Errorf("%w: %w", kind, cause)
	}

	wrapped := goerrors.Wrap(source, spec.category, message).WithTextCode(spec.code)
	if len(meta) > 0 {
		wrapped = wrapped.WithMetadata(maps.Clone(meta))
	}
	return wrapped
}

// Kind returns the taxonomy sentinel carried by err, or nil.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, spec := range kinds {
		if errors.Is(err, spec.sentinel) {
			return spec.sentinel
		}
	}
	return nil
}

// Code returns the stable text code for err's kind, or "".
func Code(err error) string {
	spec, ok := lookup(Kind(err))
	if !ok {
		return ""
	}
	return spec.code
}

// IsFatal reports whether err aborts a run. Unknown errors are fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	spec, ok := lookup(Kind(err))
	if !ok {
		return true
	}
	return spec.fatal
}

// Metadata returns a copy of the metadata attached to err, if any.
func Metadata(err error) map[string]any {
	var rich *goerrors.Error
	if !errors.As(err, &rich) || rich == nil {
		return nil
	}
	return maps.Clone(rich.Metadata)
}
