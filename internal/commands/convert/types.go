package convertcmd

import (
	"path"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-ghostzola/internal/converter"
)

const (
	convertArchiveMessageType = "ghostzola.convert.archive"
	listPrefixesMessageType   = "ghostzola.convert.list_prefixes"
)

// ResultCallback receives the outcome of a command. It is optional and is
// invoked synchronously from the handler.
type ResultCallback func(ResultEnvelope)

// ResultEnvelope carries what a command produced. Report is set by
// conversions and Prefixes by prefix listings.
type ResultEnvelope struct {
	Report   *converter.Report
	Prefixes []string
	Metadata map[string]any
}

// ConvertArchiveCommand converts the blog in ArchivePath into ExtractPath.
type ConvertArchiveCommand struct {
	ArchivePath string `json:"archive_path"`
	ExtractPath string `json:"extract_path"`
	// Prefix selects one blog when the archive holds several.
	Prefix         string         `json:"prefix,omitempty"`
	ResultCallback ResultCallback `json:"-"`
}

// Type implements command.Message.
func (ConvertArchiveCommand) Type() string { return convertArchiveMessageType }

// Validate ensures both paths are present and the prefix stays inside the archive.
func (m ConvertArchiveCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ArchivePath, validation.Required, validation.By(notBlank("ghostzola.convert.archive_path_required", "archive path is required"))),
		validation.Field(&m.ExtractPath, validation.Required, validation.By(notBlank("ghostzola.convert.extract_path_required", "extract path is required"))),
		validation.Field(&m.Prefix, validation.By(archivePrefix)),
	)
}

// ListPrefixesCommand lists the blog prefixes found in ArchivePath.
type ListPrefixesCommand struct {
	ArchivePath    string         `json:"archive_path"`
	ResultCallback ResultCallback `json:"-"`
}

// Type implements command.Message.
func (ListPrefixesCommand) Type() string { return listPrefixesMessageType }

// Validate ensures the archive path is present.
func (m ListPrefixesCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ArchivePath, validation.Required, validation.By(notBlank("ghostzola.list_prefixes.archive_path_required", "archive path is required"))),
	)
}

func notBlank(code, message string) validation.RuleFunc {
	return func(value any) error {
		if s, _ := value.(string); strings.TrimSpace(s) == "" {
			return validation.NewError(code, message)
		}
		return nil
	}
}

func archivePrefix(value any) error {
	prefix, _ := value.(string)
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil
	}
	for _, part := range strings.Split(path.Clean(prefix), "/") {
		if part == ".." {
			return validation.NewError("ghostzola.convert.prefix_invalid", "prefix must not leave the archive root")
		}
	}
	return nil
}

func invokeCallback(cb ResultCallback, envelope ResultEnvelope) {
	if cb == nil {
		return
	}
	cb(envelope)
}
