// Package ghostjson validates Ghost JSON exports, the format Ghost's admin
// produces alongside the database backup.
package ghostjson

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/goliatone/go-ghostzola/internal/errs"
)

//go:embed schema.json
var exportSchema []byte

const schemaResource = "ghost-export.json"

// ErrExportInvalid is wrapped by ValidationError.
var ErrExportInvalid = errors.New("ghostjson: export does not match schema")

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Issue is one schema violation.
type Issue struct {
	Location string
	Message  string
}

// ValidationError lists every schema violation found in an export.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		location := strings.TrimSpace(issue.Location)
		if location == "" {
			location = "#"
		} else if !strings.HasPrefix(location, "#") {
			location = "#" + location
		}
		parts = append(parts, fmt.Sprintf("%s: %s", location, issue.Message))
	}
	if len(parts) == 0 {
		return ErrExportInvalid.Error()
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrExportInvalid
}

// Export summarises one database dump inside an export file.
type Export struct {
	Version    string
	ExportedOn string
	// Counts maps each table in data to its row count.
	Counts map[string]int
}

// Summary describes a valid export file.
type Summary struct {
	// Wrapped is true for the {"db": [...]} envelope.
	Wrapped bool
	Exports []Export
}

type rawExport struct {
	Meta struct {
		Version    string          `json:"version"`
		ExportedOn json.RawMessage `json:"exported_on"`
	} `json:"meta"`
	Data map[string]json.RawMessage `json:"data"`
}

// Check reads an export from r and validates it.
func Check(r io.Reader) (*Summary, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.New(errs.ErrReadFailed, "read ghost export", err, nil)
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, errs.New(errs.ErrUnsupportedFormat, "ghost export is not valid JSON", err, nil)
	}

	schema, err := exportValidator()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			return nil, errs.New(errs.ErrSchemaMismatch, "validate ghost export", err, nil)
		}
		invalid := &ValidationError{Issues: collectIssues(verr)}
		return nil, errs.New(errs.ErrSchemaMismatch, "ghost export does not match the expected schema", invalid, map[string]any{
			"issues": len(invalid.Issues),
		})
	}
	return summarize(raw)
}

// decodeDocument decodes raw for the validator. Numbers stay json.Number so
// millisecond timestamps keep their integer type.
func decodeDocument(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after export document")
	}
	return doc, nil
}

func summarize(raw []byte) (*Summary, error) {
	var envelope struct {
		DB []rawExport `json:"db"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errs.New(errs.ErrUnsupportedFormat, "decode ghost export", err, nil)
	}
	summary := &Summary{Wrapped: envelope.DB != nil}
	exports := envelope.DB
	if !summary.Wrapped {
		var bare rawExport
		if err := json.Unmarshal(raw, &bare); err != nil {
			return nil, errs.New(errs.ErrUnsupportedFormat, "decode ghost export", err, nil)
		}
		exports = []rawExport{bare}
	}

	for _, export := range exports {
		counts := make(map[string]int, len(export.Data))
		for table, rows := range export.Data {
			var items []json.RawMessage
			if err := json.Unmarshal(rows, &items); err != nil {
				continue
			}
			counts[table] = len(items)
		}
		summary.Exports = append(summary.Exports, Export{
			Version:    export.Meta.Version,
			ExportedOn: strings.Trim(string(export.Meta.ExportedOn), `"`),
			Counts:     counts,
		})
	}
	return summary, nil
}

// Tables returns the table names of e, sorted.
func (e Export) Tables() []string {
	out := make([]string, 0, len(e.Counts))
	for table := range e.Counts {
		out = append(out, table)
	}
	sort.Strings(out)
	return out
}

func exportValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaResource, bytes.NewReader(exportSchema)); err != nil {
			compileErr = err
			return
		}
		compiled, compileErr = compiler.Compile(schemaResource)
	})
	if compileErr != nil {
		return nil, fmt.Errorf("ghostjson: compile schema: %w", compileErr)
	}
	return compiled, nil
}

func collectIssues(err *jsonschema.ValidationError) []Issue {
	var issues []Issue
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, Issue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}
