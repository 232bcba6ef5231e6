package markdown

import (
	"bytes"
	"fmt"

	"github.com/adrg/frontmatter"
)

// Document is a generated file split into frontmatter and body.
type Document struct {
	Meta map[string]any
	Body []byte
}

// ReadDocument parses YAML (---) or TOML (+++) frontmatter from source.
func ReadDocument(source []byte) (*Document, error) {
	meta := map[string]any{}
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	return &Document{Meta: meta, Body: body}, nil
}

// String returns the string value at key, or "".
func (d *Document) String(key string) string {
	value, _ := d.Meta[key].(string)
	return value
}

// Section returns the nested table at key, or nil.
func (d *Document) Section(key string) map[string]any {
	value, _ := d.Meta[key].(map[string]any)
	return value
}
