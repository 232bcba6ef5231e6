// Package markdown renders article bodies and reads generated documents back.
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrUnknownExtension reports an extension name the renderer does not provide.
var ErrUnknownExtension = errors.New("markdown: unknown extension")

// Options configures the renderer.
type Options struct {
	// Extensions names goldmark extensions, see ParseExtensions. Empty selects
	// GFM with linkify and task lists.
	Extensions []string
	// HardWraps renders soft line breaks as <br>, matching Ghost's editor.
	HardWraps bool
	// SafeMode drops raw HTML embedded in markdown.
	SafeMode bool
}

// Renderer converts markdown to HTML. It is stateless and safe for
// concurrent use.
type Renderer struct {
	engine goldmark.Markdown
}

// NewRenderer builds a renderer. Ghost bodies routinely embed raw HTML, so it
// is kept unless SafeMode is set.
func NewRenderer(opts Options) (*Renderer, error) {
	extenders, err := ParseExtensions(opts.Extensions)
	if err != nil {
		return nil, err
	}

	var rendererOptions []renderer.Option
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if !opts.SafeMode {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	engine := goldmark.New(
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOptions...),
		goldmark.WithExtensions(extenders...),
	)
	return &Renderer{engine: engine}, nil
}

// Render converts source to HTML.
func (r *Renderer) Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := r.engine.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}
	return buf.String(), nil
}

var defaultExtensions = []string{"gfm", "linkify", "tasklist"}

var extensions = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
	"typographer":   extension.Typographer,
}

// ParseExtensions resolves extension names, case-insensitively and without
// duplicates. Empty names selects the defaults; an unknown name is
// ErrUnknownExtension.
func ParseExtensions(names []string) ([]goldmark.Extender, error) {
	if len(names) == 0 {
		names = defaultExtensions
	}
	out := make([]goldmark.Extender, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		ext, ok := extensions[key]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, name)
		}
		seen[key] = true
		out = append(out, ext)
	}
	return out, nil
}
