package transform

import (
	"strings"

	"github.com/goliatone/go-ghostzola/internal/ghostdb"
	"github.com/goliatone/go-ghostzola/internal/markdown"
)

// Body formats, recorded in frontmatter as body_format.
const (
	FormatMarkdown  = "markdown"
	FormatMobiledoc = "mobiledoc"
	FormatHTML      = "html"
	FormatEmpty     = "empty"
)

// Body fallbacks when markdown is empty.
const (
	FallbackHTML      = "html"
	FallbackMobiledoc = "mobiledoc"
)

// SelectBody applies the fixed precedence: non-empty markdown, then the
// markdown cards of mobiledoc when fallback is FallbackMobiledoc, then the
// stored HTML verbatim, then nothing. A mobiledoc decode failure is returned
// as a warning and selection continues.
func SelectBody(post ghostdb.Post, fallback string) (body, format string, warning error) {
	if post.Markdown != "" {
		return post.Markdown, FormatMarkdown, nil
	}
	if fallback == FallbackMobiledoc {
		cards, ok, err := markdown.MobiledocMarkdown(post.Mobiledoc)
		if err != nil {
			warning = err
		} else if ok {
			return cards, FormatMobiledoc, nil
		}
	}
	if strings.TrimSpace(post.HTML) != "" {
		return post.HTML, FormatHTML, warning
	}
	return "", FormatEmpty, warning
}
