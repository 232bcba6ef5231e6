// Package transform turns articles into static-site content files.
package transform

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/k3a/html2text"

	"github.com/goliatone/go-ghostzola/internal/content"
	"github.com/goliatone/go-ghostzola/internal/errs"
	"github.com/goliatone/go-ghostzola/internal/logging"
	"github.com/goliatone/go-ghostzola/internal/markdown"
	"github.com/goliatone/go-ghostzola/internal/media"
	"github.com/goliatone/go-ghostzola/pkg/interfaces"
)

// Linker registers a media reference and returns the link that replaces it.
type Linker interface {
	Link(ref string) (string, error)
}

// Options configures a Transformer.
type Options struct {
	Flavor    string
	Layout    string
	Extension string
	PagesDir  string

	BodyFallback   string
	RenderMarkdown bool
	// Markdown configures the renderer used when RenderMarkdown is set.
	Markdown          markdown.Options
	DeriveDescription bool
	DescriptionLength int

	IncludeFeatureImages bool
	Logger               interfaces.Logger
}

// File is one transformed article.
type File struct {
	Path       string
	PostID     int64
	Slug       string
	BodyFormat string
	Content    []byte
}

// Transformer converts articles one at a time and guarantees that no two
// articles of a run share an output path.
type Transformer struct {
	opts     Options
	linker   Linker
	renderer *markdown.Renderer
	logger   interfaces.Logger

	mu    sync.Mutex
	paths map[string]int64
}

// New returns a Transformer. linker may be nil to leave media references
// untouched.
func New(opts Options, linker Linker) (*Transformer, error) {
	if opts.Extension == "" {
		opts.Extension = ".md"
	}
	if opts.Flavor == "" {
		opts.Flavor = FlavorZola
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	t := &Transformer{
		opts:   opts,
		linker: linker,
		logger: logger,
		paths:  map[string]int64{},
	}
	if opts.RenderMarkdown {
		r, err := markdown.NewRenderer(opts.Markdown)
		if err != nil {
			return nil, err
		}
		t.renderer = r
	}
	return t, nil
}

// Transform converts article. Warnings are non-fatal problems such as media
// references that could not be registered.
func (t *Transformer) Transform(article content.Article) (File, []error, error) {
	article, warnings := t.Prepare(article)
	post := article.Post
	slugValue := ResolveSlug(post)
	logger := logging.WithPost(t.logger, post.ID, slugValue)

	body, format := article.Body, article.BodyFormat
	if format == FormatEmpty {
		logger.Warn("transform.body.empty")
	}

	if t.linker != nil && body != "" {
		rewritten, problems := media.Rewrite(body, t.linker.Link)
		body = rewritten
		warnings = append(warnings, problems...)
	}

	if t.renderer != nil && (format == FormatMarkdown || format == FormatMobiledoc) {
		rendered, err := t.renderer.Render(body)
		if err != nil {
			logger.Warn("transform.render.failed", "error", err)
			warnings = append(warnings, err)
		} else {
			body = rendered
			format = FormatHTML
		}
	}

	meta := Meta{
		ID:          post.ID,
		UUID:        post.UUID,
		Title:       post.Title,
		Slug:        slugValue,
		Description: t.description(post.MetaDescription, post.HTML),
		Date:        PostDate(post),
		Updated:     post.UpdatedAt.Ptr(),
		Draft:       !post.Published(),
		Tags:        article.TagNames(),
		Author:      article.Author.Name,
		AuthorSlug:  article.Author.Slug,
		Language:    post.Language,
		Featured:    bool(post.Featured),
		Page:        bool(post.Page),
		Visibility:  post.Visibility,
		MetaTitle:   post.MetaTitle,
		BodyFormat:  format,
	}
	if t.opts.IncludeFeatureImages {
		image, err := t.imageLink(post.Image)
		if err != nil {
			warnings = append(warnings, err)
		}
		meta.Image = image
	}

	relPath := ArticlePath(t.opts.Layout, t.opts.Extension, t.opts.PagesDir, bool(post.Page), meta.Date, slugValue)
	if err := t.claim(relPath, post.ID); err != nil {
		return File{}, warnings, err
	}

	encoded, err := Encode(t.opts.Flavor, meta, body)
	if err != nil {
		return File{}, warnings, errs.New(errs.ErrWriteFailed, "encode frontmatter", err, map[string]any{
			errs.MetaPostID: post.ID,
		})
	}

	logger.Trace("transform.article.completed", "path", relPath, "body_format", format)
	return File{
		Path:       relPath,
		PostID:     post.ID,
		Slug:       slugValue,
		BodyFormat: format,
		Content:    encoded,
	}, warnings, nil
}

// Prepare fills the body fields of article with the selected body, its
// format and the media references it carries. An article that already has a
// BodyFormat is returned unchanged.
func (t *Transformer) Prepare(article content.Article) (content.Article, []error) {
	if article.BodyFormat != "" {
		return article, nil
	}
	var warnings []error
	body, format, warning := SelectBody(article.Post, t.opts.BodyFallback)
	if warning != nil {
		logging.WithPost(t.logger, article.Post.ID, ResolveSlug(article.Post)).
			Warn("transform.mobiledoc.invalid", "error", warning)
		warnings = append(warnings, warning)
	}
	article.Body = body
	article.BodyFormat = format
	article.MediaRefs = media.Scan(body)
	return article, warnings
}

func (t *Transformer) claim(relPath string, postID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if other, ok := t.paths[relPath]; ok {
		return errs.New(errs.ErrOutputCollision, "two posts map to the same output path", nil, map[string]any{
			errs.MetaPath:      relPath,
			errs.MetaPostID:    postID,
			errs.MetaOtherPost: other,
		})
	}
	t.paths[relPath] = postID
	return nil
}

func (t *Transformer) imageLink(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	ref, ok := media.RefOf(value)
	if !ok || t.linker == nil {
		return value, nil
	}
	link, err := t.linker.Link(ref)
	if err != nil {
		return value, err
	}
	return link, nil
}

func (t *Transformer) description(metaDescription, html string) string {
	if d := strings.TrimSpace(metaDescription); d != "" {
		return d
	}
	if !t.opts.DeriveDescription || strings.TrimSpace(html) == "" {
		return ""
	}
	text := strings.Join(strings.Fields(html2text.HTML2Text(html)), " ")
	return truncateWords(text, t.opts.DescriptionLength)
}

// truncateWords cuts text to at most limit runes on a word boundary and
// marks the cut with an ellipsis. A limit of zero keeps the whole text.
func truncateWords(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
