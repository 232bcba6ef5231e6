package transform_test

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-ghostzola/internal/content"
	"github.com/goliatone/go-ghostzola/internal/errs"
	"github.com/goliatone/go-ghostzola/internal/ghostdb"
	"github.com/goliatone/go-ghostzola/internal/ghostdb/ghostdbtest"
	"github.com/goliatone/go-ghostzola/internal/markdown"
	"github.com/goliatone/go-ghostzola/internal/media"
	"github.com/goliatone/go-ghostzola/internal/transform"
)

func helloArticle() content.Article {
	post := ghostdbtest.Post(1, "hello-world", "Hello World", "# Hi", 1, ghostdbtest.Date(2020, time.January, 1))
	return content.Article{
		Post:   post,
		Author: ghostdbtest.Author(1, "Pete", "pete"),
	}
}

func defaultOptions() transform.Options {
	return transform.Options{
		Flavor:               transform.FlavorZola,
		Layout:               transform.LayoutDated,
		Extension:            ".md",
		BodyFallback:         transform.FallbackHTML,
		IncludeFeatureImages: true,
	}
}

func readBack(t *testing.T, raw []byte) *markdown.Document {
	t.Helper()
	doc, err := markdown.ReadDocument(raw)
	if err != nil {
		t.Fatalf("ReadDocument: %v\n%s", err, raw)
	}
	return doc
}

func TestTransformHelloWorldZola(t *testing.T) {
	tr := newTransformer(t, defaultOptions(), nil)
	file, warnings, err := tr.Transform(helloArticle())
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings %v", warnings)
	}
	if file.Path != "2020/01/01/hello-world.md" {
		t.Fatalf("unexpected path %q", file.Path)
	}
	if !strings.HasPrefix(string(file.Content), "+++\n") {
		t.Fatalf("expected toml delimiters:\n%s", file.Content)
	}

	doc := readBack(t, file.Content)
	if doc.String("title") != "Hello World" {
		t.Fatalf("title = %q", doc.String("title"))
	}
	if draft, _ := doc.Meta["draft"].(bool); draft {
		t.Fatalf("expected draft = false")
	}
	if _, ok := doc.Meta["draft"]; !ok {
		t.Fatalf("draft must always be emitted")
	}
	extra := doc.Section("extra")
	if extra["author"] != "Pete" || extra["body_format"] != "markdown" {
		t.Fatalf("unexpected extra %#v", extra)
	}
	if string(doc.Body) != "# Hi" {
		t.Fatalf("body = %q, want %q", doc.Body, "# Hi")
	}
}

func TestTransformHugoFlavor(t *testing.T) {
	opts := defaultOptions()
	opts.Flavor = transform.FlavorHugo
	opts.Layout = transform.LayoutFlatDated

	article := helloArticle()
	article.Tags = []ghostdb.Tag{ghostdbtest.Tag(2, "Go", "go"), ghostdbtest.Tag(1, "Rust", "rust")}

	file, _, err := newTransformer(t, opts, nil).Transform(article)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if file.Path != "2020-01-01-hello-world.md" {
		t.Fatalf("unexpected path %q", file.Path)
	}
	if !strings.HasPrefix(string(file.Content), "---\n") {
		t.Fatalf("expected yaml delimiters:\n%s", file.Content)
	}
	if !strings.Contains(string(file.Content), "author: Pete\n") {
		t.Fatalf("expected top-level author:\n%s", file.Content)
	}
	if !strings.Contains(string(file.Content), "tags:\n  - Go\n  - Rust\n") {
		t.Fatalf("expected ordered tags:\n%s", file.Content)
	}
	if string(readBack(t, file.Content).Body) != "# Hi" {
		t.Fatalf("unexpected body")
	}
}

func TestTagOrderRoundTrip(t *testing.T) {
	article := helloArticle()
	article.Tags = []ghostdb.Tag{ghostdbtest.Tag(3, "C", "c"), ghostdbtest.Tag(1, "A", "a"), ghostdbtest.Tag(2, "B", "b")}

	file, _, err := newTransformer(t, defaultOptions(), nil).Transform(article)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	taxonomies := readBack(t, file.Content).Section("taxonomies")
	raw, _ := taxonomies["tags"].([]any)
	var got []string
	for _, v := range raw {
		got = append(got, v.(string))
	}
	if !slices.Equal(got, []string{"C", "A", "B"}) {
		t.Fatalf("tags = %v", got)
	}
}

func TestBodyPrecedence(t *testing.T) {
	mobiledoc := `{"cards":[["markdown",{"markdown":"from cards"}]],"sections":[[10,0]]}`
	cases := []struct {
		name     string
		post     ghostdb.Post
		fallback string
		body     string
		format   string
	}{
		{"markdown wins", ghostdb.Post{Markdown: "md", Mobiledoc: mobiledoc, HTML: "<p>h</p>"}, transform.FallbackMobiledoc, "md", transform.FormatMarkdown},
		{"html default fallback", ghostdb.Post{Mobiledoc: mobiledoc, HTML: "<p>h</p>"}, transform.FallbackHTML, "<p>h</p>", transform.FormatHTML},
		{"mobiledoc fallback", ghostdb.Post{Mobiledoc: mobiledoc, HTML: "<p>h</p>"}, transform.FallbackMobiledoc, "from cards", transform.FormatMobiledoc},
		{"mobiledoc without cards", ghostdb.Post{Mobiledoc: `{"cards":[],"sections":[]}`, HTML: "<p>h</p>"}, transform.FallbackMobiledoc, "<p>h</p>", transform.FormatHTML},
		{"whitespace markdown", ghostdb.Post{Markdown: "\n\n", HTML: "<p>h</p>"}, transform.FallbackHTML, "\n\n", transform.FormatMarkdown},
		{"whitespace html", ghostdb.Post{HTML: "  \n"}, transform.FallbackHTML, "", transform.FormatEmpty},
		{"nothing", ghostdb.Post{}, transform.FallbackHTML, "", transform.FormatEmpty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, format, warning := transform.SelectBody(tc.post, tc.fallback)
			if warning != nil {
				t.Fatalf("unexpected warning %v", warning)
			}
			if body != tc.body || format != tc.format {
				t.Fatalf("SelectBody = %q/%s, want %q/%s", body, format, tc.body, tc.format)
			}
		})
	}

	_, format, warning := transform.SelectBody(ghostdb.Post{Mobiledoc: "{oops", HTML: "<p>x</p>"}, transform.FallbackMobiledoc)
	if warning == nil || format != transform.FormatHTML {
		t.Fatalf("invalid mobiledoc should warn and fall back to html, got %s %v", format, warning)
	}
}

func TestTransformRewritesMedia(t *testing.T) {
	m := media.New(media.Options{MediaRoot: "blog/images", OutputDir: "images", LinkPrefix: "/images"})
	article := helloArticle()
	article.Post.Markdown = "![cat](/content/images/2020/01/cat.png)\n![ext](https://example.com/content/images/x.png)"
	article.Post.Image = "__GHOST_URL__/content/images/2020/01/cover.jpg"

	file, warnings, err := newTransformer(t, defaultOptions(), m).Transform(article)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings %v", warnings)
	}
	doc := readBack(t, file.Content)
	wantBody := "![cat](/images/2020/01/cat.png)\n![ext](https://example.com/content/images/x.png)"
	if string(doc.Body) != wantBody {
		t.Fatalf("body = %q", doc.Body)
	}
	if doc.Section("extra")["image"] != "/images/2020/01/cover.jpg" {
		t.Fatalf("feature image not rewritten: %#v", doc.Section("extra"))
	}

	var sources []string
	for _, asset := range m.Assets() {
		sources = append(sources, asset.Source)
	}
	if !slices.Equal(sources, []string{"blog/images/2020/01/cat.png", "blog/images/2020/01/cover.jpg"}) {
		t.Fatalf("registered %v", sources)
	}
}

func TestPrepareFillsBodyFields(t *testing.T) {
	mobiledoc := `{"cards":[["markdown",{"markdown":"![a](/content/images/a.png)"}]],"sections":[[10,0]]}`
	article := helloArticle()
	article.Post.Markdown = ""
	article.Post.Mobiledoc = mobiledoc
	article.Post.HTML = `<img src="/content/images/b.png">`

	opts := defaultOptions()
	opts.BodyFallback = transform.FallbackMobiledoc
	tr := newTransformer(t, opts, nil)

	prepared, warnings := tr.Prepare(article)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings %v", warnings)
	}
	if prepared.BodyFormat != transform.FormatMobiledoc || prepared.Body != "![a](/content/images/a.png)" {
		t.Fatalf("body = %q/%s", prepared.Body, prepared.BodyFormat)
	}
	if !slices.Equal(prepared.MediaRefs, []string{"a.png"}) {
		t.Fatalf("media refs = %v", prepared.MediaRefs)
	}

	again, _ := tr.Prepare(prepared)
	if again.Body != prepared.Body || again.BodyFormat != prepared.BodyFormat {
		t.Fatalf("prepared article changed: %q/%s", again.Body, again.BodyFormat)
	}

	article.Post.Mobiledoc = "{oops"
	broken, warnings := tr.Prepare(article)
	if len(warnings) != 1 || broken.BodyFormat != transform.FormatHTML || !slices.Equal(broken.MediaRefs, []string{"b.png"}) {
		t.Fatalf("broken mobiledoc = %s %v %v", broken.BodyFormat, broken.MediaRefs, warnings)
	}
}

func TestTransformDetectsCollisions(t *testing.T) {
	tr := newTransformer(t, defaultOptions(), nil)
	if _, _, err := tr.Transform(helloArticle()); err != nil {
		t.Fatalf("first Transform: %v", err)
	}

	other := helloArticle()
	other.Post.ID = 7
	_, _, err := tr.Transform(other)
	if !errors.Is(err, errs.ErrOutputCollision) {
		t.Fatalf("expected ErrOutputCollision, got %v", err)
	}
	meta := errs.Metadata(err)
	if meta[errs.MetaPostID] != int64(7) || meta[errs.MetaOtherPost] != int64(1) {
		t.Fatalf("unexpected metadata %#v", meta)
	}
}

func TestDraftDatesAndPages(t *testing.T) {
	draft := helloArticle()
	draft.Post.Status = "draft"
	draft.Post.PublishedAt = ghostdb.Timestamp{}
	draft.Post.CreatedAt = ghostdbtest.Date(2019, time.December, 24)

	opts := defaultOptions()
	opts.PagesDir = "pages"
	tr := newTransformer(t, opts, nil)

	file, _, err := tr.Transform(draft)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if file.Path != "2019/12/24/hello-world.md" {
		t.Fatalf("draft should fall back to created_at, got %q", file.Path)
	}
	if draftFlag, _ := readBack(t, file.Content).Meta["draft"].(bool); !draftFlag {
		t.Fatalf("expected draft = true")
	}

	undated := helloArticle()
	undated.Post.ID = 2
	undated.Post.Slug = "nodate"
	undated.Post.PublishedAt = ghostdb.Timestamp{}
	undated.Post.CreatedAt = ghostdb.Timestamp{}
	file, _, err = tr.Transform(undated)
	if err != nil || file.Path != "undated/nodate.md" {
		t.Fatalf("undated path = %q, %v", file.Path, err)
	}

	page := helloArticle()
	page.Post.ID = 3
	page.Post.Slug = "about"
	page.Post.Page = true
	file, _, err = tr.Transform(page)
	if err != nil || file.Path != "pages/about.md" {
		t.Fatalf("page path = %q, %v", file.Path, err)
	}
}

func TestResolveSlugFallbacks(t *testing.T) {
	if got := transform.ResolveSlug(ghostdb.Post{Slug: "kept"}); got != "kept" {
		t.Fatalf("slug not kept: %q", got)
	}
	if got := transform.ResolveSlug(ghostdb.Post{Title: "Hello World"}); got != "hello-world" {
		t.Fatalf("title fallback = %q", got)
	}
	if got := transform.ResolveSlug(ghostdb.Post{UUID: "abc-123"}); got != "abc-123" {
		t.Fatalf("uuid fallback = %q", got)
	}
	a := transform.ResolveSlug(ghostdb.Post{ID: 5})
	b := transform.ResolveSlug(ghostdb.Post{ID: 5})
	if a == "" || a != b {
		t.Fatalf("id fallback must be stable: %q %q", a, b)
	}
	if got := transform.ResolveSlug(ghostdb.Post{Slug: "../escape", Title: "Safe"}); strings.Contains(got, "/") {
		t.Fatalf("unsafe slug passed through: %q", got)
	}
}

func TestDerivedDescription(t *testing.T) {
	opts := defaultOptions()
	opts.DeriveDescription = true
	opts.DescriptionLength = 20

	article := helloArticle()
	article.Post.HTML = "<p>The quick brown fox jumps over the lazy dog</p>"
	file, _, err := newTransformer(t, opts, nil).Transform(article)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got := readBack(t, file.Content).String("description"); got != "The quick brown fox…" {
		t.Fatalf("description = %q", got)
	}

	article.Post.ID = 2
	article.Post.Slug = "with-meta"
	article.Post.MetaDescription = "Explicit"
	file, _, err = newTransformer(t, opts, nil).Transform(article)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got := readBack(t, file.Content).String("description"); got != "Explicit" {
		t.Fatalf("meta description should win, got %q", got)
	}
}

func TestRenderMarkdown(t *testing.T) {
	opts := defaultOptions()
	opts.RenderMarkdown = true
	file, _, err := newTransformer(t, opts, nil).Transform(helloArticle())
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	doc := readBack(t, file.Content)
	if !strings.Contains(string(doc.Body), "<h1") || doc.Section("extra")["body_format"] != "html" {
		t.Fatalf("expected rendered html body, got %q", doc.Body)
	}
}

func newTransformer(t *testing.T, opts transform.Options, linker transform.Linker) *transform.Transformer {
	t.Helper()
	tr, err := transform.New(opts, linker)
	if err != nil {
		t.Fatalf("transform.New: %v", err)
	}
	return tr
}

func TestRenderMarkdownOptions(t *testing.T) {
	opts := defaultOptions()
	opts.RenderMarkdown = true
	opts.Markdown = markdown.Options{Extensions: []string{"footnote"}, HardWraps: true}
	article := helloArticle()
	article.Post.Markdown = "line one\nline two[^1]\n\n[^1]: note\n"

	file, _, err := newTransformer(t, opts, nil).Transform(article)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	body := string(readBack(t, file.Content).Body)
	if !strings.Contains(body, "<br") {
		t.Fatalf("expected hard wrap, got %q", body)
	}
	if !strings.Contains(body, "footnote") {
		t.Fatalf("expected footnote markup, got %q", body)
	}

	opts.Markdown = markdown.Options{Extensions: []string{"mermaid"}}
	if _, err := transform.New(opts, nil); !errors.Is(err, markdown.ErrUnknownExtension) {
		t.Fatalf("expected unknown extension, got %v", err)
	}
}
