// Package converter wires the archive, extraction, transform and output
// stages into a single conversion run.
package converter

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"

	"github.com/goliatone/go-ghostzola/internal/archive"
	"github.com/goliatone/go-ghostzola/internal/content"
	"github.com/goliatone/go-ghostzola/internal/ghostdb"
	"github.com/goliatone/go-ghostzola/internal/locator"
	"github.com/goliatone/go-ghostzola/internal/logging"
	"github.com/goliatone/go-ghostzola/internal/markdown"
	"github.com/goliatone/go-ghostzola/internal/media"
	"github.com/goliatone/go-ghostzola/internal/output"
	"github.com/goliatone/go-ghostzola/internal/runtimeconfig"
	"github.com/goliatone/go-ghostzola/internal/transform"
	"github.com/goliatone/go-ghostzola/internal/workers"
	"github.com/goliatone/go-ghostzola/pkg/interfaces"
)

// ErrExtractPathRequired is returned when a conversion has no destination.
var ErrExtractPathRequired = errors.New("converter: extract path is required")

// ErrArchivePathRequired is returned when no archive is given.
var ErrArchivePathRequired = errors.New("converter: archive path is required")

// Service describes the conversion contract.
type Service interface {
	Convert(ctx context.Context, req ConvertRequest) (*Report, error)
	ListPrefixes(ctx context.Context, archivePath string) ([]string, error)
}

// ConvertRequest names the archive, the destination and, for archives
// holding several blogs, the prefix selecting one of them.
type ConvertRequest struct {
	ArchivePath string
	ExtractPath string
	Prefix      string
}

// Report summarises a completed conversion.
type Report struct {
	Location locator.Location
	Format   archive.Format
	// Posts counts the articles written.
	Posts int
	// Skipped counts posts dropped by content filters.
	Skipped int
	Assets  int
	// Warnings holds non-fatal problems, such as missing media, in the order
	// they were found.
	Warnings []error
	Files    []output.Record
	Duration time.Duration
}

// WarningsErr aggregates the warnings into one error, or nil when there are none.
func (r *Report) WarningsErr() error {
	if r == nil || len(r.Warnings) == 0 {
		return nil
	}
	var merged *multierror.Error
	merged = multierror.Append(merged, r.Warnings...)
	return merged.ErrorOrNil()
}

// NewService returns a Service using cfg. provider may be nil.
func NewService(cfg runtimeconfig.Config, provider interfaces.LoggerProvider) Service {
	return &service{
		cfg:      cfg.Normalized(),
		provider: provider,
		logger:   logging.ConverterLogger(provider),
		now:      time.Now,
	}
}

type service struct {
	cfg      runtimeconfig.Config
	provider interfaces.LoggerProvider
	logger   interfaces.Logger
	now      func() time.Time
}

func (s *service) Convert(ctx context.Context, req ConvertRequest) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ArchivePath) == "" {
		return nil, ErrArchivePathRequired
	}
	if strings.TrimSpace(req.ExtractPath) == "" {
		return nil, ErrExtractPathRequired
	}

	start := s.now()
	logger := logging.WithRunContext(s.logger, req.ArchivePath, req.Prefix)
	logger.Info("converter.convert.started", "extract_path", req.ExtractPath)

	ix, detection, err := s.index(ctx, req.ArchivePath, s.retain)
	if err != nil {
		return nil, err
	}
	defer ix.Close()

	location, err := locator.Locate(ix, locator.Options{
		DatabaseName: s.cfg.Archive.DatabaseName,
		Prefix:       req.Prefix,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("converter.blog.located", "database", location.DatabasePath, "media_root", location.MediaRoot)

	dbEntry, _ := ix.Lookup(location.DatabasePath)
	data, err := ghostdb.Extract(ctx, dbEntry, ghostdb.Options{
		TempDir: s.cfg.Archive.SpoolDir,
		Logger:  logging.ExtractLogger(s.provider),
	})
	if err != nil {
		return nil, err
	}

	built, err := content.Build(data, content.Options{
		SkipDrafts:       s.cfg.Content.SkipDrafts,
		SkipPages:        s.cfg.Content.SkipPages,
		SkipInternalTags: s.cfg.Content.SkipInternalTags,
	})
	if err != nil {
		return nil, err
	}

	materializer := media.New(media.Options{
		MediaRoot:  location.MediaRoot,
		OutputDir:  s.cfg.Media.OutputDir,
		LinkPrefix: s.cfg.Media.LinkPrefix,
		Workers:    s.cfg.Output.Workers,
		Logger:     logging.MediaLogger(s.provider),
	})
	if s.cfg.Media.CopyAll {
		registered := materializer.RegisterAll(ix)
		logger.Debug("converter.media.copy_all", "assets", registered)
	}

	var warnings []error
	if s.cfg.Media.IncludeProfileImages {
		warnings = append(warnings, registerProfileImages(materializer, built.Articles)...)
	}

	files, transformWarnings, err := s.transformAll(ctx, built.Articles, materializer)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, transformWarnings...)

	writer, err := output.New(output.Options{
		Root:           req.ExtractPath,
		Manifest:       s.cfg.Output.Manifest,
		Force:          s.cfg.Output.Force,
		SectionIndices: s.cfg.Target.SectionIndices && s.cfg.Target.Flavor == runtimeconfig.FlavorZola,
		Logger:         logging.OutputLogger(s.provider),
	})
	if err != nil {
		return nil, err
	}

	if err := s.writeArticles(ctx, writer, files); err != nil {
		return nil, err
	}

	missing, err := materializer.Materialize(ctx, ix, writer)
	if err != nil {
		return nil, err
	}
	if missing != nil {
		warnings = append(warnings, missing.Errors...)
	}

	records, err := writer.Finish()
	if err != nil {
		return nil, err
	}

	report := &Report{
		Location: location,
		Format:   detection.Format,
		Posts:    len(files),
		Skipped:  built.Skipped,
		Assets:   len(materializer.Assets()),
		Warnings: warnings,
		Files:    records,
		Duration: s.now().Sub(start),
	}
	logger.Info("converter.convert.completed",
		"format", string(report.Format),
		"posts", report.Posts,
		"skipped", report.Skipped,
		"assets", report.Assets,
		"warnings", len(report.Warnings),
		"spooled", humanize.Bytes(uint64(ix.RetainedBytes())),
		"duration", report.Duration,
	)
	return report, nil
}

func (s *service) ListPrefixes(ctx context.Context, archivePath string) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(archivePath) == "" {
		return nil, ErrArchivePathRequired
	}
	ix, _, err := s.index(ctx, archivePath, func(string) bool { return false })
	if err != nil {
		return nil, err
	}
	defer ix.Close()

	prefixes := locator.Prefixes(ix, s.databaseName())
	s.logger.Debug("converter.prefixes.listed", "archive_path", archivePath, "prefixes", len(prefixes))
	return prefixes, nil
}

func (s *service) index(ctx context.Context, archivePath string, retain func(string) bool) (*archive.Index, archive.Detection, error) {
	src, err := archive.Open(archivePath)
	if err != nil {
		return nil, archive.Detection{}, err
	}
	defer src.Close()

	ix, err := archive.BuildIndex(ctx, src, archive.IndexOptions{
		Spool:    s.cfg.Archive.Spool,
		SpoolDir: s.cfg.Archive.SpoolDir,
		Retain:   retain,
		Logger:   logging.ArchiveLogger(s.provider),
	})
	if err != nil {
		return nil, archive.Detection{}, err
	}
	return ix, src.Detection, nil
}

// retain keeps the bytes of candidate databases and anything inside an
// images directory; everything else is indexed by name only.
func (s *service) retain(p string) bool {
	if ok, _ := path.Match(s.databaseName(), path.Base(p)); ok {
		return true
	}
	return strings.HasPrefix(p, "images/") || strings.Contains(p, "/images/")
}

func (s *service) databaseName() string {
	if name := strings.TrimSpace(s.cfg.Archive.DatabaseName); name != "" {
		return name
	}
	return runtimeconfig.DefaultConfig().Archive.DatabaseName
}

func (s *service) transformOptions() transform.Options {
	return transform.Options{
		Flavor:         s.cfg.Target.Flavor,
		Layout:         s.cfg.Target.Layout,
		Extension:      s.cfg.Target.Extension,
		PagesDir:       s.cfg.Target.PagesDir,
		BodyFallback:   s.cfg.Content.BodyFallback,
		RenderMarkdown: s.cfg.Content.RenderMarkdown,
		Markdown: markdown.Options{
			Extensions: s.cfg.Content.MarkdownExtensions,
			HardWraps:  s.cfg.Content.HardWraps,
		},
		DeriveDescription:    s.cfg.Content.DeriveDescription,
		DescriptionLength:    s.cfg.Content.DescriptionLength,
		IncludeFeatureImages: s.cfg.Media.IncludeFeatureImages,
		Logger:               logging.TransformLogger(s.provider),
	}
}

// transformAll converts articles in post id order so that collisions and
// warnings are reported deterministically.
func (s *service) transformAll(ctx context.Context, articles []content.Article, linker transform.Linker) ([]transform.File, []error, error) {
	t, err := transform.New(s.transformOptions(), linker)
	if err != nil {
		return nil, nil, err
	}
	files := make([]transform.File, 0, len(articles))
	var warnings []error
	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		file, warns, err := t.Transform(article)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, file)
		warnings = append(warnings, warns...)
	}
	return files, warnings, nil
}

func (s *service) writeArticles(ctx context.Context, writer *output.Writer, files []transform.File) error {
	results := workers.Run(ctx, s.cfg.Output.Workers, files, func(ctx context.Context, file transform.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return writer.WriteArticle(file.Path, file.Content)
	})
	for _, err := range results {
		if err != nil {
			return err
		}
	}
	return nil
}

// registerProfileImages registers the avatar of every author with an
// article. The first failure per author is returned as a warning.
func registerProfileImages(m *media.Materializer, articles []content.Article) []error {
	var warnings []error
	seen := map[int64]struct{}{}
	for _, article := range articles {
		author := article.Author
		if _, ok := seen[author.ID]; ok {
			continue
		}
		seen[author.ID] = struct{}{}
		ref, ok := media.RefOf(author.Image)
		if !ok {
			continue
		}
		if _, err := m.Register(ref); err != nil {
			warnings = append(warnings, err)
		}
	}
	return warnings
}
