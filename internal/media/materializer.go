package media

import (
	"cmp"
	"context"
	"io"
	"net/url"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"

	"github.com/goliatone/go-ghostzola/internal/archive"
	"github.com/goliatone/go-ghostzola/internal/errs"
	"github.com/goliatone/go-ghostzola/internal/logging"
	"github.com/goliatone/go-ghostzola/internal/workers"
	"github.com/goliatone/go-ghostzola/pkg/interfaces"
)

// Asset maps an archive file to its place in the output tree.
type Asset struct {
	Source string
	Output string
}

// Sink receives copied files. Paths are relative to the output root.
type Sink interface {
	WriteFile(rel string, r io.Reader) error
}

// Options configures a Materializer.
type Options struct {
	// MediaRoot is the archive directory holding the blog images.
	MediaRoot string
	// OutputDir is where images land, relative to the output root.
	OutputDir string
	// LinkPrefix replaces /content/images in rewritten links.
	LinkPrefix string
	Workers    int
	Logger     interfaces.Logger
}

// Materializer records referenced assets and copies them once all articles
// have been transformed. Register is safe for concurrent use.
type Materializer struct {
	opts   Options
	logger interfaces.Logger

	mu     sync.Mutex
	assets map[string]Asset
}

// New returns an empty Materializer.
func New(opts Options) *Materializer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	opts.OutputDir = strings.Trim(opts.OutputDir, "/")
	opts.LinkPrefix = strings.TrimRight(opts.LinkPrefix, "/")
	return &Materializer{opts: opts, logger: logger, assets: map[string]Asset{}}
}

// Register records ref, a path relative to the media root as written in a
// body, and returns its asset. Registering the same ref twice is a no-op.
func (m *Materializer) Register(ref string) (Asset, error) {
	decoded, err := url.PathUnescape(ref)
	if err != nil {
		decoded = ref
	}
	rel, err := cleanRel(decoded, ref)
	if err != nil {
		return Asset{}, err
	}
	return m.add(rel), nil
}

func (m *Materializer) add(rel string) Asset {
	asset := Asset{
		Source: path.Join(m.opts.MediaRoot, rel),
		Output: path.Join(m.opts.OutputDir, rel),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.assets[asset.Source]; ok {
		return existing
	}
	m.assets[asset.Source] = asset
	return asset
}

// Link registers ref and returns the link that replaces it in bodies. The
// link keeps the reference as written so percent-encoding survives.
func (m *Materializer) Link(ref string) (string, error) {
	if _, err := m.Register(ref); err != nil {
		return "", err
	}
	return m.opts.LinkPrefix + "/" + ref, nil
}

// RegisterAll records every file under the media root.
func (m *Materializer) RegisterAll(ix *archive.Index) int {
	count := 0
	root := m.opts.MediaRoot
	for _, entry := range ix.Files(root) {
		rel := strings.TrimPrefix(entry.Path, root)
		rel = strings.TrimPrefix(rel, "/")
		if clean, err := cleanRel(rel, rel); err == nil {
			m.add(clean)
			count++
		}
	}
	return count
}

// Assets returns the registered assets sorted by source path.
func (m *Materializer) Assets() []Asset {
	m.mu.Lock()
	out := make([]Asset, 0, len(m.assets))
	for _, asset := range m.assets {
		out = append(out, asset)
	}
	m.mu.Unlock()

	slices.SortFunc(out, func(a, b Asset) int { return cmp.Compare(a.Source, b.Source) })
	return out
}

// Materialize copies every registered asset into sink. Assets absent from
// the archive are reported as MissingMedia warnings in source order; sink
// failures are returned as the error.
func (m *Materializer) Materialize(ctx context.Context, ix *archive.Index, sink Sink) (*multierror.Error, error) {
	assets := m.Assets()
	missing := make([]error, len(assets))

	var (
		mu     sync.Mutex
		copied int64
	)
	results := workers.Run(ctx, m.opts.Workers, indices(len(assets)), func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		asset := assets[i]
		entry, ok := ix.Lookup(asset.Source)
		if !ok || entry.Kind != archive.KindFile || !entry.Retained() {
			m.logger.Warn("media.asset.missing", "source", asset.Source)
			missing[i] = errs.New(errs.ErrMissingMedia, "referenced media not found in archive", nil, map[string]any{
				errs.MetaSource: asset.Source,
			})
			return nil
		}

		rc, err := entry.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		if err := sink.WriteFile(asset.Output, rc); err != nil {
			return err
		}

		mu.Lock()
		copied += entry.Size
		mu.Unlock()
		return nil
	})

	var warnings *multierror.Error
	for _, err := range missing {
		if err != nil {
			warnings = multierror.Append(warnings, err)
		}
	}
	for _, err := range results {
		if err != nil {
			return warnings, err
		}
	}

	m.logger.Info("media.materialize.completed",
		"assets", len(assets),
		"missing", warningCount(warnings),
		"copied", humanize.Bytes(uint64(copied)),
	)
	return warnings, nil
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func warningCount(warnings *multierror.Error) int {
	if warnings == nil {
		return 0
	}
	return len(warnings.Errors)
}

// cleanRel rejects paths that would leave the media root. ref is the
// reference as written, used for reporting.
func cleanRel(rel, ref string) (string, error) {
	unsafe := rel == "" || strings.HasPrefix(rel, "/") || strings.Contains(rel, "\\")
	for _, part := range strings.Split(rel, "/") {
		if part == ".." || part == "." {
			unsafe = true
		}
	}
	if unsafe {
		return "", errs.New(errs.ErrMissingMedia, "media reference escapes the media root", nil, map[string]any{
			errs.MetaSource: ref,
		})
	}
	return path.Clean(rel), nil
}
