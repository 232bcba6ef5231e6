package output

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/goliatone/go-ghostzola/internal/errs"
	"github.com/goliatone/go-ghostzola/internal/logging"
	"github.com/goliatone/go-ghostzola/pkg/interfaces"
)

// DefaultManifestName is the file, relative to the root, that lists a run's output.
const DefaultManifestName = ".ghostzola-manifest.json"

// Options configures a Writer.
type Options struct {
	Root string
	// Manifest names the manifest file inside Root.
	Manifest string
	// Force allows overwriting files not produced by a previous run.
	Force bool
	// SectionIndices writes Zola _index.md files on Finish.
	SectionIndices bool
	Logger         interfaces.Logger
}

// Writer places files under a root directory. Each path is created
// exclusively; an existing file is only replaced when the previous run's
// manifest lists it or Force is set. Writer is safe for concurrent use.
type Writer struct {
	root     string
	manifest string
	opts     Options
	logger   interfaces.Logger
	previous map[string]Record

	mu      sync.Mutex
	records map[string]Record
	bytes   int64
}

// New prepares root and loads the manifest of a previous run, if any.
func New(opts Options) (*Writer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	name := strings.TrimSpace(opts.Manifest)
	if name == "" {
		name = DefaultManifestName
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, writeFailed(err, opts.Root)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, writeFailed(err, root)
	}

	w := &Writer{
		root:     root,
		manifest: name,
		opts:     opts,
		logger:   logger,
		records:  map[string]Record{},
	}

	data, err := os.ReadFile(filepath.Join(root, name))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		w.previous = map[string]Record{}
	case err != nil:
		return nil, errs.New(errs.ErrReadFailed, "read previous manifest", err, map[string]any{
			errs.MetaPath: name,
		})
	default:
		previous, perr := parseManifest(data)
		if perr != nil {
			return nil, errs.New(errs.ErrOutputCollision, "existing manifest was not written by this tool", perr, map[string]any{
				errs.MetaPath: name,
			})
		}
		w.previous = previous
	}

	logger.Debug("output.writer.ready", "root", root, "owned", len(w.previous), "force", opts.Force)
	return w, nil
}

// Root returns the absolute output root.
func (w *Writer) Root() string {
	return w.root
}

// WriteFile copies r to rel as a media asset.
func (w *Writer) WriteFile(rel string, r io.Reader) error {
	return w.write(rel, CategoryAsset, r)
}

// WriteArticle writes a rendered article to rel.
func (w *Writer) WriteArticle(rel string, content []byte) error {
	return w.write(rel, CategoryArticle, bytes.NewReader(content))
}

func (w *Writer) write(rel string, category Category, r io.Reader) error {
	clean, err := w.resolve(rel)
	if err != nil {
		return err
	}
	if err := w.reserve(clean); err != nil {
		return err
	}

	full := filepath.Join(w.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		w.release(clean)
		return writeFailed(err, clean)
	}

	file, err := w.create(full, clean)
	if err != nil {
		w.release(clean)
		return err
	}

	hasher := sha256.New()
	size, copyErr := io.Copy(io.MultiWriter(file, hasher), r)
	closeErr := file.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(full)
		w.release(clean)
		return writeFailed(copyErr, clean)
	}

	rec := Record{
		Path:     clean,
		Category: category,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
		Size:     size,
	}
	w.mu.Lock()
	w.records[clean] = rec
	w.bytes += size
	w.mu.Unlock()

	w.logger.Trace("output.file.written", "path", clean, "category", string(category), "size", size)
	return nil
}

// create opens full exclusively. An existing file is removed first when this
// tool owns it, so symlinks planted at the path are replaced, not followed.
func (w *Writer) create(full, rel string) (*os.File, error) {
	const flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	file, err := os.OpenFile(full, flags, 0o644)
	if err == nil {
		return file, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return nil, writeFailed(err, rel)
	}

	info, statErr := os.Lstat(full)
	if statErr != nil {
		return nil, writeFailed(statErr, rel)
	}
	if info.IsDir() || !w.owns(rel) {
		return nil, errs.New(errs.ErrOutputCollision, "output path already exists", nil, map[string]any{
			errs.MetaPath: rel,
		})
	}
	if err := os.Remove(full); err != nil {
		return nil, writeFailed(err, rel)
	}
	file, err = os.OpenFile(full, flags, 0o644)
	if err != nil {
		return nil, writeFailed(err, rel)
	}
	return file, nil
}

func (w *Writer) owns(rel string) bool {
	if w.opts.Force {
		return true
	}
	_, ok := w.previous[rel]
	return ok
}

// reserve claims rel for this run so two writers never race on one path.
func (w *Writer) reserve(rel string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, taken := w.records[rel]; taken {
		return errs.New(errs.ErrOutputCollision, "output path written twice in one run", nil, map[string]any{
			errs.MetaPath: rel,
		})
	}
	w.records[rel] = Record{Path: rel}
	return nil
}

func (w *Writer) release(rel string) {
	w.mu.Lock()
	delete(w.records, rel)
	w.mu.Unlock()
}

// resolve validates rel and returns it in clean slash form.
func (w *Writer) resolve(rel string) (string, error) {
	slashed := filepath.ToSlash(rel)
	clean := path.Clean(slashed)
	if rel == "" || !filepath.IsLocal(filepath.FromSlash(clean)) || clean == "." {
		return "", errs.New(errs.ErrWriteFailed, "output path escapes the output root", nil, map[string]any{
			errs.MetaPath: rel,
		})
	}
	if clean == w.manifest {
		return "", errs.New(errs.ErrOutputCollision, "output path is reserved for the manifest", nil, map[string]any{
			errs.MetaPath: rel,
		})
	}
	return clean, nil
}

// Records returns the files written so far, sorted by path.
func (w *Writer) Records() []Record {
	w.mu.Lock()
	out := make([]Record, 0, len(w.records))
	for _, rec := range w.records {
		if rec.Checksum != "" {
			out = append(out, rec)
		}
	}
	w.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Finish writes section indices, when enabled, and the manifest. The
// returned records include the section files.
func (w *Writer) Finish() ([]Record, error) {
	if w.opts.SectionIndices {
		if err := w.writeSections(); err != nil {
			return nil, err
		}
	}

	records := w.Records()
	owned := make(map[string]Record, len(records))
	for _, rec := range records {
		owned[rec.Path] = rec
	}
	data, err := marshalManifest(owned)
	if err != nil {
		return nil, writeFailed(err, w.manifest)
	}
	target := filepath.Join(w.root, w.manifest)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, writeFailed(err, w.manifest)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return nil, writeFailed(err, w.manifest)
	}

	w.mu.Lock()
	total := w.bytes
	w.mu.Unlock()
	w.logger.Info("output.finish.completed",
		"files", len(records),
		"written", humanize.Bytes(uint64(total)),
		"manifest", w.manifest,
	)
	return records, nil
}

func writeFailed(err error, rel string) error {
	return errs.New(errs.ErrWriteFailed, "write output", err, map[string]any{
		errs.MetaPath: rel,
	})
}
