package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/djherbis/stream"
	"github.com/dustin/go-humanize"

	"github.com/goliatone/go-ghostzola/internal/errs"
	"github.com/goliatone/go-ghostzola/internal/logging"
	"github.com/goliatone/go-ghostzola/pkg/interfaces"
)

// Kind classifies an archive entry.
type Kind uint8

const (
	KindFile Kind = iota
	KindDirectory
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "other"
	}
}

// Entry is one indexed archive member. Entries are immutable once the index
// is built; Open may be called any number of times, concurrently.
type Entry struct {
	Path       string
	Kind       Kind
	Size       int64
	ModTime    time.Time
	LinkTarget string

	offset int64
	arena  *arena
}

// Retained reports whether the entry bytes were kept.
func (e Entry) Retained() bool {
	return e.Kind == KindFile && (e.Size == 0 || e.arena != nil)
}

// Open returns a fresh reader over the entry bytes.
func (e Entry) Open() (io.ReadCloser, error) {
	if e.Kind != KindFile {
		return nil, errs.New(errs.ErrReadFailed, "archive entry is not a regular file", nil, map[string]any{errs.MetaPath: e.Path})
	}
	if e.Size == 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	if e.arena == nil {
		return nil, errs.New(errs.ErrReadFailed, "archive entry bytes were not retained", nil, map[string]any{errs.MetaPath: e.Path})
	}
	return e.arena.open(e.Path, e.offset, e.Size)
}

// Spool modes for the entry arena.
const (
	SpoolDisk   = "disk"
	SpoolMemory = "memory"
)

// IndexOptions tunes BuildIndex.
type IndexOptions struct {
	// Spool is SpoolDisk (default) or SpoolMemory.
	Spool string
	// SpoolDir is the parent of the temporary spool directory. Empty uses os.TempDir.
	SpoolDir string
	// Retain selects which regular files keep their bytes. Nil keeps all.
	Retain func(path string) bool
	Logger interfaces.Logger
}

// Index is the ordered set of entries read from one archive pass.
type Index struct {
	entries []Entry
	byPath  map[string]int
	arena   *arena
	bytes   int64
}

// BuildIndex reads r, a stream of tar bytes, to the end exactly once.
func BuildIndex(ctx context.Context, r io.Reader, opts IndexOptions) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOp()
	}

	a, err := newArena(opts.Spool, opts.SpoolDir)
	if err != nil {
		return nil, err
	}

	ix := &Index{byPath: make(map[string]int), arena: a}
	fail := func(err error) (*Index, error) {
		a.shutdown()
		return nil, err
	}

	tr := tar.NewReader(r)
	seen := 0
	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(errs.New(errs.ErrArchiveCorrupt, "tar header unreadable", err, map[string]any{
				"entries_read": seen,
			}))
		}
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		name := normalizePath(hdr.Name)
		if name == "" {
			continue
		}

		entry := Entry{Path: name, ModTime: hdr.ModTime.UTC()}
		switch {
		case hdr.Typeflag == tar.TypeDir:
			entry.Kind = KindDirectory
		case hdr.FileInfo().Mode().IsRegular():
			entry.Kind = KindFile
			entry.Size = hdr.Size
		default:
			entry.Kind = KindOther
			entry.LinkTarget = hdr.Linkname
		}

		if entry.Kind == KindFile && entry.Size > 0 && (opts.Retain == nil || opts.Retain(name)) {
			offset, err := a.append(tr, entry.Size)
			if err != nil {
				return fail(err)
			}
			entry.offset = offset
			entry.arena = a
			ix.bytes += entry.Size
		}

		ix.add(entry)
		seen++
		logging.Progress(logger, seen, "indexed")
	}

	if err := a.seal(); err != nil {
		return fail(err)
	}

	logger.Debug("archive.index.completed",
		"entries", len(ix.entries),
		"retained", humanize.Bytes(uint64(ix.bytes)),
	)
	return ix, nil
}

// add records entry; a later member with the same path replaces the earlier one.
func (ix *Index) add(entry Entry) {
	if pos, ok := ix.byPath[entry.Path]; ok {
		ix.entries[pos] = entry
		return
	}
	ix.byPath[entry.Path] = len(ix.entries)
	ix.entries = append(ix.entries, entry)
}

// Len returns the number of distinct entry paths.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Entries returns the entries in archive order.
func (ix *Index) Entries() []Entry {
	out := make([]Entry, len(ix.entries))
	copy(out, ix.entries)
	return out
}

// Lookup finds an entry by normalized path.
func (ix *Index) Lookup(p string) (Entry, bool) {
	pos, ok := ix.byPath[normalizePath(p)]
	if !ok {
		return Entry{}, false
	}
	return ix.entries[pos], true
}

// Files returns regular files whose path lies under dir (component-wise).
// An empty dir selects every file.
func (ix *Index) Files(dir string) []Entry {
	dir = normalizePath(dir)
	var out []Entry
	for _, entry := range ix.entries {
		if entry.Kind != KindFile {
			continue
		}
		if dir != "" && !strings.HasPrefix(entry.Path, dir+"/") {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// RetainedBytes is the total size of the entry bytes kept in the arena.
func (ix *Index) RetainedBytes() int64 {
	return ix.bytes
}

// Close releases the arena. It blocks until open entry readers are closed.
func (ix *Index) Close() error {
	if ix == nil || ix.arena == nil {
		return nil
	}
	return ix.arena.remove()
}

func normalizePath(name string) string {
	for strings.HasPrefix(name, "./") {
		name = name[2:]
	}
	cleaned := path.Clean("/" + name)
	return strings.TrimPrefix(cleaned, "/")
}

// arena holds retained entry bytes back to back in one stream.
type arena struct {
	stream *stream.Stream
	dir    string
	size   int64

	once sync.Once
	err  error
}

func newArena(mode, parent string) (*arena, error) {
	if strings.EqualFold(strings.TrimSpace(mode), SpoolMemory) {
		return &arena{stream: stream.NewMemStream()}, nil
	}

	dir, err := os.MkdirTemp(parent, "ghostzola-spool-")
	if err != nil {
		return nil, errs.New(errs.ErrWriteFailed, "create spool directory", err, map[string]any{errs.MetaPath: parent})
	}
	s, err := stream.New(filepath.Join(dir, "entries.bin"))
	if err != nil {
		os.RemoveAll(dir)
		return nil, errs.New(errs.ErrWriteFailed, "create spool file", err, map[string]any{errs.MetaPath: dir})
	}
	return &arena{stream: s, dir: dir}, nil
}

func (a *arena) append(r io.Reader, size int64) (int64, error) {
	offset := a.size
	n, err := io.CopyN(a.stream, r, size)
	a.size += n
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, errs.New(errs.ErrArchiveCorrupt, "archive truncated inside entry", err, nil)
		}
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return 0, errs.New(errs.ErrWriteFailed, "spool write", err, nil)
		}
		return 0, errs.New(errs.ErrArchiveCorrupt, "entry bytes unreadable", err, nil)
	}
	return offset, nil
}

// seal closes the write side so readers see a fixed size.
func (a *arena) seal() error {
	if err := a.stream.Close(); err != nil {
		return errs.New(errs.ErrWriteFailed, "close spool", err, nil)
	}
	return nil
}

func (a *arena) open(name string, offset, size int64) (io.ReadCloser, error) {
	r, err := a.stream.NextReader()
	if err != nil {
		return nil, errs.New(errs.ErrReadFailed, "open spooled entry", err, map[string]any{errs.MetaPath: name})
	}
	return &sectionReadCloser{SectionReader: io.NewSectionReader(r, offset, size), closer: r}, nil
}

func (a *arena) shutdown() {
	a.stream.Close()
	a.remove()
}

func (a *arena) remove() error {
	a.once.Do(func() {
		a.err = a.stream.Remove()
		if a.dir != "" {
			if err := os.RemoveAll(a.dir); err != nil && a.err == nil {
				a.err = err
			}
		}
	})
	return a.err
}

type sectionReadCloser struct {
	*io.SectionReader
	closer io.Closer
}

func (s *sectionReadCloser) Close() error {
	return s.closer.Close()
}
