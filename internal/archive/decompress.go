package archive

import (
	"compress/bzip2"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/goliatone/go-ghostzola/internal/errs"
)

// Decompress wraps r, already identified as format, into a forward-only
// stream of tar bytes.
func Decompress(format Format, r io.Reader) (io.ReadCloser, error) {
	switch format {
	case FormatTar:
		return io.NopCloser(r), nil
	case FormatGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errs.New(errs.ErrArchiveCorrupt, "gzip header invalid", err, nil)
		}
		return zr, nil
	case FormatBzip2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	default:
		return nil, errs.New(errs.ErrUnsupportedFormat, "no decoder for format", nil, map[string]any{
			errs.MetaMIME: string(format),
		})
	}
}

// Source is a sniffed, decompressed tar stream.
type Source struct {
	Detection
	tar     io.ReadCloser
	closers []io.Closer
}

// NewSource sniffs r and wraps it with the matching decoder.
func NewSource(r io.Reader) (*Source, error) {
	detection, replay, err := Sniff(r)
	if err != nil {
		return nil, err
	}
	stream, err := Decompress(detection.Format, replay)
	if err != nil {
		return nil, err
	}
	return &Source{Detection: detection, tar: stream, closers: []io.Closer{stream}}, nil
}

// Open opens the archive at path. The file name is never consulted.
func Open(path string) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errs.New(errs.ErrReadFailed, "open archive", err, map[string]any{errs.MetaPath: path})
	}
	src, err := NewSource(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	src.closers = append(src.closers, file)
	return src, nil
}

func (s *Source) Read(p []byte) (int, error) {
	return s.tar.Read(p)
}

// Close releases the decoder and the underlying file.
func (s *Source) Close() error {
	var first error
	for _, closer := range s.closers {
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}
