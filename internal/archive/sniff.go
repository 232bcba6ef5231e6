package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"

	"github.com/goliatone/go-ghostzola/internal/errs"
)

// Format names a supported archive envelope.
type Format string

const (
	FormatTar   Format = "tar"
	FormatGzip  Format = "gzip"
	FormatBzip2 Format = "bzip2"
)

const (
	mimeGzip   = "application/gzip"
	mimeBzip2  = "application/x-bzip2"
	mimeTar    = "application/x-tar"
	mimeSQLite = "application/vnd.sqlite3"

	sniffLen  = 3072
	blockSize = 512
)

// Detection is the result of classifying a byte prefix.
type Detection struct {
	Format Format
	MIME   string
}

// Supported reports whether the detection names a convertible envelope.
func (d Detection) Supported() bool {
	return d.Format != ""
}

// SQLite reports whether the bytes look like a bare SQLite database.
func (d Detection) SQLite() bool {
	return d.MIME == mimeSQLite
}

// Detect classifies head by content only.
func Detect(head []byte) Detection {
	mt := mimetype.Detect(head)
	detection := Detection{MIME: mt.String()}

	switch {
	case mt.Is(mimeGzip):
		detection.Format = FormatGzip
	case mt.Is(mimeBzip2):
		detection.Format = FormatBzip2
	case mt.Is(mimeTar), looksLikeTar(head):
		detection.Format = FormatTar
		detection.MIME = mimeTar
	}
	return detection
}

// looksLikeTar accepts a parseable first header or a zeroed end-of-archive
// block, which is how an empty tar starts.
func looksLikeTar(head []byte) bool {
	if len(head) < blockSize {
		return false
	}
	if isZeroBlock(head[:blockSize]) {
		return true
	}
	_, err := tar.NewReader(bytes.NewReader(head)).Next()
	return err == nil
}

func isZeroBlock(block []byte) bool {
	for _, b := range block {
		if b != 0 {
			return false
		}
	}
	return true
}

// Sniff peeks at the head of r without consuming it. The returned reader
// replays the peeked bytes followed by the rest of r.
func Sniff(r io.Reader) (Detection, io.Reader, error) {
	buffered := bufio.NewReaderSize(r, sniffLen)
	head, err := buffered.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Detection{}, nil, errs.New(errs.ErrReadFailed, "archive head unreadable", err, nil)
	}

	detection := Detect(head)
	if !detection.Supported() {
		return detection, nil, errs.New(errs.ErrUnsupportedFormat, "input is not a tar, tar.gz or tar.bz2 archive", nil, map[string]any{
			errs.MetaMIME: detection.MIME,
		})
	}
	return detection, buffered, nil
}

// DetectFile reads the head of the file at path and classifies it. Unsupported
// content is not an error here.
func DetectFile(path string) (Detection, error) {
	file, err := os.Open(path)
	if err != nil {
		return Detection{}, errs.New(errs.ErrReadFailed, "open input", err, map[string]any{errs.MetaPath: path})
	}
	defer file.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Detection{}, errs.New(errs.ErrReadFailed, "read input head", err, map[string]any{errs.MetaPath: path})
	}
	return Detect(head[:n]), nil
}
