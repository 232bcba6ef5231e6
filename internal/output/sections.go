package output

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/goliatone/go-ghostzola/internal/markdown"
)

const sectionFile = "_index.md"

// section is the frontmatter of a Zola _index.md. The root sorts its pages
// by date; nested date directories are transparent so their pages surface
// in the root section.
type section struct {
	SortBy      string `toml:"sort_by,omitempty"`
	Transparent *bool  `toml:"transparent,omitempty"`
}

func (s section) encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("+++\n")
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	buf.WriteString("+++\n")
	return buf.Bytes(), nil
}

// sectionDirs lists the root and every directory holding written files,
// along with their ancestors, sorted.
func sectionDirs(records []Record) []string {
	seen := map[string]struct{}{".": {}}
	for _, rec := range records {
		for dir := path.Dir(rec.Path); dir != "."; dir = path.Dir(dir) {
			seen[dir] = struct{}{}
		}
	}
	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

func (w *Writer) writeSections() error {
	written := 0
	for _, dir := range sectionDirs(w.Records()) {
		rel := path.Join(dir, sectionFile)
		if w.userOwned(rel) {
			w.logger.Debug("output.section.kept", "path", rel)
			continue
		}

		transparent := true
		meta := section{Transparent: &transparent}
		if dir == "." {
			meta = section{SortBy: "date"}
		}
		data, err := meta.encode()
		if err != nil {
			return writeFailed(err, rel)
		}
		if err := w.write(rel, CategorySection, bytes.NewReader(data)); err != nil {
			return err
		}
		written++
	}
	w.logger.Debug("output.sections.completed", "written", written)
	return nil
}

// userOwned reports whether rel must be left alone: it was already written
// in this run, or it is a section the user authored. Any other existing file
// falls through to write, which refuses it unless Force is set.
func (w *Writer) userOwned(rel string) bool {
	w.mu.Lock()
	_, ours := w.records[rel]
	w.mu.Unlock()
	if ours {
		return true
	}
	if _, previous := w.previous[rel]; previous {
		return false
	}
	data, err := os.ReadFile(filepath.Join(w.root, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	if err != nil || !zolaSection(data) {
		w.logger.Warn("output.section.foreign", "path", rel)
		return false
	}
	return true
}

// zolaSection reports whether data opens with a readable TOML frontmatter block.
func zolaSection(data []byte) bool {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte("+++")) {
		return false
	}
	_, err := markdown.ReadDocument(trimmed)
	return err == nil
}
