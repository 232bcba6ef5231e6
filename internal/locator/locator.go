// Package locator finds the Ghost blog inside an indexed archive.
package locator

import (
	"path"
	"slices"
	"strings"

	"github.com/goliatone/go-ghostzola/internal/archive"
	"github.com/goliatone/go-ghostzola/internal/errs"
)

// DefaultDatabaseName is the file Ghost keeps its SQLite database in.
const DefaultDatabaseName = "ghost.db"

// RootPrefix names a blog that sits at the archive root. An empty prefix
// means no selection at all.
const RootPrefix = "."

// Location identifies one blog inside an archive.
type Location struct {
	// Prefix is the blog root, "" when the blog sits at the archive root.
	Prefix       string
	DatabasePath string
	MediaRoot    string
}

// Options narrows the search.
type Options struct {
	// DatabaseName is a path.Match pattern for the database base name.
	DatabaseName string
	// Prefix selects a blog. Candidates whose blog root equals it win;
	// otherwise candidates under it, compared by component, are kept.
	// RootPrefix selects the blog at the archive root. Empty keeps all.
	Prefix string
}

// Candidates returns every database entry matching opts, sorted by path.
func Candidates(ix *archive.Index, opts Options) []Location {
	pattern := databaseName(opts)

	var all []Location
	for _, entry := range ix.Entries() {
		if entry.Kind != archive.KindFile {
			continue
		}
		if ok, err := path.Match(pattern, path.Base(entry.Path)); err != nil || !ok {
			continue
		}
		all = append(all, locationFor(entry.Path))
	}
	slices.SortFunc(all, func(a, b Location) int {
		return strings.Compare(a.DatabasePath, b.DatabasePath)
	})

	if strings.TrimSpace(opts.Prefix) == "" {
		return all
	}
	prefix := cleanPrefix(opts.Prefix)
	var exact, under []Location
	for _, loc := range all {
		if loc.Prefix == prefix {
			exact = append(exact, loc)
		}
		if HasPrefix(loc.DatabasePath, prefix) {
			under = append(under, loc)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return under
}

// Locate resolves exactly one blog. Zero candidates is ErrBlogNotFound and
// more than one is ErrAmbiguousBlog listing the candidate prefixes.
func Locate(ix *archive.Index, opts Options) (Location, error) {
	candidates := Candidates(ix, opts)
	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return Location{}, errs.New(errs.ErrBlogNotFound, "no ghost database found in archive", nil, map[string]any{
			errs.MetaPrefix: opts.Prefix,
			"database":      databaseName(opts),
		})
	default:
		return Location{}, errs.New(errs.ErrAmbiguousBlog, "archive holds more than one ghost database, pass a prefix", nil, map[string]any{
			errs.MetaPrefix:     opts.Prefix,
			errs.MetaCandidates: prefixesOf(candidates),
		})
	}
}

// Prefixes lists the distinct blog prefixes in the archive, sorted. The root
// blog is listed as RootPrefix, so every listed value selects its blog.
func Prefixes(ix *archive.Index, databaseName string) []string {
	return prefixesOf(Candidates(ix, Options{DatabaseName: databaseName}))
}

// HasPrefix reports whether p equals prefix or lies beneath it. Matching is
// per path component, so "blog" does not match "blog2/data/ghost.db".
func HasPrefix(p, prefix string) bool {
	prefix = cleanPrefix(prefix)
	if prefix == "" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

// locationFor derives the blog root: Ghost keeps the database in
// <root>/data and media in <root>/images.
func locationFor(dbPath string) Location {
	dir := path.Dir(dbPath)
	root := dir
	if path.Base(dir) == "data" {
		root = path.Dir(dir)
	}
	if root == "." {
		root = ""
	}
	return Location{
		Prefix:       root,
		DatabasePath: dbPath,
		MediaRoot:    path.Join(root, "images"),
	}
}

func prefixesOf(locations []Location) []string {
	out := make([]string, 0, len(locations))
	for _, loc := range locations {
		prefix := loc.Prefix
		if prefix == "" {
			prefix = RootPrefix
		}
		out = append(out, prefix)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func cleanPrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	for strings.HasPrefix(prefix, "./") {
		prefix = prefix[2:]
	}
	prefix = strings.Trim(path.Clean("/"+prefix), "/")
	return prefix
}

func databaseName(opts Options) string {
	if strings.TrimSpace(opts.DatabaseName) == "" {
		return DefaultDatabaseName
	}
	return opts.DatabaseName
}
