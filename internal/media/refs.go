// Package media finds Ghost image references and copies the referenced
// files out of the archive.
package media

import (
	"regexp"
	"strings"
)

const (
	ghostURLPlaceholder = "__GHOST_URL__"
	imagesPath          = "/content/images/"
)

// refPattern matches a site-relative Ghost image path at a token boundary.
// Absolute URLs on other hosts are left alone because the boundary class
// excludes the host characters that would precede the path.
var refPattern = regexp.MustCompile(`(^|[\s("'=\[,])(?:__GHOST_URL__)?/content/images/([^\s"'()<>\[\]?#]+)`)

// Scan returns the image references in body in order of appearance,
// without duplicates.
func Scan(body string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, m := range refPattern.FindAllStringSubmatch(body, -1) {
		ref := m[2]
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// Rewrite replaces each reference in body with the link returned by fn. When
// fn fails the reference is kept verbatim and the error collected.
func Rewrite(body string, fn func(ref string) (string, error)) (string, []error) {
	matches := refPattern.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return body, nil
	}

	var (
		b        strings.Builder
		problems []error
		last     int
	)
	b.Grow(len(body))
	for _, m := range matches {
		// m[3] is the end of the boundary group, m[4]:m[5] the reference.
		b.WriteString(body[last:m[3]])
		ref := body[m[4]:m[5]]
		link, err := fn(ref)
		if err != nil {
			problems = append(problems, err)
			b.WriteString(body[m[3]:m[1]])
		} else {
			b.WriteString(link)
		}
		last = m[1]
	}
	b.WriteString(body[last:])
	return b.String(), problems
}

// RefOf extracts the reference from a whole URL value such as a feature or
// profile image. ok is false for empty values and foreign URLs.
func RefOf(value string) (string, bool) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, ghostURLPlaceholder)
	rest, found := strings.CutPrefix(value, imagesPath)
	if !found || rest == "" {
		return "", false
	}
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	return rest, rest != ""
}
