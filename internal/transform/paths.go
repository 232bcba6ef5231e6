package transform

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/goliatone/go-slug"
	"github.com/google/uuid"

	"github.com/goliatone/go-ghostzola/internal/ghostdb"
)

// Layouts for article paths.
const (
	LayoutDated     = "dated"
	LayoutFlatDated = "flat-dated"
	LayoutFlat      = "flat"
)

// UndatedDir holds posts with neither a publish nor a creation date.
const UndatedDir = "undated"

// ResolveSlug returns the post slug, or a slug derived from the title, the
// post uuid, or finally a stable uuid computed from the post id.
func ResolveSlug(post ghostdb.Post) string {
	if candidate := strings.TrimSpace(post.Slug); candidate != "" {
		if safeSegment(candidate) {
			return candidate
		}
		if normalized, err := slug.Normalize(candidate); err == nil && safeSegment(normalized) {
			return normalized
		}
	}
	if title := strings.TrimSpace(post.Title); title != "" {
		if normalized, err := slug.Normalize(title); err == nil && safeSegment(normalized) {
			return normalized
		}
	}
	if id := strings.TrimSpace(post.UUID); id != "" && safeSegment(id) {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("ghostzola:post:%d", post.ID))).String()
}

func safeSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, "/\\\x00")
}

// PostDate is published_at, falling back to created_at.
func PostDate(post ghostdb.Post) *time.Time {
	if post.PublishedAt.Valid {
		return post.PublishedAt.Ptr()
	}
	return post.CreatedAt.Ptr()
}

// ArticlePath lays out one article relative to the output root.
func ArticlePath(layout, ext, pagesDir string, page bool, date *time.Time, slugValue string) string {
	name := slugValue + ext
	if page && pagesDir != "" {
		return path.Join(pagesDir, name)
	}
	if date == nil {
		return path.Join(UndatedDir, name)
	}
	d := date.UTC()
	switch layout {
	case LayoutFlatDated:
		return d.Format("2006-01-02") + "-" + name
	case LayoutFlat:
		return name
	default:
		return path.Join(d.Format("2006"), d.Format("01"), d.Format("02"), name)
	}
}
