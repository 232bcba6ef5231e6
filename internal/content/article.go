// Package content joins Ghost rows into articles.
package content

import (
	"cmp"
	"slices"

	"github.com/goliatone/go-ghostzola/internal/errs"
	"github.com/goliatone/go-ghostzola/internal/ghostdb"
)

// Article is one post joined with its author and ordered tags. The body
// fields stay empty until the transformer selects a body.
type Article struct {
	Post   ghostdb.Post
	Author ghostdb.User
	Tags   []ghostdb.Tag

	Body       string
	BodyFormat string
	// MediaRefs lists the image references in Body, first occurrence first.
	MediaRefs []string
}

// Options filters the articles Build returns.
type Options struct {
	SkipDrafts       bool
	SkipPages        bool
	SkipInternalTags bool
}

// Result is the output of Build.
type Result struct {
	Articles []Article
	// Skipped counts posts dropped by the filters.
	Skipped int
	Tags    ghostdb.Tags
}

// Build joins data into articles in ascending post id. A post whose author is
// unknown, or a posts_tags row naming an unknown tag, fails with
// ErrDanglingReference.
func Build(data *ghostdb.Dataset, opts Options) (*Result, error) {
	authors := make(map[int64]ghostdb.User, len(data.Users))
	for _, user := range data.Users {
		authors[user.ID] = user
	}
	tags := ghostdb.NewTags(data.Tags)

	tagsByPost, err := tagsByPostID(data.PostTags, tags)
	if err != nil {
		return nil, err
	}

	posts := slices.Clone(data.Posts)
	slices.SortFunc(posts, func(a, b ghostdb.Post) int { return cmp.Compare(a.ID, b.ID) })

	result := &Result{Articles: make([]Article, 0, len(posts)), Tags: tags}
	for _, post := range posts {
		author, ok := authors[post.AuthorID]
		if !ok {
			return nil, errs.New(errs.ErrDanglingReference, "post author does not exist", nil, map[string]any{
				errs.MetaPostID:   post.ID,
				errs.MetaAuthorID: post.AuthorID,
			})
		}
		if (opts.SkipDrafts && !post.Published()) || (opts.SkipPages && bool(post.Page)) {
			result.Skipped++
			continue
		}

		postTags := tagsByPost[post.ID]
		if opts.SkipInternalTags {
			postTags = slices.DeleteFunc(slices.Clone(postTags), ghostdb.Tag.Internal)
		}
		result.Articles = append(result.Articles, Article{Post: post, Author: author, Tags: postTags})
	}
	return result, nil
}

// tagsByPostID groups tags per post ordered by sort_order, then tag id.
func tagsByPostID(rows []ghostdb.PostTag, tags ghostdb.Tags) (map[int64][]ghostdb.Tag, error) {
	grouped := make(map[int64][]ghostdb.PostTag)
	for _, row := range rows {
		if _, ok := tags[row.TagID]; !ok {
			return nil, errs.New(errs.ErrDanglingReference, "posts_tags row refers to unknown tag", nil, map[string]any{
				errs.MetaPostID: row.PostID,
				errs.MetaTagID:  row.TagID,
			})
		}
		grouped[row.PostID] = append(grouped[row.PostID], row)
	}

	out := make(map[int64][]ghostdb.Tag, len(grouped))
	for postID, links := range grouped {
		slices.SortFunc(links, func(a, b ghostdb.PostTag) int {
			return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.TagID, b.TagID))
		})
		ordered := make([]ghostdb.Tag, 0, len(links))
		for _, link := range links {
			ordered = append(ordered, tags[link.TagID])
		}
		out[postID] = ordered
	}
	return out, nil
}

// TagNames returns the tag names in order.
func (a Article) TagNames() []string {
	names := make([]string, 0, len(a.Tags))
	for _, tag := range a.Tags {
		names = append(names, tag.Name)
	}
	return names
}
