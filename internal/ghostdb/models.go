package ghostdb

import (
	"github.com/uptrace/bun"
)

// User is a Ghost author. Read-only.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64     `bun:"id,pk"`
	UUID      string    `bun:"uuid"`
	Name      string    `bun:"name"`
	Slug      string    `bun:"slug"`
	Email     string    `bun:"email"`
	Image     string    `bun:"image"`
	Bio       string    `bun:"bio"`
	CreatedAt Timestamp `bun:"created_at"`
	UpdatedAt Timestamp `bun:"updated_at"`
}

// Tag is a Ghost tag. ParentID is an id into the tag table, resolved with
// Tags.Parent.
type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`

	ID          int64  `bun:"id,pk"`
	UUID        string `bun:"uuid"`
	Name        string `bun:"name"`
	Slug        string `bun:"slug"`
	Description string `bun:"description"`
	Visibility  string `bun:"visibility"`
	ParentID    *int64 `bun:"parent_id"`
}

// Internal reports whether the tag is a Ghost internal tag.
func (t Tag) Internal() bool {
	return t.Visibility == "internal" || (len(t.Name) > 0 && t.Name[0] == '#')
}

// PostTag associates a post with a tag in a given order.
type PostTag struct {
	bun.BaseModel `bun:"table:posts_tags,alias:pt"`

	ID        int64 `bun:"id,pk"`
	PostID    int64 `bun:"post_id"`
	TagID     int64 `bun:"tag_id"`
	SortOrder int64 `bun:"sort_order"`
}

// Post is a Ghost post or page. Markdown, Mobiledoc and HTML are alternative
// body representations.
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:p"`

	ID              int64     `bun:"id,pk"`
	UUID            string    `bun:"uuid"`
	Title           string    `bun:"title"`
	Slug            string    `bun:"slug"`
	Markdown        string    `bun:"markdown"`
	Mobiledoc       string    `bun:"mobiledoc"`
	HTML            string    `bun:"html"`
	AMP             string    `bun:"amp"`
	Image           string    `bun:"image"`
	Featured        Flag      `bun:"featured"`
	Page            Flag      `bun:"page"`
	Status          string    `bun:"status"`
	Language        string    `bun:"language"`
	Visibility      string    `bun:"visibility"`
	MetaTitle       string    `bun:"meta_title"`
	MetaDescription string    `bun:"meta_description"`
	AuthorID        int64     `bun:"author_id"`
	CreatedAt       Timestamp `bun:"created_at"`
	CreatedBy       int64     `bun:"created_by"`
	UpdatedAt       Timestamp `bun:"updated_at"`
	UpdatedBy       *int64    `bun:"updated_by"`
	PublishedAt     Timestamp `bun:"published_at"`
	PublishedBy     *int64    `bun:"published_by"`
}

// Published reports whether the post status is "published".
func (p Post) Published() bool {
	return p.Status == "published"
}

// Tags indexes tags by id.
type Tags map[int64]Tag

// NewTags indexes tags.
func NewTags(tags []Tag) Tags {
	out := make(Tags, len(tags))
	for _, tag := range tags {
		out[tag.ID] = tag
	}
	return out
}

// Parent resolves one level of the tag hierarchy.
func (ts Tags) Parent(tag Tag) (Tag, bool) {
	if tag.ParentID == nil {
		return Tag{}, false
	}
	parent, ok := ts[*tag.ParentID]
	return parent, ok
}

// Dataset is the full content of one Ghost database.
type Dataset struct {
	Posts    []Post
	Users    []User
	Tags     []Tag
	PostTags []PostTag
}

// requiredColumns lists every column the models read, per table.
var requiredColumns = []struct {
	table   string
	columns []string
}{
	{"posts", []string{
		"id", "uuid", "title", "slug", "markdown", "mobiledoc", "html", "amp", "image",
		"featured", "page", "status", "language", "visibility", "meta_title",
		"meta_description", "author_id", "created_at", "created_by", "updated_at",
		"updated_by", "published_at", "published_by",
	}},
	{"users", []string{"id", "uuid", "name", "slug", "email", "image", "bio", "created_at", "updated_at"}},
	{"tags", []string{"id", "uuid", "name", "slug", "description", "visibility", "parent_id"}},
	{"posts_tags", []string{"id", "post_id", "tag_id", "sort_order"}},
}
