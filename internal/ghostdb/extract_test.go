package ghostdb_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-ghostzola/internal/archive"
	"github.com/goliatone/go-ghostzola/internal/errs"
	"github.com/goliatone/go-ghostzola/internal/ghostdb"
	"github.com/goliatone/go-ghostzola/internal/ghostdb/ghostdbtest"
)

func dbEntry(t *testing.T, raw []byte) archive.Entry {
	t.Helper()
	tarball := ghostdbtest.Tar(t, ghostdbtest.File{Name: "blog/data/ghost.db", Body: raw})
	ix, err := archive.BuildIndex(context.Background(), bytes.NewReader(tarball), archive.IndexOptions{Spool: archive.SpoolMemory})
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	entry, ok := ix.Lookup("blog/data/ghost.db")
	if !ok {
		t.Fatalf("db entry missing")
	}
	return entry
}

func sampleFixture() ghostdbtest.Fixture {
	parent := int64(10)
	published := ghostdbtest.Date(2020, time.March, 4)
	post := ghostdbtest.Post(1, "hello", "Hello", "# Hi", 1, published)
	post.Featured = true
	updatedBy := int64(1)
	post.UpdatedBy = &updatedBy
	post.UpdatedAt = ghostdbtest.Date(2020, time.March, 5)

	return ghostdbtest.Fixture{
		Users: []ghostdb.User{ghostdbtest.Author(1, "Pete", "pete")},
		Tags: []ghostdb.Tag{
			ghostdbtest.Tag(10, "Programming", "programming"),
			func() ghostdb.Tag {
				tag := ghostdbtest.Tag(11, "Go", "go")
				tag.ParentID = &parent
				return tag
			}(),
		},
		Posts: []ghostdb.Post{
			post,
			ghostdbtest.Post(2, "draft", "Draft", "wip", 1, ghostdb.Timestamp{}),
		},
		PostTags: []ghostdb.PostTag{
			{ID: 1, PostID: 1, TagID: 11, SortOrder: 1},
			{ID: 2, PostID: 1, TagID: 10, SortOrder: 0},
		},
	}
}

func TestExtractLoadsAllTables(t *testing.T) {
	entry := dbEntry(t, ghostdbtest.DBBytes(t, sampleFixture()))

	data, err := ghostdb.Extract(context.Background(), entry, ghostdb.Options{TempDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(data.Posts) != 2 || len(data.Users) != 1 || len(data.Tags) != 2 || len(data.PostTags) != 2 {
		t.Fatalf("unexpected counts: %d posts %d users %d tags %d posts_tags",
			len(data.Posts), len(data.Users), len(data.Tags), len(data.PostTags))
	}

	post := data.Posts[0]
	if post.Slug != "hello" || !bool(post.Featured) || bool(post.Page) {
		t.Fatalf("unexpected post %+v", post)
	}
	if !post.PublishedAt.Valid || !post.PublishedAt.Time.Equal(time.Date(2020, time.March, 4, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected published_at %+v", post.PublishedAt)
	}
	if post.UpdatedBy == nil || *post.UpdatedBy != 1 {
		t.Fatalf("expected updated_by 1, got %v", post.UpdatedBy)
	}

	draft := data.Posts[1]
	if draft.PublishedAt.Valid || draft.Published() {
		t.Fatalf("draft should be unpublished without date: %+v", draft)
	}
	if draft.PublishedBy != nil {
		t.Fatalf("expected NULL published_by")
	}

	tags := ghostdb.NewTags(data.Tags)
	if parent, ok := tags.Parent(tags[11]); !ok || parent.Slug != "programming" {
		t.Fatalf("expected parent programming, got %+v", parent)
	}
}

func TestExtractCoercesLegacyEncodings(t *testing.T) {
	fixture := sampleFixture()
	fixture.Statements = []string{
		`UPDATE posts SET published_at = 1583317800000, page = 'true' WHERE id = 1`,
		`UPDATE posts SET markdown = NULL, html = NULL WHERE id = 2`,
	}
	entry := dbEntry(t, ghostdbtest.DBBytes(t, fixture))

	data, err := ghostdb.Extract(context.Background(), entry, ghostdb.Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	post := data.Posts[0]
	if !post.PublishedAt.Time.Equal(time.UnixMilli(1583317800000)) {
		t.Fatalf("unexpected epoch conversion %v", post.PublishedAt.Time)
	}
	if !bool(post.Page) {
		t.Fatalf("expected page flag from text")
	}
	if data.Posts[1].Markdown != "" || data.Posts[1].HTML != "" {
		t.Fatalf("NULL bodies should scan empty")
	}
}

func TestExtractSchemaMismatch(t *testing.T) {
	t.Run("missing column", func(t *testing.T) {
		schema := strings.Replace(ghostdbtest.Schema, "\tsort_order integer NOT NULL DEFAULT 0\n", "\tposition integer NOT NULL DEFAULT 0\n", 1)
		path := filepath.Join(t.TempDir(), "ghost.db")
		ghostdbtest.WriteDBWithSchema(t, path, schema, ghostdbtest.Fixture{})

		db, err := ghostdb.Open(path)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer db.Close()

		err = db.CheckSchema(context.Background())
		if !errors.Is(err, errs.ErrSchemaMismatch) {
			t.Fatalf("expected ErrSchemaMismatch, got %v", err)
		}
		meta := errs.Metadata(err)
		if meta[errs.MetaTable] != "posts_tags" || meta[errs.MetaColumn] != "sort_order" {
			t.Fatalf("unexpected metadata %#v", meta)
		}
	})

	t.Run("missing table", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ghost.db")
		ghostdbtest.WriteDBWithSchema(t, path, `CREATE TABLE posts (id integer primary key);`, ghostdbtest.Fixture{})

		entry := dbEntry(t, readFile(t, path))
		_, err := ghostdb.Extract(context.Background(), entry, ghostdb.Options{})
		if !errors.Is(err, errs.ErrSchemaMismatch) {
			t.Fatalf("expected ErrSchemaMismatch, got %v", err)
		}
	})
}

func TestExtractRejectsNonDatabase(t *testing.T) {
	entry := dbEntry(t, bytes.Repeat([]byte("not sqlite "), 200))
	_, err := ghostdb.Extract(context.Background(), entry, ghostdb.Options{})
	if !errors.Is(err, errs.ErrQueryFailed) {
		t.Fatalf("expected ErrQueryFailed, got %v", err)
	}
}

func TestOpenMissingFileFailsWithoutCreating(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")

	db, err := ghostdb.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.CheckSchema(context.Background()); !errors.Is(err, errs.ErrQueryFailed) {
		t.Fatalf("expected ErrQueryFailed, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("read-only open must not create the file: %v", err)
	}
}
