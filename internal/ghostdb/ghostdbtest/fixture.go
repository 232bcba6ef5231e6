// Package ghostdbtest builds Ghost databases and archives for tests.
package ghostdbtest

import (
	"archive/tar"
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-ghostzola/internal/ghostdb"
)

// Schema is the subset of the Ghost 0.x schema the converter reads, plus a
// few columns it ignores.
const Schema = `
CREATE TABLE users (
	id integer PRIMARY KEY AUTOINCREMENT NOT NULL,
	uuid varchar(36) NOT NULL,
	name varchar(191) NOT NULL,
	slug varchar(191) NOT NULL UNIQUE,
	password varchar(60),
	email varchar(191) NOT NULL,
	image text,
	cover text,
	bio text,
	website text,
	status varchar(150) NOT NULL DEFAULT 'active',
	created_at datetime NOT NULL,
	created_by integer,
	updated_at datetime,
	updated_by integer
);
CREATE TABLE tags (
	id integer PRIMARY KEY AUTOINCREMENT NOT NULL,
	uuid varchar(36) NOT NULL,
	name varchar(191) NOT NULL,
	slug varchar(191) NOT NULL UNIQUE,
	description text,
	image text,
	parent_id integer,
	visibility varchar(150) NOT NULL DEFAULT 'public',
	created_at datetime,
	updated_at datetime
);
CREATE TABLE posts (
	id integer PRIMARY KEY AUTOINCREMENT NOT NULL,
	uuid varchar(36) NOT NULL,
	title varchar(150) NOT NULL,
	slug varchar(150) NOT NULL UNIQUE,
	markdown text,
	mobiledoc text,
	html text,
	amp text,
	image text,
	featured boolean NOT NULL DEFAULT 0,
	page boolean NOT NULL DEFAULT 0,
	status varchar(150) NOT NULL DEFAULT 'draft',
	language varchar(6) NOT NULL DEFAULT 'en_US',
	visibility varchar(150) NOT NULL DEFAULT 'public',
	meta_title varchar(150),
	meta_description varchar(200),
	author_id integer NOT NULL,
	created_at datetime NOT NULL,
	created_by integer NOT NULL,
	updated_at datetime,
	updated_by integer,
	published_at datetime,
	published_by integer
);
CREATE TABLE posts_tags (
	id integer PRIMARY KEY AUTOINCREMENT NOT NULL,
	post_id integer NOT NULL,
	tag_id integer NOT NULL,
	sort_order integer NOT NULL DEFAULT 0
);
`

// Fixture is the content written into a test database.
type Fixture struct {
	Users    []ghostdb.User
	Tags     []ghostdb.Tag
	Posts    []ghostdb.Post
	PostTags []ghostdb.PostTag
	// Statements run after the inserts, for shapes the models cannot express.
	Statements []string
}

// Date returns a UTC timestamp for the given day.
func Date(year int, month time.Month, day int) ghostdb.Timestamp {
	return ghostdb.NewTimestamp(time.Date(year, month, day, 10, 30, 0, 0, time.UTC))
}

// Author returns a minimal user.
func Author(id int64, name, slug string) ghostdb.User {
	return ghostdb.User{
		ID:        id,
		UUID:      "user-" + slug,
		Name:      name,
		Slug:      slug,
		Email:     slug + "@example.com",
		CreatedAt: Date(2015, time.January, 1),
	}
}

// Tag returns a public tag.
func Tag(id int64, name, slug string) ghostdb.Tag {
	return ghostdb.Tag{ID: id, UUID: "tag-" + slug, Name: name, Slug: slug, Visibility: "public"}
}

// Post returns a published markdown post. An invalid published time yields
// an undated draft.
func Post(id int64, slug, title, markdown string, authorID int64, published ghostdb.Timestamp) ghostdb.Post {
	created := published
	status := "published"
	if !published.Valid {
		created = Date(2015, time.January, 1)
		status = "draft"
	}
	return ghostdb.Post{
		ID:          id,
		UUID:        "post-" + slug,
		Title:       title,
		Slug:        slug,
		Markdown:    markdown,
		Status:      status,
		Language:    "en_US",
		Visibility:  "public",
		AuthorID:    authorID,
		CreatedAt:   created,
		CreatedBy:   authorID,
		PublishedAt: published,
	}
}

// WriteDB creates a database at path.
func WriteDB(t testing.TB, path string, f Fixture) {
	t.Helper()
	writeDB(t, path, Schema, f)
}

// WriteDBWithSchema creates a database at path using a custom schema.
func WriteDBWithSchema(t testing.TB, path, schema string, f Fixture) {
	t.Helper()
	writeDB(t, path, schema, f)
}

func writeDB(t testing.TB, path, schema string, f Fixture) {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	if len(f.Users) > 0 {
		if _, err := db.NewInsert().Model(&f.Users).Exec(ctx); err != nil {
			t.Fatalf("insert users: %v", err)
		}
	}
	if len(f.Tags) > 0 {
		if _, err := db.NewInsert().Model(&f.Tags).Exec(ctx); err != nil {
			t.Fatalf("insert tags: %v", err)
		}
	}
	if len(f.Posts) > 0 {
		if _, err := db.NewInsert().Model(&f.Posts).Exec(ctx); err != nil {
			t.Fatalf("insert posts: %v", err)
		}
	}
	if len(f.PostTags) > 0 {
		if _, err := db.NewInsert().Model(&f.PostTags).Exec(ctx); err != nil {
			t.Fatalf("insert posts_tags: %v", err)
		}
	}
	for _, stmt := range f.Statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}

// DBBytes returns the bytes of a database built from f.
func DBBytes(t testing.TB, f Fixture) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ghost.db")
	WriteDB(t, path, f)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture db: %v", err)
	}
	return raw
}

// File is one archive member. Directories end with "/".
type File struct {
	Name string
	Body []byte
}

// Tar packs files into a tar stream.
func Tar(t testing.TB, files ...File) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		hdr := &tar.Header{
			Name:    f.Name,
			Mode:    0o644,
			ModTime: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		}
		if len(f.Name) > 0 && f.Name[len(f.Name)-1] == '/' {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
		} else {
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(f.Body))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header %s: %v", f.Name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write(f.Body); err != nil {
				t.Fatalf("tar body %s: %v", f.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	return buf.Bytes()
}

// Gzip compresses raw.
func Gzip(t testing.TB, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes raw into dir and returns its path.
func WriteFile(t testing.TB, dir, name string, raw []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
