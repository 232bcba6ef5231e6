// Package ghostdb reads the four Ghost tables the converter relies on.
package ghostdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-ghostzola/internal/archive"
	"github.com/goliatone/go-ghostzola/internal/errs"
	"github.com/goliatone/go-ghostzola/internal/logging"
	"github.com/goliatone/go-ghostzola/pkg/interfaces"
)

// Options tunes Extract.
type Options struct {
	// TempDir receives the materialized database copy. Empty uses os.TempDir.
	TempDir string
	Logger  interfaces.Logger
}

// Extract materializes the database entry to a temporary file, verifies the
// schema and loads every table. The temporary copy is removed before return.
func Extract(ctx context.Context, entry archive.Entry, opts Options) (*Dataset, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOp()
	}

	tmpPath, err := materialize(entry, opts.TempDir)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	logger.Debug("ghostdb.materialized", "source", entry.Path, "size", humanize.Bytes(uint64(entry.Size)))

	db, err := Open(tmpPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := db.CheckSchema(ctx); err != nil {
		return nil, err
	}
	data, err := db.Load(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("ghostdb.extract.completed",
		"posts", len(data.Posts),
		"users", len(data.Users),
		"tags", len(data.Tags),
		"posts_tags", len(data.PostTags),
	)
	return data, nil
}

func materialize(entry archive.Entry, dir string) (string, error) {
	src, err := entry.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(dir, "ghostzola-*.db")
	if err != nil {
		return "", errs.New(errs.ErrWriteFailed, "create database copy", err, map[string]any{errs.MetaPath: dir})
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errs.New(errs.ErrWriteFailed, "copy database out of archive", err, map[string]any{errs.MetaSource: entry.Path})
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", errs.New(errs.ErrWriteFailed, "close database copy", err, map[string]any{errs.MetaPath: tmp.Name()})
	}
	return tmp.Name(), nil
}

// DB is a read-only handle on a Ghost SQLite database.
type DB struct {
	bun  *bun.DB
	path string
}

// Open opens the database at path read-only.
func Open(path string) (*DB, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errs.New(errs.ErrReadFailed, "resolve database path", err, map[string]any{errs.MetaPath: path})
	}
	dsn := (&url.URL{
		Scheme:   "file",
		Opaque:   filepath.ToSlash(abs),
		RawQuery: "mode=ro&_query_only=1",
	}).String()

	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errs.New(errs.ErrQueryFailed, "open database", err, map[string]any{errs.MetaPath: path})
	}
	sqldb.SetMaxOpenConns(1)

	return &DB{bun: bun.NewDB(sqldb, sqlitedialect.New()), path: path}, nil
}

// Close releases the handle.
func (d *DB) Close() error {
	return d.bun.Close()
}

// CheckSchema fails with ErrSchemaMismatch when a required table or column is
// absent.
func (d *DB) CheckSchema(ctx context.Context) error {
	for _, spec := range requiredColumns {
		present, err := d.columns(ctx, spec.table)
		if err != nil {
			return err
		}
		if len(present) == 0 {
			return errs.New(errs.ErrSchemaMismatch, fmt.Sprintf("table %s is missing", spec.table), nil, map[string]any{
				errs.MetaTable: spec.table,
			})
		}
		for _, column := range spec.columns {
			if _, ok := present[column]; !ok {
				return errs.New(errs.ErrSchemaMismatch, fmt.Sprintf("column %s.%s is missing", spec.table, column), nil, map[string]any{
					errs.MetaTable:  spec.table,
					errs.MetaColumn: column,
				})
			}
		}
	}
	return nil
}

func (d *DB) columns(ctx context.Context, table string) (map[string]struct{}, error) {
	rows, err := d.bun.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, queryFailed(err, table)
	}
	defer rows.Close()

	present := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, queryFailed(err, table)
		}
		present[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed(err, table)
	}
	return present, nil
}

// Load reads all four tables ordered by id.
func (d *DB) Load(ctx context.Context) (*Dataset, error) {
	data := &Dataset{}

	if err := d.bun.NewSelect().Model(&data.Posts).Order("id ASC").Scan(ctx); err != nil {
		return nil, queryFailed(err, "posts")
	}
	if err := d.bun.NewSelect().Model(&data.Users).Order("id ASC").Scan(ctx); err != nil {
		return nil, queryFailed(err, "users")
	}
	if err := d.bun.NewSelect().Model(&data.Tags).Order("id ASC").Scan(ctx); err != nil {
		return nil, queryFailed(err, "tags")
	}
	if err := d.bun.NewSelect().Model(&data.PostTags).Order("id ASC").Scan(ctx); err != nil {
		return nil, queryFailed(err, "posts_tags")
	}
	return data, nil
}

func queryFailed(err error, table string) error {
	return errs.New(errs.ErrQueryFailed, "query "+table, err, map[string]any{errs.MetaTable: table})
}
