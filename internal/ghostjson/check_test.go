package ghostjson_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/goliatone/go-ghostzola/internal/errs"
	"github.com/goliatone/go-ghostzola/internal/ghostjson"
)

const bareExport = `{
  "meta": {"exported_on": 1577836800000, "version": "0.11.14"},
  "data": {
    "posts": [{"id": 1, "title": "Hello World", "slug": "hello-world", "markdown": "# Hi", "html": null}],
    "users": [{"id": 1, "name": "Pete", "slug": "pete"}],
    "tags": [{"id": 1, "name": "Go", "slug": "go"}, {"id": 2, "name": "Rust", "slug": "rust"}],
    "posts_tags": [{"post_id": 1, "tag_id": 2, "sort_order": 0}]
  }
}`

func TestCheckBareExport(t *testing.T) {
	summary, err := ghostjson.Check(strings.NewReader(bareExport))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if summary.Wrapped || len(summary.Exports) != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	export := summary.Exports[0]
	if export.Version != "0.11.14" || export.ExportedOn != "1577836800000" {
		t.Fatalf("unexpected meta %+v", export)
	}
	want := map[string]int{"posts": 1, "users": 1, "tags": 2, "posts_tags": 1}
	if !reflect.DeepEqual(export.Counts, want) {
		t.Fatalf("counts = %v", export.Counts)
	}
	if got := export.Tables(); !reflect.DeepEqual(got, []string{"posts", "posts_tags", "tags", "users"}) {
		t.Fatalf("tables = %v", got)
	}
}

func TestCheckWrappedExport(t *testing.T) {
	wrapped := `{"db": [` + bareExport + `, {"meta": {"version": "1.0.0", "exported_on": "2018-01-01"}, "data": {"posts": [], "users": []}}]}`
	summary, err := ghostjson.Check(strings.NewReader(wrapped))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !summary.Wrapped || len(summary.Exports) != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Exports[1].Version != "1.0.0" || summary.Exports[1].ExportedOn != "2018-01-01" {
		t.Fatalf("unexpected second export %+v", summary.Exports[1])
	}
	if summary.Exports[1].Counts["posts"] != 0 {
		t.Fatalf("expected empty posts")
	}
}

func TestCheckReportsSchemaIssues(t *testing.T) {
	broken := `{"meta": {"version": "0.11.14"}, "data": {"posts": [{"id": 1, "slug": "x"}], "users": []}}`
	_, err := ghostjson.Check(strings.NewReader(broken))
	if !errors.Is(err, errs.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
	if !errors.Is(err, ghostjson.ErrExportInvalid) {
		t.Fatalf("expected invalid export sentinel, got %v", err)
	}
	var verr *ghostjson.ValidationError
	if !errors.As(err, &verr) || len(verr.Issues) == 0 {
		t.Fatalf("expected validation issues, got %v", err)
	}
}

func TestCheckRejectsNonJSON(t *testing.T) {
	_, err := ghostjson.Check(strings.NewReader("<html></html>"))
	if !errors.Is(err, errs.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}

func TestCheckDecodesNumbersForSchema(t *testing.T) {
	fractional := strings.Replace(bareExport, `"posts": [{"id": 1,`, `"posts": [{"id": 1.5,`, 1)
	_, err := ghostjson.Check(strings.NewReader(fractional))
	if !errors.Is(err, errs.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch for fractional id, got %v", err)
	}

	_, err = ghostjson.Check(strings.NewReader(bareExport + ` {"meta": {}}`))
	if !errors.Is(err, errs.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format for trailing data, got %v", err)
	}
}
