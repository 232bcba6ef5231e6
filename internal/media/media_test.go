package media_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-ghostzola/internal/archive"
	"github.com/goliatone/go-ghostzola/internal/errs"
	"github.com/goliatone/go-ghostzola/internal/ghostdb/ghostdbtest"
	"github.com/goliatone/go-ghostzola/internal/media"
)

type memorySink struct {
	mu    sync.Mutex
	files map[string][]byte
	fail  error
}

func (s *memorySink) WriteFile(rel string, r io.Reader) error {
	if s.fail != nil {
		return s.fail
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	s.files[rel] = body
	return nil
}

func TestScan(t *testing.T) {
	body := strings.Join([]string{
		"![cat](/content/images/2020/01/cat.png)",
		`<img src="/content/images/2020/01/dog.jpg?v=2">`,
		"![dup](/content/images/2020/01/cat.png)",
		"![ghost](__GHOST_URL__/content/images/size/w600/2021/02/owl.webp)",
		"![remote](https://example.com/content/images/2020/01/remote.png)",
		"/content/images/top.png at line start",
	}, "\n")

	got := media.Scan(body)
	want := []string{"2020/01/cat.png", "2020/01/dog.jpg", "size/w600/2021/02/owl.webp", "top.png"}
	if !slices.Equal(got, want) {
		t.Fatalf("Scan = %v, want %v", got, want)
	}
}

func TestRewrite(t *testing.T) {
	body := "see ![a](/content/images/2020/01/a.png) and <img src='__GHOST_URL__/content/images/b.png'> " +
		"and https://cdn.example.com/content/images/c.png"

	out, problems := media.Rewrite(body, func(ref string) (string, error) {
		if ref == "b.png" {
			return "", errors.New("nope")
		}
		return "/images/" + ref, nil
	})
	want := "see ![a](/images/2020/01/a.png) and <img src='__GHOST_URL__/content/images/b.png'> " +
		"and https://cdn.example.com/content/images/c.png"
	if out != want {
		t.Fatalf("Rewrite =\n%s\nwant\n%s", out, want)
	}
	if len(problems) != 1 {
		t.Fatalf("expected one problem, got %v", problems)
	}
}

func TestRefOf(t *testing.T) {
	cases := map[string]string{
		"/content/images/2020/01/a.png":            "2020/01/a.png",
		"__GHOST_URL__/content/images/b.png?x=1":   "b.png",
		"https://example.com/content/images/c.png": "",
		"":                 "",
		"/content/images/": "",
	}
	for input, want := range cases {
		got, ok := media.RefOf(input)
		if got != want || ok != (want != "") {
			t.Fatalf("RefOf(%q) = %q %v", input, got, ok)
		}
	}
}

func TestRegisterIsIdempotentAndSafe(t *testing.T) {
	m := media.New(media.Options{MediaRoot: "blog/images", OutputDir: "static/images/", LinkPrefix: "/images/"})

	link, err := m.Link("2020/01/my%20cat.png")
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if link != "/images/2020/01/my%20cat.png" {
		t.Fatalf("unexpected link %q", link)
	}
	if _, err := m.Link("2020/01/my%20cat.png"); err != nil {
		t.Fatalf("second Link: %v", err)
	}

	assets := m.Assets()
	if len(assets) != 1 {
		t.Fatalf("expected one asset, got %+v", assets)
	}
	if assets[0].Source != "blog/images/2020/01/my cat.png" || assets[0].Output != "static/images/2020/01/my cat.png" {
		t.Fatalf("unexpected asset %+v", assets[0])
	}

	for _, bad := range []string{"../secret", "2020/../../etc/passwd", "%2e%2e/x"} {
		if _, err := m.Register(bad); !errors.Is(err, errs.ErrMissingMedia) {
			t.Fatalf("Register(%q) = %v, want rejection", bad, err)
		}
	}
}

func buildIndex(t *testing.T, files ...ghostdbtest.File) *archive.Index {
	t.Helper()
	raw := ghostdbtest.Tar(t, files...)
	ix, err := archive.BuildIndex(context.Background(), bytes.NewReader(raw), archive.IndexOptions{Spool: archive.SpoolMemory})
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestMaterializeCopiesAndWarns(t *testing.T) {
	ix := buildIndex(t,
		ghostdbtest.File{Name: "blog/images/2020/01/a.png", Body: []byte("A")},
		ghostdbtest.File{Name: "blog/images/2020/01/b.png", Body: []byte("B")},
	)
	m := media.New(media.Options{MediaRoot: "blog/images", OutputDir: "images", Workers: 2})
	for _, ref := range []string{"2020/01/a.png", "2020/01/b.png", "2020/01/gone.png"} {
		if _, err := m.Register(ref); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	sink := &memorySink{}
	warnings, err := m.Materialize(context.Background(), ix, sink)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if string(sink.files["images/2020/01/a.png"]) != "A" || string(sink.files["images/2020/01/b.png"]) != "B" {
		t.Fatalf("unexpected copies %v", sink.files)
	}
	if warnings == nil || len(warnings.Errors) != 1 || !errors.Is(warnings.Errors[0], errs.ErrMissingMedia) {
		t.Fatalf("expected one MissingMedia warning, got %v", warnings)
	}
	if errs.IsFatal(warnings.Errors[0]) {
		t.Fatalf("missing media must not be fatal")
	}
}

func TestMaterializeSinkFailureIsFatal(t *testing.T) {
	ix := buildIndex(t, ghostdbtest.File{Name: "images/a.png", Body: []byte("A")})
	m := media.New(media.Options{MediaRoot: "images", OutputDir: "images"})
	if _, err := m.Register("a.png"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	boom := errors.New("disk full")
	if _, err := m.Materialize(context.Background(), ix, &memorySink{fail: boom}); !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
}

func TestRegisterAll(t *testing.T) {
	ix := buildIndex(t,
		ghostdbtest.File{Name: "blog/images/a.png", Body: []byte("A")},
		ghostdbtest.File{Name: "blog/images/2019/b.png", Body: []byte("B")},
		ghostdbtest.File{Name: "blog/imagesextra/c.png", Body: []byte("C")},
	)
	m := media.New(media.Options{MediaRoot: "blog/images", OutputDir: "images"})
	if n := m.RegisterAll(ix); n != 2 {
		t.Fatalf("RegisterAll = %d, want 2", n)
	}
	var outputs []string
	for _, asset := range m.Assets() {
		outputs = append(outputs, asset.Output)
	}
	if !slices.Equal(outputs, []string{"images/2019/b.png", "images/a.png"}) {
		t.Fatalf("unexpected outputs %v", outputs)
	}
}
