package source

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/davesmith10/imgopt/internal/pipeline"
)

func TestIsURL(t *testing.T) {
	for _, tc := range []struct {
		ref  string
		want bool
	}{
		{"http://example.com/a.png", true},
		{"HTTPS://example.com/a.png", true},
		{"ftp://example.com/a.png", false},
		{"photos/a.png", false},
		{"/abs/http://weird", false},
	} {
		if got := IsURL(tc.ref); got != tc.want {
			t.Errorf("IsURL(%q) = %v, want %v", tc.ref, got, tc.want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.bin")
	want := []byte("\x89PNG payload")
	if err := os.WriteFile(path, want, 0644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(context.Background(), path, FetchOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing.png"), FetchOptions{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v, want os.ErrNotExist", err)
	}
}

func TestLoadURL(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, 4096)
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/ok.jpg":
			w.Header().Set("Content-Type", "text/plain")
			w.Write(payload)
		case "/slow":
			time.Sleep(500 * time.Millisecond)
			w.Write(payload)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	data, err := Load(ctx, srv.URL+"/ok.jpg", FetchOptions{UserAgent: "imgopt-test"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("body mismatch: %d bytes", len(data))
	}
	if gotUA != "imgopt-test" {
		t.Errorf("User-Agent %q", gotUA)
	}

	for _, tc := range []struct {
		name string
		url  string
		opts FetchOptions
	}{
		{"not found", srv.URL + "/missing.png", FetchOptions{}},
		{"too large", srv.URL + "/ok.jpg", FetchOptions{MaxBytes: 100}},
		{"timeout", srv.URL + "/slow", FetchOptions{Timeout: 50 * time.Millisecond}},
		{"bad host", "http://127.0.0.1:1/x.png", FetchOptions{Timeout: time.Second}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(ctx, tc.url, tc.opts); !errors.Is(err, ErrFetch) {
				t.Errorf("got %v, want ErrFetch", err)
			}
		})
	}

	if data, err := Load(ctx, srv.URL+"/ok.jpg", FetchOptions{MaxBytes: int64(len(payload))}); err != nil || len(data) != len(payload) {
		t.Errorf("body at exactly the limit: %d bytes, %v", len(data), err)
	}
}

func TestLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, "whatever.png", FetchOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestOutputPath(t *testing.T) {
	for _, tc := range []struct {
		ref    string
		format pipeline.Format
		want   string
	}{
		{"photo.jpg", pipeline.FormatPNG, "photo_optimized.png"},
		{filepath.Join("dir", "photo.png"), pipeline.FormatWebP, filepath.Join("dir", "photo_optimized.webp")},
		{"noext", pipeline.FormatPNG, "noext_optimized.png"},
		{"https://example.com/img/cat.jpeg?size=large", pipeline.FormatPNG, "cat_optimized.png"},
		{"https://example.com/", pipeline.FormatWebP, "image_optimized.webp"},
		{"https://example.com", pipeline.FormatPNG, "image_optimized.png"},
	} {
		if got := OutputPath(tc.ref, tc.format); got != tc.want {
			t.Errorf("OutputPath(%q) = %q, want %q", tc.ref, got, tc.want)
		}
	}
	if got := OutputPathWithSuffix("a.gif", "-small", pipeline.FormatPNG); got != "a-small.png" {
		t.Errorf("OutputPathWithSuffix = %q", got)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")

	if err := WriteFile(path, []byte("first")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := WriteFile(path, []byte("second")); err != nil {
		t.Fatalf("WriteFile overwrite: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("content %q, want %q", got, "second")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}

	if err := WriteFile(filepath.Join(dir, "no", "such", "dir.png"), []byte("x")); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
