package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Quality != DefaultQuality || cfg.Format != "png" || !cfg.Dither {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Fetch.TimeoutDuration() != 30*time.Second {
		t.Errorf("fetch timeout %v", cfg.Fetch.TimeoutDuration())
	}
	if cfg.Batch.Suffix != DefaultSuffix {
		t.Errorf("suffix %q", cfg.Batch.Suffix)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "imgopt.toml", `
quality = 60
max_width = 1024
format = "webp"
dither = false

[fetch]
timeout = 5
user_agent = "tester"

[batch]
workers = 3

[watch]
dirs = ["/srv/in", "/srv/more"]
output = "/srv/out"
debounce_ms = 250
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Quality != 60 || cfg.MaxWidth != 1024 || cfg.Format != "webp" || cfg.Dither {
		t.Errorf("top-level values not applied: %+v", cfg)
	}
	if cfg.Fetch.Timeout != 5 || cfg.Fetch.UserAgent != "tester" {
		t.Errorf("fetch = %+v", cfg.Fetch)
	}
	if cfg.Fetch.MaxBytes != DefaultMaxBytes {
		t.Errorf("unset max_bytes lost its default: %d", cfg.Fetch.MaxBytes)
	}
	if cfg.Batch.Workers != 3 || cfg.Batch.Suffix != DefaultSuffix {
		t.Errorf("batch = %+v", cfg.Batch)
	}
	if len(cfg.Watch.Dirs) != 2 || cfg.Watch.Output != "/srv/out" {
		t.Errorf("watch = %+v", cfg.Watch)
	}
	if cfg.Watch.Debounce() != 250*time.Millisecond {
		t.Errorf("debounce %v", cfg.Watch.Debounce())
	}
	if cfg.Watch.PollDuration() != DefaultPollInterval*time.Second {
		t.Errorf("poll %v", cfg.Watch.PollDuration())
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "imgopt.yaml", `
quality: 95
max_height: 300
fetch:
  max_bytes: 1024
watch:
  dirs: [incoming]
  poll_interval: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Quality != 95 || cfg.MaxHeight != 300 {
		t.Errorf("top-level values not applied: %+v", cfg)
	}
	if cfg.Fetch.MaxBytes != 1024 || cfg.Fetch.UserAgent != DefaultUserAgent {
		t.Errorf("fetch = %+v", cfg.Fetch)
	}
	if len(cfg.Watch.Dirs) != 1 || cfg.Watch.Dirs[0] != "incoming" || cfg.Watch.PollInterval != 0 {
		t.Errorf("watch = %+v", cfg.Watch)
	}
}

func TestLoadErrors(t *testing.T) {
	for _, tc := range []struct {
		name, file, body, want string
	}{
		{"bad toml", "c.toml", "quality = [", "parsing config"},
		{"bad yaml", "c.yml", "quality: [1, 2", "parsing config"},
		{"quality range", "c.toml", "quality = 101", "quality 101"},
		{"negative width", "c.toml", "max_width = -1", "must not be negative"},
		{"unknown format", "c.toml", `format = "gif"`, "unknown format"},
		{"negative workers", "c.yaml", "batch:\n  workers: -2", "batch.workers"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.file, tc.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate: %v", err)
	}
	if cfg, err := Load(""); err != nil || cfg.Quality != DefaultQuality {
		t.Errorf("Load(\"\") = %+v, %v", cfg, err)
	}
}
