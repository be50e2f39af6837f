package source

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/davesmith10/imgopt/internal/pipeline"
)

// Suffix is appended to the input's base name to form the default output
// name.
const Suffix = "_optimized"

// OutputPath derives the default output file for ref. Local inputs get
// the suffix next to the original ("dir/photo.jpg" → "dir/photo_optimized.png").
// URL inputs land in the current directory, named after the last path
// segment, or "image" when there is none. The extension always follows
// format.
func OutputPath(ref string, format pipeline.Format) string {
	return OutputPathWithSuffix(ref, Suffix, format)
}

// OutputPathWithSuffix is OutputPath with a caller-chosen suffix.
func OutputPathWithSuffix(ref, suffix string, format pipeline.Format) string {
	if IsURL(ref) {
		name := "image"
		if u, err := url.Parse(ref); err == nil {
			if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
				name = base
			}
		}
		name = strings.TrimSuffix(name, path.Ext(name))
		if name == "" {
			name = "image"
		}
		return name + suffix + format.Extension()
	}

	dir, base := filepath.Split(ref)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+suffix+format.Extension())
}

// WriteFile writes data to a temporary file next to name and renames it
// into place, so name either keeps its old content or holds all of data.
func WriteFile(name string, data []byte) (err error) {
	dir := filepath.Dir(name)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+".tmp-*")
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if err = os.Rename(tmp.Name(), name); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
