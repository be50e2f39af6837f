// Package batch converts whole directory trees, once (Run) or continuously
// as files appear (Watch).
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/davesmith10/imgopt/internal/pipeline"
	"github.com/davesmith10/imgopt/internal/source"
)

// Extensions lists the input file extensions picked up by directory walks.
var Extensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// IsImage reports whether path has a supported input extension.
func IsImage(path string) bool {
	return Extensions[strings.ToLower(filepath.Ext(path))]
}

// Options controls a directory conversion.
type Options struct {
	Pipeline pipeline.Options
	Output   string // output root mirroring the input tree; "" writes next to inputs
	Suffix   string // appended to base names when Output is ""
	Workers  int    // 0 = GOMAXPROCS
	Force    bool   // convert even when the output is newer than the input
	Logger   *slog.Logger
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o *Options) suffix() string {
	if o.Suffix != "" {
		return o.Suffix
	}
	return source.Suffix
}

// Job is one input file and the output it converts to.
type Job struct {
	Input  string
	Output string
}

// FileError records a failed conversion.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Summary totals a directory run.
type Summary struct {
	Converted   int
	Skipped     int
	Failed      int
	InputBytes  int64
	OutputBytes int64
	Errors      []FileError
	Elapsed     time.Duration
}

// outputFor maps an input below root to its output path.
func outputFor(path, root string, opts *Options) string {
	ext := opts.Pipeline.Format.Extension()
	if opts.Output == "" {
		return source.OutputPathWithSuffix(path, opts.suffix(), opts.Pipeline.Format)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return filepath.Join(opts.Output, strings.TrimSuffix(rel, filepath.Ext(rel))+ext)
}

// isOutput reports whether path is itself a conversion result that a walk
// must not pick up again.
func isOutput(path string, opts *Options) bool {
	if opts.Output != "" {
		return isUnderDir(path, opts.Output)
	}
	base := filepath.Base(path)
	return strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), opts.suffix())
}

func isUnderDir(path, dir string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	return strings.HasPrefix(absPath, absDir+string(filepath.Separator)) || absPath == absDir
}

// IsUpToDate reports whether output exists and is not older than input.
func IsUpToDate(input, output string) bool {
	out, err := os.Stat(output)
	if err != nil {
		return false
	}
	in, err := os.Stat(input)
	if err != nil {
		return false
	}
	return !out.ModTime().Before(in.ModTime())
}

// Plan walks root and returns one job per supported image, deduplicated by
// output path and sorted by input.
func Plan(root string, opts Options) ([]Job, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	byOutput := make(map[string]Job)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && opts.Output != "" && isUnderDir(path, opts.Output) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsImage(path) || isOutput(path, &opts) {
			return nil
		}
		out := outputFor(path, root, &opts)
		if prev, ok := byOutput[out]; ok {
			opts.logger().Warn("output collision, keeping one input", "output", out, "dropped", prev.Input, "kept", path)
		}
		byOutput[out] = Job{Input: path, Output: out}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	jobs := make([]Job, 0, len(byOutput))
	for _, j := range byOutput {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].Input < jobs[k].Input })
	return jobs, nil
}

// Convert runs the pipeline for one job and writes the output atomically,
// creating parent directories as needed.
func Convert(ctx context.Context, j Job, opts pipeline.Options) (inSize, outSize int, err error) {
	data, err := source.Load(ctx, j.Input, source.FetchOptions{})
	if err != nil {
		return 0, 0, err
	}
	result, err := pipeline.Run(data, opts)
	if err != nil {
		return len(data), 0, err
	}
	if dir := filepath.Dir(j.Output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return len(data), 0, fmt.Errorf("creating directory: %w", err)
		}
	}
	if err := source.WriteFile(j.Output, result.Data); err != nil {
		return len(data), 0, err
	}
	return len(data), len(result.Data), nil
}

// Run converts every supported image under root with a bounded pool of
// workers. Per-file failures are collected in the summary; the returned
// error covers only problems walking root or a canceled context.
func Run(ctx context.Context, root string, opts Options) (*Summary, error) {
	start := time.Now()
	log := opts.logger()

	jobs, err := Plan(root, opts)
	if err != nil {
		return nil, err
	}
	log.Debug("planned batch", "root", root, "jobs", len(jobs))

	var (
		mu  sync.Mutex
		sum Summary
		wg  sync.WaitGroup
	)
	sem := make(chan struct{}, opts.workers())

	for _, j := range jobs {
		if ctx.Err() != nil {
			break
		}
		if !opts.Force && IsUpToDate(j.Input, j.Output) {
			log.Debug("up to date", "input", j.Input, "output", j.Output)
			mu.Lock()
			sum.Skipped++
			mu.Unlock()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; wg.Done() }()
			t0 := time.Now()
			in, out, err := Convert(ctx, j, opts.Pipeline)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sum.Failed++
				sum.Errors = append(sum.Errors, FileError{Path: j.Input, Err: err})
				log.Error("conversion failed", "input", j.Input, "err", err)
				return
			}
			sum.Converted++
			sum.InputBytes += int64(in)
			sum.OutputBytes += int64(out)
			log.Info("converted", "input", j.Input, "output", j.Output,
				"in_bytes", in, "out_bytes", out, "elapsed", time.Since(t0).Round(time.Millisecond))
		}()
	}
	wg.Wait()

	sort.Slice(sum.Errors, func(i, k int) bool { return sum.Errors[i].Path < sum.Errors[k].Path })
	sum.Elapsed = time.Since(start)
	if err := ctx.Err(); err != nil {
		return &sum, err
	}
	return &sum, nil
}
