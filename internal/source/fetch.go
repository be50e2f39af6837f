// Package source reads conversion inputs from local files or HTTP URLs and
// writes results back to disk.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrFetch is returned when a URL cannot be downloaded: transport
// failures, non-2xx responses and oversized bodies.
var ErrFetch = errors.New("fetch error")

// FetchOptions controls HTTP downloads. Zero values mean no timeout, no
// size cap and Go's default User-Agent.
type FetchOptions struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	Client    *http.Client // optional, replaces the default client
}

// IsURL reports whether ref names an http or https resource.
func IsURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Load returns the bytes named by ref: a single GET for URLs, a file read
// otherwise. The bytes are returned as-is; no format is inferred from the
// name or the Content-Type.
func Load(ctx context.Context, ref string, opts FetchOptions) ([]byte, error) {
	if IsURL(ref) {
		return fetch(ctx, ref, opts)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return data, nil
}

func fetch(ctx context.Context, url string, opts FetchOptions) ([]byte, error) {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if opts.UserAgent != "" {
		req.Header.Set("User-Agent", opts.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: HTTP %s", ErrFetch, url, resp.Status)
	}

	var body io.Reader = resp.Body
	if opts.MaxBytes > 0 {
		if resp.ContentLength > opts.MaxBytes {
			return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFetch, url, resp.ContentLength, opts.MaxBytes)
		}
		body = io.LimitReader(resp.Body, opts.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrFetch, url, err)
	}
	if opts.MaxBytes > 0 && int64(len(data)) > opts.MaxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFetch, url, opts.MaxBytes)
	}
	return data, nil
}
