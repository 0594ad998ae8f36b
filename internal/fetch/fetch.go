// Package fetch provides the byte source providers consumed by the
// audio manager: local files, HTTP URLs and in-memory buffers. Each
// source answers one question only: bytes for a locator, or an error.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// FileSource reads a local file
type FileSource struct {
	Path string
}

// Fetch reads the whole file
func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", s.Path, err)
	}
	return data, nil
}

// HTTPSource downloads a URL. Client defaults to http.DefaultClient.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// Fetch downloads the URL body; any non-2xx status is an error
func (s HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", s.URL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch %s: status %s", s.URL, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", s.URL, err)
	}
	return data, nil
}

// BytesSource serves an in-memory buffer
type BytesSource struct {
	Data []byte
}

// Fetch returns a copy so later mutation of the original slice cannot
// reach into the registry.
func (s BytesSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]byte(nil), s.Data...), nil
}

// Source is what every provider in this package implements; it mirrors
// the audio manager's Source interface.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Resolve routes a locator string to the matching source: http(s)
// locators download, everything else is a file path.
func Resolve(locator string) Source {
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return HTTPSource{URL: locator}
	}
	return FileSource{Path: locator}
}
