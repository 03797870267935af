package net

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

const cacheDirMode = 0700

var ErrorURLNotFound = errors.New("URL not found")

func getResp(ctx context.Context, c *http.Client, url string) (resp *http.Response, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP Get request: %w", err)
	}

	req.Header.Set("User-Agent", clientAgent)

	return c.Do(req) //nolint:gosec // URL comes from the operator's config file
}

// Download saves the content at url to dst. The body is written to a
// unique temporary file in the same directory and renamed into place, so a
// failed transfer never leaves a partial artifact and concurrent downloads
// of the same url do not share a temp file.
func Download(ctx context.Context, c *http.Client, url string, dst string) (retErr error) {
	resp, err := getResp(ctx, c, url)
	if err != nil {
		return fmt.Errorf("error creating HTTP Get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrorURLNotFound, url)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error downloading file (status: %d - %s): %s", resp.StatusCode, resp.Status, url)
	}

	out, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.part")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", dst, err)
	}
	tmp := out.Name()
	defer func() {
		if retErr != nil {
			os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("error saving downloaded content to file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}

	return os.Rename(tmp, dst)
}

// Fetch downloads url into cacheDir unless a cached copy exists and returns
// the local path. Cached names are derived from the URL so different
// artifacts sharing a base name do not collide.
func Fetch(ctx context.Context, c *http.Client, rawURL, cacheDir string) (string, error) {
	if cacheDir == "" {
		return "", errors.New("cache dir required")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid artifact URL %s: %w", rawURL, err)
	}

	p := filepath.Join(cacheDir, CacheName(u))
	if _, err := os.Stat(p); err == nil {
		slog.Debug("artifact cached", "url", rawURL, "path", p)
		return p, nil
	}

	if err := os.MkdirAll(cacheDir, cacheDirMode); err != nil {
		return "", fmt.Errorf("failed to create cache dir %s: %w", cacheDir, err)
	}

	slog.Debug("downloading artifact", "url", rawURL, "path", p)
	if err := Download(ctx, c, rawURL, p); err != nil {
		return "", err
	}
	return p, nil
}

// CacheName returns the file name a URL is cached under.
func CacheName(u *url.URL) string {
	sum := sha256.Sum256([]byte(u.String()))
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		base = "artifact"
	}
	return hex.EncodeToString(sum[:6]) + "-" + base
}
