// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package refdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/trailatlas/internal/config"
	"github.com/tomtom215/trailatlas/internal/logging"
)

// Loader implements catalog.Source over the configured dataset locations.
type Loader struct {
	cfg    config.ReferenceConfig
	client *http.Client
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient replaces the download client.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// NewLoader creates a loader for cfg.
func NewLoader(cfg config.ReferenceConfig, opts ...Option) *Loader {
	timeout := cfg.DownloadTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	l := &Loader{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// fetch returns a local path for location, downloading it into the cache
// directory when it is a URL that has not been cached yet.
func (l *Loader) fetch(ctx context.Context, location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		if _, statErr := os.Stat(location); statErr != nil {
			return "", fmt.Errorf("reference file %s: %w", location, statErr)
		}
		return location, nil
	}

	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", fmt.Errorf("cannot derive cache file name from %s", location)
	}
	if err := os.MkdirAll(l.cfg.CacheDir, 0o750); err != nil {
		return "", fmt.Errorf("create cache dir %s: %w", l.cfg.CacheDir, err)
	}
	target := filepath.Join(l.cfg.CacheDir, name)

	if info, err := os.Stat(target); err == nil && info.Size() > 0 {
		logging.Debug().Str("file", target).Msg("Using cached reference dataset")
		return target, nil
	}

	if err := l.download(ctx, location, target); err != nil {
		return "", err
	}
	return target, nil
}

// download streams location into target via a temp file so an interrupted
// transfer never leaves a truncated cache entry.
func (l *Loader) download(ctx context.Context, location, target string) error {
	start := time.Now()
	logging.Info().Str("url", location).Msg("Downloading reference dataset")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "trailatlas/1.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("download %s: HTTP %d: %s", location, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("move download into cache: %w", err)
	}

	logging.Info().
		Str("file", target).
		Int64("bytes", n).
		Dur("duration", time.Since(start)).
		Msg("Reference dataset downloaded")
	return nil
}
