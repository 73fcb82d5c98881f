// Package fetch downloads and unpacks prebuilt library distributions.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/phuslu/log"
)

// Downloader fetches release archives over HTTP.
type Downloader struct {
	httpClient *http.Client
}

// NewDownloader builds the HTTP client used for archive downloads.
// retryMax is 0 for the default build: a failed download aborts the build.
func NewDownloader(retryMax int) *Downloader {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = leveledLogger{}

	return &Downloader{
		httpClient: retryClient.StandardClient(),
	}
}

// Download writes the body of url to dest. The file only appears at dest once
// the whole body has been received.
func (d *Downloader) Download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("download %s: server returned status %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".part-*")
	if err != nil {
		return fmt.Errorf("failed to stage download: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	log.Info().Str("url", url).Int64("bytes", n).Str("dest", dest).Msg("archive downloaded")
	return nil
}

// leveledLogger routes retryablehttp's messages into the process logger.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) { withFields(log.Error(), kv).Msg(msg) }
func (leveledLogger) Warn(msg string, kv ...interface{})  { withFields(log.Warn(), kv).Msg(msg) }
func (leveledLogger) Info(msg string, kv ...interface{})  { withFields(log.Debug(), kv).Msg(msg) }
func (leveledLogger) Debug(msg string, kv ...interface{}) { withFields(log.Debug(), kv).Msg(msg) }

func withFields(e *log.Entry, kv []interface{}) *log.Entry {
	for i := 0; i+1 < len(kv); i += 2 {
		key := strings.TrimSpace(fmt.Sprint(kv[i]))
		e = e.Str(key, fmt.Sprint(kv[i+1]))
	}
	return e
}
