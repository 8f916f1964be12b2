package rasterize

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

	"github.com/avast/retry-go/v4"
)

// FetchConfig configures remote document downloads.
type FetchConfig struct {
	HTTPClient *http.Client  // default: 5 minute timeout
	Attempts   uint          // default: 3
	Delay      time.Duration // initial backoff (default: 1s)
}

// IsRemote reports whether src is an http(s) URL.
func IsRemote(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch downloads src into dir and returns the local path. The file keeps the
// last path segment of the URL as its name. Network failures and 5xx
// responses are retried with backoff.
func Fetch(ctx context.Context, src, dir string, cfg FetchConfig) (string, error) {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Delay <= 0 {
		cfg.Delay = time.Second
	}

	u, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("invalid document URL: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "document.pdf"
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	dst := filepath.Join(dir, name)

	err = retry.Do(
		func() error {
			return download(ctx, cfg.HTTPClient, src, dst)
		},
		retry.Context(ctx),
		retry.Attempts(cfg.Attempts),
		retry.Delay(cfg.Delay),
		retry.MaxDelay(30*time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", src, err)
	}
	return dst, nil
}

func download(ctx context.Context, client *http.Client, src, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return retry.Unrecoverable(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Unrecoverable(ctx.Err())
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return err
		}
		return retry.Unrecoverable(err)
	}

	tmp := dst + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to create file: %w", err))
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to read body: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return retry.Unrecoverable(err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to move download into place: %w", err))
	}
	return nil
}
