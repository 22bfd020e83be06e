// Package fetch downloads remote input archives with a polite
// rate-limited HTTP client.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

type Options struct {
	Timeout   time.Duration
	UserAgent string
	Delay     time.Duration
}

type Client struct {
	http *http.Client
	ua   string
	lim  *rate.Limiter
}

func NewClient(opt Options) *Client {
	delay := opt.Delay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		ua:   opt.UserAgent,
		lim:  rate.NewLimiter(rate.Every(delay), 1),
	}
}

func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := c.lim.Wait(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, errors.Errorf("fetch %s: %s", rawURL, resp.Status)
	}
	return resp, nil
}

// Download fetches rawURL into destDir, keeping the URL's base name
// (falling back to input.epub), and returns the local path.
func (c *Client) Download(ctx context.Context, rawURL, destDir string) (string, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	name := "input.epub"
	if u, uerr := url.Parse(rawURL); uerr == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			name = base
		}
	}
	if !strings.HasSuffix(strings.ToLower(name), ".epub") {
		name += ".epub"
	}

	dest := filepath.Join(destDir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", errors.WithStack(err)
	}
	_, err = io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", errors.Wrapf(err, "download %s", rawURL)
	}
	return dest, nil
}
