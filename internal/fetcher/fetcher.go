// Package fetcher performs the cheap, non-rendering page fetch.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

// Header profile defaults. They mimic a desktop Chrome to reduce trivial
// bot blocking.
const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	defaultTimeout     = 15 * time.Second
	defaultMaxBodySize = 10 * 1024 * 1024
)

// ErrStatus is returned for non-2xx responses.
var ErrStatus = errors.New("unexpected status")

// Config configures the static fetcher.
type Config struct {
	Timeout        time.Duration     `mapstructure:"timeout"`
	UserAgent      string            `mapstructure:"user_agent"`
	AcceptLanguage string            `mapstructure:"accept_language"`
	Accept         string            `mapstructure:"accept"`
	Headers        map[string]string `mapstructure:"headers"`
	MaxBodySize    int               `mapstructure:"max_body_size"`
}

// WithDefaults returns a copy of the config with default values applied for zero-value fields.
func (c Config) WithDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.AcceptLanguage == "" {
		c.AcceptLanguage = DefaultAcceptLanguage
	}
	if c.Accept == "" {
		c.Accept = DefaultAccept
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = defaultMaxBodySize
	}
	return c
}

// Fetcher issues a single GET per call. It keeps no state between calls.
type Fetcher struct {
	cfg Config
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	return &Fetcher{cfg: cfg.WithDefaults()}
}

// Fetch GETs rawURL, following redirects, and returns the body of a 2xx
// response. It never retries.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	c := colly.NewCollector(
		colly.UserAgent(f.cfg.UserAgent),
		colly.StdlibContext(ctx),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(f.cfg.MaxBodySize),
	)
	c.SetRequestTimeout(f.cfg.Timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", f.cfg.AcceptLanguage)
		r.Headers.Set("Accept", f.cfg.Accept)
		for k, v := range f.cfg.Headers {
			r.Headers.Set(k, v)
		}
	})

	var (
		body   string
		status int
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = string(r.Body)
	})

	if err := c.Visit(rawURL); err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("failed to fetch %s: %w: %d", rawURL, ErrStatus, status)
	}
	return body, nil
}
