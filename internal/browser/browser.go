// Package browser launches Chrome through rod and adapts its pages to the
// render package's session interfaces.
package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"pagescope/internal/fetcher"
)

// DefaultLocale is the navigator.language reported to pages.
const DefaultLocale = "en-US"

// Config controls how the browser process is launched and how its pages
// present themselves.
type Config struct {
	Headless       bool   `mapstructure:"headless"`
	ProxyURL       string `mapstructure:"proxy_url"`
	Bin            string `mapstructure:"bin"`
	UserAgent      string `mapstructure:"user_agent"`
	AcceptLanguage string `mapstructure:"accept_language"`
	Locale         string `mapstructure:"locale"`
}

// DefaultConfig returns a headless configuration with the desktop profile.
func DefaultConfig() Config {
	return Config{Headless: true}.WithDefaults()
}

// WithDefaults fills the empty identity fields. Headless is left as given.
func (c Config) WithDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = fetcher.DefaultUserAgent
	}
	if c.AcceptLanguage == "" {
		c.AcceptLanguage = fetcher.DefaultAcceptLanguage
	}
	if c.Locale == "" {
		c.Locale = DefaultLocale
	}
	return c
}

// Browser wraps a rod.Browser together with the process that backs it.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// New launches a browser process and connects to it.
func New(ctx context.Context, cfg Config) (*Browser, error) {
	l := launcher.New().Context(ctx).Headless(cfg.Headless)
	if cfg.ProxyURL != "" {
		l = l.Proxy(cfg.ProxyURL)
	}
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &Browser{browser: b, launcher: l}, nil
}

// NewPage opens a blank tab.
func (b *Browser) NewPage() (*rod.Page, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return page, nil
}

// Close shuts the browser down and kills its process.
func (b *Browser) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}
