// Package render drives a browser through a page: it scrolls, clicks
// "load more" and tab controls, follows pagination, and returns the final
// rendered markup with a log of everything it did.
package render

import (
	"context"
	"errors"
	"time"
)

// ErrNoDocument is returned when the final page yields no markup.
var ErrNoDocument = errors.New("no rendered document")

// Launcher starts isolated browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Session is one browser tab in its own browser context.
type Session interface {
	// Navigate loads rawURL and waits for the load event.
	Navigate(ctx context.Context, rawURL string) error
	// WaitIdle blocks until the network is idle or ctx is done, returning
	// ctx's error in the latter case.
	WaitIdle(ctx context.Context) error
	// Scroll dispatches a wheel scroll by the given delta.
	Scroll(ctx context.Context, dx, dy float64) error
	// Elements returns all elements matching a CSS selector without waiting.
	Elements(ctx context.Context, css string) ([]Element, error)
	// HTML returns the full serialized document.
	HTML(ctx context.Context) (string, error)
	// URL returns the current page URL.
	URL(ctx context.Context) (string, error)
	// Close releases the tab and its browser.
	Close() error
}

// Element is a node in the live page.
type Element interface {
	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Click(ctx context.Context) error
}

// Config bounds every wait the navigator performs.
type Config struct {
	ScrollTimes   int           `mapstructure:"scroll_times"`
	ScrollDelta   float64       `mapstructure:"scroll_delta"`
	ScrollDelay   time.Duration `mapstructure:"scroll_delay"`
	SettleDelay   time.Duration `mapstructure:"settle_delay"`
	ClickDelay    time.Duration `mapstructure:"click_delay"`
	TabDelay      time.Duration `mapstructure:"tab_delay"`
	PageDelay     time.Duration `mapstructure:"page_delay"`
	MaxPages      int           `mapstructure:"max_pages"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	ActionTimeout time.Duration `mapstructure:"action_timeout"`
}

// Default configuration values.
const (
	DefaultScrollTimes = 3
	DefaultScrollDelta = 2000
	DefaultMaxPages    = 3

	defaultScrollDelay   = 1500 * time.Millisecond
	defaultSettleDelay   = 800 * time.Millisecond
	defaultClickDelay    = 2 * time.Second
	defaultTabDelay      = 1500 * time.Millisecond
	defaultPageDelay     = time.Second
	defaultIdleTimeout   = 30 * time.Second
	defaultActionTimeout = 10 * time.Second
)

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		ScrollTimes:   DefaultScrollTimes,
		ScrollDelta:   DefaultScrollDelta,
		ScrollDelay:   defaultScrollDelay,
		SettleDelay:   defaultSettleDelay,
		ClickDelay:    defaultClickDelay,
		TabDelay:      defaultTabDelay,
		PageDelay:     defaultPageDelay,
		MaxPages:      DefaultMaxPages,
		IdleTimeout:   defaultIdleTimeout,
		ActionTimeout: defaultActionTimeout,
	}
}

// WithDefaults fills unset counts, deltas and timeouts. Delays are left as
// given: a zero delay means no settle wait.
func (c Config) WithDefaults() Config {
	if c.ScrollTimes < 0 {
		c.ScrollTimes = 0
	}
	if c.ScrollDelta == 0 {
		c.ScrollDelta = DefaultScrollDelta
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = defaultActionTimeout
	}
	return c
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
