package render

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pagescope/internal/extractor"
	"pagescope/internal/logger"
	"pagescope/internal/page"
)

// Navigator runs the scroll/click/paginate routine against one session per
// Render call.
type Navigator struct {
	launcher Launcher
	cfg      Config
	log      logger.Logger
}

// NewNavigator creates a Navigator.
func NewNavigator(launcher Launcher, cfg Config, log logger.Logger) *Navigator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Navigator{launcher: launcher, cfg: cfg.WithDefaults(), log: log}
}

// Render loads targetURL in a fresh browser session and interacts with it.
// The interaction log is returned even when an error aborts the run.
func (n *Navigator) Render(ctx context.Context, targetURL string) (string, page.Interactions, error) {
	start := time.Now()
	log := n.log.With(logger.String("url", targetURL))
	interactions := page.NewInteractions(targetURL)

	session, err := n.launcher.Launch(ctx)
	if err != nil {
		return "", interactions, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn("failed to close browser session", logger.Error(cerr))
		}
	}()

	r := &run{nav: n, session: session, log: log, interactions: &interactions}
	html, err := r.navigate(ctx, targetURL)
	log.Debug("render finished",
		logger.Duration("duration", time.Since(start)),
		logger.Int("scrolls", interactions.Scrolls),
		logger.Strings("pages", interactions.Pages),
		logger.Bool("ok", err == nil),
	)
	return html, interactions, err
}

// run holds the state of a single Render call.
type run struct {
	nav          *Navigator
	session      Session
	log          logger.Logger
	interactions *page.Interactions
}

func (r *run) navigate(ctx context.Context, targetURL string) (string, error) {
	cfg := r.nav.cfg

	if err := r.loadPage(ctx, targetURL); err != nil {
		return "", err
	}

	for i := 0; i < cfg.ScrollTimes; i++ {
		if err := r.withTimeout(ctx, func(ctx context.Context) error {
			return r.session.Scroll(ctx, 0, cfg.ScrollDelta)
		}); err != nil {
			return "", fmt.Errorf("failed to scroll: %w", err)
		}
		if err := sleep(ctx, cfg.ScrollDelay); err != nil {
			return "", err
		}
		r.interactions.Scrolls++
		r.log.Debug("scrolled", logger.Int("scrolls", r.interactions.Scrolls))
	}

	if err := r.clickLoadMore(ctx); err != nil {
		return "", err
	}

	r.clickFirstTab(ctx)

	if err := r.paginate(ctx); err != nil {
		return "", err
	}

	return r.capture(ctx)
}

// loadPage navigates and waits for network idle within IdleTimeout, then
// lets the page settle.
func (r *run) loadPage(ctx context.Context, rawURL string) error {
	loadCtx, cancel := context.WithTimeout(ctx, r.nav.cfg.IdleTimeout)
	defer cancel()

	if err := r.session.Navigate(loadCtx, rawURL); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", rawURL, err)
	}
	if err := r.session.WaitIdle(loadCtx); err != nil {
		return fmt.Errorf("failed to wait for network idle on %s: %w", rawURL, err)
	}
	return sleep(ctx, r.nav.cfg.SettleDelay)
}

// clickLoadMore clicks the first element of the first matching selector.
// At most one click happens per run.
func (r *run) clickLoadMore(ctx context.Context) error {
	for _, sel := range loadMoreSelectors {
		matches, err := r.query(ctx, sel)
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", sel.Label, err)
		}
		if len(matches) == 0 {
			continue
		}
		if err := r.withTimeout(ctx, matches[0].Click); err != nil {
			return fmt.Errorf("failed to click %s: %w", sel.Label, err)
		}
		r.interactions.Clicks = append(r.interactions.Clicks, sel.Label)
		r.log.Debug("clicked load more", logger.String("selector", sel.Label))
		return sleep(ctx, r.nav.cfg.ClickDelay)
	}
	return nil
}

// clickFirstTab is best-effort; failures are logged and ignored.
func (r *run) clickFirstTab(ctx context.Context) {
	tabs, err := r.query(ctx, tabSelector)
	if err != nil || len(tabs) == 0 {
		return
	}
	if err := r.withTimeout(ctx, tabs[0].Click); err != nil {
		r.log.Debug("tab click failed", logger.Error(err))
		return
	}
	r.interactions.Clicks = append(r.interactions.Clicks, tabSelector.Label)
	_ = sleep(ctx, r.nav.cfg.TabDelay)
}

func (r *run) paginate(ctx context.Context) error {
	for len(r.interactions.Pages) < r.nav.cfg.MaxPages {
		current, err := r.currentURL(ctx)
		if err != nil {
			return err
		}

		next, err := r.nextLink(ctx, current)
		if err != nil {
			return err
		}
		if next == "" {
			return nil
		}

		nextURL := extractor.ResolveURL(current, next)
		if nextURL == "" || r.interactions.HasPage(nextURL) {
			r.log.Debug("pagination stopped", logger.String("next", nextURL))
			return nil
		}

		if err := r.loadPage(ctx, nextURL); err != nil {
			return err
		}
		r.interactions.Pages = append(r.interactions.Pages, nextURL)
		r.log.Debug("visited page", logger.String("page", nextURL), logger.Int("pages", len(r.interactions.Pages)))

		if err := sleep(ctx, r.nav.cfg.PageDelay); err != nil {
			return err
		}
	}
	return nil
}

// nextLink returns the href of the first explicit "next" control, falling
// back to the smallest numbered page above the current one.
func (r *run) nextLink(ctx context.Context, current string) (string, error) {
	for _, sel := range nextSelectors {
		matches, err := r.query(ctx, sel)
		if err != nil {
			return "", fmt.Errorf("failed to query %s: %w", sel.Label, err)
		}
		if len(matches) == 0 {
			continue
		}
		var href string
		if err := r.withTimeout(ctx, func(ctx context.Context) error {
			var err error
			href, _, err = matches[0].Attribute(ctx, "href")
			return err
		}); err != nil {
			return "", fmt.Errorf("failed to read href of %s: %w", sel.Label, err)
		}
		if href != "" {
			return href, nil
		}
		break
	}

	var hrefs []string
	if err := r.withTimeout(ctx, func(ctx context.Context) error {
		anchors, err := r.session.Elements(ctx, "a[href]")
		if err != nil {
			return fmt.Errorf("failed to list anchors: %w", err)
		}
		hrefs = make([]string, 0, len(anchors))
		for _, a := range anchors {
			href, ok, err := a.Attribute(ctx, "href")
			if err != nil {
				return fmt.Errorf("failed to read anchor href: %w", err)
			}
			if ok {
				hrefs = append(hrefs, href)
			}
		}
		return nil
	}); err != nil {
		return "", err
	}
	return nextNumberedPage(current, hrefs), nil
}

// capture reads the final markup and makes sure the final URL, which may
// differ after a redirect, is in the page log.
func (r *run) capture(ctx context.Context) (string, error) {
	var html string
	if err := r.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		html, err = r.session.HTML(ctx)
		return err
	}); err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}

	current, err := r.currentURL(ctx)
	if err != nil {
		return "", err
	}
	if current != "" && !r.interactions.HasPage(current) {
		r.interactions.Pages = append(r.interactions.Pages, current)
	}

	if strings.TrimSpace(html) == "" {
		return "", ErrNoDocument
	}
	return html, nil
}

func (r *run) currentURL(ctx context.Context) (string, error) {
	var current string
	err := r.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		current, err = r.session.URL(ctx)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to read current URL: %w", err)
	}
	return current, nil
}

// query returns the elements matching sel in document order. Listing and
// text filtering share one ActionTimeout.
func (r *run) query(ctx context.Context, sel Selector) ([]Element, error) {
	var matches []Element
	err := r.withTimeout(ctx, func(ctx context.Context) error {
		elements, err := r.session.Elements(ctx, sel.CSS)
		if err != nil {
			return err
		}
		if sel.Text == "" {
			matches = elements
			return nil
		}

		needle := strings.ToLower(sel.Text)
		for _, el := range elements {
			text, err := el.Text(ctx)
			if err != nil {
				return err
			}
			if strings.Contains(strings.ToLower(text), needle) {
				matches = append(matches, el)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *run) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	actionCtx, cancel := context.WithTimeout(ctx, r.nav.cfg.ActionTimeout)
	defer cancel()
	return fn(actionCtx)
}

// nextNumberedPage picks, among hrefs resolved against current, the one whose
// page parameter is the smallest value above the current page number.
// Ties keep the first href seen.
func nextNumberedPage(current string, hrefs []string) string {
	currentPage := 1
	if u, err := url.Parse(current); err == nil {
		if n, ok := pageNumber(u); ok {
			currentPage = n
		}
	}

	best, bestPage := "", 0
	for _, href := range hrefs {
		abs := extractor.ResolveURL(current, href)
		if abs == "" {
			continue
		}
		u, err := url.Parse(abs)
		if err != nil {
			continue
		}
		n, ok := pageNumber(u)
		if !ok {
			continue
		}
		if n > currentPage && (best == "" || n < bestPage) {
			best, bestPage = abs, n
		}
	}
	return best
}

func pageNumber(u *url.URL) (int, bool) {
	values := u.Query()[pageParam]
	if len(values) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(values[0]))
	if err != nil {
		return 0, false
	}
	return n, true
}
