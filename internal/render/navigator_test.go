package render

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagescope/internal/logger"
)

// --- fakes ---

type fakeElement struct {
	tag      string
	text     string
	attrs    map[string]string
	clickErr error
	clicks   int
	// hangText and hangAttr block the call until its context is done.
	hangText bool
	hangAttr bool
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	if e.hangText {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return e.text, nil
}

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	if e.hangAttr {
		<-ctx.Done()
		return "", false, ctx.Err()
	}
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *fakeElement) Click(context.Context) error {
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clicks++
	return nil
}

func (e *fakeElement) matches(css string) bool {
	switch css {
	case "a", "button":
		return e.tag == css
	case "a[href]":
		_, ok := e.attrs["href"]
		return e.tag == "a" && ok
	case "a[rel='next']":
		return e.tag == "a" && e.attrs["rel"] == "next"
	case "[role='tab']":
		return e.attrs["role"] == "tab"
	}
	return false
}

func link(text, href string) *fakeElement {
	return &fakeElement{tag: "a", text: text, attrs: map[string]string{"href": href}}
}

func nextLink(href string) *fakeElement {
	return &fakeElement{tag: "a", text: "", attrs: map[string]string{"href": href, "rel": "next"}}
}

type fakeSite struct {
	pages     map[string][]*fakeElement
	redirects map[string]string
	failNav   map[string]error
	html      string
	blockIdle bool
}

type fakeSession struct {
	site        *fakeSite
	mu          sync.Mutex
	current     string
	navigations []string
	scrolls     int
	closed      bool
}

func (s *fakeSession) Navigate(_ context.Context, rawURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.site.failNav[rawURL]; err != nil {
		return err
	}
	s.navigations = append(s.navigations, rawURL)
	if to, ok := s.site.redirects[rawURL]; ok {
		rawURL = to
	}
	s.current = rawURL
	return nil
}

func (s *fakeSession) WaitIdle(ctx context.Context) error {
	if s.site.blockIdle {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (s *fakeSession) Scroll(context.Context, float64, float64) error {
	s.scrolls++
	return nil
}

func (s *fakeSession) Elements(_ context.Context, css string) ([]Element, error) {
	var out []Element
	for _, el := range s.site.pages[s.current] {
		if el.matches(css) {
			out = append(out, el)
		}
	}
	return out, nil
}

func (s *fakeSession) HTML(context.Context) (string, error) {
	if s.site.html != "" {
		return s.site.html, nil
	}
	return "<html><body>" + s.current + "</body></html>", nil
}

func (s *fakeSession) URL(context.Context) (string, error) { return s.current, nil }

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeLauncher struct {
	site      *fakeSite
	launchErr error
	session   *fakeSession
}

func (l *fakeLauncher) Launch(context.Context) (Session, error) {
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	l.session = &fakeSession{site: l.site}
	return l.session, nil
}

func testConfig() Config {
	return Config{ScrollTimes: 3, MaxPages: 3, IdleTimeout: time.Second, ActionTimeout: time.Second}
}

func newTestNavigator(site *fakeSite, cfg Config) (*Navigator, *fakeLauncher) {
	l := &fakeLauncher{site: site}
	return NewNavigator(l, cfg, logger.NewNop()), l
}

// --- tests ---

func TestRender_ScrollsAndCapturesFinalPage(t *testing.T) {
	site := &fakeSite{pages: map[string][]*fakeElement{"https://s.test/": {}}}
	nav, l := newTestNavigator(site, testConfig())

	html, interactions, err := nav.Render(context.Background(), "https://s.test/")
	require.NoError(t, err)
	assert.Equal(t, "<html><body>https://s.test/</body></html>", html)
	assert.Equal(t, 3, interactions.Scrolls)
	assert.Equal(t, 3, l.session.scrolls)
	assert.Equal(t, []string{}, interactions.Clicks)
	assert.Equal(t, []string{"https://s.test/"}, interactions.Pages)
	assert.True(t, l.session.closed)
}

func TestRender_PaginationCycleGuard(t *testing.T) {
	site := &fakeSite{pages: map[string][]*fakeElement{
		"https://s.test/list":        {nextLink("/list?page=2")},
		"https://s.test/list?page=2": {nextLink("/list?page=3")},
		"https://s.test/list?page=3": {nextLink("/list")},
	}}

	for _, maxPages := range []int{3, 10} {
		cfg := testConfig()
		cfg.MaxPages = maxPages
		nav, l := newTestNavigator(site, cfg)

		_, interactions, err := nav.Render(context.Background(), "https://s.test/list")
		require.NoError(t, err)
		want := []string{"https://s.test/list", "https://s.test/list?page=2", "https://s.test/list?page=3"}
		assert.Equal(t, want, interactions.Pages, "max pages %d", maxPages)
		assert.Equal(t, want, l.session.navigations, "page 1 is never revisited")
	}
}

func TestRender_NumberedPaginationFallback(t *testing.T) {
	site := &fakeSite{pages: map[string][]*fakeElement{
		"https://s.test/items": {
			link("2", "?page=2"),
			link("5", "?page=5"),
			link("3", "?page=3"),
			link("about", "/about"),
		},
		"https://s.test/items?page=2": {
			link("1", "?page=1"),
			link("3", "?page=3"),
			link("4", "?page=4"),
		},
	}}
	nav, _ := newTestNavigator(site, testConfig())

	_, interactions, err := nav.Render(context.Background(), "https://s.test/items")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://s.test/items",
		"https://s.test/items?page=2",
		"https://s.test/items?page=3",
	}, interactions.Pages)
}

func TestRender_NextButtonWithoutHrefFallsBackToNumbers(t *testing.T) {
	site := &fakeSite{pages: map[string][]*fakeElement{
		"https://s.test/": {
			{tag: "button", text: "Next", attrs: map[string]string{}},
			link("page two", "/?page=2"),
		},
	}}
	cfg := testConfig()
	cfg.MaxPages = 2
	nav, _ := newTestNavigator(site, cfg)

	_, interactions, err := nav.Render(context.Background(), "https://s.test/")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://s.test/", "https://s.test/?page=2"}, interactions.Pages)
}

func TestRender_ClicksOneLoadMoreAndFirstTab(t *testing.T) {
	loadMore := &fakeElement{tag: "button", text: "LOAD MORE results"}
	showMore := &fakeElement{tag: "button", text: "Show more"}
	tab := &fakeElement{tag: "div", text: "Specs", attrs: map[string]string{"role": "tab"}}
	secondTab := &fakeElement{tag: "div", text: "Reviews", attrs: map[string]string{"role": "tab"}}
	site := &fakeSite{pages: map[string][]*fakeElement{
		"https://s.test/": {showMore, loadMore, tab, secondTab},
	}}
	nav, _ := newTestNavigator(site, testConfig())

	_, interactions, err := nav.Render(context.Background(), "https://s.test/")
	require.NoError(t, err)
	assert.Equal(t, []string{"button:has-text('Load more')", "tab: [role='tab']"}, interactions.Clicks)
	assert.Equal(t, 1, loadMore.clicks)
	assert.Equal(t, 0, showMore.clicks)
	assert.Equal(t, 1, tab.clicks)
	assert.Equal(t, 0, secondTab.clicks)
}

func TestRender_AnchorLoadMore(t *testing.T) {
	more := &fakeElement{tag: "a", text: "Show more", attrs: map[string]string{}}
	site := &fakeSite{pages: map[string][]*fakeElement{"https://s.test/": {more}}}
	nav, _ := newTestNavigator(site, testConfig())

	_, interactions, err := nav.Render(context.Background(), "https://s.test/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a:has-text('Show more')"}, interactions.Clicks)
}

func TestRender_TabFailureIsSwallowed(t *testing.T) {
	tab := &fakeElement{tag: "li", attrs: map[string]string{"role": "tab"}, clickErr: errors.New("not clickable")}
	site := &fakeSite{pages: map[string][]*fakeElement{"https://s.test/": {tab}}}
	nav, _ := newTestNavigator(site, testConfig())

	html, interactions, err := nav.Render(context.Background(), "https://s.test/")
	require.NoError(t, err)
	assert.NotEmpty(t, html)
	assert.Equal(t, []string{}, interactions.Clicks)
}

func TestRender_FailureKeepsPartialLog(t *testing.T) {
	site := &fakeSite{
		pages: map[string][]*fakeElement{
			"https://s.test/": {nextLink("/p2")},
		},
		failNav: map[string]error{"https://s.test/p2": errors.New("net::ERR_CONNECTION_RESET")},
	}
	nav, l := newTestNavigator(site, testConfig())

	html, interactions, err := nav.Render(context.Background(), "https://s.test/")
	require.Error(t, err)
	assert.Empty(t, html)
	assert.Equal(t, 3, interactions.Scrolls)
	assert.Equal(t, []string{"https://s.test/"}, interactions.Pages)
	assert.True(t, l.session.closed)
}

func TestRender_LaunchFailure(t *testing.T) {
	l := &fakeLauncher{launchErr: errors.New("chrome not found")}
	nav := NewNavigator(l, testConfig(), nil)

	html, interactions, err := nav.Render(context.Background(), "https://s.test/")
	require.Error(t, err)
	assert.Empty(t, html)
	assert.Equal(t, []string{"https://s.test/"}, interactions.Pages)
	assert.Equal(t, 0, interactions.Scrolls)
}

func TestRender_RedirectedURLIsLogged(t *testing.T) {
	site := &fakeSite{
		pages:     map[string][]*fakeElement{"https://s.test/home": {}},
		redirects: map[string]string{"https://s.test/": "https://s.test/home"},
	}
	nav, _ := newTestNavigator(site, testConfig())

	_, interactions, err := nav.Render(context.Background(), "https://s.test/")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://s.test/", "https://s.test/home"}, interactions.Pages)
}

func TestRender_IdleWaitIsBounded(t *testing.T) {
	site := &fakeSite{pages: map[string][]*fakeElement{"https://s.test/": {}}, blockIdle: true}
	cfg := testConfig()
	cfg.IdleTimeout = 50 * time.Millisecond
	nav, l := newTestNavigator(site, cfg)

	start := time.Now()
	_, _, err := nav.Render(context.Background(), "https://s.test/")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, l.session.closed)
}

func TestRender_StuckElementTextIsBounded(t *testing.T) {
	stuck := &fakeElement{tag: "button", hangText: true}
	site := &fakeSite{pages: map[string][]*fakeElement{"https://s.test/": {stuck}}}
	cfg := testConfig()
	cfg.ActionTimeout = 50 * time.Millisecond
	nav, l := newTestNavigator(site, cfg)

	start := time.Now()
	_, interactions, err := nav.Render(context.Background(), "https://s.test/")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 3, interactions.Scrolls)
	assert.True(t, l.session.closed)
}

func TestRender_StuckAnchorHrefIsBounded(t *testing.T) {
	stuck := &fakeElement{tag: "a", attrs: map[string]string{"href": "?page=2"}, hangAttr: true}
	site := &fakeSite{pages: map[string][]*fakeElement{"https://s.test/": {stuck}}}
	cfg := testConfig()
	cfg.ActionTimeout = 50 * time.Millisecond
	nav, l := newTestNavigator(site, cfg)

	start := time.Now()
	_, _, err := nav.Render(context.Background(), "https://s.test/")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, l.session.closed)
}

func TestRender_EmptyDocument(t *testing.T) {
	site := &fakeSite{pages: map[string][]*fakeElement{"https://s.test/": {}}, html: "   "}
	nav, _ := newTestNavigator(site, testConfig())

	_, interactions, err := nav.Render(context.Background(), "https://s.test/")
	assert.ErrorIs(t, err, ErrNoDocument)
	assert.Equal(t, []string{"https://s.test/"}, interactions.Pages)
}

func TestNextNumberedPage(t *testing.T) {
	tests := []struct {
		name    string
		current string
		hrefs   []string
		want    string
	}{
		{"smallest above current", "https://x.com/l", []string{"?page=2", "?page=5", "?page=3"}, "https://x.com/l?page=2"},
		{"respects current page", "https://x.com/l?page=3", []string{"?page=2", "?page=5", "?page=4"}, "https://x.com/l?page=4"},
		{"unparseable current defaults to 1", "https://x.com/l?page=abc", []string{"?page=1", "?page=2"}, "https://x.com/l?page=2"},
		{"ignores non numeric", "https://x.com/l", []string{"?page=next", "/other?page=", "?page=7"}, "https://x.com/l?page=7"},
		{"first wins on tie", "https://x.com/l", []string{"/a?page=2", "/b?page=2"}, "https://x.com/a?page=2"},
		{"nothing above", "https://x.com/l?page=9", []string{"?page=2"}, ""},
		{"no candidates", "https://x.com/l", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextNumberedPage(tt.current, tt.hrefs))
		})
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{ScrollTimes: -1}.WithDefaults()
	assert.Equal(t, 0, cfg.ScrollTimes)
	assert.Equal(t, float64(DefaultScrollDelta), cfg.ScrollDelta)
	assert.Equal(t, DefaultMaxPages, cfg.MaxPages)
	assert.Equal(t, defaultIdleTimeout, cfg.IdleTimeout)
	assert.Equal(t, time.Duration(0), cfg.SettleDelay)

	def := DefaultConfig()
	assert.Equal(t, 3, def.ScrollTimes)
	assert.Equal(t, 800*time.Millisecond, def.SettleDelay)
	assert.Equal(t, 1500*time.Millisecond, def.ScrollDelay)
}
