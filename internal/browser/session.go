package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"pagescope/internal/render"
)

const (
	idleWindow = 500 * time.Millisecond
	stealthJS  = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`
	wheelX     = 100
	wheelY     = 100
)

var idleIgnoredTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeImage,
	proto.NetworkResourceTypeMedia,
}

// Engine starts one browser process per session, so no cookies, cache or
// storage are shared between renders.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.WithDefaults()}
}

// Launch implements render.Launcher.
func (e *Engine) Launch(ctx context.Context) (render.Session, error) {
	b, err := New(ctx, e.cfg)
	if err != nil {
		return nil, err
	}

	p, err := b.NewPage()
	if err != nil {
		_ = b.Close()
		return nil, err
	}

	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      e.cfg.UserAgent,
		AcceptLanguage: e.cfg.AcceptLanguage,
	}); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to set user agent: %w", err)
	}
	if err := (proto.EmulationSetLocaleOverride{Locale: e.cfg.Locale}).Call(p); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to set locale: %w", err)
	}
	_, _ = p.EvalOnNewDocument(stealthJS)

	return &session{browser: b, page: p}, nil
}

type session struct {
	browser *Browser
	page    *rod.Page
}

func (s *session) Navigate(ctx context.Context, rawURL string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(rawURL); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (s *session) WaitIdle(ctx context.Context) error {
	wait := s.page.Context(ctx).WaitRequestIdle(idleWindow, nil, nil, idleIgnoredTypes)
	wait()
	return ctx.Err()
}

func (s *session) Scroll(ctx context.Context, dx, dy float64) error {
	return proto.InputDispatchMouseEvent{
		Type:   proto.InputDispatchMouseEventTypeMouseWheel,
		X:      wheelX,
		Y:      wheelY,
		DeltaX: dx,
		DeltaY: dy,
	}.Call(s.page.Context(ctx))
}

func (s *session) Elements(ctx context.Context, css string) ([]render.Element, error) {
	els, err := s.page.Context(ctx).Elements(css)
	if err != nil {
		return nil, err
	}
	out := make([]render.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &element{el: el})
	}
	return out, nil
}

func (s *session) HTML(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

func (s *session) URL(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (s *session) Close() error {
	_ = s.page.Close()
	return s.browser.Close()
}

type element struct {
	el *rod.Element
}

func (e *element) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *element) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}
