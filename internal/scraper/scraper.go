// Package scraper decides between the static and the rendered extraction
// paths and assembles the final result.
package scraper

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"pagescope/internal/extractor"
	"pagescope/internal/logger"
	"pagescope/internal/page"
)

// DefaultTextThreshold is the static text length below which the page is
// assumed to be client-rendered.
const DefaultTextThreshold = 500

// Error messages recorded in page results.
const (
	MsgInvalidURL  = "URL must start with http:// or https://"
	msgFetchFailed = "static fetch failed (blocked, 4xx/5xx, or network error)"
	msgRenderFail  = "dynamic render failed"
)

// Content is a result that can be written in every output format.
type Content interface {
	ToHTML() (string, error)
	ToText() (string, error)
	ToMarkdown() (string, error)
	ToJSON() ([]byte, error)
	ToCSV() (string, error)
}

var _ Content = (*page.Result)(nil)

var errNoRenderer = errors.New("no renderer configured")

// StaticFetcher returns the raw body of a single GET.
type StaticFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Renderer returns the markup of a page after it has been executed and
// interacted with. The interaction log is meaningful even on error.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (string, page.Interactions, error)
}

// Config tunes the strategy decision and extraction.
type Config struct {
	TextThreshold   int `mapstructure:"text_threshold"`
	RawHTMLMaxChars int `mapstructure:"raw_html_max_chars"`
}

// WithDefaults returns a copy of the config with zero values replaced.
func (c Config) WithDefaults() Config {
	if c.TextThreshold <= 0 {
		c.TextThreshold = DefaultTextThreshold
	}
	if c.RawHTMLMaxChars <= 0 {
		c.RawHTMLMaxChars = extractor.DefaultRawHTMLMaxChars
	}
	return c
}

// Scraper runs the extraction pipeline. It holds no per-request state and is
// safe for concurrent use when its fetcher and renderer are.
type Scraper struct {
	cfg       Config
	fetcher   StaticFetcher
	renderer  Renderer
	extractor *extractor.Extractor
	log       logger.Logger
	now       func() time.Time
}

// New creates a Scraper.
func New(cfg Config, fetcher StaticFetcher, renderer Renderer, log logger.Logger) *Scraper {
	cfg = cfg.WithDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	return &Scraper{
		cfg:       cfg,
		fetcher:   fetcher,
		renderer:  renderer,
		extractor: extractor.New(cfg.RawHTMLMaxChars),
		log:       log,
		now:       time.Now,
	}
}

// Scrape extracts rawURL. Failures are recorded in the result's Errors; a
// result is always returned.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) *page.Result {
	log := s.log.With(
		logger.String("request_id", uuid.NewString()),
		logger.String("url", rawURL),
	)

	result := &page.Result{
		URL:          rawURL,
		ScrapedAt:    s.now().UTC().Truncate(time.Second),
		Meta:         page.NewMeta(),
		Sections:     []page.Section{},
		Interactions: page.NewInteractions(),
		Errors:       []page.Error{},
	}

	if !validScheme(rawURL) {
		log.Warn("rejected url")
		result.Errors = append(result.Errors, page.Error{Message: MsgInvalidURL, Phase: page.PhaseFetch})
		return result
	}
	result.Interactions = page.NewInteractions(rawURL)

	// latest is the most recent document obtained successfully.
	var latest *goquery.Document

	doc, fetchErr := s.static(ctx, rawURL)
	if fetchErr != nil {
		log.Info("static fetch failed", logger.Error(fetchErr))
	} else {
		latest = doc
		result.Meta = s.extractor.Meta(doc, rawURL)
		result.Sections = s.extractor.Sections(doc, rawURL)
	}

	textLen := page.TextLength(result.Sections)
	if fetchErr != nil || textLen < s.cfg.TextThreshold {
		log.Info("escalating to dynamic render",
			logger.Bool("static_failed", fetchErr != nil),
			logger.Int("text_length", textLen),
			logger.Int("threshold", s.cfg.TextThreshold),
		)

		start := time.Now()
		doc, interactions, renderErr := s.dynamic(ctx, rawURL)
		if renderErr == nil {
			latest = doc
			result.Meta = s.extractor.Meta(doc, rawURL)
			result.Sections = s.extractor.Sections(doc, rawURL)
			result.Interactions = interactions
			log.Info("dynamic render succeeded",
				logger.Duration("duration", time.Since(start)),
				logger.Int("sections", len(result.Sections)),
			)
		} else {
			log.Warn("dynamic render failed",
				logger.Duration("duration", time.Since(start)),
				logger.Strings("pages", interactions.Pages),
				logger.Error(renderErr),
			)
			if fetchErr != nil {
				result.Errors = append(result.Errors, page.Error{
					Message: msgFetchFailed + ": " + fetchErr.Error(),
					Phase:   page.PhaseFetch,
				})
			}
			result.Errors = append(result.Errors, page.Error{
				Message: msgRenderFail + ": " + renderErr.Error(),
				Phase:   page.PhaseRender,
			})
		}
	} else {
		log.Debug("static pass sufficient", logger.Int("text_length", textLen))
	}

	if len(result.Sections) == 0 && len(result.Errors) == 0 {
		result.Sections = []page.Section{s.extractor.Fallback(latest, rawURL)}
	}

	log.Info("scrape finished",
		logger.Int("sections", len(result.Sections)),
		logger.Int("errors", len(result.Errors)),
	)
	return result
}

func (s *Scraper) static(ctx context.Context, rawURL string) (*goquery.Document, error) {
	body, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return extractor.Parse(body)
}

func (s *Scraper) dynamic(ctx context.Context, rawURL string) (*goquery.Document, page.Interactions, error) {
	if s.renderer == nil {
		return nil, page.NewInteractions(rawURL), errNoRenderer
	}
	html, interactions, err := s.renderer.Render(ctx, rawURL)
	if err != nil {
		return nil, interactions, err
	}
	doc, err := extractor.Parse(html)
	if err != nil {
		return nil, interactions, err
	}
	return doc, interactions, nil
}

func validScheme(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
