// Package page holds the structured result of one extraction request.
package page

import (
	"slices"
	"time"
	"unicode/utf8"
)

// Phase identifies which pipeline stage produced an error.
type Phase string

const (
	PhaseFetch  Phase = "fetch"
	PhaseRender Phase = "render"
)

// Section types.
const (
	TypeHero    = "hero"
	TypeNav     = "nav"
	TypeFooter  = "footer"
	TypeSection = "section"
)

// Envelope is the top-level response document.
type Envelope struct {
	Result *Result `json:"result"`
}

// Result is the outcome of one extraction request. It is not modified after
// the orchestrator returns it.
type Result struct {
	URL          string       `json:"url"`
	ScrapedAt    time.Time    `json:"scrapedAt"`
	Meta         Meta         `json:"meta"`
	Sections     []Section    `json:"sections"`
	Interactions Interactions `json:"interactions"`
	Errors       []Error      `json:"errors"`
}

// Meta is document-level metadata. Canonical is nil when the page declares none.
type Meta struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Language    string  `json:"language"`
	Canonical   *string `json:"canonical"`
}

// Section is one classified, content-bearing block of the page.
type Section struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Label     string         `json:"label"`
	SourceURL string         `json:"sourceUrl"`
	Content   SectionContent `json:"content"`
	RawHTML   string         `json:"rawHtml"`
	Truncated bool           `json:"truncated"`
}

// SectionContent is the structured content of a Section.
type SectionContent struct {
	Headings []string     `json:"headings"`
	Text     string       `json:"text"`
	Links    []Link       `json:"links"`
	Images   []Image      `json:"images"`
	Lists    [][]string   `json:"lists"`
	Tables   [][][]string `json:"tables"`
}

// Link is an anchor with an absolute href.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Image is an img element with an absolute src.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Interactions is the log of actions taken during a dynamic pass.
type Interactions struct {
	Clicks  []string `json:"clicks"`
	Scrolls int      `json:"scrolls"`
	Pages   []string `json:"pages"`
}

// Error is a recorded, non-fatal pipeline failure.
type Error struct {
	Message string `json:"message"`
	Phase   Phase  `json:"phase"`
}

// NewMeta returns empty metadata.
func NewMeta() Meta {
	return Meta{}
}

// NewInteractions returns an interaction log seeded with the given pages.
func NewInteractions(pages ...string) Interactions {
	return Interactions{
		Clicks: []string{},
		Pages:  append([]string{}, pages...),
	}
}

// NewSectionContent returns content with all collections non-nil, so they
// serialize as empty arrays rather than null.
func NewSectionContent() SectionContent {
	return SectionContent{
		Headings: []string{},
		Links:    []Link{},
		Images:   []Image{},
		Lists:    [][]string{},
		Tables:   [][][]string{},
	}
}

// HasContent reports whether the content carries any text or structured items.
func (c SectionContent) HasContent() bool {
	return c.Text != "" || len(c.Links) > 0 || len(c.Images) > 0 || len(c.Lists) > 0 || len(c.Tables) > 0
}

// TextLength is the total character count of section text.
func TextLength(sections []Section) int {
	n := 0
	for _, s := range sections {
		n += utf8.RuneCountInString(s.Content.Text)
	}
	return n
}

// HasPage reports whether u is already in the visited-pages log.
func (i Interactions) HasPage(u string) bool {
	return slices.Contains(i.Pages, u)
}
