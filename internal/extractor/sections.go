package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pagescope/internal/page"
)

// blockSelector lists the structural children that become section candidates.
const blockSelector = "header, nav, section, footer, article"

const (
	labelWords   = 7
	defaultLabel = "Section"
)

// Sections partitions doc into classified sections in document order.
func (e *Extractor) Sections(doc *goquery.Document, sourceURL string) []page.Section {
	sections := []page.Section{}

	container := doc.Find("main").First()
	if container.Length() == 0 {
		container = doc.Find("body").First()
	}
	if container.Length() == 0 {
		return sections
	}

	candidates := container.ChildrenFiltered(blockSelector)
	if candidates.Length() == 0 {
		candidates = container
	}

	candidates.Each(func(idx int, block *goquery.Selection) {
		s := e.section(block, idx, sourceURL)
		if s.Content.HasContent() {
			sections = append(sections, s)
		}
	})
	return sections
}

func (e *Extractor) section(block *goquery.Selection, idx int, sourceURL string) page.Section {
	content := page.NewSectionContent()

	block.Find("h1, h2, h3").Each(func(_ int, h *goquery.Selection) {
		if text := inlineText(h); text != "" {
			content.Headings = append(content.Headings, text)
		}
	})

	content.Text = flattenText(block)

	block.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := ResolveURL(sourceURL, href)
		if abs == "" {
			return
		}
		content.Links = append(content.Links, page.Link{Text: inlineText(a), Href: abs})
	})

	block.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		abs := ResolveURL(sourceURL, src)
		if abs == "" {
			return
		}
		alt, _ := img.Attr("alt")
		content.Images = append(content.Images, page.Image{Src: abs, Alt: alt})
	})

	block.Find("ul, ol").Each(func(_ int, list *goquery.Selection) {
		items := list.Find("li").Map(func(_ int, li *goquery.Selection) string {
			return inlineText(li)
		})
		if len(items) > 0 {
			content.Lists = append(content.Lists, items)
		}
	})

	block.Find("table").Each(func(_ int, table *goquery.Selection) {
		var rows [][]string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := tr.Find("td, th").Map(func(_ int, cell *goquery.Selection) string {
				return inlineText(cell)
			})
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
		})
		if len(rows) > 0 {
			content.Tables = append(content.Tables, rows)
		}
	})

	raw, _ := goquery.OuterHtml(block)
	raw, truncated := Truncate(raw, e.rawHTMLMaxChars)

	sectionType := classify(goquery.NodeName(block))
	return page.Section{
		ID:        fmt.Sprintf("%s-%d", sectionType, idx),
		Type:      sectionType,
		Label:     label(content),
		SourceURL: sourceURL,
		Content:   content,
		RawHTML:   raw,
		Truncated: truncated,
	}
}

// Fallback builds the single catch-all section from the document body, used
// when extraction found nothing but no pipeline error was recorded.
func (e *Extractor) Fallback(doc *goquery.Document, sourceURL string) page.Section {
	content := page.NewSectionContent()
	var raw string
	if doc != nil {
		if body := doc.Find("body").First(); body.Length() > 0 {
			content.Text = flattenText(body)
			raw, _ = goquery.OuterHtml(body)
		}
	}
	raw, truncated := Truncate(raw, e.rawHTMLMaxChars)
	return page.Section{
		ID:        page.TypeSection + "-0",
		Type:      page.TypeSection,
		Label:     "Page Content",
		SourceURL: sourceURL,
		Content:   content,
		RawHTML:   raw,
		Truncated: truncated,
	}
}

func classify(tag string) string {
	switch tag {
	case "header":
		return page.TypeHero
	case "nav":
		return page.TypeNav
	case "footer":
		return page.TypeFooter
	default:
		return page.TypeSection
	}
}

func label(content page.SectionContent) string {
	if len(content.Headings) > 0 {
		return content.Headings[0]
	}
	words := strings.Fields(content.Text)
	if len(words) == 0 {
		return defaultLabel
	}
	if len(words) > labelWords {
		words = words[:labelWords]
	}
	return strings.Join(words, " ")
}
