package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pagescope/internal/page"
)

// Meta extracts title, description, language and canonical URL.
func (e *Extractor) Meta(doc *goquery.Document, sourceURL string) page.Meta {
	meta := page.NewMeta()

	if og, ok := doc.Find("meta[property='og:title']").First().Attr("content"); ok && og != "" {
		meta.Title = strings.TrimSpace(og)
	} else if title := doc.Find("title").First().Text(); title != "" {
		meta.Title = strings.TrimSpace(title)
	}

	if desc, ok := doc.Find("meta[name='description']").First().Attr("content"); ok {
		meta.Description = strings.TrimSpace(desc)
	}

	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		meta.Language = strings.TrimSpace(lang)
	}

	if href, ok := doc.Find("link[rel~='canonical']").First().Attr("href"); ok {
		if href = strings.TrimSpace(href); href != "" {
			if abs := ResolveURL(sourceURL, href); abs != "" {
				meta.Canonical = &abs
			}
		}
	}

	return meta
}
