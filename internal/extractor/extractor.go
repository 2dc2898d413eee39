// Package extractor turns an HTML document into page metadata and
// classified sections.
package extractor

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultRawHTMLMaxChars caps the markup kept per section.
const DefaultRawHTMLMaxChars = 5000

// TruncationMarker is appended to markup cut at the cap.
const TruncationMarker = "...[truncated]"

// Extractor extracts metadata and sections from parsed documents.
type Extractor struct {
	rawHTMLMaxChars int
}

// New creates an Extractor. A non-positive cap uses DefaultRawHTMLMaxChars.
func New(rawHTMLMaxChars int) *Extractor {
	if rawHTMLMaxChars <= 0 {
		rawHTMLMaxChars = DefaultRawHTMLMaxChars
	}
	return &Extractor{rawHTMLMaxChars: rawHTMLMaxChars}
}

// Parse parses raw HTML into a queryable document.
func Parse(rawHTML string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// Truncate cuts s to max characters and appends TruncationMarker when s is
// longer than max. The second result reports whether it was cut.
func Truncate(s string, max int) (string, bool) {
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	return string([]rune(s)[:max]) + TruncationMarker, true
}

// ResolveURL resolves ref against base. Unparseable refs yield "".
func ResolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}

// flattenText joins every trimmed, non-empty text node below sel with a
// single space.
func flattenText(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		walkText(n, func(s string) {
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		})
	}
	return strings.Join(parts, " ")
}

// inlineText is the visible text of sel with whitespace runs collapsed.
func inlineText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		walkText(n, func(s string) { b.WriteString(s) })
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func walkText(n *html.Node, fn func(string)) {
	switch n.Type {
	case html.TextNode:
		fn(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "template":
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, fn)
	}
}
