// Package formatter renders a scrape result in one of the supported output
// formats.
package formatter

import (
	"fmt"
	"path/filepath"
	"strings"

	"pagescope/internal/scraper"
)

// Output formats.
const (
	JSON     = "json"
	Markdown = "markdown"
	Text     = "text"
	HTML     = "html"
	CSV      = "csv"
)

// Formats lists every supported format.
var Formats = []string{JSON, Markdown, Text, HTML, CSV}

// Format renders content as the named format.
func Format(content scraper.Content, format string) (string, error) {
	switch format {
	case HTML:
		return content.ToHTML()
	case Text:
		return content.ToText()
	case Markdown:
		return content.ToMarkdown()
	case CSV:
		return content.ToCSV()
	case JSON:
		b, err := content.ToJSON()
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// Valid reports whether format is supported.
func Valid(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// FromExtension infers a format from a file name, or returns "".
func FromExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return Markdown
	case ".json":
		return JSON
	case ".html", ".htm":
		return HTML
	case ".txt":
		return Text
	case ".csv":
		return CSV
	default:
		return ""
	}
}
