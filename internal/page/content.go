package page

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

var tableRe = regexp.MustCompile(`(?is)<table\b[^>]*>.*?</table>`)

// ToJSON returns the response envelope as indented JSON.
func (r *Result) ToJSON() ([]byte, error) {
	return json.MarshalIndent(Envelope{Result: r}, "", "  ")
}

// ToHTML returns the concatenated raw markup of all sections.
func (r *Result) ToHTML() (string, error) {
	var sb strings.Builder
	for _, s := range r.Sections {
		sb.WriteString(fmt.Sprintf("<!-- %s: %s -->\n", s.ID, s.Label))
		sb.WriteString(s.RawHTML)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// ToText returns the page title followed by each section's label and text.
func (r *Result) ToText() (string, error) {
	var sb strings.Builder
	if r.Meta.Title != "" {
		sb.WriteString(r.Meta.Title + "\n\n")
	}
	for _, s := range r.Sections {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", s.Type, s.Label))
		if s.Content.Text != "" {
			sb.WriteString(s.Content.Text + "\n")
		}
		sb.WriteString("\n")
	}
	for _, e := range r.Errors {
		sb.WriteString(fmt.Sprintf("error (%s): %s\n", e.Phase, e.Message))
	}
	return sb.String(), nil
}

// ToMarkdown converts each section's markup to Markdown under a heading
// named after the section label.
func (r *Result) ToMarkdown() (string, error) {
	converter := md.NewConverter("", true, nil)

	var sb strings.Builder
	title := r.Meta.Title
	if title == "" {
		title = r.URL
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	if r.Meta.Description != "" {
		sb.WriteString(fmt.Sprintf("> %s\n\n", r.Meta.Description))
	}
	sb.WriteString(fmt.Sprintf("Source: %s\n\n", r.URL))

	for _, s := range r.Sections {
		sb.WriteString(fmt.Sprintf("## %s\n\n", s.Label))
		body, err := converter.ConvertString(convertTablesInHTML(s.RawHTML))
		if err != nil {
			return "", fmt.Errorf("failed to convert section %s to Markdown: %w", s.ID, err)
		}
		body = strings.TrimSpace(body)
		if body == "" {
			body = s.Content.Text
		}
		sb.WriteString(body + "\n\n")
	}
	return sb.String(), nil
}

// ToCSV writes every extracted table, one block per table.
func (r *Result) ToCSV() (string, error) {
	var buf bytes.Buffer
	tableIndex := 0
	for _, s := range r.Sections {
		for _, table := range s.Content.Tables {
			tableIndex++
			if tableIndex > 1 {
				buf.WriteString("\n")
			}
			buf.WriteString(fmt.Sprintf("# Table %d (%s)\n", tableIndex, s.ID))

			w := csv.NewWriter(&buf)
			if err := w.WriteAll(table); err != nil {
				return "", fmt.Errorf("failed to write table %d: %w", tableIndex, err)
			}
		}
	}
	return buf.String(), nil
}

// convertTablesInHTML replaces every table in htmlContent with a Markdown table.
func convertTablesInHTML(htmlContent string) string {
	return tableRe.ReplaceAllStringFunc(htmlContent, convertHTMLTableToMarkdown)
}

func convertHTMLTableToMarkdown(tableHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tableHTML))
	if err != nil {
		return tableHTML
	}

	var builder strings.Builder
	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		headerRow := table.Find("thead tr").First()
		if headerRow.Length() == 0 {
			headerRow = table.Find("tr").First()
		}
		var headers []string
		headerRow.Find("th, td").Each(func(j int, cell *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(cell.Text()))
		})
		if len(headers) == 0 {
			return
		}

		writeMarkdownRow(&builder, headers)
		sep := make([]string, len(headers))
		for j := range sep {
			sep[j] = "---"
		}
		writeMarkdownRow(&builder, sep)

		dataRows := table.Find("tr").NotSelection(headerRow)
		dataRows.Each(func(j int, row *goquery.Selection) {
			var cells []string
			row.Find("td, th").Each(func(k int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if len(cells) > 0 {
				writeMarkdownRow(&builder, cells)
			}
		})
		builder.WriteString("\n")
	})

	return builder.String()
}

func writeMarkdownRow(b *strings.Builder, cells []string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString(" |\n")
}
